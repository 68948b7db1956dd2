package suite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/expect"
	"github.com/tomyan/sitecheck/internal/fixture"
	"github.com/tomyan/sitecheck/internal/logging"
	"github.com/tomyan/sitecheck/internal/pages"
	"github.com/tomyan/sitecheck/internal/runconfig"
)

// artifactTimeout bounds failure capture, which runs after the test's own
// deadline may have passed.
const artifactTimeout = 10 * time.Second

// Runner executes tests against a browser.
type Runner struct {
	Browser browser.Browser
	Store   *fixture.Store
	Config  *runconfig.Config
	Log     *log.Logger

	videoOnce sync.Once
}

func (r *Runner) settings() Settings {
	timeouts := pages.DefaultTimeouts()
	timeouts.Navigation = r.Config.NavigationTimeout.Std()
	return Settings{
		BaseURL:  r.Config.Use.BaseURL,
		Expect:   expect.New(r.Config.ExpectTimeout.Std()),
		Timeouts: timeouts,
	}
}

// Run executes every test under every project. Test failures are reported
// in the returned Report; an error means the run itself was cut short.
func (r *Runner) Run(ctx context.Context, projects []runconfig.Project, tests []Test) (*Report, error) {
	logger := logging.OrNop(r.Log)
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	report.OutputDir = filepath.Join(r.Config.OutputDir, report.RunID)

	if r.Config.Use.Video != runconfig.ModeOff {
		r.videoOnce.Do(func() {
			logger.Info().Str("mode", r.Config.Use.Video).Msg("video recording is not supported, ignoring")
		})
	}

	type job struct {
		project runconfig.Project
		test    Test
	}
	var jobs []job
	for _, p := range projects {
		if _, err := p.DeviceInfo(); err != nil {
			return nil, err
		}
		for _, t := range tests {
			jobs = append(jobs, job{project: p, test: t})
		}
	}

	logger.Info().Str("run", report.RunID).Int("tests", len(jobs)).Int("workers", r.Config.Workers).Msg("run started")

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Config.Workers, 1))
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runTest(gctx, report.OutputDir, j.project, j.test)
			return nil
		})
	}
	err := g.Wait()

	report.Results = results
	if err != nil {
		// Jobs that never started have no status.
		report.Results = report.Results[:0]
		for _, res := range results {
			if res.Status != "" {
				report.Results = append(report.Results, res)
			}
		}
	}
	report.tally()
	report.DurationMS = time.Since(report.StartedAt).Milliseconds()

	logger.Info().
		Str("run", report.RunID).
		Int("passed", report.Totals.Passed).
		Int("failed", report.Totals.Failed).
		Int("flaky", report.Totals.Flaky).
		Msg("run finished")

	if err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	return report, nil
}

// runTest runs t until it passes or the retries are spent. Each attempt
// re-executes the whole test in a new browser context.
func (r *Runner) runTest(ctx context.Context, outputDir string, project runconfig.Project, t Test) Result {
	logger := r.testLogger(project, t)
	res := Result{
		Project: project.Name,
		Suite:   t.Suite.Name,
		Name:    t.Case.Name,
	}
	start := time.Now()

	for attempt := 0; attempt <= r.Config.Retries; attempt++ {
		res.Attempts = attempt + 1
		logger.Info().Int("attempt", res.Attempts).Msg("test started")

		a := r.attempt(ctx, outputDir, project, t, attempt, logger)
		res.Artifacts = append(res.Artifacts, a.artifacts...)
		res.SoftFailures = a.softFailures
		if a.err == nil {
			res.Status, res.Error = StatusPassed, ""
			if attempt > 0 {
				res.Status = StatusFlaky
			}
			logger.Info().Int("attempt", res.Attempts).Msg("test passed")
			break
		}

		res.Status, res.Error = StatusFailed, a.err.Error()
		logger.Warn().Int("attempt", res.Attempts).Err(a.err).Msg("test failed")
		if ctx.Err() != nil {
			break
		}
	}

	res.Duration = time.Since(start)
	res.DurationMS = res.Duration.Milliseconds()
	if res.Status == StatusFailed {
		logger.Error().Str("error", res.Error).Msg("test failed after retries")
	}
	return res
}

func (r *Runner) testLogger(project runconfig.Project, t Test) *log.Logger {
	base := logging.OrNop(r.Log)
	logger := *base
	logger.Context = log.NewContext(nil).Str("project", project.Name).Str("test", t.ID()).Value()
	return &logger
}

type attemptResult struct {
	err          error
	softFailures []string
	artifacts    []string
}

func (r *Runner) attempt(ctx context.Context, outputDir string, project runconfig.Project, t Test, attempt int, logger *log.Logger) (out attemptResult) {
	timeout := r.Config.Timeout.Std()
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bctx, err := r.Browser.NewContext(tctx)
	if err != nil {
		out.err = fmt.Errorf("creating browser context: %w", err)
		return out
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), artifactTimeout)
		defer cancel()
		if err := bctx.Close(closeCtx); err != nil {
			logger.Debug().Err(err).Msg("closing browser context")
		}
	}()

	tab, err := bctx.NewTab(tctx)
	if err != nil {
		out.err = fmt.Errorf("opening tab: %w", err)
		return out
	}
	device, _ := project.DeviceInfo()
	if err := tab.Emulate(tctx, device); err != nil {
		out.err = fmt.Errorf("emulating %s: %w", project.DeviceName(), err)
		return out
	}

	env, err := newEnv(bctx, tab, r.Store, r.settings(), logger)
	if err != nil {
		out.err = err
		return out
	}

	err = r.execute(tctx, t, env)
	if err != nil && tctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		err = fmt.Errorf("test timeout of %s exceeded: %w", timeout, err)
	}
	for _, f := range env.Soft.Failures() {
		out.softFailures = append(out.softFailures, f.Error())
	}
	if err == nil {
		err = env.Soft.Err()
	}
	out.err = err

	failed := err != nil
	shot := wantScreenshot(r.Config.Use.Screenshot, failed)
	trace := wantTrace(r.Config.Use.Trace, failed, attempt)
	if shot || trace {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), artifactTimeout)
		defer cancel()
		dir := filepath.Join(outputDir, slug(project.Name))
		name := slug(t.ID()) + "-attempt" + strconv.Itoa(attempt+1)
		paths, cerr := capture(actx, tab, dir, name, shot, trace)
		if cerr != nil {
			logger.Warn().Err(cerr).Msg("capturing artifacts")
		}
		out.artifacts = paths
	}
	return out
}

// execute runs BeforeEach and the case, turning a panic into a failure.
func (r *Runner) execute(ctx context.Context, t Test, env *Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if t.Suite.BeforeEach != nil {
		if err := t.Suite.BeforeEach(ctx, env); err != nil {
			return fmt.Errorf("before each: %w", err)
		}
	}
	return t.Case.Run(ctx, env)
}

// IsTimeout reports whether err came from a wait running out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, expect.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
