package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/phuslu/log"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/chrome"
	"github.com/tomyan/sitecheck/internal/chrome/launcher"
	"github.com/tomyan/sitecheck/internal/fixture"
	"github.com/tomyan/sitecheck/internal/logging"
	"github.com/tomyan/sitecheck/internal/suite"
)

// stringList is a repeatable flag that also splits on commas.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func cmdRun(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	grep := fs.String("grep", "", "Only run checks whose suite/case matches this regexp")
	var projects stringList
	fs.Var(&projects, "project", "Project to run (repeatable; default: all)")
	workers := fs.Int("workers", cfg.Run.Workers, "Checks run concurrently")
	retries := fs.Int("retries", cfg.Run.Retries, "Re-runs of a failing check")
	launch := fs.Bool("launch", cfg.Run.Chrome.Launch, "Start Chrome if nothing listens on the debug port")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}
	if fs.NArg() > 0 {
		return cmdMissingArg(cfg, "usage: "+commands["run"].Usage)
	}

	rc := *cfg.Run
	rc.Workers, rc.Retries = *workers, *retries
	if err := rc.Validate(); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	store, err := loadFixtures(rc.FixturesDir)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	tests := suite.Filter(suite.Registry(), *grep)
	if len(tests) == 0 {
		fmt.Fprintf(cfg.Stderr, "error: no checks match %q\n", *grep)
		return ExitError
	}
	selected, err := rc.SelectProjects(projects)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.timeoutSet {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	logger := cfg.logger()
	open := cfg.OpenBrowser
	if open == nil {
		open = openChrome
	}
	b, closeBrowser, err := open(ctx, cfg, *launch, logger)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitConnFailed
	}
	defer closeBrowser()

	runner := &suite.Runner{
		Browser: b,
		Store:   store,
		Config:  &rc,
		Log:     logger,
	}
	report, err := runner.Run(ctx, selected, tests)
	if report != nil {
		if code := outputReport(cfg, report); code != ExitSuccess {
			return code
		}
	}
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		if suite.IsTimeout(err) {
			return ExitTimeout
		}
		return ExitError
	}
	if !report.Passed() {
		return ExitError
	}
	return ExitSuccess
}

func loadFixtures(dir string) (*fixture.Store, error) {
	if dir == "" {
		return fixture.Load()
	}
	return fixture.LoadDir(dir)
}

// openChrome connects to Chrome on the configured endpoint, launching a
// local instance first when asked to and nothing is listening.
func openChrome(ctx context.Context, cfg *Config, launch bool, logger *log.Logger) (browser.Browser, func(), error) {
	logger = logging.OrNop(logger)
	portOpen := cfg.PortChecker
	if portOpen == nil {
		portOpen = launcher.IsPortOpen
	}

	var inst *launcher.Instance
	if launch {
		if info, err := launcher.DetectRunning(ctx, cfg.Host, cfg.Port); err == nil {
			logger.Info().Str("browser", info.Browser).Str("endpoint", info.WebSocketDebuggerURL).Msg("using running chrome")
			launch = false
		}
	}
	if launch && !portOpen(cfg.Host, cfg.Port) {
		var err error
		inst, err = launcher.Launch(ctx, launcher.Options{
			ChromePath: cfg.Run.Chrome.Path,
			Port:       cfg.Port,
			Headless:   cfg.Run.Use.Headless,
		})
		if err != nil {
			if errors.Is(err, launcher.ErrChromeNotFound) {
				return nil, nil, fmt.Errorf("%w; install Chrome or set [chrome] path", err)
			}
			return nil, nil, err
		}
		logger.Info().Int("pid", inst.PID).Int("port", inst.Port).Msg("chrome launched")
	}

	connCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	client, err := chrome.Connect(connCtx, cfg.Host, cfg.Port)
	if err != nil {
		if inst != nil {
			inst.Stop()
		}
		return nil, nil, err
	}

	b := browser.NewCDP(client, logger)
	return b, func() {
		b.Close()
		if inst != nil {
			inst.Stop()
		}
	}, nil
}
