package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/phuslu/log"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/chrome"
	"github.com/tomyan/sitecheck/internal/logging"
	"github.com/tomyan/sitecheck/internal/runconfig"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitConnFailed = 2
	ExitTimeout    = 3
)

// Config holds the CLI configuration.
type Config struct {
	Port       int
	Host       string
	Timeout    time.Duration // connecting, and the whole run when set explicitly
	Output     string        // json, ndjson, text
	Quiet      bool
	LogLevel   string
	ConfigPath string

	// Run is the loaded sitecheck.toml, or the defaults.
	Run *runconfig.Config
	// timeoutSet records an explicit --timeout.
	timeoutSet bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// PortChecker overrides port detection for testing. If nil, uses launcher.IsPortOpen.
	PortChecker func(host string, port int) bool
	// OpenBrowser overrides how run obtains a browser. Tests use it to run
	// against the static binding.
	OpenBrowser func(ctx context.Context, cfg *Config, launch bool, logger *log.Logger) (browser.Browser, func(), error)
}

// DefaultConfig returns the default configuration with built-in defaults.
// The config file and environment are applied later in the config chain.
func DefaultConfig() *Config {
	return &Config{
		Port:     9222,
		Host:     "localhost",
		Timeout:  30 * time.Second,
		Output:   "text",
		LogLevel: "info",
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

func main() {
	cfg := DefaultConfig()
	os.Exit(run(os.Args[1:], cfg))
}

// flagValues stores values parsed from CLI flags before they get overwritten.
type flagValues struct {
	port     int
	host     string
	timeout  time.Duration
	output   string
	quiet    bool
	logLevel string
	config   string
}

func run(args []string, cfg *Config) int {
	var fv flagValues
	fs := flag.NewFlagSet("sitecheck", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.IntVar(&fv.port, "port", cfg.Port, "Chrome debug port (env: SITECHECK_PORT)")
	fs.StringVar(&fv.host, "host", cfg.Host, "Chrome debug host (env: SITECHECK_HOST)")
	fs.DurationVar(&fv.timeout, "timeout", cfg.Timeout, "Connect timeout; bounds the whole run when given")
	fs.StringVar(&fv.output, "output", cfg.Output, "Output format: json, ndjson, text")
	fs.BoolVar(&fv.quiet, "quiet", cfg.Quiet, "Only log errors")
	fs.StringVar(&fv.logLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&fv.config, "config", "", "Config file (default: ./"+runconfig.FileName+", then ~/"+runconfig.FileName+")")

	fs.Usage = func() { printUsage(cfg, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	explicitFlags := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	// Config precedence: built-in defaults < sitecheck.toml < env vars < CLI flags
	if err := loadConfigFile(cfg, fv.config); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	if err := applyEnvVars(cfg, explicitFlags); err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}
	reapplyExplicitFlags(cfg, &fv, explicitFlags)

	remaining := fs.Args()
	if len(remaining) < 1 {
		printUsage(cfg, fs)
		return ExitError
	}

	info, ok := commands[remaining[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", remaining[0])
		return ExitError
	}
	return info.Run(cfg, remaining[1:])
}

// applyEnvVars applies environment variables to cfg, but only for fields
// not already set by explicit CLI flags.
func applyEnvVars(cfg *Config, explicit map[string]bool) error {
	if !explicit["port"] {
		if v := os.Getenv("SITECHECK_PORT"); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("SITECHECK_PORT: %w", err)
			}
			cfg.Port = i
		}
	}
	if !explicit["host"] {
		if v := os.Getenv("SITECHECK_HOST"); v != "" {
			cfg.Host = v
		}
	}
	if v := os.Getenv("SITECHECK_BASE_URL"); v != "" {
		cfg.Run.Use.BaseURL = v
		if err := cfg.Run.Validate(); err != nil {
			return fmt.Errorf("SITECHECK_BASE_URL: %w", err)
		}
	}
	return nil
}

// reapplyExplicitFlags re-applies flag values that were explicitly set
// on the command line, since the config file may have overwritten them.
func reapplyExplicitFlags(cfg *Config, fv *flagValues, explicit map[string]bool) {
	if explicit["port"] {
		cfg.Port = fv.port
	}
	if explicit["host"] {
		cfg.Host = fv.host
	}
	if explicit["timeout"] {
		cfg.Timeout = fv.timeout
		cfg.timeoutSet = true
	}
	if explicit["output"] {
		cfg.Output = fv.output
	}
	if explicit["quiet"] {
		cfg.Quiet = fv.quiet
	}
	if explicit["log-level"] {
		cfg.LogLevel = fv.logLevel
	}
}

// logger builds the run logger. Logs go to stderr so stdout carries only
// results; structured output formats get JSON log lines.
func (cfg *Config) logger() *log.Logger {
	level := cfg.LogLevel
	if cfg.Quiet {
		level = "error"
	}
	return logging.New(cfg.Stderr, level, cfg.Output != "text")
}

// withClient executes a function with a connected Chrome client.
func withClient(cfg *Config, fn func(ctx context.Context, client *chrome.Client) (interface{}, error)) int {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := chrome.Connect(ctx, cfg.Host, cfg.Port)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitConnFailed
	}
	defer client.Close()

	result, err := fn(ctx, client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Fprintln(cfg.Stderr, "error: timeout")
			return ExitTimeout
		}
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	return outputResult(cfg, result)
}
