// Package runconfig reads sitecheck.toml: test timeouts, retries,
// concurrency, artifact modes, the Chrome endpoint and the projects (device
// profiles) every test runs under.
package runconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tomyan/sitecheck/internal/chrome"
)

// FileName is the configuration file looked up by the CLI.
const FileName = "sitecheck.toml"

// Duration is a time.Duration written as a string ("60s") in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Artifact capture modes.
const (
	ModeOff             = "off"
	ModeOn              = "on"
	ModeOnlyOnFailure   = "only-on-failure"
	ModeRetainOnFailure = "retain-on-failure"
	ModeOnFirstRetry    = "on-first-retry"
)

// Use holds options applied to every test.
type Use struct {
	// BaseURL replaces the fixture environment's base URL when set.
	BaseURL    string `toml:"base_url,omitempty" validate:"omitempty,url"`
	Headless   bool   `toml:"headless"`
	Screenshot string `toml:"screenshot" validate:"oneof=off on only-on-failure"`
	Video      string `toml:"video" validate:"oneof=off on retain-on-failure on-first-retry"`
	Trace      string `toml:"trace" validate:"oneof=off on retain-on-failure on-first-retry"`
}

// Chrome is the browser endpoint. With Launch set a local Chrome is
// started on Port when nothing is listening there.
type Chrome struct {
	Host   string `toml:"host" validate:"required"`
	Port   int    `toml:"port" validate:"min=1,max=65535"`
	Launch bool   `toml:"launch"`
	Path   string `toml:"path"`
}

// Project runs every test under one device profile. Device defaults from
// the project name when empty.
type Project struct {
	Name   string `toml:"name" validate:"required"`
	Device string `toml:"device,omitempty"`
}

type Config struct {
	Timeout           Duration  `toml:"timeout" validate:"gt=0"`
	Retries           int       `toml:"retries" validate:"gte=0,lte=10"`
	Workers           int       `toml:"workers" validate:"gte=1"`
	ExpectTimeout     Duration  `toml:"expect_timeout" validate:"gt=0"`
	NavigationTimeout Duration  `toml:"navigation_timeout" validate:"gt=0"`
	OutputDir         string    `toml:"output_dir" validate:"required"`
	FixturesDir       string    `toml:"fixtures_dir"`
	Use               Use       `toml:"use"`
	Chrome            Chrome    `toml:"chrome"`
	Projects          []Project `toml:"projects" validate:"min=1,unique=Name,dive"`
}

// projectDevices maps the engine-named projects onto the Chrome device
// profile that stands in for them.
var projectDevices = map[string]string{
	"chromium": "Desktop Chrome",
	"firefox":  "Desktop Firefox",
	"webkit":   "Desktop Safari",
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Timeout:           Duration(60 * time.Second),
		Retries:           2,
		Workers:           1,
		ExpectTimeout:     Duration(10 * time.Second),
		NavigationTimeout: Duration(30 * time.Second),
		OutputDir:         "test-results",
		Use: Use{
			Headless:   true,
			Screenshot: ModeOnlyOnFailure,
			Video:      ModeRetainOnFailure,
			Trace:      ModeOnFirstRetry,
		},
		Chrome: Chrome{
			Host: "localhost",
			Port: 9222,
		},
		Projects: []Project{
			{Name: "chromium"},
			{Name: "firefox"},
			{Name: "webkit"},
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error. A file
// without projects keeps the default ones.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	projects := cfg.Projects
	cfg.Projects = nil

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("line %d column %d: %w", row, col, err)
		}
		return nil, err
	}
	if len(cfg.Projects) == 0 {
		cfg.Projects = projects
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeviceName returns the device profile name for p.
func (p Project) DeviceName() string {
	if p.Device != "" {
		return p.Device
	}
	if d, ok := projectDevices[strings.ToLower(p.Name)]; ok {
		return d
	}
	return p.Name
}

// DeviceInfo returns the emulation settings for p.
func (p Project) DeviceInfo() (chrome.DeviceInfo, error) {
	d, ok := chrome.Devices[p.DeviceName()]
	if !ok {
		return chrome.DeviceInfo{}, fmt.Errorf("project %s: unknown device %q", p.Name, p.DeviceName())
	}
	return d, nil
}

// SelectProjects returns the projects named in names, or all of them when
// names is empty.
func (c *Config) SelectProjects(names []string) ([]Project, error) {
	if len(names) == 0 {
		return c.Projects, nil
	}
	var out []Project
	for _, name := range names {
		found := false
		for _, p := range c.Projects {
			if p.Name == name {
				out = append(out, p)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown project %q", name)
		}
	}
	return out, nil
}
