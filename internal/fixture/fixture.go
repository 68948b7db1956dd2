// Package fixture loads the expected-content data the checks compare pages
// against. The data ships embedded in the binary and can be overridden per
// file from a directory.
package fixture

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
)

//go:embed data/*.json
var embedded embed.FS

// Files lists the fixture documents in load order.
var Files = []string{
	"environment.json",
	"ui-selectors.json",
	"download.json",
	"navigation.json",
	"routes.json",
	"trading.json",
	"company.json",
}

type Environment struct {
	BaseURL        string   `json:"baseUrl" validate:"required,url"`
	PopupSelectors []string `json:"popupSelectors" validate:"dive,required"`
}

type UISelectors struct {
	Header          string `json:"header" validate:"required"`
	MarketingBanner string `json:"marketingBanner" validate:"required"`
}

type Download struct {
	Selector        string   `json:"selector" validate:"required"`
	ExpectedDomains []string `json:"expectedDomains" validate:"min=1,dive,required"`
}

type ExternalLink struct {
	Label      string `json:"label" validate:"required"`
	URLPattern string `json:"urlPattern" validate:"required,regexp"`
}

// NavComponent describes the header's known items and which one leaves
// the site in a new tab.
type NavComponent struct {
	Items       []string     `json:"items" validate:"min=1,dive,required"`
	External    ExternalLink `json:"external"`
	HomePattern string       `json:"homePattern" validate:"required,regexp"`
}

type Navigation struct {
	Items     []string     `json:"items" validate:"min=1,dive,required"`
	SignUp    string       `json:"signUp" validate:"required"`
	Component NavComponent `json:"component"`
}

type TableStructure struct {
	PairCell  string `json:"pairCell" validate:"required"`
	PriceCell string `json:"priceCell" validate:"required"`
	ChartCell string `json:"chartCell" validate:"required"`
}

type Trading struct {
	Path           string         `json:"path" validate:"required"`
	Rows           string         `json:"rows" validate:"required"`
	Categories     []string       `json:"categories" validate:"min=1,unique,dive,required"`
	Assets         []string       `json:"assets" validate:"dive,required"`
	TableStructure TableStructure `json:"tableStructure"`
}

type Stat struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label" validate:"required"`
}

// MinLength holds the minimum paragraph lengths per company page region.
type MinLength struct {
	Hero    int `json:"hero" validate:"gt=0"`
	Section int `json:"section" validate:"gt=0"`
	Pillar  int `json:"pillar" validate:"gt=0"`
}

type Company struct {
	Path           string    `json:"path" validate:"required"`
	HeroHeading    string    `json:"heroHeading" validate:"required"`
	Stats          []Stat    `json:"stats" validate:"dive"`
	Sections       []string  `json:"sections" validate:"dive,required"`
	Pillars        []string  `json:"pillars" validate:"dive,required"`
	CommunityTitle string    `json:"communityTitle" validate:"required"`
	MinLength      MinLength `json:"minLength"`
}

// Store is the loaded fixture set. It is read-only after Load and shared
// by every test of a run.
type Store struct {
	Environment Environment       `json:"environment"`
	UISelectors UISelectors       `json:"uiSelectors"`
	Download    Download          `json:"download"`
	Navigation  Navigation        `json:"navigation"`
	Routes      map[string]string `json:"routes"`
	Trading     Trading           `json:"trading"`
	Company     Company           `json:"company"`

	routes map[string]*regexp.Regexp
}

// Load reads the embedded fixtures.
func Load() (*Store, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return load(sub, nil)
}

// LoadDir reads fixtures from dir, falling back to the embedded copy for
// every file dir does not contain.
func LoadDir(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("fixtures dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixtures dir %s is not a directory", dir)
	}
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return load(sub, os.DirFS(dir))
}

func load(base, overlay fs.FS) (*Store, error) {
	s := &Store{}
	targets := map[string]interface{}{
		"environment.json":  &s.Environment,
		"ui-selectors.json": &s.UISelectors,
		"download.json":     &s.Download,
		"navigation.json":   &s.Navigation,
		"routes.json":       &s.Routes,
		"trading.json":      &s.Trading,
		"company.json":      &s.Company,
	}

	for _, name := range Files {
		data, err := readFile(base, overlay, name)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, targets[name]); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func readFile(base, overlay fs.FS, name string) ([]byte, error) {
	if overlay != nil {
		data, err := fs.ReadFile(overlay, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}
	data, err := fs.ReadFile(base, filepath.ToSlash(name))
	if err != nil {
		return nil, fmt.Errorf("reading embedded %s: %w", name, err)
	}
	return data, nil
}

// Route returns the case-insensitive URL pattern for a navigation label.
func (s *Store) Route(label string) (*regexp.Regexp, error) {
	re, ok := s.routes[label]
	if !ok {
		return nil, fmt.Errorf("no route for %q", label)
	}
	return re, nil
}

// Pattern compiles a fixture pattern case-insensitively.
func Pattern(p string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + p)
}
