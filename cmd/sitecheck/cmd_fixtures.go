package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/tomyan/sitecheck/internal/fixture"
)

// FixturesResult summarizes a validated fixture set.
type FixturesResult struct {
	Source string         `json:"source"`
	Files  []string       `json:"files"`
	Store  *fixture.Store `json:"fixtures"`
}

func (r FixturesResult) TextValue() string {
	s := r.Store
	routes := make([]string, 0, len(s.Routes))
	for label, pattern := range s.Routes {
		routes = append(routes, fmt.Sprintf("%s=%s", label, pattern))
	}
	sort.Strings(routes)

	var b strings.Builder
	fmt.Fprintf(&b, "fixtures ok (%s, %d files)\n", r.Source, len(r.Files))
	fmt.Fprintf(&b, "base url:    %s\n", s.Environment.BaseURL)
	fmt.Fprintf(&b, "navigation:  %s\n", strings.Join(s.Navigation.Items, ", "))
	fmt.Fprintf(&b, "routes:      %s\n", strings.Join(routes, ", "))
	fmt.Fprintf(&b, "categories:  %s\n", strings.Join(s.Trading.Categories, ", "))
	fmt.Fprintf(&b, "assets:      %s\n", strings.Join(s.Trading.Assets, ", "))
	fmt.Fprintf(&b, "company:     %s (%d stats, %d sections, %d pillars)",
		s.Company.Path, len(s.Company.Stats), len(s.Company.Sections), len(s.Company.Pillars))
	return b.String()
}

func cmdFixtures(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("fixtures", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	dir := fs.String("dir", cfg.Run.FixturesDir, "Directory overriding the embedded fixture files")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	store, err := loadFixtures(*dir)
	if err != nil {
		fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
		return ExitError
	}

	source := "embedded"
	if *dir != "" {
		source = *dir
	}
	return outputResult(cfg, FixturesResult{Source: source, Files: fixture.Files, Store: store})
}
