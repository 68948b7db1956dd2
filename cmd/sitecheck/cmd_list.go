package main

import (
	"flag"
	"strings"

	"github.com/tomyan/sitecheck/internal/suite"
)

// ListEntry is one selectable check.
type ListEntry struct {
	ID    string `json:"id"`
	Suite string `json:"suite"`
	Name  string `json:"name"`
}

// ListResult is the output of list.
type ListResult struct {
	Checks []ListEntry `json:"checks"`
}

func (r ListResult) TextValue() string {
	ids := make([]string, len(r.Checks))
	for i, c := range r.Checks {
		ids[i] = c.ID
	}
	return strings.Join(ids, "\n")
}

func cmdList(cfg *Config, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	grep := fs.String("grep", "", "Only list checks whose suite/case matches this regexp")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return ExitSuccess
		}
		return ExitError
	}

	result := ListResult{Checks: []ListEntry{}}
	for _, t := range suite.Filter(suite.Registry(), *grep) {
		result.Checks = append(result.Checks, ListEntry{ID: t.ID(), Suite: t.Suite.Name, Name: t.Case.Name})
	}
	return outputResult(cfg, result)
}
