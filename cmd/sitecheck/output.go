package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tomyan/sitecheck/internal/suite"
)

// TextValuer is implemented by result types that have an obvious plain-text representation.
type TextValuer interface {
	TextValue() string
}

func outputResult(cfg *Config, v interface{}) int {
	switch cfg.Output {
	case "json":
		enc := json.NewEncoder(cfg.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "ndjson":
		enc := json.NewEncoder(cfg.Stdout)
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
	case "text":
		if tv, ok := v.(TextValuer); ok {
			fmt.Fprintln(cfg.Stdout, tv.TextValue())
		} else {
			// Fall back to JSON for complex types
			enc := json.NewEncoder(cfg.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(v); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
	default:
		fmt.Fprintf(cfg.Stderr, "error: unknown output format: %s\n", cfg.Output)
		return ExitError
	}
	return ExitSuccess
}

// outputReport writes a run report. ndjson emits one line per result and
// a final totals line.
func outputReport(cfg *Config, report *suite.Report) int {
	switch cfg.Output {
	case "ndjson":
		enc := json.NewEncoder(cfg.Stdout)
		for _, res := range report.Results {
			if err := enc.Encode(res); err != nil {
				fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
				return ExitError
			}
		}
		summary := struct {
			RunID  string       `json:"runId"`
			Totals suite.Totals `json:"totals"`
		}{report.RunID, report.Totals}
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
			return ExitError
		}
		return ExitSuccess
	case "text":
		writeTextReport(cfg.Stdout, report)
		return ExitSuccess
	}
	return outputResult(cfg, report)
}

var statusLabels = map[suite.Status]string{
	suite.StatusPassed: "PASS ",
	suite.StatusFailed: "FAIL ",
	suite.StatusFlaky:  "FLAKY",
}

func writeTextReport(w io.Writer, report *suite.Report) {
	for _, res := range report.Results {
		fmt.Fprintf(w, "%s  %s (%dms", statusLabels[res.Status], res.ID(), res.DurationMS)
		if res.Attempts > 1 {
			fmt.Fprintf(w, ", %d attempts", res.Attempts)
		}
		fmt.Fprintln(w, ")")
		if res.Status != suite.StatusFailed {
			continue
		}
		for _, line := range strings.Split(res.Error, "\n") {
			fmt.Fprintf(w, "       %s\n", line)
		}
		for _, a := range res.Artifacts {
			fmt.Fprintf(w, "       artifact: %s\n", a)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d flaky (%dms, run %s)\n",
		report.Totals.Passed, report.Totals.Failed, report.Totals.Flaky, report.DurationMS, report.RunID)
}
