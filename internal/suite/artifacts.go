package suite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/runconfig"
)

// wantScreenshot applies the screenshot mode to an attempt outcome.
func wantScreenshot(mode string, failed bool) bool {
	switch mode {
	case runconfig.ModeOn:
		return true
	case runconfig.ModeOnlyOnFailure:
		return failed
	}
	return false
}

// wantTrace applies the trace mode; attempt counts from zero, so the
// first retry is attempt 1.
func wantTrace(mode string, failed bool, attempt int) bool {
	switch mode {
	case runconfig.ModeOn:
		return true
	case runconfig.ModeRetainOnFailure:
		return failed
	case runconfig.ModeOnFirstRetry:
		return attempt == 1
	}
	return false
}

// slug turns a test ID into a file name.
func slug(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// capture saves what the modes ask for from tab into dir and returns the
// written paths. Capture errors are returned joined; the paths that were
// written are still returned.
func capture(ctx context.Context, tab browser.Tab, dir, name string, screenshot, trace bool) ([]string, error) {
	if !screenshot && !trace {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	var errs []error
	write := func(file string, data []byte) {
		path := filepath.Join(dir, file)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			errs = append(errs, err)
			return
		}
		paths = append(paths, path)
	}

	if screenshot {
		data, err := tab.Screenshot(ctx)
		switch {
		case errors.Is(err, errors.ErrUnsupported):
		case err != nil:
			errs = append(errs, fmt.Errorf("screenshot: %w", err))
		default:
			write(name+".png", data)
		}
	}
	if trace {
		html, err := tab.Content(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("page snapshot: %w", err))
		} else {
			write(name+".html", []byte(html))
		}
	}
	return paths, errors.Join(errs...)
}
