// Package expect provides polling assertions over browser tabs, the error
// types they fail with, and a collector for soft assertions.
package expect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tomyan/sitecheck/internal/browser"
)

// DefaultInterval is the pause between polls.
const DefaultInterval = 100 * time.Millisecond

// Expect holds the wait applied to each assertion.
type Expect struct {
	Timeout  time.Duration
	Interval time.Duration
}

// New returns assertions that wait up to timeout.
func New(timeout time.Duration) Expect {
	return Expect{Timeout: timeout, Interval: DefaultInterval}
}

// WithTimeout returns a copy that waits up to d.
func (e Expect) WithTimeout(d time.Duration) Expect {
	e.Timeout = d
	return e
}

func (e Expect) poll(ctx context.Context, what string, check Check) error {
	interval := e.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Poll(ctx, what, e.Timeout, interval, check)
}

// Visible waits for the first match of l to be rendered.
func (e Expect) Visible(ctx context.Context, tab browser.Tab, l browser.Locator) error {
	return e.poll(ctx, l.String()+" to be visible", func(ctx context.Context) (string, bool, error) {
		visible, err := tab.Visible(ctx, l)
		return "visible=" + strconv.FormatBool(visible), visible, err
	})
}

// Hidden waits for l to have no rendered first match.
func (e Expect) Hidden(ctx context.Context, tab browser.Tab, l browser.Locator) error {
	return e.poll(ctx, l.String()+" to be hidden", func(ctx context.Context) (string, bool, error) {
		visible, err := tab.Visible(ctx, l)
		return "visible=" + strconv.FormatBool(visible), !visible, err
	})
}

func firstText(ctx context.Context, tab browser.Tab, l browser.Locator) (string, bool, error) {
	texts, err := tab.Texts(ctx, l)
	if err != nil || len(texts) == 0 {
		return "", false, err
	}
	return texts[0], true, nil
}

// Text waits for the first match's normalized text to equal want.
func (e Expect) Text(ctx context.Context, tab browser.Tab, l browser.Locator, want string) error {
	want = browser.NormalizeText(want)
	return e.poll(ctx, fmt.Sprintf("%s to have text %q", l, want), func(ctx context.Context) (string, bool, error) {
		got, found, err := firstText(ctx, tab, l)
		if !found {
			return "no match", false, err
		}
		return strconv.Quote(got), got == want, nil
	})
}

// TextContains waits for the first match's text to contain sub, ignoring case.
func (e Expect) TextContains(ctx context.Context, tab browser.Tab, l browser.Locator, sub string) error {
	return e.poll(ctx, fmt.Sprintf("%s to contain %q", l, sub), func(ctx context.Context) (string, bool, error) {
		got, found, err := firstText(ctx, tab, l)
		if !found {
			return "no match", false, err
		}
		return strconv.Quote(got), strings.Contains(strings.ToLower(got), strings.ToLower(sub)), nil
	})
}

// URL waits for the tab's URL to match re.
func (e Expect) URL(ctx context.Context, tab browser.Tab, re *regexp.Regexp) error {
	return e.poll(ctx, fmt.Sprintf("url to match /%s/", re), func(ctx context.Context) (string, bool, error) {
		url, err := tab.URL(ctx)
		return url, err == nil && re.MatchString(url), err
	})
}

// NotURL waits for the tab's URL to stop matching re.
func (e Expect) NotURL(ctx context.Context, tab browser.Tab, re *regexp.Regexp) error {
	return e.poll(ctx, fmt.Sprintf("url not to match /%s/", re), func(ctx context.Context) (string, bool, error) {
		url, err := tab.URL(ctx)
		return url, err == nil && !re.MatchString(url), err
	})
}

// MinCount waits for l to match at least n elements.
func (e Expect) MinCount(ctx context.Context, tab browser.Tab, l browser.Locator, n int) error {
	return e.poll(ctx, fmt.Sprintf("%s to match at least %d", l, n), func(ctx context.Context) (string, bool, error) {
		count, err := tab.Count(ctx, l)
		return "count=" + strconv.Itoa(count), count >= n, err
	})
}

// That asserts cond immediately.
func That(cond bool, what, expected, actual string) error {
	if cond {
		return nil
	}
	return &AssertionError{What: what, Expected: expected, Actual: actual}
}
