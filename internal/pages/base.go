// Package pages holds the page objects: one type per page or page region,
// each exposing the actions and checks the suites are written in.
package pages

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/expect"
	"github.com/tomyan/sitecheck/internal/fixture"
	"github.com/tomyan/sitecheck/internal/logging"
)

// PushPopup is the web-push prompt injected on every page of the site.
const PushPopup = "#moe-push-div"

// Timeouts bounds the waits page objects apply.
type Timeouts struct {
	Header     time.Duration // header visible after open
	Action     time.Duration // element visible before a click
	URL        time.Duration // URL settles after navigation
	Table      time.Duration // trading table and category tabs
	Navigation time.Duration // page load
}

// DefaultTimeouts returns the waits the site needs in practice.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Header:     15 * time.Second,
		Action:     10 * time.Second,
		URL:        20 * time.Second,
		Table:      15 * time.Second,
		Navigation: 30 * time.Second,
	}
}

// Base is embedded by every page object. It owns no state beyond the tab
// it drives.
type Base struct {
	Tab      browser.Tab
	Context  browser.Context
	App      fixture.App
	Expect   expect.Expect
	Timeouts Timeouts
	Log      *log.Logger
}

// NewBase returns a Base for tab, which must belong to bctx.
func NewBase(bctx browser.Context, tab browser.Tab, app fixture.App, exp expect.Expect, timeouts Timeouts, logger *log.Logger) *Base {
	return &Base{
		Tab:      tab,
		Context:  bctx,
		App:      app,
		Expect:   exp,
		Timeouts: timeouts,
		Log:      logging.OrNop(logger),
	}
}

// ResolveURL joins path onto the base URL, keeping the base path (the
// locale prefix) in front. Absolute URLs are returned unchanged.
func (b *Base) ResolveURL(path string) (string, error) {
	base, err := url.Parse(b.App.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	if path == "" {
		return base.String(), nil
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	u.Fragment = ref.Fragment
	return u.String(), nil
}

// Navigate loads path relative to the base URL, waits for the DOM to be
// parsed and removes known popups.
func (b *Base) Navigate(ctx context.Context, path string) error {
	target, err := b.ResolveURL(path)
	if err != nil {
		return err
	}
	b.Log.Debug().Str("url", target).Msg("navigate")

	navCtx, cancel := context.WithTimeout(ctx, b.Timeouts.Navigation)
	defer cancel()
	if err := b.Tab.Goto(navCtx, target); err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}
	if err := b.WaitForPageLoad(ctx); err != nil {
		return err
	}

	b.DismissPopups(ctx)
	return nil
}

// WaitForPageLoad waits until the current document has been parsed.
func (b *Base) WaitForPageLoad(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, b.Timeouts.Navigation)
	defer cancel()
	if err := b.Tab.WaitForLoadState(waitCtx, browser.DOMContentLoaded); err != nil {
		return fmt.Errorf("waiting for page load: %w", err)
	}
	return nil
}

// DismissPopups removes the push prompt and every configured popup. A
// popup that is absent or cannot be removed is ignored.
func (b *Base) DismissPopups(ctx context.Context) {
	selectors := append([]string{PushPopup}, b.App.PopupSelectors...)
	seen := make(map[string]bool, len(selectors))
	for _, sel := range selectors {
		if seen[sel] {
			continue
		}
		seen[sel] = true

		n, err := b.Tab.Remove(ctx, browser.Locate(sel))
		if err != nil {
			b.Log.Debug().Str("selector", sel).Err(err).Msg("popup removal failed")
			continue
		}
		if n > 0 {
			b.Log.Debug().Str("selector", sel).Int("removed", n).Msg("popup removed")
		}
	}
}

// Header locates the site header.
func (b *Base) Header() browser.Locator {
	return browser.Locate(b.App.Header)
}

// firstText returns the normalized text of the first match of l.
func (b *Base) firstText(ctx context.Context, l browser.Locator) (string, error) {
	texts, err := b.Tab.Texts(ctx, l)
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("%s: %w", l, browser.ErrNotFound)
	}
	return texts[0], nil
}
