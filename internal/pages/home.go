package pages

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/expect"
	"github.com/tomyan/sitecheck/internal/fixture"
	"github.com/tomyan/sitecheck/internal/outcome"
)

// Home is the landing page.
type Home struct {
	*Base
	nav fixture.Navigation
}

func NewHome(base *Base, nav fixture.Navigation) *Home {
	return &Home{Base: base, nav: nav}
}

// Open loads the home page and waits for the header.
func (h *Home) Open(ctx context.Context) error {
	if err := h.Navigate(ctx, ""); err != nil {
		return err
	}
	return h.Expect.WithTimeout(h.Timeouts.Header).Visible(ctx, h.Tab, h.Header())
}

// TopNavigationItems returns the text of every visible header link in
// document order.
func (h *Home) TopNavigationItems(ctx context.Context) ([]string, error) {
	return h.Tab.Texts(ctx, h.Header().Locate("a").Visible())
}

func (h *Home) navLink(label string) browser.Locator {
	return h.Header().Role("link", label).Visible().First()
}

// ClickNavigationItem clicks the first visible header link whose
// accessible name contains label, ignoring case.
func (h *Home) ClickNavigationItem(ctx context.Context, label string) error {
	link := h.navLink(label)
	if err := h.Expect.WithTimeout(h.Timeouts.Action).Visible(ctx, h.Tab, link); err != nil {
		return err
	}
	h.Log.Debug().Str("label", label).Msg("click navigation item")
	return h.Tab.Click(ctx, link)
}

// HandleSignUpClick clicks the sign-up link and returns the tab that ends
// up on the destination: a newly opened tab if one appears, otherwise this
// tab once it has navigated or finished loading. The returned tab is never
// nil, even with an error.
func (h *Home) HandleSignUpClick(ctx context.Context) (browser.Tab, error) {
	before, err := h.Tab.URL(ctx)
	if err != nil {
		return h.Tab, err
	}

	tabs, stop, err := h.Context.WatchTabs(ctx)
	if err != nil {
		return h.Tab, err
	}
	defer stop()

	if err := h.ClickNavigationItem(ctx, h.nav.SignUp); err != nil {
		return h.Tab, err
	}

	newTab := func(ctx context.Context) (browser.Tab, error) {
		select {
		case tab, ok := <-tabs:
			if !ok {
				return nil, errors.New("tab watch stopped")
			}
			if err := tab.WaitForLoadState(ctx, browser.Load); err != nil {
				return nil, err
			}
			h.Log.Debug().Str("tab", tab.ID()).Msg("sign up opened a new tab")
			return tab, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("no new tab: %w", ctx.Err())
		}
	}

	sameTab := func(ctx context.Context) (browser.Tab, error) {
		err := expect.Poll(ctx, "url to change from "+strconv.Quote(before), time.Hour, expect.DefaultInterval,
			func(ctx context.Context) (string, bool, error) {
				url, err := h.Tab.URL(ctx)
				return url, err == nil && url != before, err
			})
		if err != nil {
			return nil, err
		}
		if err := h.Tab.WaitForLoadState(ctx, browser.Load); err != nil {
			return nil, err
		}
		h.Log.Debug().Msg("sign up navigated in place")
		return h.Tab, nil
	}

	fallback := func(ctx context.Context) (browser.Tab, error) {
		h.Log.Debug().Msg("sign up destination not observed, waiting for current tab")
		loadCtx, cancel := context.WithTimeout(ctx, h.Timeouts.Navigation)
		defer cancel()
		return h.Tab, h.Tab.WaitForLoadState(loadCtx, browser.Load)
	}

	tab, err := outcome.First(ctx, h.Timeouts.Action, fallback, newTab, sameTab)
	if tab == nil {
		tab = h.Tab
	}
	return tab, err
}

// VerifyURL waits for tab's URL to match re.
func (h *Home) VerifyURL(ctx context.Context, tab browser.Tab, re *regexp.Regexp) error {
	return h.Expect.WithTimeout(h.Timeouts.URL).URL(ctx, tab, re)
}

// ValidateMarketingBanner checks the marketing banner is shown.
func (h *Home) ValidateMarketingBanner(ctx context.Context) error {
	return h.Expect.Visible(ctx, h.Tab, browser.Locate(h.App.MarketingBanner).Visible().First())
}

// ValidateDownloadSection checks the app download button links to an
// allow-listed store domain.
func (h *Home) ValidateDownloadSection(ctx context.Context) error {
	button := browser.Locate(h.App.DownloadButton).Visible().First()
	if err := h.Expect.Visible(ctx, h.Tab, button); err != nil {
		return err
	}

	href, ok, err := h.Tab.Attribute(ctx, button, "href")
	if err != nil {
		return err
	}
	if err := expect.That(ok, "download button href", "an href attribute", "none"); err != nil {
		return err
	}
	return expect.That(h.App.AllowedDownload(href), "download button href",
		fmt.Sprintf("a link to one of %v", h.App.DownloadDomains), strconv.Quote(href))
}
