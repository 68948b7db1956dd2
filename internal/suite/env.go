package suite

import (
	"github.com/phuslu/log"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/expect"
	"github.com/tomyan/sitecheck/internal/fixture"
	"github.com/tomyan/sitecheck/internal/pages"
)

// Env is what a test runs against: a fresh tab in its own context, the
// fixtures, and page objects built for that tab.
type Env struct {
	Context browser.Context
	Tab     browser.Tab
	Store   *fixture.Store
	Soft    *expect.Soft
	Log     *log.Logger

	Home       *pages.Home
	Navigation *pages.Navigation
	Trading    *pages.SpotTrading
	About      *pages.AboutUs
}

// Settings are the per-run knobs page objects are built with.
type Settings struct {
	BaseURL  string
	Expect   expect.Expect
	Timeouts pages.Timeouts
}

func newEnv(bctx browser.Context, tab browser.Tab, store *fixture.Store, settings Settings, logger *log.Logger) (*Env, error) {
	app := store.App().WithBaseURL(settings.BaseURL)
	base := pages.NewBase(bctx, tab, app, settings.Expect, settings.Timeouts, logger)

	nav, err := pages.NewNavigation(base, store.Navigation.Component)
	if err != nil {
		return nil, err
	}

	return &Env{
		Context:    bctx,
		Tab:        tab,
		Store:      store,
		Soft:       &expect.Soft{},
		Log:        base.Log,
		Home:       pages.NewHome(base, store.Navigation),
		Navigation: nav,
		Trading:    pages.NewSpotTrading(base, store.Trading),
		About:      pages.NewAboutUs(base, store.Company),
	}, nil
}
