package pages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/browser/static"
	"github.com/tomyan/sitecheck/internal/expect"
	"github.com/tomyan/sitecheck/internal/fixture"
	"github.com/tomyan/sitecheck/internal/testutil"
)

func testTimeouts() Timeouts {
	return Timeouts{
		Header:     time.Second,
		Action:     time.Second,
		URL:        time.Second,
		Table:      time.Second,
		Navigation: 2 * time.Second,
	}
}

type harness struct {
	ctx   context.Context
	site  *testutil.Site
	store *fixture.Store
	base  *Base
}

// newHarness opens a tab on the fake site. Site fields may be changed until
// the first navigation.
func newHarness(t *testing.T) *harness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)

	site := testutil.NewSite(t)
	store := loadStore(t)

	bctx, err := static.New(site.Client(), nil).NewContext(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { bctx.Close(context.Background()) })
	tab, err := bctx.NewTab(ctx)
	require.NoError(t, err)

	exp := expect.Expect{Timeout: 300 * time.Millisecond, Interval: 20 * time.Millisecond}
	base := NewBase(bctx, tab, store.App(), exp, testTimeouts(), nil)
	return &harness{ctx: ctx, site: site, store: store, base: base}
}

func loadStore(t *testing.T) *fixture.Store {
	t.Helper()
	store, err := fixture.Load()
	require.NoError(t, err)
	return store
}

func (h *harness) home(t *testing.T) *Home {
	t.Helper()
	home := NewHome(h.base, h.store.Navigation)
	require.NoError(t, home.Open(h.ctx))
	return home
}

func TestResolveURL(t *testing.T) {
	b := &Base{App: fixture.App{BaseURL: "https://mb.io/en-AE"}}
	tests := []struct {
		path string
		want string
	}{
		{"", "https://mb.io/en-AE"},
		{"/explore", "https://mb.io/en-AE/explore"},
		{"company", "https://mb.io/en-AE/company"},
		{"/explore?category=DeFi#top", "https://mb.io/en-AE/explore?category=DeFi#top"},
		{"https://token.multibankgroup.com/", "https://token.multibankgroup.com/"},
	}
	for _, tt := range tests {
		got, err := b.ResolveURL(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	b.App.BaseURL = "https://mb.io/en-AE/"
	got, err := b.ResolveURL("/company")
	require.NoError(t, err)
	assert.Equal(t, "https://mb.io/en-AE/company", got)
}

func TestHome_OpenDismissesPopups(t *testing.T) {
	h := newHarness(t)
	h.home(t)

	n, err := h.base.Tab.Count(h.ctx, browser.Locate(PushPopup))
	require.NoError(t, err)
	assert.Zero(t, n)

	url, err := h.base.Tab.URL(h.ctx)
	require.NoError(t, err)
	assert.Regexp(t, h.store.HomePattern(), url)
}

func TestHome_TopNavigationItems(t *testing.T) {
	h := newHarness(t)
	home := h.home(t)

	items, err := home.TopNavigationItems(h.ctx)
	require.NoError(t, err)
	for _, want := range h.store.Navigation.Items {
		assert.Contains(t, items, want)
	}
	// The hidden mobile menu repeats Explore.
	explore := 0
	for _, item := range items {
		if item == "Explore" {
			explore++
		}
	}
	assert.Equal(t, 1, explore)
}

func TestHome_NavigationRoutes(t *testing.T) {
	for label := range loadStore(t).Routes {
		if label == "Sign up" {
			continue
		}
		t.Run(label, func(t *testing.T) {
			h := newHarness(t)
			home := h.home(t)

			require.NoError(t, home.ClickNavigationItem(h.ctx, label))
			route, err := h.store.Route(label)
			require.NoError(t, err)
			assert.NoError(t, home.VerifyURL(h.ctx, home.Tab, route))
		})
	}
}

func TestHome_ClickMissingItemTimesOut(t *testing.T) {
	h := newHarness(t)
	h.site.NavItems = []string{"Explore", "Features"}
	home := h.home(t)

	err := home.ClickNavigationItem(h.ctx, "Company")
	assert.ErrorIs(t, err, expect.ErrTimeout)
}

func TestHome_HandleSignUpClick(t *testing.T) {
	for _, newTab := range []bool{false, true} {
		name := "same tab"
		if newTab {
			name = "new tab"
		}
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.site.SignUpNewTab = newTab
			home := h.home(t)

			tab, err := home.HandleSignUpClick(h.ctx)
			require.NoError(t, err)
			require.NotNil(t, tab)
			assert.Equal(t, newTab, tab.ID() != home.Tab.ID())

			route, err := h.store.Route("Sign up")
			require.NoError(t, err)
			assert.NoError(t, home.VerifyURL(h.ctx, tab, route))
			assert.NoError(t, home.Expect.Visible(h.ctx, tab, browser.Locate(`input[type="email"]`)))
		})
	}
}

func TestHome_MarketingAndDownload(t *testing.T) {
	h := newHarness(t)
	home := h.home(t)

	assert.NoError(t, home.ValidateMarketingBanner(h.ctx))
	assert.NoError(t, home.ValidateDownloadSection(h.ctx))
}

func TestHome_DownloadToUnknownStore(t *testing.T) {
	h := newHarness(t)
	h.site.DownloadHref = "https://apps.example.com/mbio"
	home := h.home(t)

	err := home.ValidateDownloadSection(h.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, expect.ErrAssertion)
	assert.Contains(t, err.Error(), "apps.example.com")
}

func TestStripDecoration(t *testing.T) {
	tests := map[string]string{
		"$MBG \U0001F525":   "$MBG",
		"  Sign   up ":      "Sign up",
		"Explore \u2728":    "Explore",
		"Company":           "Company",
		"\u2764\ufe0f Love": "Love",
		"Layer 1":           "Layer 1",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripDecoration(in), in)
	}
}

func TestNavigation_NavTexts(t *testing.T) {
	h := newHarness(t)
	h.home(t)
	nav, err := NewNavigation(h.base, h.store.Navigation.Component)
	require.NoError(t, err)

	require.NoError(t, nav.VerifyNavigationVisible(h.ctx))
	texts, err := nav.NavTexts(h.ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(h.store.Navigation.Component.Items, texts); diff != "" {
		t.Errorf("nav texts mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigation_ClickEveryItem(t *testing.T) {
	for _, label := range loadStore(t).Navigation.Component.Items {
		t.Run(label, func(t *testing.T) {
			h := newHarness(t)
			h.home(t)
			nav, err := NewNavigation(h.base, h.store.Navigation.Component)
			require.NoError(t, err)

			require.NoError(t, nav.ClickNavItemByText(h.ctx, label))

			url, err := h.base.Tab.URL(h.ctx)
			require.NoError(t, err)
			if label == h.store.Navigation.Component.External.Label {
				assert.Regexp(t, h.store.HomePattern(), url, "external item must leave this tab alone")
			} else {
				assert.NotRegexp(t, h.store.HomePattern(), url)
			}
		})
	}
}

func TestNavigation_ExternalItemWithoutNewTab(t *testing.T) {
	h := newHarness(t)
	h.home(t)
	fx := h.store.Navigation.Component
	fx.External.Label = "Explore"
	nav, err := NewNavigation(h.base, fx)
	require.NoError(t, err)

	err = nav.ClickNavItemByText(h.ctx, "Explore")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewNavigation_BadPattern(t *testing.T) {
	_, err := NewNavigation(&Base{}, fixture.NavComponent{HomePattern: "(", External: fixture.ExternalLink{URLPattern: "x"}})
	assert.Error(t, err)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$64,210.55", 64210.55, true},
		{"$0.00001742", 0.00001742, true},
		{"1.2.3", 1.2, true},
		{"$12.", 12, true},
		{"US$ 7", 7, true},
		{"N/A", 0, false},
		{"$", 0, false},
		{".", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-12, tt.in)
	}
}

func spotTrading(t *testing.T, h *harness) *SpotTrading {
	t.Helper()
	s := NewSpotTrading(h.base, h.store.Trading)
	require.NoError(t, s.Open(h.ctx))
	return s
}

func TestSpotTrading_TableStructure(t *testing.T) {
	h := newHarness(t)
	s := spotTrading(t, h)

	require.NoError(t, s.VerifyRowsExist(h.ctx))
	assert.NoError(t, s.ValidateTradingTableStructure(h.ctx))
	assert.NoError(t, s.VerifyAssetExists(h.ctx, "BTC"))
	assert.ErrorIs(t, s.VerifyAssetExists(h.ctx, "XRP"), expect.ErrAssertion)
}

func TestSpotTrading_AllCategories(t *testing.T) {
	h := newHarness(t)
	s := spotTrading(t, h)

	require.NoError(t, s.ValidateAllCategories(h.ctx))

	url, err := s.Tab.URL(h.ctx)
	require.NoError(t, err)
	assert.Contains(t, url, "category=Meme")
	require.NoError(t, s.VerifyAssetExists(h.ctx, "DOGE"))
	assert.Error(t, s.VerifyAssetExists(h.ctx, "BTC"))
}

func TestSpotTrading_EmptyCategory(t *testing.T) {
	h := newHarness(t)
	h.site.Categories = append(h.site.Categories, "Gaming")
	s := spotTrading(t, h)

	err := s.SelectCategory(h.ctx, "Gaming")
	assert.ErrorIs(t, err, expect.ErrTimeout)
}

func TestSpotTrading_BadPrice(t *testing.T) {
	h := newHarness(t)
	h.site.Assets = []testutil.Asset{
		{Symbol: "BTC", Pair: "BTC/USDT", Price: "$64,210.55"},
		{Symbol: "ETH", Pair: "ETH/USDT", Price: "N/A"},
	}
	s := spotTrading(t, h)

	err := s.ValidateTradingTableStructure(h.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, expect.ErrAssertion)
	assert.Contains(t, err.Error(), "row 1 price")
}

func TestSpotTrading_VerifyConfiguredAssets(t *testing.T) {
	h := newHarness(t)
	h.site.Assets = testutil.DefaultAssets[1:] // no BTC
	s := spotTrading(t, h)

	var soft expect.Soft
	require.NoError(t, s.VerifyConfiguredAssets(h.ctx, &soft))
	require.Len(t, soft.Failures(), 1)
	assert.Contains(t, soft.Failures()[0].Error(), "BTC")

	var se *expect.SoftError
	assert.True(t, errors.As(soft.Err(), &se))
}

func TestAboutUs_Structure(t *testing.T) {
	h := newHarness(t)
	a := NewAboutUs(h.base, h.store.Company)
	require.NoError(t, a.Open(h.ctx))

	assert.NoError(t, a.ValidateCompanyPageStructure(h.ctx))
}

func TestAboutUs_WrongHero(t *testing.T) {
	h := newHarness(t)
	h.site.HeroHeading = "Welcome"
	a := NewAboutUs(h.base, h.store.Company)
	require.NoError(t, a.Open(h.ctx))

	err := a.ValidateCompanyPageStructure(h.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, expect.ErrTimeout)
	assert.Contains(t, err.Error(), "hero")
}

func TestAboutUs_ShortParagraph(t *testing.T) {
	h := newHarness(t)
	fx := h.store.Company
	fx.MinLength.Pillar = 100
	a := NewAboutUs(h.base, fx)
	require.NoError(t, a.Open(h.ctx))

	require.NoError(t, a.ValidateSections(h.ctx))
	err := a.ValidatePillars(h.ctx)
	assert.ErrorIs(t, err, expect.ErrAssertion)
}
