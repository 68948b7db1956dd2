package static

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/chrome"
)

const indexHTML = `<!doctype html>
<html><head><title>Home</title><style>p{}</style></head>
<body>
<header>
  <a href="/explore">Explore</a>
  <a href="/features">  Features
  </a>
  <a href="/hidden" style="display: none">Secret</a>
  <span hidden><a href="/gone">Gone</a></span>
  <a href="/popup" target="_blank" aria-label="Open token page">$MBG 🔥</a>
  <a href="#top">Top</a>
</header>
<div id="moe-push-div">Allow notifications?</div>
<main>
  <h2>Our Mission</h2>
  <div class="copy"><span>ignored</span></div>
  <p>We build financial infrastructure for everyone.</p>
  <div><span>Crypto</span></div>
  <form action="/markets" method="get">
    <input type="hidden" name="view" value="spot">
    <button type="submit" name="category" value="defi">DeFi</button>
  </form>
</main>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, indexHTML)
	})
	page := func(title string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "<html><body><h1>%s</h1><p>%s</p></body></html>", title, r.URL.RawQuery)
		}
	}
	mux.HandleFunc("/explore", page("Explore"))
	mux.HandleFunc("/popup", page("Token"))
	mux.HandleFunc("/markets", page("Markets"))
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", r.UserAgent())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func openTab(t *testing.T, srv *httptest.Server) (context.Context, browser.Context, browser.Tab) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	bctx, err := New(srv.Client(), nil).NewContext(ctx)
	require.NoError(t, err)
	tab, err := bctx.NewTab(ctx)
	require.NoError(t, err)
	require.NoError(t, tab.Goto(ctx, srv.URL+"/"))
	return ctx, bctx, tab
}

func TestTab_VisibleHeaderTexts(t *testing.T) {
	t.Parallel()
	ctx, _, tab := openTab(t, newSite(t))

	texts, err := tab.Texts(ctx, browser.Locate("header a").Visible())
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"Explore", "Features", "$MBG 🔥", "Top"}, texts); diff != "" {
		t.Errorf("visible header texts mismatch (-want +got):\n%s", diff)
	}

	all, err := tab.Count(ctx, browser.Locate("header a"))
	require.NoError(t, err)
	assert.Equal(t, 6, all)
}

func TestTab_RoleUsesAccessibleName(t *testing.T) {
	t.Parallel()
	ctx, _, tab := openTab(t, newSite(t))

	n, err := tab.Count(ctx, browser.Locate("header").Role("link", "token"))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "aria-label wins over text")

	n, err = tab.Count(ctx, browser.Locate("header").Role("link", "EXPLORE"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = tab.Count(ctx, browser.Role("button", "defi"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = tab.Count(ctx, browser.Role("button", "defi").RoleExact("button", "DeFi"))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "role steps search descendants")

	n, err = tab.Count(ctx, browser.Locator{}.RoleExact("button", "DeFi"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTab_TextMatchesSmallestElement(t *testing.T) {
	t.Parallel()
	ctx, _, tab := openTab(t, newSite(t))

	texts, err := tab.Texts(ctx, browser.Text("Crypto"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Crypto"}, texts)

	n, err := tab.Count(ctx, browser.Text("Crypto").Locate("*"))
	require.NoError(t, err)
	assert.Equal(t, 0, n, "the span has no children, so the div is not chosen")
}

func TestTab_FollowingParagraph(t *testing.T) {
	t.Parallel()
	ctx, _, tab := openTab(t, newSite(t))

	texts, err := tab.Texts(ctx, browser.Text("Our Mission").First().Following("p"))
	require.NoError(t, err)
	assert.Equal(t, []string{"We build financial infrastructure for everyone."}, texts)

	visible, err := tab.Visible(ctx, browser.Text("Our Mission").First().Following("p"))
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestTab_HiddenElements(t *testing.T) {
	t.Parallel()
	ctx, _, tab := openTab(t, newSite(t))

	for _, sel := range []string{`a[href="/hidden"]`, `a[href="/gone"]`, `input[name="view"]`, "title", "missing"} {
		visible, err := tab.Visible(ctx, browser.Locate(sel))
		require.NoError(t, err)
		assert.False(t, visible, sel)
	}

	err := tab.Click(ctx, browser.Locate(`a[href="/hidden"]`))
	assert.ErrorIs(t, err, browser.ErrNotVisible)
	err = tab.Click(ctx, browser.Locate("nav"))
	assert.ErrorIs(t, err, browser.ErrNotFound)
}

func TestTab_ClickLinkNavigates(t *testing.T) {
	t.Parallel()
	srv := newSite(t)
	ctx, _, tab := openTab(t, srv)

	require.NoError(t, tab.Click(ctx, browser.Locate("header").Role("link", "explore").First()))
	url, err := tab.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/explore", url)

	texts, err := tab.Texts(ctx, browser.Locate("h1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Explore"}, texts)
}

func TestTab_ClickFragmentKeepsDocument(t *testing.T) {
	t.Parallel()
	srv := newSite(t)
	ctx, _, tab := openTab(t, srv)

	require.NoError(t, tab.Click(ctx, browser.Locate(`a[href="#top"]`)))
	url, _ := tab.URL(ctx)
	assert.Equal(t, srv.URL+"/#top", url)

	n, err := tab.Count(ctx, browser.Locate("header"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTab_TargetBlankOpensWatchedTab(t *testing.T) {
	t.Parallel()
	srv := newSite(t)
	ctx, bctx, tab := openTab(t, srv)

	tabs, stop, err := bctx.WatchTabs(ctx)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, tab.Click(ctx, browser.Locate("header a").HasText("$mbg")))

	select {
	case popup := <-tabs:
		require.NoError(t, popup.WaitForLoadState(ctx, browser.Load))
		url, _ := popup.URL(ctx)
		assert.Equal(t, srv.URL+"/popup", url)
		assert.NotEqual(t, tab.ID(), popup.ID())
	case <-ctx.Done():
		t.Fatal("no tab opened")
	}

	url, _ := tab.URL(ctx)
	assert.Equal(t, srv.URL+"/", url, "opener stays put")
}

func TestTab_SubmitGetForm(t *testing.T) {
	t.Parallel()
	srv := newSite(t)
	ctx, _, tab := openTab(t, srv)

	require.NoError(t, tab.Click(ctx, browser.Locator{}.RoleExact("button", "DeFi")))
	url, _ := tab.URL(ctx)
	assert.Equal(t, srv.URL+"/markets?category=defi&view=spot", url)
}

func TestTab_RemoveAndAttribute(t *testing.T) {
	t.Parallel()
	ctx, _, tab := openTab(t, newSite(t))

	n, err := tab.Remove(ctx, browser.Locate("#moe-push-div"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = tab.Remove(ctx, browser.Locate("#moe-push-div"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	href, ok, err := tab.Attribute(ctx, browser.Locate("header a").First(), "href")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/explore", href)

	_, ok, err = tab.Attribute(ctx, browser.Locate("header a").First(), "download")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = tab.Attribute(ctx, browser.Locate("footer"), "href")
	assert.True(t, errors.Is(err, browser.ErrNotFound))
}

func TestTab_InvalidSelector(t *testing.T) {
	t.Parallel()
	ctx, _, tab := openTab(t, newSite(t))

	_, err := tab.Count(ctx, browser.Locate("a[href="))
	assert.Error(t, err)
}

func TestTab_EmulateSetsUserAgent(t *testing.T) {
	t.Parallel()
	srv := newSite(t)
	ctx, _, tab := openTab(t, srv)

	device := chrome.Devices["Desktop Firefox"]
	require.NoError(t, tab.Emulate(ctx, device))
	require.NoError(t, tab.Goto(ctx, "/ua"))

	texts, err := tab.Texts(ctx, browser.Locate("p"))
	require.NoError(t, err)
	assert.Equal(t, []string{device.UserAgent}, texts)

	_, err = tab.Screenshot(ctx)
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestContext_Isolation(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/set", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		fmt.Fprint(w, "<html><body>set</body></html>")
	})
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		v := "none"
		if err == nil {
			v = c.Value
		}
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", v)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	b := New(srv.Client(), nil)

	read := func(bctx browser.Context) string {
		tab, err := bctx.NewTab(ctx)
		require.NoError(t, err)
		require.NoError(t, tab.Goto(ctx, srv.URL+"/get"))
		texts, err := tab.Texts(ctx, browser.Locate("p"))
		require.NoError(t, err)
		return texts[0]
	}

	first, err := b.NewContext(ctx)
	require.NoError(t, err)
	tab, err := first.NewTab(ctx)
	require.NoError(t, err)
	require.NoError(t, tab.Goto(ctx, srv.URL+"/set"))
	assert.Equal(t, "abc", read(first))

	second, err := b.NewContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "none", read(second))

	require.NoError(t, second.Close(ctx))
	_, err = second.NewTab(ctx)
	assert.Error(t, err)
}
