package testutil

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"testing"
)

// Hosts the fake site answers for besides its own address.
const (
	SiteHost     = "mb.io"
	TokenHost    = "token.multibankgroup.com"
	IdentityHost = "identity.mb.io"
)

// Asset is one row of the fake trading table.
type Asset struct {
	Symbol     string
	Pair       string
	Price      string
	Categories []string
}

// DefaultAssets back the fake trading table.
var DefaultAssets = []Asset{
	{"BTC", "BTC/USDT", "$64,210.55", []string{"Layer 1"}},
	{"ETH", "ETH/USDT", "$3,120.08", []string{"Layer 1"}},
	{"SOL", "SOL/USDT", "$142.91", []string{"Layer 1"}},
	{"LINK", "LINK/USDT", "$14.37", []string{"DeFi"}},
	{"UNI", "UNI/USDT", "$7.92", []string{"DeFi"}},
	{"AAVE", "AAVE/USDT", "$91.40", []string{"DeFi"}},
	{"DOGE", "DOGE/USDT", "$0.1234", []string{"Meme"}},
	{"SHIB", "SHIB/USDT", "$0.00001742", []string{"Meme"}},
}

// Site is a fake copy of mb.io with the structure the page objects expect.
type Site struct {
	Server *httptest.Server

	// NavItems are the header labels, in order.
	NavItems []string
	// SignUpNewTab makes the sign-up link open a new tab.
	SignUpNewTab bool
	// DownloadHref is the app download link.
	DownloadHref string
	// HeroHeading is the company page h1.
	HeroHeading string
	Assets      []Asset
	// Categories are the trading category buttons.
	Categories []string
}

// NewSite starts the fake site with content matching the embedded
// fixtures. Fields may be changed before the first request.
func NewSite(t testing.TB) *Site {
	t.Helper()

	s := &Site{
		NavItems:     []string{"Explore", "Features", "Company", "$MBG", "Sign in", "Sign up"},
		DownloadHref: "https://mbio.go.link/download?platform=ios",
		HeroHeading:  "Your gateway to the digital economy",
		Assets:       DefaultAssets,
		Categories:   []string{"All", "Layer 1", "DeFi", "Meme"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(TokenHost+"/", s.render(tokenPage))
	mux.HandleFunc(IdentityHost+"/", s.render(registerPage))
	mux.HandleFunc("/en-AE", s.render(homePage))
	mux.HandleFunc("/en-AE/explore", s.render(explorePage))
	mux.HandleFunc("/en-AE/features", s.render(featuresPage))
	mux.HandleFunc("/en-AE/company", s.render(companyPage))
	mux.HandleFunc("/en-AE/signin", s.render(featuresPage))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// Client returns an HTTP client that sends requests for any host to the
// fake site, so real site URLs resolve locally.
func (s *Site) Client() *http.Client {
	target, _ := url.Parse(s.Server.URL)
	return &http.Client{Transport: &rewriteTransport{target: target, base: s.Server.Client().Transport}}
}

// URL returns the local address of path on the fake site.
func (s *Site) URL(path string) string {
	return s.Server.URL + path
}

type rewriteTransport struct {
	target *url.URL
	base   http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = req.URL.Host

	resp, err := t.base.RoundTrip(out)
	if resp != nil {
		resp.Request = req
	}
	return resp, err
}

type row struct {
	ID    string
	Pair  string
	Price string
}

type link struct {
	Label  string
	Href   string
	Target string
}

type pageData struct {
	*Site
	Links    []link
	Rows     []row
	Selected string
}

func (s *Site) links() []link {
	var out []link
	for _, label := range s.NavItems {
		l := link{Label: label}
		switch label {
		case "$MBG":
			l.Label, l.Href, l.Target = "$MBG 🔥", "https://"+TokenHost+"/", "_blank"
		case "Sign up":
			l.Href = "https://" + IdentityHost + "/register"
			if s.SignUpNewTab {
				l.Target = "_blank"
			}
		default:
			l.Href = "/en-AE/" + strings.ToLower(strings.ReplaceAll(label, " ", ""))
		}
		out = append(out, l)
	}
	return out
}

func (s *Site) rows(category string) []row {
	var out []row
	for _, a := range s.Assets {
		if category != "" && category != "All" && !slices.Contains(a.Categories, category) {
			continue
		}
		out = append(out, row{ID: strings.ToLower(a.Symbol), Pair: a.Pair, Price: a.Price})
	}
	return out
}

func (s *Site) render(page *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		data := pageData{Site: s, Links: s.links(), Rows: s.rows(category), Selected: category}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.Execute(w, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

const layout = `{{define "header"}}<header>
  <a href="/en-AE" aria-label="MultiBank home"><img src="/logo.svg" alt="mb.io"></a>
  <nav>{{range .Links}}
    <a href="{{.Href}}"{{if .Target}} target="{{.Target}}"{{end}}>{{.Label}}</a>{{end}}
  </nav>
  <nav class="mobile-menu" hidden><a href="/en-AE/explore">Explore</a></nav>
</header>
<div id="moe-push-div"><span>Allow notifications?</span><button>Allow</button></div>{{end}}`

func page(body string) *template.Template {
	return template.Must(template.New("page").Parse(layout +
		`<!doctype html><html lang="en"><head><meta charset="utf-8"><title>MultiBank</title></head><body>` + body + `</body></html>`))
}

var (
	homePage = page(`{{template "header" .}}
<main>
  <section class="hero-banner" data-testid="marketing-banner">
    <h1>Trade crypto with confidence</h1>
  </section>
  <section class="download">
    <a data-testid="download-app" href="{{.DownloadHref}}">Download the app</a>
  </section>
</main>`)

	explorePage = page(`{{template "header" .}}
<main>
  <h1>Spot markets</h1>
  <form method="get" class="categories">{{range .Categories}}
    <button type="submit" name="category" value="{{.}}"{{if eq . $.Selected}} aria-pressed="true"{{end}}>{{.}}</button>{{end}}
  </form>
  <table>
    <thead><tr><th>Pair</th><th>Price</th><th>24h</th></tr></thead>
    <tbody>{{range .Rows}}
      <tr>
        <td id="{{.ID}}-pair">{{.Pair}}</td>
        <td id="{{.ID}}-price">{{.Price}}</td>
        <td id="{{.ID}}-chart"><svg width="80" height="24"><polyline points="0,12 40,4 80,16"></polyline></svg></td>
      </tr>{{end}}
    </tbody>
  </table>
</main>`)

	featuresPage = page(`{{template "header" .}}<main><h1>Features</h1></main>`)

	companyPage = page(`{{template "header" .}}
<main>
  <section class="hero">
    <h1>{{.HeroHeading}}</h1>
    <p>MultiBank Group has served millions of traders across the globe since 2005.</p>
  </section>
  <section class="stats">
    <div><strong>$35B+</strong><span>Daily trading volume</span></div>
    <div><strong>2M+</strong><span>Customers worldwide</span></div>
    <div><strong>25+</strong><span>Regulatory licenses</span></div>
  </section>
  <section><h2>Our Mission</h2><p>Make digital assets accessible to everyone.</p></section>
  <section><h2>Our Vision</h2><p>A regulated bridge between traditional and digital finance.</p></section>
  <section class="pillars">
    <div><h3>Security</h3><p>Cold storage first.</p></div>
    <div><h3>Transparency</h3><p>Audited reserves.</p></div>
    <div><h3>Innovation</h3><p>Built for what is next.</p></div>
  </section>
  <section><h2>Join our community</h2><a href="https://x.com/mbio">X</a></section>
</main>`)

	registerPage = page(`<main><h1>Create your account</h1><form><input type="email" name="email"></form></main>`)

	tokenPage = page(`<main><h1>$MBG Token</h1></main>`)
)
