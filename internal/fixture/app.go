package fixture

import (
	"regexp"
	"strings"
)

// App is the environment configuration page objects are built with.
type App struct {
	BaseURL         string
	PopupSelectors  []string
	Header          string
	MarketingBanner string
	DownloadButton  string
	DownloadDomains []string
}

// App assembles the environment, selector and download fixtures.
func (s *Store) App() App {
	return App{
		BaseURL:         s.Environment.BaseURL,
		PopupSelectors:  append([]string(nil), s.Environment.PopupSelectors...),
		Header:          s.UISelectors.Header,
		MarketingBanner: s.UISelectors.MarketingBanner,
		DownloadButton:  s.Download.Selector,
		DownloadDomains: append([]string(nil), s.Download.ExpectedDomains...),
	}
}

// WithBaseURL returns a copy targeting another deployment of the site.
func (a App) WithBaseURL(u string) App {
	if u != "" {
		a.BaseURL = u
	}
	return a
}

// AllowedDownload reports whether href contains an allow-listed domain.
func (a App) AllowedDownload(href string) bool {
	for _, d := range a.DownloadDomains {
		if strings.Contains(href, d) {
			return true
		}
	}
	return false
}

// HomePattern matches the home page URL.
func (s *Store) HomePattern() *regexp.Regexp {
	re, _ := Pattern(s.Navigation.Component.HomePattern)
	return re
}

// ExternalPattern matches the URL the external navigation item opens.
func (s *Store) ExternalPattern() *regexp.Regexp {
	re, _ := Pattern(s.Navigation.Component.External.URLPattern)
	return re
}
