package pages

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/fixture"
)

// Navigation is the site header seen as a component: a known set of items,
// one of which leaves the site in a new tab.
type Navigation struct {
	*Base
	fx       fixture.NavComponent
	home     *regexp.Regexp
	external *regexp.Regexp
}

func NewNavigation(base *Base, fx fixture.NavComponent) (*Navigation, error) {
	home, err := fixture.Pattern(fx.HomePattern)
	if err != nil {
		return nil, fmt.Errorf("home pattern: %w", err)
	}
	external, err := fixture.Pattern(fx.External.URLPattern)
	if err != nil {
		return nil, fmt.Errorf("external pattern: %w", err)
	}
	return &Navigation{Base: base, fx: fx, home: home, external: external}, nil
}

func (n *Navigation) VerifyNavigationVisible(ctx context.Context) error {
	return n.Expect.Visible(ctx, n.Tab, n.Header())
}

// StripDecoration removes emoji and other pictographs from a label.
func StripDecoration(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Sk, r) && r > unicode.MaxASCII:
			return -1
		case r == '\u200d' || (r >= '\ufe00' && r <= '\ufe0f'):
			return -1
		}
		return r
	}, s)
	return browser.NormalizeText(s)
}

// NavTexts returns the known items present among the visible header links,
// in document order and without decoration.
func (n *Navigation) NavTexts(ctx context.Context) ([]string, error) {
	texts, err := n.Tab.Texts(ctx, n.Header().Locate("a").Visible())
	if err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]bool)
	for _, t := range texts {
		t = StripDecoration(t)
		for _, item := range n.fx.Items {
			if strings.EqualFold(t, item) && !seen[item] {
				seen[item] = true
				out = append(out, item)
			}
		}
	}
	return out, nil
}

// ClickNavItemByText clicks the header link containing label. The external
// item must open a tab on the external site, which is then closed; any
// other item must take this tab away from the home page.
func (n *Navigation) ClickNavItemByText(ctx context.Context, label string) error {
	link := n.Header().Locate("a").Visible().HasText(label).First()
	if err := n.Expect.WithTimeout(n.Timeouts.Action).Visible(ctx, n.Tab, link); err != nil {
		return err
	}
	n.Log.Debug().Str("label", label).Msg("click header item")

	if label != n.fx.External.Label {
		if err := n.Tab.Click(ctx, link); err != nil {
			return err
		}
		if err := n.WaitForPageLoad(ctx); err != nil {
			return err
		}
		return n.Expect.WithTimeout(n.Timeouts.URL).NotURL(ctx, n.Tab, n.home)
	}

	tabs, stop, err := n.Context.WatchTabs(ctx)
	if err != nil {
		return err
	}
	defer stop()

	if err := n.Tab.Click(ctx, link); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, n.Timeouts.Action)
	defer cancel()

	var opened browser.Tab
	select {
	case opened = <-tabs:
	case <-waitCtx.Done():
		return fmt.Errorf("%s did not open a new tab: %w", label, waitCtx.Err())
	}
	if opened == nil {
		return fmt.Errorf("%s did not open a new tab", label)
	}
	defer opened.Close(ctx)

	return n.Expect.WithTimeout(n.Timeouts.URL).URL(ctx, opened, n.external)
}
