package pages

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/expect"
	"github.com/tomyan/sitecheck/internal/fixture"
)

// AboutUs is the company page.
type AboutUs struct {
	*Base
	fx fixture.Company
}

func NewAboutUs(base *Base, fx fixture.Company) *AboutUs {
	return &AboutUs{Base: base, fx: fx}
}

func (a *AboutUs) Open(ctx context.Context) error {
	return a.Navigate(ctx, a.fx.Path)
}

// ValidateCompanyPageStructure checks every content region top to bottom.
func (a *AboutUs) ValidateCompanyPageStructure(ctx context.Context) error {
	checks := []struct {
		region string
		check  func(context.Context) error
	}{
		{"hero", a.ValidateHero},
		{"stats", a.ValidateStats},
		{"sections", a.ValidateSections},
		{"pillars", a.ValidatePillars},
		{"community", a.ValidateCommunity},
	}
	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.region, err)
		}
	}
	return nil
}

// paragraphLonger checks the first match of p is visible with more than
// minLen characters.
func (a *AboutUs) paragraphLonger(ctx context.Context, what string, p browser.Locator, minLen int) error {
	if err := a.Expect.Visible(ctx, a.Tab, p); err != nil {
		return err
	}
	text, err := a.firstText(ctx, p)
	if err != nil {
		return err
	}
	n := utf8.RuneCountInString(text)
	return expect.That(n > minLen, what, fmt.Sprintf("more than %d characters", minLen), strconv.Itoa(n))
}

func (a *AboutUs) ValidateHero(ctx context.Context) error {
	heading := browser.Locate("h1, h2").First()
	if err := a.Expect.Text(ctx, a.Tab, heading, a.fx.HeroHeading); err != nil {
		return err
	}
	return a.paragraphLonger(ctx, "hero paragraph", browser.Locate("p").First(), a.fx.MinLength.Hero)
}

func (a *AboutUs) ValidateStats(ctx context.Context) error {
	for _, stat := range a.fx.Stats {
		for _, text := range []string{stat.Value, stat.Label} {
			if err := a.Expect.Visible(ctx, a.Tab, browser.Text(text).First()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *AboutUs) titledBlocks(ctx context.Context, titles []string, minLen int) error {
	for _, title := range titles {
		heading := browser.Text(title).First()
		if err := a.Expect.Visible(ctx, a.Tab, heading); err != nil {
			return err
		}
		if err := a.paragraphLonger(ctx, title+" paragraph", heading.Following("p"), minLen); err != nil {
			return err
		}
	}
	return nil
}

func (a *AboutUs) ValidateSections(ctx context.Context) error {
	return a.titledBlocks(ctx, a.fx.Sections, a.fx.MinLength.Section)
}

func (a *AboutUs) ValidatePillars(ctx context.Context) error {
	return a.titledBlocks(ctx, a.fx.Pillars, a.fx.MinLength.Pillar)
}

func (a *AboutUs) ValidateCommunity(ctx context.Context) error {
	return a.Expect.Visible(ctx, a.Tab, browser.Text(a.fx.CommunityTitle).First())
}
