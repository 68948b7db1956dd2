package suite

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/expect"
)

func openHome(ctx context.Context, env *Env) error {
	return env.Home.Open(ctx)
}

func navigationSuite() *Suite {
	return &Suite{
		Name:       "navigation",
		BeforeEach: openHome,
		Cases: []Case{
			{Name: "top navigation displays all expected options", Run: topNavigationOptions},
			{Name: "navigation items link to correct URLs", Run: navigationRoutes},
			{Name: "sign up navigates to registration portal", Run: signUp},
			{Name: "header component items behave", Run: headerComponent},
		},
	}
}

func topNavigationOptions(ctx context.Context, env *Env) error {
	items, err := env.Home.TopNavigationItems(ctx)
	if err != nil {
		return err
	}
	for _, want := range env.Store.Navigation.Items {
		found := slices.ContainsFunc(items, func(item string) bool {
			return strings.Contains(strings.ToLower(item), strings.ToLower(want))
		})
		env.Soft.Check(expect.That(found, "top navigation", fmt.Sprintf("an item containing %q", want), fmt.Sprintf("%q", items)))
	}
	return nil
}

// navigationRoutes clicks every routed item except sign up, which has its
// own case, reopening home in between.
func navigationRoutes(ctx context.Context, env *Env) error {
	first := true
	for _, label := range env.Store.Navigation.Items {
		if label == env.Store.Navigation.SignUp {
			continue
		}
		route, err := env.Store.Route(label)
		if err != nil {
			continue
		}
		if !first {
			if err := env.Home.Open(ctx); err != nil {
				return err
			}
		}
		first = false

		if err := env.Home.ClickNavigationItem(ctx, label); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if err := env.Home.VerifyURL(ctx, env.Tab, route); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
	}
	return nil
}

func signUp(ctx context.Context, env *Env) error {
	tab, err := env.Home.HandleSignUpClick(ctx)
	if err != nil {
		return err
	}
	route, err := env.Store.Route(env.Store.Navigation.SignUp)
	if err != nil {
		return err
	}
	if err := env.Home.VerifyURL(ctx, tab, route); err != nil {
		return err
	}
	indicator := browser.Locate(`input[type="email"], h1, h2`).Visible().First()
	return env.Home.Expect.WithTimeout(env.Home.Timeouts.Header).Visible(ctx, tab, indicator)
}

func headerComponent(ctx context.Context, env *Env) error {
	nav := env.Navigation
	if err := nav.VerifyNavigationVisible(ctx); err != nil {
		return err
	}
	texts, err := nav.NavTexts(ctx)
	if err != nil {
		return err
	}
	for _, item := range env.Store.Navigation.Component.Items {
		env.Soft.Check(expect.That(slices.Contains(texts, item), "header items", fmt.Sprintf("%q", item), fmt.Sprintf("%q", texts)))
	}

	for i, item := range texts {
		if i > 0 {
			if err := env.Home.Open(ctx); err != nil {
				return err
			}
		}
		if err := nav.ClickNavItemByText(ctx, item); err != nil {
			return fmt.Errorf("%s: %w", item, err)
		}
	}
	return nil
}

func homeSuite() *Suite {
	return &Suite{
		Name:       "home",
		BeforeEach: openHome,
		Cases: []Case{
			{Name: "marketing banner is displayed", Run: func(ctx context.Context, env *Env) error {
				return env.Home.ValidateMarketingBanner(ctx)
			}},
			{Name: "download links point to an app store", Run: func(ctx context.Context, env *Env) error {
				return env.Home.ValidateDownloadSection(ctx)
			}},
		},
	}
}

func tradingSuite() *Suite {
	return &Suite{
		Name: "trading",
		BeforeEach: func(ctx context.Context, env *Env) error {
			return env.Trading.Open(ctx)
		},
		Cases: []Case{
			{Name: "table lists markets", Run: func(ctx context.Context, env *Env) error {
				return env.Trading.VerifyRowsExist(ctx)
			}},
			{Name: "table rows have pair, price and chart", Run: func(ctx context.Context, env *Env) error {
				return env.Trading.ValidateTradingTableStructure(ctx)
			}},
			{Name: "every category shows a valid table", Run: func(ctx context.Context, env *Env) error {
				return env.Trading.ValidateAllCategories(ctx)
			}},
			{Name: "configured assets are listed", Run: func(ctx context.Context, env *Env) error {
				return env.Trading.VerifyConfiguredAssets(ctx, env.Soft)
			}},
		},
	}
}

func companySuite() *Suite {
	return &Suite{
		Name: "company",
		BeforeEach: func(ctx context.Context, env *Env) error {
			return env.About.Open(ctx)
		},
		Cases: []Case{
			{Name: "about us page structure", Run: func(ctx context.Context, env *Env) error {
				return env.About.ValidateCompanyPageStructure(ctx)
			}},
		},
	}
}
