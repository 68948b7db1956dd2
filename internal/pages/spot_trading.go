package pages

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/expect"
	"github.com/tomyan/sitecheck/internal/fixture"
)

// maxRowsChecked caps how many table rows the structure check inspects.
const maxRowsChecked = 5

// SpotTrading is the market listing with its category tabs.
type SpotTrading struct {
	*Base
	fx fixture.Trading
}

func NewSpotTrading(base *Base, fx fixture.Trading) *SpotTrading {
	return &SpotTrading{Base: base, fx: fx}
}

func (s *SpotTrading) Rows() browser.Locator {
	return browser.Locate(s.fx.Rows)
}

func (s *SpotTrading) Open(ctx context.Context) error {
	return s.Navigate(ctx, s.fx.Path)
}

// SelectCategory switches the table to category name and waits for rows.
func (s *SpotTrading) SelectCategory(ctx context.Context, name string) error {
	tab := browser.RoleExact("button", name).First()
	exp := s.Expect.WithTimeout(s.Timeouts.Table)

	if err := exp.Visible(ctx, s.Tab, tab); err != nil {
		return err
	}
	s.Log.Debug().Str("category", name).Msg("select category")
	if err := s.Tab.Click(ctx, tab); err != nil {
		return err
	}

	idleCtx, cancel := context.WithTimeout(ctx, s.Timeouts.Table)
	defer cancel()
	if err := s.Tab.WaitForLoadState(idleCtx, browser.NetworkIdle); err != nil {
		return fmt.Errorf("category %s: %w", name, err)
	}
	return exp.Visible(ctx, s.Tab, s.Rows().First())
}

// ParsePrice reads the leading number of a price after dropping every
// character but digits and dots ("$1,234.5" is 1234.5).
func ParsePrice(text string) (float64, bool) {
	digits := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, text)

	end, dot := 0, false
	for end < len(digits) {
		if digits[end] == '.' {
			if dot {
				break
			}
			dot = true
		}
		end++
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(digits[:end], "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ValidateTradingTableStructure checks the pair, price and chart cells of
// the first rows.
func (s *SpotTrading) ValidateTradingTableStructure(ctx context.Context) error {
	exp := s.Expect.WithTimeout(s.Timeouts.Table)
	if err := exp.Visible(ctx, s.Tab, s.Rows().First()); err != nil {
		return err
	}

	count, err := s.Tab.Count(ctx, s.Rows())
	if err != nil {
		return err
	}

	cells := s.fx.TableStructure
	for i := 0; i < min(count, maxRowsChecked); i++ {
		row := s.Rows().Nth(i)

		pair := row.IDSuffix(cells.PairCell).First()
		if err := s.Expect.Visible(ctx, s.Tab, pair); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		pairText, err := s.firstText(ctx, pair)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := expect.That(pairText != "", fmt.Sprintf("row %d pair", i), "non-empty text", `""`); err != nil {
			return err
		}

		price := row.IDSuffix(cells.PriceCell).First()
		if err := s.Expect.Visible(ctx, s.Tab, price); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		priceText, err := s.firstText(ctx, price)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := expect.That(strings.Contains(priceText, "$"), fmt.Sprintf("row %d price", i), "a $ amount", strconv.Quote(priceText)); err != nil {
			return err
		}
		_, ok := ParsePrice(priceText)
		if err := expect.That(ok, fmt.Sprintf("row %d price", i), "a number", strconv.Quote(priceText)); err != nil {
			return err
		}

		chart := row.IDSuffix(cells.ChartCell).First()
		if err := s.Expect.Visible(ctx, s.Tab, chart); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func (s *SpotTrading) VerifyRowsExist(ctx context.Context) error {
	count, err := s.Tab.Count(ctx, s.Rows())
	if err != nil {
		return err
	}
	return expect.That(count > 0, "trading table rows", "at least one", strconv.Itoa(count))
}

// VerifyAssetExists checks the table text contains symbol.
func (s *SpotTrading) VerifyAssetExists(ctx context.Context, symbol string) error {
	text, err := s.firstText(ctx, browser.Locate("table").First())
	if err != nil {
		return err
	}
	return expect.That(strings.Contains(text, symbol), "trading table", "to list "+symbol, "no "+symbol)
}

// ValidateAllCategories selects every configured category in turn and
// validates the table after each switch.
func (s *SpotTrading) ValidateAllCategories(ctx context.Context) error {
	for _, category := range s.fx.Categories {
		if err := s.SelectCategory(ctx, category); err != nil {
			return err
		}
		if err := s.VerifyRowsExist(ctx); err != nil {
			return fmt.Errorf("category %s: %w", category, err)
		}
		if err := s.ValidateTradingTableStructure(ctx); err != nil {
			return fmt.Errorf("category %s: %w", category, err)
		}
	}
	return nil
}

// VerifyConfiguredAssets records every configured asset missing from the
// table in soft. Only a failure to read the table is returned.
func (s *SpotTrading) VerifyConfiguredAssets(ctx context.Context, soft *expect.Soft) error {
	if err := s.Expect.WithTimeout(s.Timeouts.Table).Visible(ctx, s.Tab, s.Rows().First()); err != nil {
		return err
	}
	for _, asset := range s.fx.Assets {
		err := s.VerifyAssetExists(ctx, asset)
		if err != nil && !isAssertion(err) {
			return err
		}
		soft.Check(err)
	}
	return nil
}

func isAssertion(err error) bool {
	return errors.Is(err, expect.ErrAssertion)
}
