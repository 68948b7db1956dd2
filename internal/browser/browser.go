// Package browser defines the tab and context abstraction page objects are
// written against, the Locator query descriptor, and a Chrome binding.
package browser

import (
	"context"
	"errors"

	"github.com/tomyan/sitecheck/internal/chrome"
)

// LoadState is a page lifecycle milestone a tab can wait for.
type LoadState string

const (
	DOMContentLoaded LoadState = "domcontentloaded"
	Load             LoadState = "load"
	NetworkIdle      LoadState = "networkidle"
)

var (
	ErrNotFound   = errors.New("no element matches locator")
	ErrNotVisible = errors.New("element is not visible")
)

// Tab is one browser page. A Tab is driven by one goroutine at a time.
type Tab interface {
	ID() string
	Goto(ctx context.Context, url string) error
	WaitForLoadState(ctx context.Context, state LoadState) error
	URL(ctx context.Context) (string, error)

	Count(ctx context.Context, l Locator) (int, error)
	// Texts returns the normalized text of every match.
	Texts(ctx context.Context, l Locator) ([]string, error)
	// Attribute reads name from the first match; ok is false when the
	// attribute is absent. ErrNotFound if nothing matches.
	Attribute(ctx context.Context, l Locator, name string) (value string, ok bool, err error)
	// Visible reports whether the first match is rendered.
	Visible(ctx context.Context, l Locator) (bool, error)
	Click(ctx context.Context, l Locator) error
	// Remove deletes every match from the document and returns how many.
	Remove(ctx context.Context, l Locator) (int, error)

	Screenshot(ctx context.Context) ([]byte, error)
	Content(ctx context.Context) (string, error)
	Emulate(ctx context.Context, device chrome.DeviceInfo) error
	Close(ctx context.Context) error
}

// Context is an isolated set of tabs with their own cookies and storage.
type Context interface {
	NewTab(ctx context.Context) (Tab, error)
	// WatchTabs reports tabs opened in this context after the call, for
	// example by a link with target=_blank. stop must be called.
	WatchTabs(ctx context.Context) (tabs <-chan Tab, stop func(), err error)
	Close(ctx context.Context) error
}

// Browser creates contexts.
type Browser interface {
	NewContext(ctx context.Context) (Context, error)
	Close() error
}
