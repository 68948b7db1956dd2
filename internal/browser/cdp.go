package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/tomyan/sitecheck/internal/chrome"
	"github.com/tomyan/sitecheck/internal/logging"
)

//go:embed resolve.js
var resolveJS string

// networkIdleTime is how long the network must stay quiet for NetworkIdle.
const networkIdleTime = 500 * time.Millisecond

// CDP is a Browser backed by a Chrome DevTools connection.
type CDP struct {
	client *chrome.Client
	log    *log.Logger
}

// NewCDP wraps a connected client. The CDP browser owns the client and
// closes it on Close.
func NewCDP(client *chrome.Client, logger *log.Logger) *CDP {
	return &CDP{client: client, log: logging.OrNop(logger)}
}

// NewContext creates a fresh CDP browser context.
func (b *CDP) NewContext(ctx context.Context) (Context, error) {
	id, err := b.client.CreateBrowserContext(ctx)
	if err != nil {
		return nil, err
	}
	b.log.Debug().Str("browser_context", id).Msg("context created")
	return &cdpContext{b: b, id: id}, nil
}

// Close closes the underlying connection.
func (b *CDP) Close() error {
	return b.client.Close()
}

type cdpContext struct {
	b  *CDP
	id string
}

func (c *cdpContext) NewTab(ctx context.Context) (Tab, error) {
	targetID, err := c.b.client.NewTab(ctx, "about:blank", c.id)
	if err != nil {
		return nil, err
	}
	return &cdpTab{client: c.b.client, id: targetID}, nil
}

func (c *cdpContext) WatchTabs(ctx context.Context) (<-chan Tab, func(), error) {
	pages, stop, err := c.b.client.WatchPages(ctx)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Tab, 4)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for info := range pages {
			if info.BrowserContextID != "" && info.BrowserContextID != c.id {
				continue
			}
			c.b.log.Debug().Str("target", info.ID).Str("url", info.URL).Msg("tab opened")
			select {
			case out <- &cdpTab{client: c.b.client, id: info.ID}:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			close(done)
			stop()
		})
	}, nil
}

// Close disposes the browser context, which closes all of its tabs.
func (c *cdpContext) Close(ctx context.Context) error {
	return c.b.client.DisposeBrowserContext(ctx, c.id)
}

type cdpTab struct {
	client *chrome.Client
	id     string
}

func (t *cdpTab) ID() string { return t.id }

func (t *cdpTab) Goto(ctx context.Context, url string) error {
	_, err := t.client.Navigate(ctx, t.id, url)
	return err
}

func (t *cdpTab) WaitForLoadState(ctx context.Context, state LoadState) error {
	switch state {
	case DOMContentLoaded:
		return t.client.WaitForReadyState(ctx, t.id, chrome.ReadyInteractive)
	case Load:
		return t.client.WaitForReadyState(ctx, t.id, chrome.ReadyComplete)
	case NetworkIdle:
		if err := t.client.WaitForReadyState(ctx, t.id, chrome.ReadyComplete); err != nil {
			return err
		}
		return t.client.WaitForNetworkIdle(ctx, t.id, networkIdleTime)
	}
	return fmt.Errorf("unknown load state %q", state)
}

func (t *cdpTab) URL(ctx context.Context) (string, error) {
	return t.client.GetURL(ctx, t.id)
}

// query runs the embedded resolver for l and decodes the op result into v.
func (t *cdpTab) query(ctx context.Context, l Locator, op string, arg string, v interface{}) error {
	steps, err := json.Marshal(append([]Step{}, l.steps...))
	if err != nil {
		return err
	}
	roles, err := json.Marshal(RoleSelectors)
	if err != nil {
		return err
	}
	argJSON, _ := json.Marshal(arg)

	expr := fmt.Sprintf("(%s)(%s, %s, %q, %s)", resolveJS, steps, roles, op, argJSON)
	if err := t.client.EvalInto(ctx, t.id, expr, v); err != nil {
		return fmt.Errorf("%s %s: %w", op, l, err)
	}
	return nil
}

func (t *cdpTab) Count(ctx context.Context, l Locator) (int, error) {
	var n int
	err := t.query(ctx, l, "count", "", &n)
	return n, err
}

func (t *cdpTab) Texts(ctx context.Context, l Locator) ([]string, error) {
	var texts []string
	err := t.query(ctx, l, "texts", "", &texts)
	return texts, err
}

func (t *cdpTab) Attribute(ctx context.Context, l Locator, name string) (string, bool, error) {
	var res struct {
		Found bool   `json:"found"`
		Has   bool   `json:"has"`
		Value string `json:"value"`
	}
	if err := t.query(ctx, l, "attr", name, &res); err != nil {
		return "", false, err
	}
	if !res.Found {
		return "", false, fmt.Errorf("%s: %w", l, ErrNotFound)
	}
	return res.Value, res.Has, nil
}

func (t *cdpTab) Visible(ctx context.Context, l Locator) (bool, error) {
	var visible bool
	err := t.query(ctx, l, "visible", "", &visible)
	return visible, err
}

// Click scrolls the first match into view and clicks its centre.
func (t *cdpTab) Click(ctx context.Context, l Locator) error {
	var pt struct {
		Found   bool    `json:"found"`
		Visible bool    `json:"visible"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
	}
	if err := t.query(ctx, l, "point", "", &pt); err != nil {
		return err
	}
	if !pt.Found {
		return fmt.Errorf("click %s: %w", l, ErrNotFound)
	}
	if !pt.Visible {
		return fmt.Errorf("click %s: %w", l, ErrNotVisible)
	}
	return t.client.ClickAt(ctx, t.id, pt.X, pt.Y)
}

func (t *cdpTab) Remove(ctx context.Context, l Locator) (int, error) {
	var n int
	err := t.query(ctx, l, "remove", "", &n)
	return n, err
}

func (t *cdpTab) Screenshot(ctx context.Context) ([]byte, error) {
	return t.client.Screenshot(ctx, t.id, chrome.ScreenshotOptions{Format: "png", FullPage: true})
}

func (t *cdpTab) Content(ctx context.Context) (string, error) {
	return t.client.PageSource(ctx, t.id)
}

func (t *cdpTab) Emulate(ctx context.Context, device chrome.DeviceInfo) error {
	return t.client.Emulate(ctx, t.id, device)
}

func (t *cdpTab) Close(ctx context.Context) error {
	return t.client.CloseTab(ctx, t.id)
}
