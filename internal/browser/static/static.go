// Package static is a browser binding that fetches pages over HTTP and
// evaluates locators against the served markup. Scripts never run, so it
// suits server-rendered pages and the fake site used by the tests.
package static

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"sync"

	"github.com/google/uuid"
	"github.com/phuslu/log"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/logging"
)

// Browser hands out contexts sharing one transport.
type Browser struct {
	client *http.Client
	log    *log.Logger
}

// New returns a static browser using client's transport and timeout.
// A nil client uses http.DefaultTransport.
func New(client *http.Client, logger *log.Logger) *Browser {
	if client == nil {
		client = &http.Client{}
	}
	return &Browser{client: client, log: logging.OrNop(logger)}
}

// NewContext returns a context with its own cookie jar.
func (b *Browser) NewContext(ctx context.Context) (browser.Context, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Context{
		b: b,
		client: &http.Client{
			Transport: b.client.Transport,
			Timeout:   b.client.Timeout,
			Jar:       jar,
		},
		watchers: make(map[chan browser.Tab]struct{}),
	}, nil
}

func (b *Browser) Close() error { return nil }

// Context is an isolated group of static tabs.
type Context struct {
	b      *Browser
	client *http.Client

	mu       sync.Mutex
	watchers map[chan browser.Tab]struct{}
	closed   bool
}

func (c *Context) newTab(userAgent string) *Tab {
	return &Tab{
		c:         c,
		id:        uuid.NewString(),
		doc:       blankDocument(),
		userAgent: userAgent,
	}
}

func (c *Context) NewTab(ctx context.Context) (browser.Tab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("context closed")
	}
	return c.newTab(""), nil
}

func (c *Context) WatchTabs(ctx context.Context) (<-chan browser.Tab, func(), error) {
	ch := make(chan browser.Tab, 8)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
			close(ch)
		})
	}, nil
}

// opened announces a tab opened by the page to every watcher.
func (c *Context) opened(t *Tab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.watchers {
		select {
		case ch <- t:
		default:
		}
	}
}

func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.client.CloseIdleConnections()
	return nil
}
