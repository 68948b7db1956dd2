package static

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/tomyan/sitecheck/internal/browser"
	"github.com/tomyan/sitecheck/internal/chrome"
)

const blankHTML = "<html><head></head><body></body></html>"

func blankDocument() *goquery.Document {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(blankHTML))
	return doc
}

// Tab holds the document most recently loaded into it.
type Tab struct {
	c  *Context
	id string

	mu        sync.Mutex
	url       *url.URL
	doc       *goquery.Document
	loadErr   error
	userAgent string
	closed    bool
}

func (t *Tab) ID() string { return t.id }

// Goto fetches rawURL, resolved against the current URL, and parses the
// response as the tab's document. HTTP error statuses still load.
func (t *Tab) Goto(ctx context.Context, rawURL string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx, rawURL)
}

func (t *Tab) load(ctx context.Context, rawURL string) error {
	if t.closed {
		return errors.New("tab closed")
	}

	target, err := t.resolveURL(rawURL)
	if err != nil {
		return err
	}
	if target.String() == "about:blank" {
		t.url, t.doc, t.loadErr = target, blankDocument(), nil
		return nil
	}
	if t.url != nil && sameDocument(t.url, target) {
		t.url = target
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.c.client.Do(req)
	if err != nil {
		t.loadErr = fmt.Errorf("navigating to %s: %w", target, err)
		return t.loadErr
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.loadErr = fmt.Errorf("parsing %s: %w", target, err)
		return t.loadErr
	}

	t.url, t.doc, t.loadErr = resp.Request.URL, doc, nil
	t.c.b.log.Debug().Str("tab", t.id).Str("url", t.url.String()).Int("status", resp.StatusCode).Msg("page loaded")
	return nil
}

func (t *Tab) resolveURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url %q: %w", rawURL, err)
	}
	if t.url != nil {
		u = t.url.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("cannot navigate to relative url %q from about:blank", rawURL)
	}
	return u, nil
}

func sameDocument(a, b *url.URL) bool {
	if b.Fragment == "" {
		return false
	}
	x, y := *a, *b
	x.Fragment, y.Fragment = "", ""
	return x.String() == y.String()
}

// WaitForLoadState returns at once: documents are fully parsed on load and
// nothing runs after that.
func (t *Tab) WaitForLoadState(ctx context.Context, state browser.LoadState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.loadErr
}

func (t *Tab) URL(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.url == nil {
		return "about:blank", nil
	}
	return t.url.String(), nil
}

func (t *Tab) resolve(l browser.Locator) ([]*html.Node, error) {
	return newResolver(t.doc).resolve(l)
}

func (t *Tab) Count(ctx context.Context, l browser.Locator) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes, err := t.resolve(l)
	return len(nodes), err
}

func (t *Tab) Texts(ctx context.Context, l browser.Locator) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes, err := t.resolve(l)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = textContent(n)
	}
	return texts, nil
}

func (t *Tab) Attribute(ctx context.Context, l browser.Locator, name string) (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes, err := t.resolve(l)
	if err != nil {
		return "", false, err
	}
	if len(nodes) == 0 {
		return "", false, fmt.Errorf("%s: %w", l, browser.ErrNotFound)
	}
	v, ok := attr(nodes[0], name)
	return v, ok, nil
}

func (t *Tab) Visible(ctx context.Context, l browser.Locator) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes, err := t.resolve(l)
	if err != nil || len(nodes) == 0 {
		return false, err
	}
	return visible(nodes[0]), nil
}

// Click follows the link enclosing the first match, or submits its GET
// form when it is a submit button. Other elements have no behaviour
// without scripts.
func (t *Tab) Click(ctx context.Context, l browser.Locator) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	nodes, err := t.resolve(l)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("click %s: %w", l, browser.ErrNotFound)
	}
	n := nodes[0]
	if !visible(n) {
		return fmt.Errorf("click %s: %w", l, browser.ErrNotVisible)
	}

	if link := closest(n, "a", "area"); link != nil {
		href, ok := attr(link, "href")
		if !ok || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return nil
		}
		if target, _ := attr(link, "target"); target == "_blank" {
			return t.openTab(ctx, href)
		}
		return t.load(ctx, href)
	}

	if isSubmit(n) {
		if form := closest(n, "form"); form != nil {
			return t.submit(ctx, form, n)
		}
	}
	return nil
}

func (t *Tab) openTab(ctx context.Context, href string) error {
	target, err := t.resolveURL(href)
	if err != nil {
		return err
	}
	popup := t.c.newTab(t.userAgent)
	popup.mu.Lock()
	popup.load(ctx, target.String())
	popup.mu.Unlock()
	t.c.opened(popup)
	return nil
}

func (t *Tab) submit(ctx context.Context, form, button *html.Node) error {
	if method, _ := attr(form, "method"); method != "" && !strings.EqualFold(method, "get") {
		return fmt.Errorf("form method %q is not supported", method)
	}
	action, _ := attr(form, "action")
	target, err := t.resolveURL(action)
	if err != nil {
		return err
	}

	values := url.Values{}
	r := newResolver(t.doc)
	for _, field := range r.descendants(form) {
		if field.Data != "input" || isSubmit(field) {
			continue
		}
		name, _ := attr(field, "name")
		if name == "" {
			continue
		}
		if typ, _ := attr(field, "type"); typ == "checkbox" || typ == "radio" {
			if _, checked := attr(field, "checked"); !checked {
				continue
			}
		}
		v, _ := attr(field, "value")
		values.Add(name, v)
	}
	if name, _ := attr(button, "name"); name != "" {
		v, _ := attr(button, "value")
		values.Add(name, v)
	}

	target.RawQuery = values.Encode()
	target.Fragment = ""
	return t.load(ctx, target.String())
}

func (t *Tab) Remove(ctx context.Context, l browser.Locator) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes, err := t.resolve(l)
	if err != nil {
		return 0, err
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(nodes), nil
}

// Screenshot is not available without a renderer.
func (t *Tab) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, fmt.Errorf("static screenshot: %w", errors.ErrUnsupported)
}

func (t *Tab) Content(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, t.doc.Nodes[0]); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Emulate applies the device user agent to subsequent requests. Viewport
// metrics have no effect on static documents.
func (t *Tab) Emulate(ctx context.Context, device chrome.DeviceInfo) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.userAgent = device.UserAgent
	return nil
}

func (t *Tab) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func closest(n *html.Node, tags ...string) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		for _, tag := range tags {
			if cur.Data == tag {
				return cur
			}
		}
	}
	return nil
}

func isSubmit(n *html.Node) bool {
	typ, _ := attr(n, "type")
	switch n.Data {
	case "button":
		return typ == "" || strings.EqualFold(typ, "submit")
	case "input":
		return strings.EqualFold(typ, "submit")
	}
	return false
}
