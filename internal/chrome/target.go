package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Version returns the browser version information.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	result, err := c.Call(ctx, "Browser.getVersion", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Product         string `json:"product"`
		ProtocolVersion string `json:"protocolVersion"`
		UserAgent       string `json:"userAgent"`
		JsVersion       string `json:"jsVersion"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling version: %w", err)
	}

	return &VersionInfo{
		Browser:         resp.Product,
		ProtocolVersion: resp.ProtocolVersion,
		UserAgent:       resp.UserAgent,
		V8Version:       resp.JsVersion,
	}, nil
}

// Pages returns all page targets (tabs).
func (c *Client) Pages(ctx context.Context) ([]TargetInfo, error) {
	result, err := c.Call(ctx, "Target.getTargets", nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		TargetInfos []TargetInfo `json:"targetInfos"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling targets: %w", err)
	}

	pages := make([]TargetInfo, 0, len(resp.TargetInfos))
	for _, t := range resp.TargetInfos {
		if t.Type == "page" {
			pages = append(pages, t)
		}
	}
	return pages, nil
}

// CreateBrowserContext creates an isolated browser context (separate
// cookies, storage and cache) and returns its ID.
func (c *Client) CreateBrowserContext(ctx context.Context) (string, error) {
	result, err := c.Call(ctx, "Target.createBrowserContext", map[string]interface{}{
		"disposeOnDetach": true,
	})
	if err != nil {
		return "", fmt.Errorf("creating browser context: %w", err)
	}

	var resp struct {
		BrowserContextID string `json:"browserContextId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	return resp.BrowserContextID, nil
}

// DisposeBrowserContext closes a browser context and every tab in it.
func (c *Client) DisposeBrowserContext(ctx context.Context, browserContextID string) error {
	_, err := c.Call(ctx, "Target.disposeBrowserContext", map[string]interface{}{
		"browserContextId": browserContextID,
	})
	if err != nil {
		return fmt.Errorf("disposing browser context: %w", err)
	}
	return nil
}

// NewTab creates a tab in the given browser context (the default context
// when empty) and returns its target ID.
func (c *Client) NewTab(ctx context.Context, url string, browserContextID string) (string, error) {
	if url == "" {
		url = "about:blank"
	}

	params := map[string]interface{}{
		"url": url,
	}
	if browserContextID != "" {
		params["browserContextId"] = browserContextID
	}

	result, err := c.Call(ctx, "Target.createTarget", params)
	if err != nil {
		return "", fmt.Errorf("creating target: %w", err)
	}

	var resp struct {
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	return resp.TargetID, nil
}

// CloseTab closes a browser tab by its target ID.
func (c *Client) CloseTab(ctx context.Context, targetID string) error {
	c.forgetSession(targetID)

	_, err := c.Call(ctx, "Target.closeTarget", map[string]interface{}{
		"targetId": targetID,
	})
	if err != nil {
		return fmt.Errorf("closing target: %w", err)
	}
	return nil
}

// WatchPages reports page targets created after the call. The returned
// func stops the watch and must be called.
func (c *Client) WatchPages(ctx context.Context) (<-chan TargetInfo, func(), error) {
	events, unsubscribe := c.Subscribe("", "Target.targetCreated")

	// Enabling discovery replays targetCreated for targets that already
	// exist; those are not new.
	pages, err := c.Pages(ctx)
	if err != nil {
		unsubscribe()
		return nil, nil, err
	}
	existing := make(map[string]bool, len(pages))
	for _, p := range pages {
		existing[p.ID] = true
	}

	if _, err := c.Call(ctx, "Target.setDiscoverTargets", map[string]interface{}{
		"discover": true,
	}); err != nil {
		unsubscribe()
		return nil, nil, fmt.Errorf("enabling target discovery: %w", err)
	}

	out := make(chan TargetInfo, 10)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for {
			select {
			case params, ok := <-events:
				if !ok {
					return
				}
				var event struct {
					TargetInfo TargetInfo `json:"targetInfo"`
				}
				if err := json.Unmarshal(params, &event); err != nil {
					continue
				}
				if event.TargetInfo.Type != "page" || existing[event.TargetInfo.ID] {
					continue
				}
				select {
				case out <- event.TargetInfo:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
		})
	}

	return out, stop, nil
}
