package chrome

import (
	"context"
	"encoding/json"
	"fmt"
)

// Navigate loads url in the target and waits until the new document has
// been parsed (DOMContentLoaded). Subresources may still be loading when it
// returns. Same-document navigations (fragment changes) return immediately.
func (c *Client) Navigate(ctx context.Context, targetID string, url string) (*NavigateResult, error) {
	sessionID, err := c.Session(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if _, err := c.CallSession(ctx, sessionID, "Page.enable", nil); err != nil {
		return nil, fmt.Errorf("enabling Page domain: %w", err)
	}

	// Subscribe before navigating so the event cannot be missed
	domCh, unsubscribe := c.Subscribe(sessionID, "Page.domContentEventFired")
	defer unsubscribe()

	navResult, err := c.CallSession(ctx, sessionID, "Page.navigate", map[string]string{
		"url": url,
	})
	if err != nil {
		return nil, fmt.Errorf("navigating: %w", err)
	}

	var navResp struct {
		FrameID   string `json:"frameId"`
		LoaderID  string `json:"loaderId"`
		ErrorText string `json:"errorText"`
	}
	if err := json.Unmarshal(navResult, &navResp); err != nil {
		return nil, fmt.Errorf("parsing navigate response: %w", err)
	}

	if navResp.ErrorText != "" {
		return nil, fmt.Errorf("navigating to %s: %s", url, navResp.ErrorText)
	}

	result := &NavigateResult{
		FrameID:  navResp.FrameID,
		LoaderID: navResp.LoaderID,
		URL:      url,
	}

	if navResp.LoaderID == "" {
		return result, nil
	}

	select {
	case <-domCh:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetURL returns the current page URL.
func (c *Client) GetURL(ctx context.Context, targetID string) (string, error) {
	result, err := c.Eval(ctx, targetID, "document.location.href")
	if err != nil {
		return "", err
	}
	if s, ok := result.Value.(string); ok {
		return s, nil
	}
	return "", nil
}
