package chrome

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Eval evaluates a JavaScript expression in a target's page context and
// returns its value by JSON.
func (c *Client) Eval(ctx context.Context, targetID string, expression string) (*EvalResult, error) {
	result, err := c.CallTarget(ctx, targetID, "Runtime.evaluate", map[string]interface{}{
		"expression":    expression,
		"returnByValue": true,
		"awaitPromise":  true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}

	var resp struct {
		Result struct {
			Type  string      `json:"type"`
			Value interface{} `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing eval response: %w", err)
	}

	if ex := resp.ExceptionDetails; ex != nil {
		text := ex.Text
		if ex.Exception != nil && ex.Exception.Description != "" {
			text = ex.Exception.Description
		}
		return nil, &JSError{Text: text}
	}

	return &EvalResult{
		Value: resp.Result.Value,
		Type:  resp.Result.Type,
	}, nil
}

// EvalInto evaluates expression and decodes its JSON value into v.
func (c *Client) EvalInto(ctx context.Context, targetID string, expression string, v interface{}) error {
	result, err := c.Eval(ctx, targetID, expression)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result.Value)
	if err != nil {
		return fmt.Errorf("re-encoding eval value: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding eval value: %w", err)
	}
	return nil
}

// Screenshot captures a screenshot of a target.
func (c *Client) Screenshot(ctx context.Context, targetID string, opts ScreenshotOptions) ([]byte, error) {
	params := map[string]interface{}{}
	if opts.Format != "" {
		params["format"] = opts.Format
	}
	if opts.Quality > 0 {
		params["quality"] = opts.Quality
	}
	if opts.FullPage {
		params["captureBeyondViewport"] = true
	}

	result, err := c.CallTarget(ctx, targetID, "Page.captureScreenshot", params)
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	var resp struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parsing screenshot response: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding screenshot data: %w", err)
	}

	return data, nil
}

// PageSource returns the serialized HTML of the current document.
func (c *Client) PageSource(ctx context.Context, targetID string) (string, error) {
	result, err := c.CallTarget(ctx, targetID, "DOM.getDocument", map[string]interface{}{
		"depth": -1,
	})
	if err != nil {
		return "", fmt.Errorf("getting document: %w", err)
	}

	var doc struct {
		Root struct {
			NodeID int `json:"nodeId"`
		} `json:"root"`
	}
	if err := json.Unmarshal(result, &doc); err != nil {
		return "", fmt.Errorf("parsing document: %w", err)
	}

	result, err = c.CallTarget(ctx, targetID, "DOM.getOuterHTML", map[string]interface{}{
		"nodeId": doc.Root.NodeID,
	})
	if err != nil {
		return "", fmt.Errorf("getting outer HTML: %w", err)
	}

	var html struct {
		OuterHTML string `json:"outerHTML"`
	}
	if err := json.Unmarshal(result, &html); err != nil {
		return "", fmt.Errorf("parsing outer HTML: %w", err)
	}

	return html.OuterHTML, nil
}

// Emulate applies device metrics and user agent overrides to the target.
func (c *Client) Emulate(ctx context.Context, targetID string, device DeviceInfo) error {
	sessionID, err := c.Session(ctx, targetID)
	if err != nil {
		return err
	}

	_, err = c.CallSession(ctx, sessionID, "Emulation.setDeviceMetricsOverride", map[string]interface{}{
		"width":             device.Width,
		"height":            device.Height,
		"deviceScaleFactor": device.DeviceScaleFactor,
		"mobile":            device.Mobile,
	})
	if err != nil {
		return fmt.Errorf("setting device metrics: %w", err)
	}

	if device.UserAgent == "" {
		return nil
	}

	_, err = c.CallSession(ctx, sessionID, "Emulation.setUserAgentOverride", map[string]interface{}{
		"userAgent": device.UserAgent,
	})
	if err != nil {
		return fmt.Errorf("setting user agent: %w", err)
	}

	return nil
}
