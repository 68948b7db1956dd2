package chrome

import (
	"context"
	"fmt"
)

// ClickAt dispatches a left click at viewport coordinates x, y.
func (c *Client) ClickAt(ctx context.Context, targetID string, x, y float64) error {
	sessionID, err := c.Session(ctx, targetID)
	if err != nil {
		return err
	}

	return c.dispatchMouseClick(ctx, sessionID, x, y, "left", 1)
}

// dispatchMouseClick dispatches mouseMoved, mousePressed, and mouseReleased events.
func (c *Client) dispatchMouseClick(ctx context.Context, sessionID string, x, y float64, button string, clickCount int) error {
	_, err := c.CallSession(ctx, sessionID, "Input.dispatchMouseEvent", map[string]interface{}{
		"type": "mouseMoved",
		"x":    x,
		"y":    y,
	})
	if err != nil {
		return fmt.Errorf("dispatching mouseMoved: %w", err)
	}

	for _, phase := range []string{"mousePressed", "mouseReleased"} {
		_, err = c.CallSession(ctx, sessionID, "Input.dispatchMouseEvent", map[string]interface{}{
			"type":       phase,
			"x":          x,
			"y":          y,
			"button":     button,
			"clickCount": clickCount,
		})
		if err != nil {
			return fmt.Errorf("dispatching %s: %w", phase, err)
		}
	}

	return nil
}
