package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const readyStatePoll = 50 * time.Millisecond

// WaitForReadyState polls document.readyState until it reaches state
// ("interactive" or "complete"). A document that is already past state
// satisfies the wait.
func (c *Client) WaitForReadyState(ctx context.Context, targetID string, state string) error {
	expr := `document.readyState === "complete"`
	if state == ReadyInteractive {
		expr = `document.readyState !== "loading"`
	}

	limiter := rate.NewLimiter(rate.Every(readyStatePoll), 1)
	for {
		if limiter.Wait(ctx) != nil {
			// The next poll would land past the deadline.
			<-ctx.Done()
			return fmt.Errorf("waiting for readyState %q: %w", state, ctx.Err())
		}

		// Eval fails while the execution context is torn down
		// mid-navigation; keep polling until the caller's deadline.
		result, err := c.Eval(ctx, targetID, expr)
		if err == nil && isTruthy(result.Value) {
			return nil
		}
	}
}

// WaitForNetworkIdle waits until no requests have been in flight for idleTime.
func (c *Client) WaitForNetworkIdle(ctx context.Context, targetID string, idleTime time.Duration) error {
	sessionID, err := c.Session(ctx, targetID)
	if err != nil {
		return err
	}

	if _, err := c.CallSession(ctx, sessionID, "Network.enable", nil); err != nil {
		return fmt.Errorf("enabling network: %w", err)
	}

	requestCh, stopRequests := c.Subscribe(sessionID, "Network.requestWillBeSent")
	defer stopRequests()
	finishedCh, stopFinished := c.Subscribe(sessionID, "Network.loadingFinished")
	defer stopFinished()
	failedCh, stopFailed := c.Subscribe(sessionID, "Network.loadingFailed")
	defer stopFailed()

	pending := make(map[string]bool)
	idleTimer := time.NewTimer(idleTime)
	defer idleTimer.Stop()

	resetIdle := func() {
		if !idleTimer.Stop() {
			select {
			case <-idleTimer.C:
			default:
			}
		}
		idleTimer.Reset(idleTime)
	}

	requestID := func(params json.RawMessage) (string, bool) {
		var event struct {
			RequestID string `json:"requestId"`
		}
		if err := json.Unmarshal(params, &event); err != nil {
			return "", false
		}
		return event.RequestID, true
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for network idle: %w", ctx.Err())
		case params := <-requestCh:
			if id, ok := requestID(params); ok {
				pending[id] = true
				resetIdle()
			}
		case params := <-finishedCh:
			if id, ok := requestID(params); ok {
				delete(pending, id)
				resetIdle()
			}
		case params := <-failedCh:
			if id, ok := requestID(params); ok {
				delete(pending, id)
				resetIdle()
			}
		case <-idleTimer.C:
			if len(pending) == 0 {
				return nil
			}
			idleTimer.Reset(idleTime)
		}
	}
}
