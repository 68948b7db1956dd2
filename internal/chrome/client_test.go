package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvent is pushed to the client after the response it accompanies.
type fakeEvent struct {
	SessionID string
	Method    string
	Params    interface{}
}

// fakeHandler answers one protocol request. Returning a *ProtocolError as
// the result sends an error response.
type fakeHandler func(req request) (interface{}, []fakeEvent)

// fakeBrowser speaks just enough of the DevTools protocol to drive Client.
type fakeBrowser struct {
	handle fakeHandler

	mu    sync.Mutex
	calls []request
}

func (f *fakeBrowser) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *fakeBrowser) serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		f.mu.Lock()
		f.calls = append(f.calls, req)
		f.mu.Unlock()

		result, events := f.handle(req)
		resp := map[string]interface{}{"id": req.ID}
		if req.SessionID != "" {
			resp["sessionId"] = req.SessionID
		}
		if perr, ok := result.(*ProtocolError); ok {
			resp["error"] = perr
		} else if result == nil {
			resp["result"] = map[string]interface{}{}
		} else {
			resp["result"] = result
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
		for _, ev := range events {
			msg := map[string]interface{}{"method": ev.Method, "params": ev.Params}
			if ev.SessionID != "" {
				msg["sessionId"] = ev.SessionID
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

func startFakeBrowser(t *testing.T, handle fakeHandler) (*fakeBrowser, *Client) {
	t.Helper()

	fb := &fakeBrowser{handle: handle}
	mux := http.NewServeMux()
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"Browser":              "FakeChrome/1.0",
			"webSocketDebuggerUrl": "ws://" + r.Host + "/devtools/browser/fake",
		})
	})
	mux.HandleFunc("/devtools/browser/fake", fb.serve)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	addr := srv.Listener.Addr().(*net.TCPAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, "127.0.0.1", addr.Port)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return fb, client
}

// attachHandler answers Target.attachToTarget with "session-<targetId>" and
// delegates everything else.
func attachHandler(next fakeHandler) fakeHandler {
	return func(req request) (interface{}, []fakeEvent) {
		if req.Method == "Target.attachToTarget" {
			var p struct {
				TargetID string `json:"targetId"`
			}
			json.Unmarshal(req.Params, &p)
			return map[string]string{"sessionId": "session-" + p.TargetID}, nil
		}
		if next == nil {
			return nil, nil
		}
		return next(req)
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_CallAndProtocolError(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, func(req request) (interface{}, []fakeEvent) {
		switch req.Method {
		case "Browser.getVersion":
			return map[string]string{"product": "FakeChrome/1.0", "protocolVersion": "1.3"}, nil
		default:
			return &ProtocolError{Code: -32601, Message: fmt.Sprintf("'%s' wasn't found", req.Method)}, nil
		}
	})
	ctx := testContext(t)

	version, err := client.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FakeChrome/1.0", version.Browser)
	assert.Equal(t, "1.3", version.ProtocolVersion)
	assert.True(t, strings.HasSuffix(client.WebSocketURL(), "/devtools/browser/fake"), client.WebSocketURL())

	_, err = client.Call(ctx, "Bogus.method", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocolError))

	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, -32601, perr.Code)
}

func TestClient_SessionIsCached(t *testing.T) {
	t.Parallel()

	fb, client := startFakeBrowser(t, attachHandler(nil))
	ctx := testContext(t)

	for i := 0; i < 3; i++ {
		_, err := client.CallTarget(ctx, "T1", "Page.enable", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fb.count("Target.attachToTarget"))

	require.NoError(t, client.CloseTab(ctx, "T1"))
	_, err := client.CallTarget(ctx, "T1", "Page.enable", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, fb.count("Target.attachToTarget"), "closing a tab forgets its session")
}

func TestClient_SubscribeRoutesBySession(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, func(req request) (interface{}, []fakeEvent) {
		if req.Method == "Test.fire" {
			return nil, []fakeEvent{
				{SessionID: "other", Method: "Page.loadEventFired", Params: map[string]int{"n": 1}},
				{SessionID: "mine", Method: "Page.loadEventFired", Params: map[string]int{"n": 2}},
			}
		}
		return nil, nil
	})
	ctx := testContext(t)

	events, unsubscribe := client.Subscribe("mine", "Page.loadEventFired")

	_, err := client.Call(ctx, "Test.fire", nil)
	require.NoError(t, err)

	select {
	case params := <-events:
		assert.JSONEq(t, `{"n":2}`, string(params))
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-events
	assert.False(t, open, "unsubscribe closes the channel")
}

func TestClient_NavigateWaitsForDOMContentLoaded(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, attachHandler(func(req request) (interface{}, []fakeEvent) {
		switch req.Method {
		case "Page.navigate":
			return map[string]string{"frameId": "F1", "loaderId": "L1"}, []fakeEvent{
				{SessionID: req.SessionID, Method: "Page.domContentEventFired", Params: map[string]float64{"timestamp": 1}},
			}
		case "Runtime.evaluate":
			return map[string]interface{}{"result": map[string]interface{}{"type": "string", "value": "https://example.test/"}}, nil
		}
		return nil, nil
	}))
	ctx := testContext(t)

	res, err := client.Navigate(ctx, "T1", "https://example.test/")
	require.NoError(t, err)
	assert.Equal(t, "F1", res.FrameID)
	assert.Equal(t, "L1", res.LoaderID)

	url, err := client.GetURL(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/", url)
}

func TestClient_NavigateError(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, attachHandler(func(req request) (interface{}, []fakeEvent) {
		if req.Method == "Page.navigate" {
			return map[string]string{"frameId": "F1", "errorText": "net::ERR_NAME_NOT_RESOLVED"}, nil
		}
		return nil, nil
	}))

	_, err := client.Navigate(testContext(t), "T1", "https://nowhere.invalid/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestClient_EvalException(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, attachHandler(func(req request) (interface{}, []fakeEvent) {
		return map[string]interface{}{
			"result": map[string]interface{}{"type": "object"},
			"exceptionDetails": map[string]interface{}{
				"text":      "Uncaught",
				"exception": map[string]string{"description": "ReferenceError: nope is not defined"},
			},
		}, nil
	}))

	_, err := client.Eval(testContext(t), "T1", "nope")
	var jsErr *JSError
	require.True(t, errors.As(err, &jsErr))
	assert.Contains(t, jsErr.Text, "ReferenceError")
}

func TestClient_WatchPagesSkipsExistingTargets(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, func(req request) (interface{}, []fakeEvent) {
		switch req.Method {
		case "Target.getTargets":
			return map[string]interface{}{"targetInfos": []TargetInfo{
				{ID: "A", Type: "page", URL: "about:blank"},
			}}, nil
		case "Target.setDiscoverTargets":
			return nil, []fakeEvent{
				{Method: "Target.targetCreated", Params: map[string]TargetInfo{"targetInfo": {ID: "A", Type: "page"}}},
				{Method: "Target.targetCreated", Params: map[string]TargetInfo{"targetInfo": {ID: "W", Type: "service_worker"}}},
				{Method: "Target.targetCreated", Params: map[string]TargetInfo{"targetInfo": {ID: "B", Type: "page", OpenerID: "A"}}},
			}
		}
		return nil, nil
	})
	ctx := testContext(t)

	pages, stop, err := client.WatchPages(ctx)
	require.NoError(t, err)
	defer stop()

	select {
	case info := <-pages:
		assert.Equal(t, "B", info.ID)
		assert.Equal(t, "A", info.OpenerID)
	case <-ctx.Done():
		t.Fatal("new page not reported")
	}

	stop()
	stop()
}

func TestClient_CallAfterClose(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, attachHandler(nil))
	ctx := testContext(t)

	_, err := client.CallTarget(ctx, "T1", "Page.enable", nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	_, err = client.Call(ctx, "Browser.getVersion", nil)
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestClient_WaitForReadyState(t *testing.T) {
	t.Parallel()

	var polls int
	fb, client := startFakeBrowser(t, attachHandler(func(req request) (interface{}, []fakeEvent) {
		// Not ready for the first two polls.
		polls++
		ready := polls > 2
		return map[string]interface{}{
			"result": map[string]interface{}{"type": "boolean", "value": ready},
		}, nil
	}))

	require.NoError(t, client.WaitForReadyState(testContext(t), "T1", ReadyComplete))
	assert.GreaterOrEqual(t, fb.count("Runtime.evaluate"), 3)
}

func TestClient_WaitForReadyStateTimeout(t *testing.T) {
	t.Parallel()

	_, client := startFakeBrowser(t, attachHandler(func(req request) (interface{}, []fakeEvent) {
		return map[string]interface{}{
			"result": map[string]interface{}{"type": "string", "value": ""},
		}, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := client.WaitForReadyState(ctx, "T1", ReadyInteractive)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
