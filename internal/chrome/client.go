package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a Chrome DevTools Protocol client.
type Client struct {
	conn    *websocket.Conn
	wsURL   string
	writeMu sync.Mutex
	nextID  atomic.Int64

	pending   map[int64]chan callResult
	pendingMu sync.Mutex

	events   map[string][]chan json.RawMessage // key: "sessionID:method"
	eventsMu sync.Mutex

	sessions   map[string]string // targetID -> sessionID
	sessionsMu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
	closeCh   chan struct{}
}

type callResult struct {
	Result json.RawMessage
	Error  *ProtocolError
}

type request struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

type message struct {
	ID        int64           `json:"id"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ProtocolError  `json:"error,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Connect discovers the browser WebSocket endpoint at host:port and connects to it.
func Connect(ctx context.Context, host string, port int) (*Client, error) {
	versionURL := fmt.Sprintf("http://%s:%d/json/version", host, port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, versionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to Chrome: %w", err)
	}
	defer resp.Body.Close()

	var version struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return nil, fmt.Errorf("decoding version response: %w", err)
	}
	if version.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("no WebSocket URL in response")
	}

	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, version.WebSocketDebuggerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to WebSocket: %w", err)
	}

	c := &Client{
		conn:     conn,
		wsURL:    version.WebSocketDebuggerURL,
		pending:  make(map[int64]chan callResult),
		events:   make(map[string][]chan json.RawMessage),
		sessions: make(map[string]string),
		closeCh:  make(chan struct{}),
	}
	go c.readMessages()

	return c, nil
}

// WebSocketURL returns the WebSocket URL used for this connection.
func (c *Client) WebSocketURL() string {
	return c.wsURL
}

// Close detaches all sessions and closes the connection.
func (c *Client) Close() error {
	if c.closed.Load() {
		return nil
	}

	c.sessionsMu.Lock()
	sessions := c.sessions
	c.sessions = make(map[string]string)
	c.sessionsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, sessionID := range sessions {
		c.Call(ctx, "Target.detachFromTarget", map[string]interface{}{
			"sessionId": sessionID,
		})
	}

	return c.shutdown()
}

// shutdown closes the connection and fails every pending call.
func (c *Client) shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		err = c.conn.Close()

		c.pendingMu.Lock()
		for _, ch := range c.pending {
			close(ch)
		}
		c.pending = make(map[int64]chan callResult)
		c.pendingMu.Unlock()
	})
	return err
}

// Session returns the flattened session attached to targetID, attaching on first use.
func (c *Client) Session(ctx context.Context, targetID string) (string, error) {
	c.sessionsMu.Lock()
	if sessionID, ok := c.sessions[targetID]; ok {
		c.sessionsMu.Unlock()
		return sessionID, nil
	}
	c.sessionsMu.Unlock()

	result, err := c.Call(ctx, "Target.attachToTarget", map[string]interface{}{
		"targetId": targetID,
		"flatten":  true,
	})
	if err != nil {
		return "", fmt.Errorf("attaching to target: %w", err)
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parsing attach response: %w", err)
	}

	c.sessionsMu.Lock()
	c.sessions[targetID] = resp.SessionID
	c.sessionsMu.Unlock()

	return resp.SessionID, nil
}

func (c *Client) forgetSession(targetID string) {
	c.sessionsMu.Lock()
	delete(c.sessions, targetID)
	c.sessionsMu.Unlock()
}

// Call sends a browser-level protocol command and waits for the response.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.send(ctx, "", method, params)
}

// CallSession sends a protocol command to a session and waits for the response.
func (c *Client) CallSession(ctx context.Context, sessionID string, method string, params interface{}) (json.RawMessage, error) {
	return c.send(ctx, sessionID, method, params)
}

// CallTarget attaches to targetID if needed and sends a protocol command to it.
func (c *Client) CallTarget(ctx context.Context, targetID string, method string, params interface{}) (json.RawMessage, error) {
	sessionID, err := c.Session(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, sessionID, method, params)
}

func (c *Client) send(ctx context.Context, sessionID string, method string, params interface{}) (json.RawMessage, error) {
	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	req := request{
		ID:        c.nextID.Add(1),
		SessionID: sessionID,
		Method:    method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshaling params: %w", err)
		}
		req.Params = data
	}

	respCh := make(chan callResult, 1)
	c.pendingMu.Lock()
	c.pending[req.ID] = respCh
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.ID)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case result, ok := <-respCh:
		if !ok {
			return nil, ErrConnectionClosed
		}
		if result.Error != nil {
			return nil, result.Error
		}
		return result.Result, nil
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) readMessages() {
	defer c.shutdown()

	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if msg.ID > 0 {
			c.pendingMu.Lock()
			if ch, ok := c.pending[msg.ID]; ok {
				ch <- callResult{Result: msg.Result, Error: msg.Error}
			}
			c.pendingMu.Unlock()
		}

		if msg.Method != "" {
			key := msg.SessionID + ":" + msg.Method
			c.eventsMu.Lock()
			for _, h := range c.events[key] {
				select {
				case h <- msg.Params:
				default:
					// subscriber is not keeping up; drop
				}
			}
			c.eventsMu.Unlock()
		}
	}
}

// Subscribe registers for protocol events of method on sessionID. An empty
// sessionID receives browser-level events. The returned func unsubscribes
// and closes the channel.
func (c *Client) Subscribe(sessionID, method string) (<-chan json.RawMessage, func()) {
	ch := make(chan json.RawMessage, 100)
	key := sessionID + ":" + method

	c.eventsMu.Lock()
	c.events[key] = append(c.events[key], ch)
	c.eventsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.eventsMu.Lock()
			defer c.eventsMu.Unlock()
			handlers := c.events[key]
			for i, h := range handlers {
				if h == ch {
					c.events[key] = append(handlers[:i], handlers[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
}
