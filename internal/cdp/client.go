// Package cdp is a minimal Chrome DevTools Protocol client for the
// browser-level websocket endpoint a session service hands out. It speaks
// just enough of the protocol to prove a session is alive: version info,
// opening and closing targets, and listing them. Anything page-level is the
// job of a real driver.
package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const dialTimeout = 10 * time.Second

type command struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *commandError   `json:"error,omitempty"`
	Method string          `json:"method,omitempty"`
}

type commandError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *commandError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// Version is the browser identity reported by Browser.getVersion.
type Version struct {
	Product         string `json:"product"`
	ProtocolVersion string `json:"protocolVersion"`
	UserAgent       string `json:"userAgent"`
}

// Target is one entry from Target.getTargets.
type Target struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// Client is a connection to a browser-level CDP endpoint.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan *response
	closed  bool
}

// Dial connects to the CDP websocket endpoint and starts the read loop.
func Dial(ctx context.Context, wsURL string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial cdp endpoint: %w", err)
	}

	c := &Client{
		conn:    conn,
		log:     logger,
		pending: make(map[int64]chan *response),
	}
	go c.readLoop()

	logger.Debug("connected to cdp endpoint", "url", wsURL)
	return c, nil
}

// readLoop dispatches command responses by id. Event frames carry a method
// and no id; this client doesn't subscribe to any, so they are dropped.
func (c *Client) readLoop() {
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("cdp read loop ended", "error", err)
			}
			c.failPending()
			return
		}

		if resp.Method != "" && resp.ID == 0 {
			continue
		}

		c.mu.Lock()
		ch := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ch != nil {
			ch <- &resp
		}
	}
}

func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// call sends one command and waits for its response, decoding the result
// into out when out is non-nil.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%s: connection closed", method)
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.conn.WriteJSON(command{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: connection closed", method)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// Version asks the browser who it is. A successful answer is the cheapest
// possible proof the session endpoint is live.
func (c *Client) Version(ctx context.Context) (*Version, error) {
	var v Version
	if err := c.call(ctx, "Browser.getVersion", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// OpenPage creates a new target navigated to url and returns its id.
func (c *Client) OpenPage(ctx context.Context, url string) (string, error) {
	var result struct {
		TargetID string `json:"targetId"`
	}
	params := map[string]string{"url": url}
	if err := c.call(ctx, "Target.createTarget", params, &result); err != nil {
		return "", err
	}
	return result.TargetID, nil
}

// Targets lists the browser's current targets.
func (c *Client) Targets(ctx context.Context) ([]Target, error) {
	var result struct {
		TargetInfos []Target `json:"targetInfos"`
	}
	if err := c.call(ctx, "Target.getTargets", nil, &result); err != nil {
		return nil, err
	}
	return result.TargetInfos, nil
}

// Title returns the current title of the given target, or empty when the
// page hasn't produced one yet.
func (c *Client) Title(ctx context.Context, targetID string) (string, error) {
	targets, err := c.Targets(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range targets {
		if t.TargetID == targetID {
			return t.Title, nil
		}
	}
	return "", fmt.Errorf("target %s not found", targetID)
}

// WaitForTitle polls the target until it reports a non-empty title.
func (c *Client) WaitForTitle(ctx context.Context, targetID string) (string, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		title, err := c.Title(ctx, targetID)
		if err != nil {
			return "", err
		}
		if title != "" {
			return title, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// ClosePage closes the given target.
func (c *Client) ClosePage(ctx context.Context, targetID string) error {
	params := map[string]string{"targetId": targetID}
	return c.call(ctx, "Target.closeTarget", params, nil)
}

// Close tears down the websocket connection. Pending calls fail.
func (c *Client) Close() error {
	return c.conn.Close()
}
