// Package steel is a client for the Steel Browser session API. It owns the
// full lifecycle of one remote browser session: create, inspect, release.
// Everything that happens between create and release (CDP automation, agent
// runs) is somebody else's job; this package only hands out the connection
// endpoint and cleans up after.
package steel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/asadmujeeb/steeldrive/pkg/models"
)

// DefaultBaseURL is where a locally running Steel Browser listens.
const DefaultBaseURL = "http://localhost:3000"

const (
	defaultCreateTimeout  = 30 * time.Second
	defaultDetailsTimeout = 10 * time.Second
	defaultReleaseTimeout = 10 * time.Second
)

// ErrNoWebsocketURL means the service accepted the create call but returned
// no CDP endpoint. That is a contract violation on the service side, so the
// client fails loudly instead of guessing a local address.
var ErrNoWebsocketURL = errors.New("session service returned no websocketUrl")

// CreateError is a failed session creation. It is fatal to the run: there is
// no retry, and no browser resource was handed to the caller.
type CreateError struct {
	SessionID  string
	StatusCode int // 0 when the request never completed
	Err        error
}

func (e *CreateError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("create session %s: service returned status %d", e.SessionID, e.StatusCode)
	}
	return fmt.Sprintf("create session %s: %v", e.SessionID, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// Client talks to one Steel Browser session service.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	createTimeout  time.Duration
	detailsTimeout time.Duration
	releaseTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeouts overrides the per-call deadlines for create, details and
// release requests. Zero values keep the defaults.
func WithTimeouts(create, details, release time.Duration) Option {
	return func(c *Client) {
		if create > 0 {
			c.createTimeout = create
		}
		if details > 0 {
			c.detailsTimeout = details
		}
		if release > 0 {
			c.releaseTimeout = release
		}
	}
}

// NewClient creates a client for the session service at baseURL. An empty
// baseURL falls back to DefaultBaseURL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:        baseURL,
		http:           &http.Client{},
		log:            logger,
		createTimeout:  defaultCreateTimeout,
		detailsTimeout: defaultDetailsTimeout,
		releaseTimeout: defaultReleaseTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create allocates a new browser session. The session ID is generated here,
// before the remote call, and sent in the request body so the service can
// correlate resources under an identifier the client already knows.
//
// Any transport failure or non-2xx status is a *CreateError; the one remote
// browser the service may have allocated is the caller's to release.
func (c *Client) Create(ctx context.Context) (*models.Session, error) {
	sessionID := uuid.New().String()

	c.log.Info("creating session", "sessionId", sessionID, "api", c.baseURL)

	body, err := json.Marshal(models.CreateSessionRequest{SessionID: sessionID})
	if err != nil {
		return nil, &CreateError{SessionID: sessionID, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.createTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, &CreateError{SessionID: sessionID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CreateError{SessionID: sessionID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &CreateError{SessionID: sessionID, StatusCode: resp.StatusCode}
	}

	var created models.CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, &CreateError{SessionID: sessionID, Err: fmt.Errorf("decode response: %w", err)}
	}
	if created.WebsocketURL == "" {
		return nil, &CreateError{SessionID: sessionID, Err: ErrNoWebsocketURL}
	}

	sess := &models.Session{
		ID:               sessionID,
		Status:           models.StatusActive,
		WebsocketURL:     created.WebsocketURL,
		SessionViewerURL: created.SessionViewerURL,
		DebugURL:         created.DebugURL,
		CreatedAt:        time.Now(),
	}

	c.log.Info("session created",
		"sessionId", sess.ID,
		"cdpUrl", sess.WebsocketURL,
		"viewerUrl", sess.SessionViewerURL,
		"debugUrl", sess.DebugURL)

	return sess, nil
}

// Details fetches the current detail object for a session. This is a
// best-effort diagnostic read: anything other than a clean 200 comes back
// as absent, never as an error.
func (c *Client) Details(ctx context.Context, sessionID string) (*models.SessionDetails, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.detailsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sessions/"+sessionID, nil)
	if err != nil {
		return nil, false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("session details unavailable", "sessionId", sessionID, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("session details unavailable", "sessionId", sessionID, "status", resp.StatusCode)
		return nil, false
	}

	var details models.SessionDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		c.log.Debug("session details unreadable", "sessionId", sessionID, "error", err)
		return nil, false
	}

	return &details, true
}

// Release gives the remote browser back to the service. It is a no-op for a
// session that was never created or was already released, and it never
// fails: release is best-effort cleanup, so errors are logged and swallowed
// rather than handed back to a caller that is already on its way out.
func (c *Client) Release(ctx context.Context, sess *models.Session) {
	if sess == nil || sess.ID == "" || sess.Status != models.StatusActive {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.releaseTimeout)
	defer cancel()

	// The session is terminal after one attempt; a failed release is not
	// retried, and a second call is a no-op.
	defer func() { sess.Status = models.StatusReleased }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions/"+sess.ID+"/release", nil)
	if err != nil {
		c.log.Error("failed to release session", "sessionId", sess.ID, "error", err)
		return
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("failed to release session", "sessionId", sess.ID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("session release returned unexpected status", "sessionId", sess.ID, "status", resp.StatusCode)
		return
	}

	c.log.Info("session released", "sessionId", sess.ID)
}
