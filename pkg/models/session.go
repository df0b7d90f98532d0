package models

import "time"

// SessionStatus represents the lifecycle state of a remote browser session
type SessionStatus string

const (
	StatusUncreated SessionStatus = "UNCREATED"
	StatusActive    SessionStatus = "ACTIVE"
	StatusReleased  SessionStatus = "RELEASED"
)

// Session represents a browser instance allocated by the session service.
// The ID is generated client-side before the create call and is the
// correlation key for every later call. WebsocketURL is only meaningful
// while the session is active.
type Session struct {
	ID               string        `json:"id"`
	Status           SessionStatus `json:"status"`
	WebsocketURL     string        `json:"websocketUrl"`
	SessionViewerURL string        `json:"sessionViewerUrl,omitempty"`
	DebugURL         string        `json:"debugUrl,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// Active reports whether the session currently holds a live browser.
func (s *Session) Active() bool {
	return s != nil && s.Status == StatusActive
}

// CreateSessionRequest is the payload for creating a new session
type CreateSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// CreateSessionResponse is the service's answer to a create call
type CreateSessionResponse struct {
	ID               string `json:"id,omitempty"`
	WebsocketURL     string `json:"websocketUrl"`
	SessionViewerURL string `json:"sessionViewerUrl,omitempty"`
	DebugURL         string `json:"debugUrl,omitempty"`
}

// SessionDetails is the detail object returned by GET /v1/sessions/{id}.
// Informational only; nothing in the lifecycle depends on these fields.
type SessionDetails struct {
	ID               string `json:"id"`
	Status           string `json:"status,omitempty"`
	WebsocketURL     string `json:"websocketUrl,omitempty"`
	SessionViewerURL string `json:"sessionViewerUrl,omitempty"`
	DebugURL         string `json:"debugUrl,omitempty"`
}
