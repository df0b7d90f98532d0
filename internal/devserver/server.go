// Package devserver is a local stand-in for the Steel Browser session API.
// It serves the same wire contract the client speaks, backed by disposable
// Chrome containers, so the full lifecycle can be exercised without the
// real service.
package devserver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/mux"

	"github.com/asadmujeeb/steeldrive/internal/browserpool"
	"github.com/asadmujeeb/steeldrive/internal/ratelimit"
	"github.com/asadmujeeb/steeldrive/pkg/models"
)

// Launcher starts and stops the browser behind a session. Satisfied by
// *browserpool.Pool; faked in tests.
type Launcher interface {
	Launch(ctx context.Context, sessionID string) (*browserpool.Instance, error)
	Stop(ctx context.Context, containerID string) error
}

// record is the server-side state of one session.
type record struct {
	session     *models.Session
	containerID string

	// connectURL is the container's own CDP endpoint; clients go through
	// the websocket proxy instead.
	connectURL string
}

// Server holds the session store and its dependencies.
type Server struct {
	launcher Launcher
	limiter  *ratelimit.Limiter
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*record
}

// New creates a dev session server.
func New(launcher Launcher, limiter *ratelimit.Limiter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		launcher: launcher,
		limiter:  limiter,
		log:      logger,
		sessions: make(map[string]*record),
	}
}

// Router configures all HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/v1").Subrouter()

	limited := api.PathPrefix("").Subrouter()
	limited.Use(RateLimitMiddleware(s.limiter))

	limited.HandleFunc("/sessions", s.CreateSession).Methods("POST")
	limited.HandleFunc("/sessions/{id}", s.GetSession).Methods("GET")
	limited.HandleFunc("/sessions/{id}/release", s.ReleaseSession).Methods("POST")

	// The CDP proxy is long-lived and polled by drivers; never limited.
	api.HandleFunc("/sessions/{id}/ws", s.HandleCDP).Methods("GET")

	return r
}

// get returns the record and a snapshot of its status. The status field is
// the one thing release mutates, so readers take the snapshot instead of
// touching rec.session outside the lock.
func (s *Server) get(id string) (*record, models.SessionStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok || rec == nil {
		return nil, models.StatusUncreated, false
	}
	return rec, rec.session.Status, true
}

// Shutdown stops every remaining browser container.
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	records := make([]*record, 0, len(s.sessions))
	for id, rec := range s.sessions {
		records = append(records, rec)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, rec := range records {
		if err := s.launcher.Stop(ctx, rec.containerID); err != nil {
			s.log.Warn("failed to stop browser on shutdown",
				"sessionId", rec.session.ID, "error", err)
		}
	}
}
