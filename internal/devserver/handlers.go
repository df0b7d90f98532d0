package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/asadmujeeb/steeldrive/pkg/models"
)

const stopTimeout = 30 * time.Second

// CreateSession handles POST /v1/sessions. The session id comes from the
// client; the server honors it so the caller can correlate resources under
// an identifier it already knows.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if _, exists := s.sessions[req.SessionID]; exists {
		s.mu.Unlock()
		http.Error(w, "session already exists", http.StatusConflict)
		return
	}
	// Reserve the id while the browser launches.
	s.sessions[req.SessionID] = nil
	s.mu.Unlock()

	instance, err := s.launcher.Launch(r.Context(), req.SessionID)
	if err != nil {
		s.mu.Lock()
		delete(s.sessions, req.SessionID)
		s.mu.Unlock()
		s.log.Error("failed to launch browser", "sessionId", req.SessionID, "error", err)
		http.Error(w, "failed to launch browser", http.StatusInternalServerError)
		return
	}

	sess := &models.Session{
		ID:        req.SessionID,
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[req.SessionID] = &record{
		session:     sess,
		containerID: instance.ContainerID,
		connectURL:  instance.ConnectURL,
	}
	s.mu.Unlock()

	s.log.Info("session created", "sessionId", sess.ID, "container", shortID(instance.ContainerID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.CreateSessionResponse{
		ID:               sess.ID,
		WebsocketURL:     fmt.Sprintf("ws://%s/v1/sessions/%s/ws", r.Host, sess.ID),
		SessionViewerURL: fmt.Sprintf("http://%s/v1/sessions/%s", r.Host, sess.ID),
		DebugURL:         instance.ConnectURL,
	})
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, status, ok := s.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.SessionDetails{
		ID:               rec.session.ID,
		Status:           string(status),
		WebsocketURL:     fmt.Sprintf("ws://%s/v1/sessions/%s/ws", r.Host, rec.session.ID),
		SessionViewerURL: fmt.Sprintf("http://%s/v1/sessions/%s", r.Host, rec.session.ID),
		DebugURL:         rec.connectURL,
	})
}

// ReleaseSession handles POST /v1/sessions/{id}/release. The browser stop
// is best-effort; the session is gone either way.
func (s *Server) ReleaseSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	rec, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	if rec != nil {
		// Written under the lock; concurrent readers snapshot the status
		// through Server.get.
		rec.session.Status = models.StatusReleased
	}
	s.mu.Unlock()

	if !ok || rec == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := s.launcher.Stop(ctx, rec.containerID); err != nil {
		s.log.Warn("failed to stop browser", "sessionId", id, "error", err)
	}

	s.log.Info("session released", "sessionId", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "released"})
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
