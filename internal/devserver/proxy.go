package devserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/asadmujeeb/steeldrive/pkg/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleCDP proxies a client's CDP websocket to the session's browser
// container. This is what the websocketUrl handed out at create time
// points at.
func (s *Server) HandleCDP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, status, ok := s.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if status != models.StatusActive {
		http.Error(w, "session is not active", http.StatusBadRequest)
		return
	}

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("failed to upgrade connection", "sessionId", id, "error", err)
		return
	}
	defer clientConn.Close()

	dialCtx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	browserConn, _, err := websocket.DefaultDialer.DialContext(dialCtx, rec.connectURL, nil)
	if err != nil {
		s.log.Error("failed to connect to browser", "sessionId", id, "error", err)
		clientConn.WriteMessage(websocket.TextMessage, []byte("error connecting to browser"))
		return
	}
	defer browserConn.Close()

	s.log.Info("client attached to session", "sessionId", id)

	// Bidirectional pump; the first direction to fail tears down both.
	var g errgroup.Group
	g.Go(func() error { return pump(clientConn, browserConn) })
	g.Go(func() error { return pump(browserConn, clientConn) })

	if err := g.Wait(); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
			s.log.Warn("proxy ended with error", "sessionId", id, "error", err)
		}
	}

	s.log.Info("client detached from session", "sessionId", id)
}

func pump(src, dst *websocket.Conn) error {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			dst.Close()
			return err
		}
		if err := dst.WriteMessage(messageType, message); err != nil {
			src.Close()
			return err
		}
	}
}
