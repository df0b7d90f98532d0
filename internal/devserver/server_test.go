package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asadmujeeb/steeldrive/internal/browserpool"
	"github.com/asadmujeeb/steeldrive/internal/cdp"
	"github.com/asadmujeeb/steeldrive/internal/ratelimit"
	"github.com/asadmujeeb/steeldrive/internal/steel"
	"github.com/asadmujeeb/steeldrive/pkg/models"
)

// fakeLauncher stands in for the docker pool.
type fakeLauncher struct {
	connectURL string
	launches   atomic.Int64
	stops      atomic.Int64
	launchErr  error
}

func (f *fakeLauncher) Launch(ctx context.Context, sessionID string) (*browserpool.Instance, error) {
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.launches.Add(1)
	return &browserpool.Instance{
		ContainerID: "container-" + sessionID,
		SessionID:   sessionID,
		ConnectURL:  f.connectURL,
		Port:        "9222",
	}, nil
}

func (f *fakeLauncher) Stop(ctx context.Context, containerID string) error {
	f.stops.Add(1)
	return nil
}

func createSession(t *testing.T, srv *httptest.Server, id string) models.CreateSessionResponse {
	t.Helper()

	body, _ := json.Marshal(models.CreateSessionRequest{SessionID: id})
	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.CreateSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func TestCreateGetRelease(t *testing.T) {
	launcher := &fakeLauncher{connectURL: "ws://localhost:9222"}
	srv := httptest.NewServer(New(launcher, nil, nil).Router())
	defer srv.Close()

	created := createSession(t, srv, "sess-1")
	assert.Equal(t, "sess-1", created.ID)
	assert.Contains(t, created.WebsocketURL, "/v1/sessions/sess-1/ws")
	assert.EqualValues(t, 1, launcher.launches.Load())

	resp, err := http.Get(srv.URL + "/v1/sessions/sess-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var details models.SessionDetails
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	assert.Equal(t, string(models.StatusActive), details.Status)

	resp, err = http.Post(srv.URL+"/v1/sessions/sess-1/release", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, launcher.stops.Load())

	// Released sessions are gone.
	resp, err = http.Get(srv.URL + "/v1/sessions/sess-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// And releasing again reports not found; the client swallows it.
	resp, err = http.Post(srv.URL+"/v1/sessions/sess-1/release", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateRequiresSessionID(t *testing.T) {
	srv := httptest.NewServer(New(&fakeLauncher{}, nil, nil).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateDuplicateConflicts(t *testing.T) {
	srv := httptest.NewServer(New(&fakeLauncher{}, nil, nil).Router())
	defer srv.Close()

	createSession(t, srv, "dup")

	body, _ := json.Marshal(models.CreateSessionRequest{SessionID: "dup"})
	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateLaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{launchErr: fmt.Errorf("no docker daemon")}
	srv := httptest.NewServer(New(launcher, nil, nil).Router())
	defer srv.Close()

	body, _ := json.Marshal(models.CreateSessionRequest{SessionID: "sess-1"})
	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// A failed launch must not leave the id reserved.
	launcher.launchErr = nil
	createSession(t, srv, "sess-1")
}

// TestReleaseConcurrentWithReads hammers the detail endpoint while the
// session is being released; the status handoff must stay race-free.
func TestReleaseConcurrentWithReads(t *testing.T) {
	launcher := &fakeLauncher{connectURL: "ws://localhost:9222"}
	srv := httptest.NewServer(New(launcher, nil, nil).Router())
	defer srv.Close()

	createSession(t, srv, "racy")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				resp, err := http.Get(srv.URL + "/v1/sessions/racy")
				if err != nil {
					return
				}
				resp.Body.Close()
			}
		}()
	}

	resp, err := http.Post(srv.URL+"/v1/sessions/racy/release", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	wg.Wait()
	assert.EqualValues(t, 1, launcher.stops.Load())
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(100, 2)
	srv := httptest.NewServer(New(&fakeLauncher{}, limiter, nil).Router())
	defer srv.Close()

	status := func() int {
		resp, err := http.Get(srv.URL + "/v1/sessions/nope")
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNotFound, status())
	assert.Equal(t, http.StatusNotFound, status())
	assert.Equal(t, http.StatusTooManyRequests, status())
}

// TestLifecycleThroughProxy runs the real client, the dev server, and the
// CDP client against a fake browser websocket sitting where the container
// would be.
func TestLifecycleThroughProxy(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	browser := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var cmd struct {
				ID     int64  `json:"id"`
				Method string `json:"method"`
			}
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if cmd.Method != "Browser.getVersion" {
				conn.WriteJSON(map[string]any{"id": cmd.ID, "error": map[string]any{"code": -32601, "message": "unsupported"}})
				continue
			}
			conn.WriteJSON(map[string]any{"id": cmd.ID, "result": map[string]any{
				"product": "HeadlessChrome/131.0", "protocolVersion": "1.3",
			}})
		}
	}))
	defer browser.Close()

	launcher := &fakeLauncher{connectURL: "ws" + strings.TrimPrefix(browser.URL, "http")}
	srv := httptest.NewServer(New(launcher, nil, nil).Router())
	defer srv.Close()

	client := steel.NewClient(srv.URL, nil)

	sess, err := client.Create(context.Background())
	require.NoError(t, err)
	require.True(t, sess.Active())

	cdpClient, err := cdp.Dial(context.Background(), sess.WebsocketURL, nil)
	require.NoError(t, err)

	version, err := cdpClient.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HeadlessChrome/131.0", version.Product)

	require.NoError(t, cdpClient.Close())

	client.Release(context.Background(), sess)
	assert.Equal(t, models.StatusReleased, sess.Status)
	assert.EqualValues(t, 1, launcher.stops.Load())

	_, ok := client.Details(context.Background(), sess.ID)
	assert.False(t, ok)
}
