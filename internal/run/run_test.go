package run

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asadmujeeb/steeldrive/internal/agent"
	"github.com/asadmujeeb/steeldrive/internal/steel"
	"github.com/asadmujeeb/steeldrive/pkg/models"
)

// steelStub answers the three lifecycle endpoints and counts release calls.
type steelStub struct {
	failCreate bool
	releases   atomic.Int64
}

func (s *steelStub) server() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/sessions":
			if s.failCreate {
				http.Error(w, "down", http.StatusServiceUnavailable)
				return
			}
			var req models.CreateSessionRequest
			json.NewDecoder(r.Body).Decode(&req)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.CreateSessionResponse{
				WebsocketURL: "ws://svc/cdp/" + req.SessionID,
			})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/release"):
			s.releases.Add(1)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet:
			http.Error(w, "gone", http.StatusNotFound)
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	}))
}

func TestRunReleasesAfterSuccess(t *testing.T) {
	stub := &steelStub{}
	srv := stub.server()
	defer srv.Close()

	runner := NewRunner(steel.NewClient(srv.URL, nil), nil)

	var phaseSession *models.Session
	out, err := runner.Run(context.Background(), func(ctx context.Context, sess *models.Session) (*agent.Result, error) {
		phaseSession = sess
		return &agent.Result{Summary: "done"}, nil
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(phaseSession.WebsocketURL, "ws://svc/cdp/"))
	assert.Equal(t, "done", out.Result.Summary)
	assert.Nil(t, out.TaskErr)
	assert.EqualValues(t, 1, stub.releases.Load())
	assert.Equal(t, models.StatusReleased, out.Session.Status)
}

func TestRunReleasesAfterPhaseFailure(t *testing.T) {
	stub := &steelStub{}
	srv := stub.server()
	defer srv.Close()

	runner := NewRunner(steel.NewClient(srv.URL, nil), nil)

	taskErr := &agent.TaskError{Step: 2, Err: fmt.Errorf("page never loaded")}
	out, err := runner.Run(context.Background(), func(ctx context.Context, sess *models.Session) (*agent.Result, error) {
		return nil, taskErr
	})
	require.NoError(t, err, "phase failures don't abort the run")

	assert.Equal(t, taskErr, out.TaskErr)
	assert.EqualValues(t, 1, stub.releases.Load(), "release runs on the failure path too")
}

func TestRunCreateFailureSkipsPhaseAndRelease(t *testing.T) {
	stub := &steelStub{failCreate: true}
	srv := stub.server()
	defer srv.Close()

	runner := NewRunner(steel.NewClient(srv.URL, nil), nil)

	phaseRan := false
	out, err := runner.Run(context.Background(), func(ctx context.Context, sess *models.Session) (*agent.Result, error) {
		phaseRan = true
		return nil, nil
	})
	require.Error(t, err)

	var createErr *steel.CreateError
	assert.ErrorAs(t, err, &createErr)
	assert.Nil(t, out)
	assert.False(t, phaseRan)
	assert.Zero(t, stub.releases.Load(), "nothing to release")
}

func TestRunReleasesAfterCancellation(t *testing.T) {
	stub := &steelStub{}
	srv := stub.server()
	defer srv.Close()

	runner := NewRunner(steel.NewClient(srv.URL, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	out, err := runner.Run(ctx, func(ctx context.Context, sess *models.Session) (*agent.Result, error) {
		cancel()
		return nil, ctx.Err()
	})
	require.NoError(t, err)

	assert.ErrorIs(t, out.TaskErr, context.Canceled)
	assert.EqualValues(t, 1, stub.releases.Load(), "release survives a cancelled run context")
}
