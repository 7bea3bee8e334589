package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelverse/weblab/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRun(t *testing.T) {
	var got SubmitRunRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/runs", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(SubmitRunResponse{TaskID: "task-17", Status: "queued"})
	}))
	defer srv.Close()

	client := NewChasteClient(srv.URL, 5*time.Second, logger.New("error", "json"))

	resp, err := client.SubmitRun(context.Background(), &SubmitRunRequest{
		ExperimentID: "exp-1",
		ModelSHA:     "aaa",
		ProtocolSHA:  "bbb",
		CallbackURL:  "http://weblab/api/v1/experiments/exp-1/callback",
	})
	require.NoError(t, err)

	assert.Equal(t, "task-17", resp.TaskID)
	assert.Equal(t, "queued", resp.Status)
	assert.Equal(t, "exp-1", got.ExperimentID)
	assert.Equal(t, "aaa", got.ModelSHA)
	assert.Equal(t, "bbb", got.ProtocolSHA)
}

func TestSubmitRunRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no capacity", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewChasteClient(srv.URL, 5*time.Second, logger.New("error", "json"))

	_, err := client.SubmitRun(context.Background(), &SubmitRunRequest{ExperimentID: "exp-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=503")
}

func TestCancelRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/runs/task-17", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewChasteClient(srv.URL, 5*time.Second, logger.New("error", "json"))
	require.NoError(t, client.CancelRun(context.Background(), "task-17"))
}

// TestUserIDHeaderPropagation checks the context-to-header plumbing used
// for downstream attribution
func TestUserIDHeaderPropagation(t *testing.T) {
	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-User-ID")
		json.NewEncoder(w).Encode(SubmitRunResponse{TaskID: "t", Status: "queued"})
	}))
	defer srv.Close()

	client := NewChasteClient(srv.URL, 5*time.Second, logger.New("error", "json"))

	ctx := WithUserID(context.Background(), "alice")
	_, err := client.SubmitRun(ctx, &SubmitRunRequest{ExperimentID: "exp-1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", header)
}
