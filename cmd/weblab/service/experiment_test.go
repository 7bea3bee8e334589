package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/common/clients"
	"github.com/modelverse/weblab/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSubmitRunCarriesUserIdentity checks that the dispatcher submits runs
// to the simulation service as the user who created the experiment, not
// anonymously, and that the callback URL names the experiment.
func TestSubmitRunCarriesUserIdentity(t *testing.T) {
	var (
		gotUser string
		gotReq  clients.SubmitRunRequest
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-User-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(clients.SubmitRunResponse{TaskID: "task-3", Status: "queued"})
	}))
	defer srv.Close()

	log := logger.New("error", "json")
	svc := &ExperimentService{
		chaste: clients.NewChasteClient(srv.URL, 5*time.Second, log),
		log:    log,
	}

	exp := &models.Experiment{
		ID:          uuid.New(),
		ModelSHA:    "aaa",
		ProtocolSHA: "bbb",
		CreatedBy:   "alice",
	}

	resp, err := svc.submitRun(context.Background(), exp, "http://weblab:8080")
	require.NoError(t, err)

	assert.Equal(t, "task-3", resp.TaskID)
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, exp.ID.String(), gotReq.ExperimentID)
	assert.Equal(t, "aaa", gotReq.ModelSHA)
	assert.Equal(t, "bbb", gotReq.ProtocolSHA)
	assert.Equal(t, "http://weblab:8080/api/v1/experiments/"+exp.ID.String()+"/callback", gotReq.CallbackURL)
}
