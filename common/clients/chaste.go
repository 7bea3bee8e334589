package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChasteClient talks to the external Chaste simulation service over HTTP.
// Only the submission interface is wired here; the simulation itself runs
// remotely and reports back via the experiment callback endpoint.
type ChasteClient struct {
	http    *HTTPClient
	baseURL string
}

// NewChasteClient creates a Chaste client against the configured base URL
func NewChasteClient(baseURL string, timeout time.Duration, logger Logger) *ChasteClient {
	return &ChasteClient{
		http: NewHTTPClient(&http.Client{
			Timeout: timeout,
		}, logger),
		baseURL: baseURL,
	}
}

// SubmitRunRequest is the job description posted to the simulation service
type SubmitRunRequest struct {
	ExperimentID string `json:"experiment_id"`
	ModelSHA     string `json:"model_sha"`
	ProtocolSHA  string `json:"protocol_sha"`
	ModelURL     string `json:"model_url"`
	ProtocolURL  string `json:"protocol_url"`
	CallbackURL  string `json:"callback_url"`
}

// SubmitRunResponse is the acknowledgement from the simulation service
type SubmitRunResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SubmitRun posts an experiment run to the simulation service
func (c *ChasteClient) SubmitRun(ctx context.Context, req *SubmitRunRequest) (*SubmitRunResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run request: %w", err)
	}

	resp, err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/runs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to submit run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("simulation service rejected run: status=%d body=%s", resp.StatusCode, payload)
	}

	var out SubmitRunResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode run response: %w", err)
	}

	return &out, nil
}

// CancelRun asks the simulation service to abandon a previously submitted run
func (c *ChasteClient) CancelRun(ctx context.Context, taskID string) error {
	resp, err := c.http.DoRequest(ctx, http.MethodDelete, c.baseURL+"/runs/"+taskID, nil)
	if err != nil {
		return fmt.Errorf("failed to cancel run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("simulation service refused cancel: status=%d", resp.StatusCode)
	}

	return nil
}
