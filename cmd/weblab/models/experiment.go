package models

import (
	"time"

	"github.com/google/uuid"
)

// ExperimentStatus tracks a simulation run through its lifecycle
type ExperimentStatus string

const (
	StatusQueued  ExperimentStatus = "queued"
	StatusRunning ExperimentStatus = "running"
	StatusSuccess ExperimentStatus = "success"
	StatusPartial ExperimentStatus = "partial"
	StatusFailed  ExperimentStatus = "failed"
)

// Valid reports whether the status is one of the known variants
func (s ExperimentStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusSuccess, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// Experiment pairs a model version with a protocol version and records the
// outcome of running the protocol against the model. Its visibility is not
// stored: it is always the joint visibility of the two referenced versions,
// computed on read from the cache tables.
// Maps to: experiment table
type Experiment struct {
	ID uuid.UUID `db:"id" json:"id"`

	ModelID     uuid.UUID `db:"model_id" json:"model_id"`
	ModelSHA    string    `db:"model_sha" json:"model_sha"`
	ProtocolID  uuid.UUID `db:"protocol_id" json:"protocol_id"`
	ProtocolSHA string    `db:"protocol_sha" json:"protocol_sha"`

	Status     ExperimentStatus `db:"status" json:"status"`
	ResultNote *string          `db:"result_note" json:"result_note,omitempty"`

	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
