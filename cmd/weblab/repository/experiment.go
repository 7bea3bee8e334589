package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/common/db"
)

// ExperimentRepository handles database operations for experiments
type ExperimentRepository struct {
	db *db.DB
}

// NewExperimentRepository creates a new experiment repository
func NewExperimentRepository(db *db.DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

const experimentColumns = `id, model_id, model_sha, protocol_id, protocol_sha, status, result_note, created_by, created_at, updated_at`

// Create inserts a new experiment
func (r *ExperimentRepository) Create(ctx context.Context, exp *models.Experiment) error {
	query := `
		INSERT INTO experiment (id, model_id, model_sha, protocol_id, protocol_sha, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		exp.ID,
		exp.ModelID,
		exp.ModelSHA,
		exp.ProtocolID,
		exp.ProtocolSHA,
		exp.Status,
		exp.CreatedBy,
		exp.CreatedAt,
		exp.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create experiment: %w", err)
	}

	return nil
}

// GetByID retrieves an experiment by id
func (r *ExperimentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiment WHERE id = $1`

	exp := &models.Experiment{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&exp.ID,
		&exp.ModelID,
		&exp.ModelSHA,
		&exp.ProtocolID,
		&exp.ProtocolSHA,
		&exp.Status,
		&exp.ResultNote,
		&exp.CreatedBy,
		&exp.CreatedAt,
		&exp.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	return exp, nil
}

// UpdateStatus records a status transition reported by the simulation service
func (r *ExperimentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ExperimentStatus, resultNote *string) error {
	query := `
		UPDATE experiment
		SET status = $2, result_note = COALESCE($3, result_note), updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, status, resultNote)
	if err != nil {
		return fmt.Errorf("failed to update experiment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("experiment not found: %s", id)
	}

	return nil
}

// ListForPair retrieves all experiments for a model/protocol entity pair
func (r *ExperimentRepository) ListForPair(ctx context.Context, modelID, protocolID uuid.UUID) ([]*models.Experiment, error) {
	query := `
		SELECT ` + experimentColumns + `
		FROM experiment
		WHERE model_id = $1 AND protocol_id = $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, modelID, protocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var experiments []*models.Experiment
	for rows.Next() {
		exp := &models.Experiment{}
		err := rows.Scan(
			&exp.ID,
			&exp.ModelID,
			&exp.ModelSHA,
			&exp.ProtocolID,
			&exp.ProtocolSHA,
			&exp.Status,
			&exp.ResultNote,
			&exp.CreatedBy,
			&exp.CreatedAt,
			&exp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		experiments = append(experiments, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experiments: %w", err)
	}

	return experiments, nil
}
