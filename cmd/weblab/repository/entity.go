package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/common/db"
)

// EntityRepository handles database operations for entities and their
// viewer grants
type EntityRepository struct {
	db *db.DB
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *db.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// Create inserts a new entity
func (r *EntityRepository) Create(ctx context.Context, entity *models.Entity) error {
	query := `
		INSERT INTO entity (id, kind, name, author_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		entity.ID,
		entity.Kind,
		entity.Name,
		entity.AuthorID,
		entity.Metadata,
		entity.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}

	return nil
}

// GetByID retrieves an entity by id
func (r *EntityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	query := `
		SELECT id, kind, name, author_id, metadata, created_at
		FROM entity
		WHERE id = $1
	`

	entity := &models.Entity{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&entity.ID,
		&entity.Kind,
		&entity.Name,
		&entity.AuthorID,
		&entity.Metadata,
		&entity.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return entity, nil
}

// List retrieves entities, optionally filtered by kind
func (r *EntityRepository) List(ctx context.Context, kind *models.EntityKind) ([]*models.Entity, error) {
	query := `
		SELECT id, kind, name, author_id, metadata, created_at
		FROM entity
		WHERE ($1::text IS NULL OR kind = $1)
		ORDER BY kind, name
	`

	rows, err := r.db.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		entity := &models.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.Kind,
			&entity.Name,
			&entity.AuthorID,
			&entity.Metadata,
			&entity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entities: %w", err)
	}

	return entities, nil
}

// UpdateMetadata replaces an entity's metadata document
func (r *EntityRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata []byte) error {
	query := `UPDATE entity SET metadata = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, metadata)
	if err != nil {
		return fmt.Errorf("failed to update entity metadata: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("entity not found: %s", id)
	}

	return nil
}

// Delete removes an entity; the cache rows go with it via cascade
func (r *EntityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM entity WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("entity not found: %s", id)
	}

	return nil
}

// AddGrant grants a user viewer access to an entity
func (r *EntityRepository) AddGrant(ctx context.Context, entityID uuid.UUID, userID string) error {
	query := `
		INSERT INTO entity_grant (entity_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, entityID, userID); err != nil {
		return fmt.Errorf("failed to add grant: %w", err)
	}

	return nil
}

// RemoveGrant revokes a user's viewer access to an entity
func (r *EntityRepository) RemoveGrant(ctx context.Context, entityID uuid.UUID, userID string) error {
	query := `DELETE FROM entity_grant WHERE entity_id = $1 AND user_id = $2`

	if _, err := r.db.Exec(ctx, query, entityID, userID); err != nil {
		return fmt.Errorf("failed to remove grant: %w", err)
	}

	return nil
}

// Viewers returns the users who may see an entity's private versions:
// the author plus every grant holder.
func (r *EntityRepository) Viewers(ctx context.Context, entityID uuid.UUID) ([]string, error) {
	query := `
		SELECT author_id FROM entity WHERE id = $1
		UNION
		SELECT user_id FROM entity_grant WHERE entity_id = $1
	`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get viewers: %w", err)
	}
	defer rows.Close()

	var viewers []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan viewer: %w", err)
		}
		viewers = append(viewers, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating viewers: %w", err)
	}

	return viewers, nil
}

// AuthoredIDs returns the ids of entities authored by userID
func (r *EntityRepository) AuthoredIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	query := `SELECT id FROM entity WHERE author_id = $1`
	return r.scanIDs(ctx, query, userID)
}

// GrantedIDs returns the ids of entities userID holds a viewer grant for
func (r *EntityRepository) GrantedIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	query := `SELECT entity_id FROM entity_grant WHERE user_id = $1`
	return r.scanIDs(ctx, query, userID)
}

func (r *EntityRepository) scanIDs(ctx context.Context, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entity id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entity ids: %w", err)
	}

	return ids, nil
}
