package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/common/db"
)

// RepoCacheRepository handles database operations for the three cache
// tables. The write path runs against an explicit transaction so a populate
// run is all-or-nothing; concurrent readers see either the old cache or the
// new one, never a mix.
type RepoCacheRepository struct {
	db *db.DB
}

// NewRepoCacheRepository creates a new repocache repository
func NewRepoCacheRepository(db *db.DB) *RepoCacheRepository {
	return &RepoCacheRepository{db: db}
}

// --- write path (transactional) ---

// DeleteForEntityTx removes the cache record for an entity; versions and
// tags cascade with it
func (r *RepoCacheRepository) DeleteForEntityTx(ctx context.Context, tx pgx.Tx, entityID uuid.UUID) error {
	query := `DELETE FROM cached_entity WHERE entity_id = $1`

	if _, err := tx.Exec(ctx, query, entityID); err != nil {
		return fmt.Errorf("failed to delete cached entity: %w", err)
	}

	return nil
}

// CreateCachedEntityTx inserts a fresh cache record for an entity
func (r *RepoCacheRepository) CreateCachedEntityTx(ctx context.Context, tx pgx.Tx, entityID uuid.UUID) (int64, error) {
	query := `
		INSERT INTO cached_entity (entity_id)
		VALUES ($1)
		RETURNING id
	`

	var id int64
	if err := tx.QueryRow(ctx, query, entityID).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create cached entity: %w", err)
	}

	return id, nil
}

// CreateVersionTx inserts one cached version and fills in its id
func (r *RepoCacheRepository) CreateVersionTx(ctx context.Context, tx pgx.Tx, version *models.CachedEntityVersion) error {
	query := `
		INSERT INTO cached_entity_version (cached_entity_id, sha, visibility, committed_at, parsed_ok)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		version.CachedEntityID,
		version.SHA,
		version.Visibility,
		version.CommittedAt,
		version.ParsedOK,
	).Scan(&version.ID)

	if err != nil {
		return fmt.Errorf("failed to create cached version: %w", err)
	}

	return nil
}

// SetLatestVersionTx points the cache record at its newest version
func (r *RepoCacheRepository) SetLatestVersionTx(ctx context.Context, tx pgx.Tx, cachedEntityID, versionID int64) error {
	query := `UPDATE cached_entity SET latest_version_id = $2 WHERE id = $1`

	if _, err := tx.Exec(ctx, query, cachedEntityID, versionID); err != nil {
		return fmt.Errorf("failed to set latest version: %w", err)
	}

	return nil
}

// CreateTagTx inserts one cached tag and fills in its id
func (r *RepoCacheRepository) CreateTagTx(ctx context.Context, tx pgx.Tx, tag *models.CachedEntityTag) error {
	query := `
		INSERT INTO cached_entity_tag (cached_entity_id, tag, version_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := tx.QueryRow(ctx, query,
		tag.CachedEntityID,
		tag.Tag,
		tag.VersionID,
	).Scan(&tag.ID)

	if err != nil {
		return fmt.Errorf("failed to create cached tag: %w", err)
	}

	return nil
}

// --- read path ---

// GetCachedEntity retrieves the cache record for an entity
func (r *RepoCacheRepository) GetCachedEntity(ctx context.Context, entityID uuid.UUID) (*models.CachedEntity, error) {
	query := `
		SELECT id, entity_id, latest_version_id
		FROM cached_entity
		WHERE entity_id = $1
	`

	cached := &models.CachedEntity{}
	err := r.db.QueryRow(ctx, query, entityID).Scan(
		&cached.ID,
		&cached.EntityID,
		&cached.LatestVersionID,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get cached entity: %w", err)
	}

	return cached, nil
}

const versionColumns = `v.id, v.cached_entity_id, v.sha, v.visibility, v.committed_at, v.parsed_ok`

func scanVersion(row pgx.Row) (*models.CachedEntityVersion, error) {
	version := &models.CachedEntityVersion{}
	err := row.Scan(
		&version.ID,
		&version.CachedEntityID,
		&version.SHA,
		&version.Visibility,
		&version.CommittedAt,
		&version.ParsedOK,
	)
	if err != nil {
		return nil, err
	}
	return version, nil
}

// GetVersionBySHA retrieves the cached version for a commit hash
func (r *RepoCacheRepository) GetVersionBySHA(ctx context.Context, entityID uuid.UUID, sha string) (*models.CachedEntityVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM cached_entity_version v
		JOIN cached_entity ce ON ce.id = v.cached_entity_id
		WHERE ce.entity_id = $1 AND v.sha = $2
	`

	version, err := scanVersion(r.db.QueryRow(ctx, query, entityID, sha))
	if err != nil {
		return nil, fmt.Errorf("failed to get version by sha: %w", err)
	}

	return version, nil
}

// GetVersionByTag resolves a tag name to its cached version
func (r *RepoCacheRepository) GetVersionByTag(ctx context.Context, entityID uuid.UUID, tag string) (*models.CachedEntityVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM cached_entity_tag t
		JOIN cached_entity ce ON ce.id = t.cached_entity_id
		JOIN cached_entity_version v ON v.id = t.version_id
		WHERE ce.entity_id = $1 AND t.tag = $2
	`

	version, err := scanVersion(r.db.QueryRow(ctx, query, entityID, tag))
	if err != nil {
		return nil, fmt.Errorf("failed to get version by tag: %w", err)
	}

	return version, nil
}

// GetLatestVersion retrieves the version the cache record points at
func (r *RepoCacheRepository) GetLatestVersion(ctx context.Context, entityID uuid.UUID) (*models.CachedEntityVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM cached_entity ce
		JOIN cached_entity_version v ON v.id = ce.latest_version_id
		WHERE ce.entity_id = $1
	`

	version, err := scanVersion(r.db.QueryRow(ctx, query, entityID))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}

	return version, nil
}

// ListVersions retrieves all cached versions for an entity, newest first
// (commit timestamp, ties broken by highest id)
func (r *RepoCacheRepository) ListVersions(ctx context.Context, entityID uuid.UUID) ([]*models.CachedEntityVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM cached_entity_version v
		JOIN cached_entity ce ON ce.id = v.cached_entity_id
		WHERE ce.entity_id = $1
		ORDER BY v.committed_at DESC NULLS LAST, v.id DESC
	`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.CachedEntityVersion
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

// ListTags retrieves all cached tags for an entity
func (r *RepoCacheRepository) ListTags(ctx context.Context, entityID uuid.UUID) ([]*models.CachedEntityTag, error) {
	query := `
		SELECT t.id, t.cached_entity_id, t.tag, t.version_id
		FROM cached_entity_tag t
		JOIN cached_entity ce ON ce.id = t.cached_entity_id
		WHERE ce.entity_id = $1
		ORDER BY t.tag
	`

	rows, err := r.db.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.CachedEntityTag
	for rows.Next() {
		tag := &models.CachedEntityTag{}
		err := rows.Scan(&tag.ID, &tag.CachedEntityID, &tag.Tag, &tag.VersionID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// TagsForVersion returns the tag names pointing at a version, sorted
func (r *RepoCacheRepository) TagsForVersion(ctx context.Context, versionID int64) ([]string, error) {
	query := `
		SELECT tag FROM cached_entity_tag
		WHERE version_id = $1
		ORDER BY tag
	`

	rows, err := r.db.Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags for version: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}

// UpdateVisibility changes one cached version's visibility
func (r *RepoCacheRepository) UpdateVisibility(ctx context.Context, versionID int64, v models.Visibility) error {
	query := `UPDATE cached_entity_version SET visibility = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, versionID, v)
	if err != nil {
		return fmt.Errorf("failed to update visibility: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("cached version %d: %w", versionID, pgx.ErrNoRows)
	}

	return nil
}

// SetParsedOK records the downstream analysis flag on a cached version
func (r *RepoCacheRepository) SetParsedOK(ctx context.Context, versionID int64, parsedOK bool) error {
	query := `UPDATE cached_entity_version SET parsed_ok = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, versionID, parsedOK)
	if err != nil {
		return fmt.Errorf("failed to set parsed_ok: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("cached version %d: %w", versionID, pgx.ErrNoRows)
	}

	return nil
}

// EntityIDsByLatestVisibility returns the ids of entities whose latest
// cached version (commit timestamp desc, id desc) has one of the given
// visibilities. Only the most recent version counts; an entity with zero
// cached versions never appears.
func (r *RepoCacheRepository) EntityIDsByLatestVisibility(ctx context.Context, visibilities []models.Visibility, kind *models.EntityKind) ([]uuid.UUID, error) {
	query := `
		SELECT latest.entity_id
		FROM (
			SELECT DISTINCT ON (ce.entity_id) ce.entity_id, v.visibility
			FROM cached_entity ce
			JOIN cached_entity_version v ON v.cached_entity_id = ce.id
			JOIN entity e ON e.id = ce.entity_id
			WHERE ($2::text IS NULL OR e.kind = $2)
			ORDER BY ce.entity_id, v.committed_at DESC NULLS LAST, v.id DESC
		) latest
		WHERE latest.visibility = ANY($1)
	`

	levels := make([]string, len(visibilities))
	for i, v := range visibilities {
		levels[i] = string(v)
	}

	rows, err := r.db.Query(ctx, query, levels, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity ids by visibility: %w", err)
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
