package models

import (
	"time"

	"github.com/google/uuid"
)

// CachedEntity is the cached projection of one entity's repository.
// At most one row exists per entity; repopulation replaces the row and
// everything hanging off it.
// Maps to: cached_entity table
type CachedEntity struct {
	ID       int64     `db:"id" json:"id"`
	EntityID uuid.UUID `db:"entity_id" json:"entity_id"`

	// Newest commit's cached version; nil until the repository has a commit
	LatestVersionID *int64 `db:"latest_version_id" json:"latest_version_id,omitempty"`
}

// CachedEntityVersion is one commit of an entity, as cached metadata.
// (cached_entity_id, sha) is unique.
// Maps to: cached_entity_version table
type CachedEntityVersion struct {
	ID             int64      `db:"id" json:"id"`
	CachedEntityID int64      `db:"cached_entity_id" json:"cached_entity_id"`
	SHA            string     `db:"sha" json:"sha"`
	Visibility     Visibility `db:"visibility" json:"visibility"`

	// Commit timestamp; orders versions when picking the latest per entity
	CommittedAt *time.Time `db:"committed_at" json:"committed_at,omitempty"`

	// Set asynchronously by downstream analysis, never by populate
	ParsedOK *bool `db:"parsed_ok" json:"parsed_ok,omitempty"`
}

// CachedEntityTag is a named tag pointing at a cached version.
// (cached_entity_id, tag) is unique.
// Maps to: cached_entity_tag table
type CachedEntityTag struct {
	ID             int64  `db:"id" json:"id"`
	CachedEntityID int64  `db:"cached_entity_id" json:"cached_entity_id"`
	Tag            string `db:"tag" json:"tag"`
	VersionID      int64  `db:"version_id" json:"version_id"`
}
