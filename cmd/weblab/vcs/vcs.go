// Package vcs defines the capability the cache needs from an entity's
// version-controlled repository. The actual version-control storage is an
// external collaborator; the cache layer only ever sees these interfaces.
package vcs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

// ErrNotFound is returned when an entity has no repository (or a commit is
// unknown to its repository).
var ErrNotFound = errors.New("repository not found")

// Commit is one entry of a repository's history
type Commit struct {
	SHA        string
	Message    string
	AuthorName string
	CreatedAt  time.Time
}

// Repository exposes one entity's commit history to the cache layer.
//
// ListCommits enumerates newest first; the populate pass depends on that
// order for visibility back-fill and for picking the latest version.
// ReadVisibility reports the commit's visibility annotation; ok is false
// when the commit carries none. WriteVisibility persists an annotation so
// the repository's own record stays authoritative.
type Repository interface {
	ListCommits(ctx context.Context) ([]Commit, error)
	Tags(ctx context.Context) (map[string][]string, error)
	ReadVisibility(ctx context.Context, sha string) (models.Visibility, bool, error)
	WriteVisibility(ctx context.Context, sha string, v models.Visibility) error
}

// Store opens per-entity repositories. Repository creation and teardown are
// explicit lifecycle calls made by the entity service; nothing happens as a
// hidden side effect of a database write.
type Store interface {
	Open(ctx context.Context, entityID uuid.UUID) (Repository, error)
	Init(ctx context.Context, entityID uuid.UUID) error
	Teardown(ctx context.Context, entityID uuid.UUID) error
}
