package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntityKind discriminates the three versioned artifact types.
// All of them share one repository-backed lifecycle; the kind only matters
// for listing filters and experiment pairing.
type EntityKind string

const (
	KindModel       EntityKind = "model"
	KindProtocol    EntityKind = "protocol"
	KindFittingSpec EntityKind = "fitting_spec"
)

// Valid reports whether the kind is one of the known variants
func (k EntityKind) Valid() bool {
	switch k {
	case KindModel, KindProtocol, KindFittingSpec:
		return true
	}
	return false
}

// Entity is a versioned scientific artifact backed by its own repository.
// Maps to: entity table
type Entity struct {
	ID       uuid.UUID  `db:"id" json:"id"`
	Kind     EntityKind `db:"kind" json:"kind"`
	Name     string     `db:"name" json:"name"`
	AuthorID string     `db:"author_id" json:"author_id"`

	// Free-form descriptive metadata, updated via JSON merge patch
	Metadata json.RawMessage `db:"metadata" json:"metadata"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// User identifies the caller for visibility checks. The zero value is the
// anonymous user.
type User struct {
	ID            string
	Authenticated bool
}

// AnonymousUser returns the unauthenticated caller
func AnonymousUser() User {
	return User{}
}

// AuthenticatedUser returns a caller identified by id
func AuthenticatedUser(id string) User {
	return User{ID: id, Authenticated: id != ""}
}
