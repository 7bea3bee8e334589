package service

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// Error kinds the rest of the application dispatches on.
var (
	// ErrCacheMiss means a version lookup found no cached row. The caller
	// may re-run populate and retry, or treat it as not-found when the
	// identifier is simply wrong. Lookups never return a default instead.
	ErrCacheMiss = errors.New("version not found in cache")

	// ErrNotFound covers missing entities and experiments
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller may not see or change the object
	ErrForbidden = errors.New("forbidden")

	// ErrVersionConflict means a cached version changed or disappeared
	// while an update against it was in flight, usually because a
	// repopulation rewrote the cache between read and write
	ErrVersionConflict = errors.New("version changed concurrently")
)

// isNoRows reports whether err is a pgx empty-result error anywhere in its
// chain
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
