package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/repository"
	"github.com/modelverse/weblab/cmd/weblab/vcs"
	"github.com/modelverse/weblab/common/cache"
	"github.com/modelverse/weblab/common/logger"
	"github.com/modelverse/weblab/common/metrics"
)

// LatestRef resolves to an entity's latest cached version
const LatestRef = "latest"

// LookupService resolves version references against the cache tables.
// A failed resolution is a cache miss, which signals the caller that
// populate may need to run; lookups never self-heal.
type LookupService struct {
	cacheRepo *repository.RepoCacheRepository
	store     vcs.Store
	idSets    cache.Cache
	log       *logger.Logger
}

// NewLookupService creates a new lookup service
func NewLookupService(
	cacheRepo *repository.RepoCacheRepository,
	store vcs.Store,
	idSets cache.Cache,
	log *logger.Logger,
) *LookupService {
	return &LookupService{
		cacheRepo: cacheRepo,
		store:     store,
		idSets:    idSets,
		log:       log,
	}
}

// GetVersion resolves ref to a cached version. Ref is "latest", a tag
// name, or a literal commit hash, tried in that order.
func (s *LookupService) GetVersion(ctx context.Context, entityID uuid.UUID, ref string) (*models.CachedEntityVersion, error) {
	if ref == LatestRef {
		version, err := s.cacheRepo.GetLatestVersion(ctx, entityID)
		if err != nil {
			if isNoRows(err) {
				return nil, s.miss(entityID, ref)
			}
			return nil, err
		}
		return version, nil
	}

	version, err := s.cacheRepo.GetVersionByTag(ctx, entityID, ref)
	if err == nil {
		return version, nil
	}
	if !isNoRows(err) {
		return nil, err
	}

	version, err = s.cacheRepo.GetVersionBySHA(ctx, entityID, ref)
	if err != nil {
		if isNoRows(err) {
			return nil, s.miss(entityID, ref)
		}
		return nil, err
	}

	return version, nil
}

// ListVersions returns every cached version of an entity, newest first
func (s *LookupService) ListVersions(ctx context.Context, entityID uuid.UUID) ([]*models.CachedEntityVersion, error) {
	return s.cacheRepo.ListVersions(ctx, entityID)
}

// ListTags returns every cached tag of an entity
func (s *LookupService) ListTags(ctx context.Context, entityID uuid.UUID) ([]*models.CachedEntityTag, error) {
	return s.cacheRepo.ListTags(ctx, entityID)
}

// MarkParsed records whether a version's files parsed cleanly. The flag
// starts unknown and is only ever filled in lazily after a parse attempt.
func (s *LookupService) MarkParsed(ctx context.Context, entityID uuid.UUID, sha string, ok bool) error {
	version, err := s.cacheRepo.GetVersionBySHA(ctx, entityID, sha)
	if err != nil {
		if isNoRows(err) {
			return s.miss(entityID, sha)
		}
		return err
	}

	if err := s.cacheRepo.SetParsedOK(ctx, version.ID, ok); err != nil {
		if isNoRows(err) {
			return fmt.Errorf("version %s of entity %s: %w", sha, entityID, ErrVersionConflict)
		}
		return err
	}
	return nil
}

func (s *LookupService) miss(entityID uuid.UUID, ref string) error {
	metrics.CacheMisses.Inc()
	return fmt.Errorf("entity %s ref %q: %w", entityID, ref, ErrCacheMiss)
}

// SetVisibility changes a cached version's visibility and keeps the
// repository's annotation in agreement. The repository write happens
// first: if it fails nothing changes; if the cache write then fails the
// repository carries the new value and the next populate re-syncs the
// cache to it.
func (s *LookupService) SetVisibility(ctx context.Context, entityID uuid.UUID, sha string, v models.Visibility) error {
	if !v.Valid() {
		return fmt.Errorf("invalid visibility: %q", v)
	}

	version, err := s.cacheRepo.GetVersionBySHA(ctx, entityID, sha)
	if err != nil {
		if isNoRows(err) {
			return s.miss(entityID, sha)
		}
		return err
	}

	repo, err := s.store.Open(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to open repository for entity %s: %w", entityID, err)
	}

	if err := repo.WriteVisibility(ctx, sha, v); err != nil {
		return fmt.Errorf("failed to write visibility annotation: %w", err)
	}

	if err := s.cacheRepo.UpdateVisibility(ctx, version.ID, v); err != nil {
		if isNoRows(err) {
			// The annotation is written; the next populate carries it
			// into the rebuilt cache.
			return fmt.Errorf("version %s of entity %s: %w", sha, entityID, ErrVersionConflict)
		}
		return fmt.Errorf("failed to update cached visibility: %w", err)
	}

	if s.idSets != nil {
		if err := s.idSets.DeletePrefix(ctx, idSetCachePrefix); err != nil {
			s.log.Warn("failed to invalidate id-set cache", "error", err)
		}
	}

	s.log.Info("changed version visibility",
		"entity_id", entityID,
		"sha", sha,
		"visibility", v,
	)

	return nil
}

// NiceVersionName returns a human label for a version: its most specific
// tag when tagged, otherwise the abbreviated commit hash.
func (s *LookupService) NiceVersionName(ctx context.Context, version *models.CachedEntityVersion) (string, error) {
	tags, err := s.cacheRepo.TagsForVersion(ctx, version.ID)
	if err != nil {
		return "", err
	}

	if len(tags) > 0 {
		return tags[len(tags)-1], nil
	}

	return AbbreviateSHA(version.SHA), nil
}

// AbbreviateSHA shortens a commit hash for display
func AbbreviateSHA(sha string) string {
	if len(sha) <= 8 {
		return sha
	}
	return sha[:8] + "..."
}
