package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/repository"
	"github.com/modelverse/weblab/cmd/weblab/vcs"
	"github.com/modelverse/weblab/common/cache"
	"github.com/modelverse/weblab/common/db"
	"github.com/modelverse/weblab/common/logger"
	"github.com/modelverse/weblab/common/metrics"
)

// idSetCachePrefix keys the memoized visibility id-sets; populate and
// visibility writes invalidate everything under it
const idSetCachePrefix = "entityids:"

// PopulateService rebuilds an entity's cache rows from its repository.
//
// A populate run is delete-then-recreate inside one transaction: readers
// see the entity's previous complete cache or its new complete cache,
// never a mix. Populate assumes it is the sole writer for a given entity;
// overlapping runs for the same entity are a documented race.
type PopulateService struct {
	db        *db.DB
	cacheRepo *repository.RepoCacheRepository
	store     vcs.Store
	idSets    cache.Cache
	log       *logger.Logger
}

// NewPopulateService creates a new populate service
func NewPopulateService(
	db *db.DB,
	cacheRepo *repository.RepoCacheRepository,
	store vcs.Store,
	idSets cache.Cache,
	log *logger.Logger,
) *PopulateService {
	return &PopulateService{
		db:        db,
		cacheRepo: cacheRepo,
		store:     store,
		idSets:    idSets,
		log:       log,
	}
}

// resolvedVersion is one commit with its visibility settled in memory
type resolvedVersion struct {
	commit     vcs.Commit
	visibility models.Visibility
}

// Populate makes the cache for entityID exactly reflect its repository.
// Any error leaves the previous cache state intact.
func (s *PopulateService) Populate(ctx context.Context, entityID uuid.UUID) error {
	start := time.Now()

	count, err := s.populate(ctx, entityID)
	if err != nil {
		metrics.PopulateRuns.WithLabelValues("error").Inc()
		return err
	}

	metrics.PopulateRuns.WithLabelValues("ok").Inc()
	metrics.PopulateDuration.Observe(time.Since(start).Seconds())
	metrics.PopulateVersions.Observe(float64(count))

	s.log.Info("populated entity cache",
		"entity_id", entityID,
		"versions", count,
		"took", time.Since(start),
	)

	return nil
}

// resolveVisibilities settles a visibility for every commit in memory.
// Commits arrive newest first. A commit without an annotation defaults
// to private and goes on the pending list; the next annotated (older)
// commit supplies the value for every pending commit and clears the
// list. Commits never reached by an annotation stay private. The second
// return value holds the back-filled annotations to write to the
// repository.
func resolveVisibilities(ctx context.Context, repo vcs.Repository, commits []vcs.Commit) ([]resolvedVersion, map[string]models.Visibility, error) {
	resolved := make([]resolvedVersion, 0, len(commits))
	backfill := make(map[string]models.Visibility)
	var pending []int

	for i, commit := range commits {
		visibility, annotated, err := repo.ReadVisibility(ctx, commit.SHA)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read visibility for %s: %w", commit.SHA, err)
		}

		if annotated {
			if !visibility.Valid() {
				return nil, nil, fmt.Errorf("repository has invalid visibility %q on commit %s", visibility, commit.SHA)
			}
			resolved = append(resolved, resolvedVersion{commit: commit, visibility: visibility})
			for _, idx := range pending {
				resolved[idx].visibility = visibility
				backfill[resolved[idx].commit.SHA] = visibility
			}
			pending = pending[:0]
			continue
		}

		resolved = append(resolved, resolvedVersion{commit: commit, visibility: models.VisibilityPrivate})
		pending = append(pending, i)
	}

	return resolved, backfill, nil
}

func (s *PopulateService) populate(ctx context.Context, entityID uuid.UUID) (int, error) {
	repo, err := s.store.Open(ctx, entityID)
	if err != nil {
		return 0, fmt.Errorf("failed to open repository for entity %s: %w", entityID, err)
	}

	commits, err := repo.ListCommits(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list commits: %w", err)
	}

	tagsBySHA, err := repo.Tags(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tags: %w", err)
	}

	resolved, backfill, err := resolveVisibilities(ctx, repo, commits)
	if err != nil {
		return 0, err
	}

	// Phase 2a: persist discovered annotations back to the repository
	// before touching the cache, so the repository's own record stays
	// authoritative and self-heals.
	for sha, visibility := range backfill {
		if err := repo.WriteVisibility(ctx, sha, visibility); err != nil {
			return 0, fmt.Errorf("failed to back-fill visibility for %s: %w", sha, err)
		}
	}

	// Phase 2b: rewrite the cache rows atomically
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.cacheRepo.DeleteForEntityTx(ctx, tx, entityID); err != nil {
			return err
		}

		cachedEntityID, err := s.cacheRepo.CreateCachedEntityTx(ctx, tx, entityID)
		if err != nil {
			return err
		}

		var latestVersionID int64
		for i, rv := range resolved {
			committedAt := rv.commit.CreatedAt
			version := &models.CachedEntityVersion{
				CachedEntityID: cachedEntityID,
				SHA:            rv.commit.SHA,
				Visibility:     rv.visibility,
				CommittedAt:    &committedAt,
			}
			if err := s.cacheRepo.CreateVersionTx(ctx, tx, version); err != nil {
				return err
			}

			// First enumerated commit is the newest
			if i == 0 {
				latestVersionID = version.ID
			}

			for _, name := range tagsBySHA[rv.commit.SHA] {
				tag := &models.CachedEntityTag{
					CachedEntityID: cachedEntityID,
					Tag:            name,
					VersionID:      version.ID,
				}
				if err := s.cacheRepo.CreateTagTx(ctx, tx, tag); err != nil {
					return err
				}
			}
		}

		if len(resolved) > 0 {
			if err := s.cacheRepo.SetLatestVersionTx(ctx, tx, cachedEntityID, latestVersionID); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild cache for entity %s: %w", entityID, err)
	}

	if s.idSets != nil {
		if err := s.idSets.DeletePrefix(ctx, idSetCachePrefix); err != nil {
			s.log.Warn("failed to invalidate id-set cache", "error", err)
		}
	}

	return len(resolved), nil
}
