package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/repository"
	"github.com/modelverse/weblab/common/cache"
	"github.com/modelverse/weblab/common/logger"
)

// VisibilityCheck reports whether user may see an object with the given
// visibility and viewer set.
//
// One rule applies everywhere: public and moderated objects are
// world-readable, anonymous callers included; private objects require the
// caller to be authenticated and a member of viewers (the author plus
// explicit grant holders).
func VisibilityCheck(v models.Visibility, viewers []string, user models.User) bool {
	if v.WorldReadable() {
		return true
	}

	if !user.Authenticated {
		return false
	}

	for _, viewer := range viewers {
		if viewer == user.ID {
			return true
		}
	}

	return false
}

// VisibilityService answers visibility questions from the cache tables
// alone; it never touches an entity's repository.
type VisibilityService struct {
	entityRepo *repository.EntityRepository
	cacheRepo  *repository.RepoCacheRepository
	idSets     cache.Cache
	ttl        time.Duration
	log        *logger.Logger
}

// NewVisibilityService creates a new visibility service
func NewVisibilityService(
	entityRepo *repository.EntityRepository,
	cacheRepo *repository.RepoCacheRepository,
	idSets cache.Cache,
	ttl time.Duration,
	log *logger.Logger,
) *VisibilityService {
	return &VisibilityService{
		entityRepo: entityRepo,
		cacheRepo:  cacheRepo,
		idSets:     idSets,
		ttl:        ttl,
		log:        log,
	}
}

// EntityVisibility is the visibility of an entity's latest cached version,
// or private when the entity has no cached versions yet.
func (s *VisibilityService) EntityVisibility(ctx context.Context, entityID uuid.UUID) (models.Visibility, error) {
	latest, err := s.cacheRepo.GetLatestVersion(ctx, entityID)
	if err != nil {
		if isNoRows(err) {
			return models.VisibilityPrivate, nil
		}
		return "", err
	}

	return latest.Visibility, nil
}

// CanView reports whether user may see the entity at all
func (s *VisibilityService) CanView(ctx context.Context, user models.User, entityID uuid.UUID) (bool, error) {
	visibility, err := s.EntityVisibility(ctx, entityID)
	if err != nil {
		return false, err
	}

	if visibility.WorldReadable() {
		return true, nil
	}

	if !user.Authenticated {
		return false, nil
	}

	viewers, err := s.entityRepo.Viewers(ctx, entityID)
	if err != nil {
		return false, err
	}

	return VisibilityCheck(visibility, viewers, user), nil
}

// CanViewVersion reports whether user may see one specific cached
// version. Versions are gated individually: an entity whose latest
// version is public can still hold private historical versions.
func (s *VisibilityService) CanViewVersion(ctx context.Context, user models.User, entityID uuid.UUID, v models.Visibility) (bool, error) {
	if v.WorldReadable() {
		return true, nil
	}

	if !user.Authenticated {
		return false, nil
	}

	viewers, err := s.entityRepo.Viewers(ctx, entityID)
	if err != nil {
		return false, err
	}

	return VisibilityCheck(v, viewers, user), nil
}

// PublicEntityIDs returns the ids of entities whose latest cached version
// is world-readable (public or moderated)
func (s *VisibilityService) PublicEntityIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.cachedIDSet(ctx, idSetCachePrefix+"public", func() ([]uuid.UUID, error) {
		return s.cacheRepo.EntityIDsByLatestVisibility(ctx,
			[]models.Visibility{models.VisibilityPublic, models.VisibilityModerated}, nil)
	})
}

// ModeratedEntityIDs returns the ids of entities whose latest cached
// version is exactly moderated, optionally restricted to one kind
func (s *VisibilityService) ModeratedEntityIDs(ctx context.Context, kind *models.EntityKind) ([]uuid.UUID, error) {
	key := idSetCachePrefix + "moderated"
	if kind != nil {
		key += ":" + string(*kind)
	}

	return s.cachedIDSet(ctx, key, func() ([]uuid.UUID, error) {
		return s.cacheRepo.EntityIDsByLatestVisibility(ctx,
			[]models.Visibility{models.VisibilityModerated}, kind)
	})
}

// VisibleEntityIDs returns every entity id user may see: world-readable
// entities, plus (for authenticated users) everything they authored or
// hold a viewer grant for.
func (s *VisibilityService) VisibleEntityIDs(ctx context.Context, user models.User) ([]uuid.UUID, error) {
	public, err := s.PublicEntityIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(public))
	ids := make([]uuid.UUID, 0, len(public))
	for _, id := range public {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if !user.Authenticated {
		return ids, nil
	}

	authored, err := s.entityRepo.AuthoredIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	granted, err := s.entityRepo.GrantedIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	for _, id := range append(authored, granted...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// cachedIDSet memoizes an id-set query for a short TTL. The cache is
// invalidated whenever populate or a visibility write changes the
// underlying tables, so the TTL only bounds staleness across processes.
func (s *VisibilityService) cachedIDSet(ctx context.Context, key string, query func() ([]uuid.UUID, error)) ([]uuid.UUID, error) {
	if s.idSets != nil {
		if data, found, err := s.idSets.Get(ctx, key); err == nil && found {
			var ids []uuid.UUID
			if err := json.Unmarshal(data, &ids); err == nil {
				return ids, nil
			}
			// Corrupt entry; fall through to the query
			s.log.Warn("dropping corrupt id-set cache entry", "key", key)
		}
	}

	ids, err := query()
	if err != nil {
		return nil, fmt.Errorf("failed to query id set %s: %w", key, err)
	}

	if s.idSets != nil {
		if data, err := json.Marshal(ids); err == nil {
			if err := s.idSets.Set(ctx, key, data, s.ttl); err != nil {
				s.log.Warn("failed to store id-set cache entry", "key", key, "error", err)
			}
		}
	}

	return ids, nil
}
