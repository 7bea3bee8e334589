package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/repository"
	"github.com/modelverse/weblab/cmd/weblab/vcs"
	"github.com/modelverse/weblab/common/cache"
	"github.com/modelverse/weblab/common/logger"
	"github.com/modelverse/weblab/common/validation"
)

// EntityService handles entity lifecycle. Repository creation and teardown
// are explicit steps here, never side effects of a database write.
type EntityService struct {
	entityRepo *repository.EntityRepository
	store      vcs.Store
	idSets     cache.Cache
	log        *logger.Logger
}

// NewEntityService creates a new entity service
func NewEntityService(
	entityRepo *repository.EntityRepository,
	store vcs.Store,
	idSets cache.Cache,
	log *logger.Logger,
) *EntityService {
	return &EntityService{
		entityRepo: entityRepo,
		store:      store,
		idSets:     idSets,
		log:        log,
	}
}

// Create persists a new entity and initializes its backing repository.
// If repository initialization fails the entity row is removed again so
// the two stores stay in agreement.
func (s *EntityService) Create(ctx context.Context, kind models.EntityKind, name, authorID string) (*models.Entity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid entity kind: %q", kind)
	}
	if name == "" {
		return nil, fmt.Errorf("entity name is required")
	}
	if authorID == "" {
		return nil, fmt.Errorf("entity author is required")
	}

	entity := &models.Entity{
		ID:        uuid.New(),
		Kind:      kind,
		Name:      name,
		AuthorID:  authorID,
		Metadata:  json.RawMessage(`{}`),
		CreatedAt: time.Now(),
	}

	if err := s.entityRepo.Create(ctx, entity); err != nil {
		return nil, fmt.Errorf("failed to create entity: %w", err)
	}

	if err := s.store.Init(ctx, entity.ID); err != nil {
		if delErr := s.entityRepo.Delete(ctx, entity.ID); delErr != nil {
			s.log.Error("failed to roll back entity after repository init failure",
				"entity_id", entity.ID, "error", delErr)
		}
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}

	s.log.Info("created entity",
		"entity_id", entity.ID,
		"kind", kind,
		"name", name,
		"author", authorID,
	)

	return entity, nil
}

// Get retrieves an entity by id
func (s *EntityService) Get(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	entity, err := s.entityRepo.GetByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return entity, nil
}

// List retrieves entities, optionally filtered by kind
func (s *EntityService) List(ctx context.Context, kind *models.EntityKind) ([]*models.Entity, error) {
	return s.entityRepo.List(ctx, kind)
}

// Delete removes an entity. The cache rows cascade away with the row;
// the backing repository is torn down explicitly afterwards.
func (s *EntityService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.entityRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	if err := s.store.Teardown(ctx, id); err != nil {
		return fmt.Errorf("failed to teardown repository: %w", err)
	}

	if s.idSets != nil {
		if err := s.idSets.DeletePrefix(ctx, idSetCachePrefix); err != nil {
			s.log.Warn("failed to invalidate id-set cache", "error", err)
		}
	}

	s.log.Info("deleted entity", "entity_id", id)
	return nil
}

// PatchMetadata applies an RFC 7386 merge patch to the entity's metadata
func (s *EntityService) PatchMetadata(ctx context.Context, id uuid.UUID, patch []byte) (*models.Entity, error) {
	if err := validation.ValidateMetadataPatch(patch); err != nil {
		return nil, fmt.Errorf("invalid metadata patch: %w", err)
	}

	entity, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, err := jsonpatch.MergePatch(entity.Metadata, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to apply metadata patch: %w", err)
	}

	if err := s.entityRepo.UpdateMetadata(ctx, id, merged); err != nil {
		return nil, err
	}

	entity.Metadata = merged
	return entity, nil
}

// AddCollaborator grants userID viewer access to the entity
func (s *EntityService) AddCollaborator(ctx context.Context, entityID uuid.UUID, userID string) error {
	if userID == "" {
		return fmt.Errorf("collaborator user id is required")
	}
	return s.entityRepo.AddGrant(ctx, entityID, userID)
}

// RemoveCollaborator revokes userID's viewer access to the entity
func (s *EntityService) RemoveCollaborator(ctx context.Context, entityID uuid.UUID, userID string) error {
	return s.entityRepo.RemoveGrant(ctx, entityID, userID)
}
