package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/common/cache"
	"github.com/modelverse/weblab/common/logger"
)

// TestVisibilityCheck covers the single access rule: world-readable levels
// admit everyone, private admits only listed viewers
func TestVisibilityCheck(t *testing.T) {
	viewers := []string{"alice", "bob"}

	tests := []struct {
		name       string
		visibility models.Visibility
		user       models.User
		want       bool
	}{
		{"public anonymous", models.VisibilityPublic, models.AnonymousUser(), true},
		{"public stranger", models.VisibilityPublic, models.AuthenticatedUser("mallory"), true},
		{"moderated anonymous", models.VisibilityModerated, models.AnonymousUser(), true},
		{"moderated stranger", models.VisibilityModerated, models.AuthenticatedUser("mallory"), true},
		{"private anonymous", models.VisibilityPrivate, models.AnonymousUser(), false},
		{"private stranger", models.VisibilityPrivate, models.AuthenticatedUser("mallory"), false},
		{"private author", models.VisibilityPrivate, models.AuthenticatedUser("alice"), true},
		{"private grant holder", models.VisibilityPrivate, models.AuthenticatedUser("bob"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibilityCheck(tt.visibility, viewers, tt.user); got != tt.want {
				t.Errorf("VisibilityCheck(%q, %v, %+v) = %v, want %v",
					tt.visibility, viewers, tt.user, got, tt.want)
			}
		})
	}
}

func TestVisibilityCheckNoViewers(t *testing.T) {
	if VisibilityCheck(models.VisibilityPrivate, nil, models.AuthenticatedUser("alice")) {
		t.Error("private object with no viewers must deny everyone")
	}
}

func seedIDSet(t *testing.T, idSets cache.Cache, key string, ids []uuid.UUID) {
	t.Helper()
	data, err := json.Marshal(ids)
	if err != nil {
		t.Fatalf("marshal id set: %v", err)
	}
	if err := idSets.Set(context.Background(), key, data, time.Minute); err != nil {
		t.Fatalf("seed cache key %q: %v", key, err)
	}
}

// TestModeratedEntityIDsMemoized checks that the moderated and public id
// sets come from the memoized cache when present, keyed separately per
// kind. The service is built with no repositories, so any cache miss that
// fell through to the database would panic the test.
func TestModeratedEntityIDsMemoized(t *testing.T) {
	ctx := context.Background()
	log := logger.New("error", "json")
	idSets := cache.NewMemoryCache(log)
	defer idSets.Close()

	moderatedAll := []uuid.UUID{uuid.New(), uuid.New()}
	moderatedModels := []uuid.UUID{moderatedAll[0]}
	public := []uuid.UUID{uuid.New()}

	seedIDSet(t, idSets, idSetCachePrefix+"moderated", moderatedAll)
	seedIDSet(t, idSets, idSetCachePrefix+"moderated:model", moderatedModels)
	seedIDSet(t, idSets, idSetCachePrefix+"public", public)

	svc := NewVisibilityService(nil, nil, idSets, time.Minute, log)

	got, err := svc.ModeratedEntityIDs(ctx, nil)
	if err != nil {
		t.Fatalf("ModeratedEntityIDs failed: %v", err)
	}
	if len(got) != 2 || got[0] != moderatedAll[0] || got[1] != moderatedAll[1] {
		t.Errorf("ModeratedEntityIDs = %v, want %v", got, moderatedAll)
	}

	kind := models.KindModel
	got, err = svc.ModeratedEntityIDs(ctx, &kind)
	if err != nil {
		t.Fatalf("ModeratedEntityIDs(model) failed: %v", err)
	}
	if len(got) != 1 || got[0] != moderatedModels[0] {
		t.Errorf("ModeratedEntityIDs(model) = %v, want %v", got, moderatedModels)
	}

	got, err = svc.PublicEntityIDs(ctx)
	if err != nil {
		t.Fatalf("PublicEntityIDs failed: %v", err)
	}
	if len(got) != 1 || got[0] != public[0] {
		t.Errorf("PublicEntityIDs = %v, want %v", got, public)
	}
}
