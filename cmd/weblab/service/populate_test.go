package service

import (
	"context"
	"testing"
	"time"

	"github.com/modelverse/weblab/cmd/weblab/models"
	"github.com/modelverse/weblab/cmd/weblab/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRepo(t *testing.T, shas ...string) *vcs.MemoryRepository {
	t.Helper()
	repo := vcs.NewMemoryRepository()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, sha := range shas {
		repo.AddCommit(sha, "commit "+sha, "alice", base.Add(time.Duration(i)*time.Hour))
	}
	return repo
}

func visibilitiesOf(resolved []resolvedVersion) map[string]models.Visibility {
	out := make(map[string]models.Visibility, len(resolved))
	for _, rv := range resolved {
		out[rv.commit.SHA] = rv.visibility
	}
	return out
}

// TestResolveVisibilitiesAllAnnotated covers the simple case where every
// commit already carries its own annotation
func TestResolveVisibilitiesAllAnnotated(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo(t, "aaa", "bbb", "ccc")
	require.NoError(t, repo.WriteVisibility(ctx, "aaa", models.VisibilityPrivate))
	require.NoError(t, repo.WriteVisibility(ctx, "bbb", models.VisibilityPublic))
	require.NoError(t, repo.WriteVisibility(ctx, "ccc", models.VisibilityModerated))

	commits, err := repo.ListCommits(ctx)
	require.NoError(t, err)

	resolved, backfill, err := resolveVisibilities(ctx, repo, commits)
	require.NoError(t, err)

	assert.Empty(t, backfill)
	assert.Equal(t, map[string]models.Visibility{
		"aaa": models.VisibilityPrivate,
		"bbb": models.VisibilityPublic,
		"ccc": models.VisibilityModerated,
	}, visibilitiesOf(resolved))

	// Newest first
	require.Len(t, resolved, 3)
	assert.Equal(t, "ccc", resolved[0].commit.SHA)
	assert.Equal(t, "aaa", resolved[2].commit.SHA)
}

// TestResolveVisibilitiesBackfill covers unannotated newer commits
// inheriting from the first annotated older commit
func TestResolveVisibilitiesBackfill(t *testing.T) {
	ctx := context.Background()

	// History oldest -> newest: aaa (public), bbb, ccc (no annotations)
	repo := seedRepo(t, "aaa", "bbb", "ccc")
	require.NoError(t, repo.WriteVisibility(ctx, "aaa", models.VisibilityPublic))

	commits, err := repo.ListCommits(ctx)
	require.NoError(t, err)

	resolved, backfill, err := resolveVisibilities(ctx, repo, commits)
	require.NoError(t, err)

	assert.Equal(t, map[string]models.Visibility{
		"aaa": models.VisibilityPublic,
		"bbb": models.VisibilityPublic,
		"ccc": models.VisibilityPublic,
	}, visibilitiesOf(resolved))

	// Only the commits that lacked annotations get written back
	assert.Equal(t, map[string]models.Visibility{
		"bbb": models.VisibilityPublic,
		"ccc": models.VisibilityPublic,
	}, backfill)
}

// TestResolveVisibilitiesNoAnnotations leaves everything private and
// writes nothing back
func TestResolveVisibilitiesNoAnnotations(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo(t, "aaa", "bbb")

	commits, err := repo.ListCommits(ctx)
	require.NoError(t, err)

	resolved, backfill, err := resolveVisibilities(ctx, repo, commits)
	require.NoError(t, err)

	assert.Empty(t, backfill)
	assert.Equal(t, map[string]models.Visibility{
		"aaa": models.VisibilityPrivate,
		"bbb": models.VisibilityPrivate,
	}, visibilitiesOf(resolved))
}

// TestResolveVisibilitiesMixedRuns exercises interleaved annotated and
// unannotated commits: each unannotated run inherits from the annotation
// directly below it, independent of older runs
func TestResolveVisibilitiesMixedRuns(t *testing.T) {
	ctx := context.Background()

	// Oldest -> newest: a1 (private), a2, a3 (moderated), a4, a5
	repo := seedRepo(t, "a1", "a2", "a3", "a4", "a5")
	require.NoError(t, repo.WriteVisibility(ctx, "a1", models.VisibilityPrivate))
	require.NoError(t, repo.WriteVisibility(ctx, "a3", models.VisibilityModerated))

	commits, err := repo.ListCommits(ctx)
	require.NoError(t, err)

	resolved, backfill, err := resolveVisibilities(ctx, repo, commits)
	require.NoError(t, err)

	assert.Equal(t, map[string]models.Visibility{
		"a1": models.VisibilityPrivate,
		"a2": models.VisibilityPrivate,
		"a3": models.VisibilityModerated,
		"a4": models.VisibilityModerated,
		"a5": models.VisibilityModerated,
	}, visibilitiesOf(resolved))

	assert.Equal(t, map[string]models.Visibility{
		"a2": models.VisibilityPrivate,
		"a4": models.VisibilityModerated,
		"a5": models.VisibilityModerated,
	}, backfill)
}

func TestResolveVisibilitiesInvalidAnnotation(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo(t, "aaa")
	require.NoError(t, repo.WriteVisibility(ctx, "aaa", models.Visibility("secret")))

	commits, err := repo.ListCommits(ctx)
	require.NoError(t, err)

	_, _, err = resolveVisibilities(ctx, repo, commits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid visibility")
}

func TestResolveVisibilitiesEmptyHistory(t *testing.T) {
	ctx := context.Background()
	repo := vcs.NewMemoryRepository()

	resolved, backfill, err := resolveVisibilities(ctx, repo, nil)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Empty(t, backfill)
}
