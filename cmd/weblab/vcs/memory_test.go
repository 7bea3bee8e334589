package vcs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	entityID := uuid.New()

	if _, err := store.Open(ctx, entityID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before Init, got %v", err)
	}

	if err := store.Init(ctx, entityID); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := store.Init(ctx, entityID); err == nil {
		t.Fatal("expected second Init to fail")
	}

	if _, err := store.Open(ctx, entityID); err != nil {
		t.Fatalf("Open after Init failed: %v", err)
	}

	if err := store.Teardown(ctx, entityID); err != nil {
		t.Fatalf("Teardown failed: %v", err)
	}
	if _, err := store.Open(ctx, entityID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after Teardown, got %v", err)
	}
}

// TestListCommitsNewestFirst checks the enumeration order contract
func TestListCommitsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.AddCommit("aaa", "first", "alice", base)
	repo.AddCommit("bbb", "second", "alice", base.Add(time.Hour))
	repo.AddCommit("ccc", "third", "alice", base.Add(2*time.Hour))

	commits, err := repo.ListCommits(ctx)
	if err != nil {
		t.Fatalf("ListCommits failed: %v", err)
	}

	if len(commits) != 3 {
		t.Fatalf("expected 3 commits, got %d", len(commits))
	}
	for i, want := range []string{"ccc", "bbb", "aaa"} {
		if commits[i].SHA != want {
			t.Errorf("commits[%d] = %q, want %q", i, commits[i].SHA, want)
		}
	}
}

func TestTagsGroupedBySHA(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	now := time.Now()
	repo.AddCommit("aaa", "first", "alice", now)
	repo.TagCommit("aaa", "v2")
	repo.TagCommit("aaa", "v1")
	repo.TagCommit("aaa", "release")

	tags, err := repo.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}

	names := tags["aaa"]
	if len(names) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(names))
	}
	// Sorted so callers see a stable order
	for i, want := range []string{"release", "v1", "v2"} {
		if names[i] != want {
			t.Errorf("tags[%d] = %q, want %q", i, names[i], want)
		}
	}
}

func TestVisibilityAnnotations(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.AddCommit("aaa", "first", "alice", time.Now())

	_, annotated, err := repo.ReadVisibility(ctx, "aaa")
	if err != nil {
		t.Fatalf("ReadVisibility failed: %v", err)
	}
	if annotated {
		t.Fatal("expected no annotation on a fresh commit")
	}

	if err := repo.WriteVisibility(ctx, "aaa", models.VisibilityPublic); err != nil {
		t.Fatalf("WriteVisibility failed: %v", err)
	}

	v, annotated, err := repo.ReadVisibility(ctx, "aaa")
	if err != nil {
		t.Fatalf("ReadVisibility failed: %v", err)
	}
	if !annotated || v != models.VisibilityPublic {
		t.Errorf("got (%q, %v), want (public, true)", v, annotated)
	}
}

// TestRewriteDropsDanglingRefs simulates a force push that removes commits
func TestRewriteDropsDanglingRefs(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	base := time.Now()
	repo.AddCommit("aaa", "first", "alice", base)
	repo.AddCommit("bbb", "second", "alice", base.Add(time.Hour))
	repo.TagCommit("aaa", "keep")
	repo.TagCommit("bbb", "drop")
	repo.WriteVisibility(ctx, "aaa", models.VisibilityPublic)
	repo.WriteVisibility(ctx, "bbb", models.VisibilityModerated)

	repo.Rewrite([]Commit{
		{SHA: "aaa", Message: "first", AuthorName: "alice", CreatedAt: base},
	})

	commits, _ := repo.ListCommits(ctx)
	if len(commits) != 1 || commits[0].SHA != "aaa" {
		t.Fatalf("unexpected history after rewrite: %+v", commits)
	}

	tags, _ := repo.Tags(ctx)
	if _, exists := tags["bbb"]; exists {
		t.Error("tag on removed commit survived rewrite")
	}
	if len(tags["aaa"]) != 1 || tags["aaa"][0] != "keep" {
		t.Errorf("tag on kept commit lost: %v", tags["aaa"])
	}

	if _, annotated, _ := repo.ReadVisibility(ctx, "bbb"); annotated {
		t.Error("annotation on removed commit survived rewrite")
	}
	if v, annotated, _ := repo.ReadVisibility(ctx, "aaa"); !annotated || v != models.VisibilityPublic {
		t.Error("annotation on kept commit lost")
	}
}
