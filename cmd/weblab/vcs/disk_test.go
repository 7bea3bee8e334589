package vcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

func TestDiskStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
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

// TestDiskRepositoryRoundtrip writes commits, tags, and annotations, then
// reopens the store to verify they survived
func TestDiskRepositoryRoundtrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewDiskStore(root)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	entityID := uuid.New()
	if err := store.Init(ctx, entityID); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	repo, err := store.Open(ctx, entityID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	disk := repo.(*diskRepository)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := disk.AddCommit(Commit{SHA: "aaa", Message: "first", AuthorName: "alice", CreatedAt: base}); err != nil {
		t.Fatalf("AddCommit failed: %v", err)
	}
	if err := disk.AddCommit(Commit{SHA: "bbb", Message: "second", AuthorName: "alice", CreatedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("AddCommit failed: %v", err)
	}
	if err := disk.TagCommit("bbb", "v1"); err != nil {
		t.Fatalf("TagCommit failed: %v", err)
	}
	if err := disk.WriteVisibility(ctx, "aaa", models.VisibilityModerated); err != nil {
		t.Fatalf("WriteVisibility failed: %v", err)
	}

	// A second store over the same root must see the same state
	reopened, err := NewDiskStore(root)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	repo2, err := reopened.Open(ctx, entityID)
	if err != nil {
		t.Fatalf("Open after reopen failed: %v", err)
	}

	commits, err := repo2.ListCommits(ctx)
	if err != nil {
		t.Fatalf("ListCommits failed: %v", err)
	}
	if len(commits) != 2 || commits[0].SHA != "bbb" || commits[1].SHA != "aaa" {
		t.Fatalf("unexpected commits after reopen: %+v", commits)
	}

	tags, err := repo2.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags failed: %v", err)
	}
	if len(tags["bbb"]) != 1 || tags["bbb"][0] != "v1" {
		t.Errorf("unexpected tags: %v", tags)
	}

	v, annotated, err := repo2.ReadVisibility(ctx, "aaa")
	if err != nil {
		t.Fatalf("ReadVisibility failed: %v", err)
	}
	if !annotated || v != models.VisibilityModerated {
		t.Errorf("got (%q, %v), want (moderated, true)", v, annotated)
	}
}

func TestDiskRepositoryCorruptState(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := NewDiskStore(root)
	if err != nil {
		t.Fatalf("NewDiskStore failed: %v", err)
	}
	entityID := uuid.New()
	if err := store.Init(ctx, entityID); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	stateFile := filepath.Join(root, entityID.String(), "repo.json")
	if err := os.WriteFile(stateFile, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to corrupt state file: %v", err)
	}

	repo, err := store.Open(ctx, entityID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := repo.ListCommits(ctx); err == nil {
		t.Fatal("expected error reading corrupt state")
	}
}
