package vcs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

// MemoryStore keeps repositories in process memory. It backs development
// deployments and tests; production wires a store over the real
// version-control backend.
type MemoryStore struct {
	mu    sync.RWMutex
	repos map[uuid.UUID]*MemoryRepository
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		repos: make(map[uuid.UUID]*MemoryRepository),
	}
}

// Open returns the repository for entityID
func (s *MemoryStore) Open(ctx context.Context, entityID uuid.UUID) (Repository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repos[entityID]
	if !ok {
		return nil, fmt.Errorf("entity %s: %w", entityID, ErrNotFound)
	}
	return repo, nil
}

// OpenMemory is Open without the interface wrapping, for tests that need to
// seed commits directly.
func (s *MemoryStore) OpenMemory(entityID uuid.UUID) (*MemoryRepository, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, ok := s.repos[entityID]
	return repo, ok
}

// Init creates an empty repository for entityID
func (s *MemoryStore) Init(ctx context.Context, entityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.repos[entityID]; exists {
		return fmt.Errorf("repository already exists for entity %s", entityID)
	}
	s.repos[entityID] = NewMemoryRepository()
	return nil
}

// Teardown removes the repository for entityID
func (s *MemoryStore) Teardown(ctx context.Context, entityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.repos, entityID)
	return nil
}

// MemoryRepository is an append-only commit log with tags and per-commit
// visibility annotations, all held in memory.
type MemoryRepository struct {
	mu sync.RWMutex

	// newest last; ListCommits reverses
	commits []Commit

	// tag name -> sha
	tags map[string]string

	// sha -> annotation
	visibility map[string]models.Visibility
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tags:       make(map[string]string),
		visibility: make(map[string]models.Visibility),
	}
}

// AddCommit appends a commit to the history
func (r *MemoryRepository) AddCommit(sha, message, author string, createdAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commits = append(r.commits, Commit{
		SHA:        sha,
		Message:    message,
		AuthorName: author,
		CreatedAt:  createdAt,
	})
}

// TagCommit points tag name at sha
func (r *MemoryRepository) TagCommit(sha, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tags[name] = sha
}

// Rewrite replaces the whole history, simulating a force push
func (r *MemoryRepository) Rewrite(commits []Commit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.commits = commits

	// Drop tags and annotations that no longer resolve
	present := make(map[string]bool, len(commits))
	for _, c := range commits {
		present[c.SHA] = true
	}
	for name, sha := range r.tags {
		if !present[sha] {
			delete(r.tags, name)
		}
	}
	for sha := range r.visibility {
		if !present[sha] {
			delete(r.visibility, sha)
		}
	}
}

// ListCommits enumerates commits newest first
func (r *MemoryRepository) ListCommits(ctx context.Context) ([]Commit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Commit, len(r.commits))
	for i, c := range r.commits {
		out[len(r.commits)-1-i] = c
	}
	return out, nil
}

// Tags returns sha -> tag names
func (r *MemoryRepository) Tags(ctx context.Context) (map[string][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]string)
	for name, sha := range r.tags {
		out[sha] = append(out[sha], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out, nil
}

// ReadVisibility reads a commit's visibility annotation
func (r *MemoryRepository) ReadVisibility(ctx context.Context, sha string) (models.Visibility, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.visibility[sha]
	return v, ok, nil
}

// WriteVisibility persists a commit's visibility annotation
func (r *MemoryRepository) WriteVisibility(ctx context.Context, sha string, v models.Visibility) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.visibility[sha] = v
	return nil
}
