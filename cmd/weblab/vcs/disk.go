package vcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

// DiskStore persists repository state as JSON files under a root directory,
// one subdirectory per entity. It is a stand-in for a real version-control
// backend with the same capability surface; the cache layer cannot tell the
// difference.
type DiskStore struct {
	root string

	// Serializes writers per process. Cross-process writers are the
	// documented single-writer assumption.
	mu sync.Mutex
}

// NewDiskStore creates a store rooted at root, creating it if needed
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repository root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) dir(entityID uuid.UUID) string {
	return filepath.Join(s.root, entityID.String())
}

// Open returns the repository for entityID
func (s *DiskStore) Open(ctx context.Context, entityID uuid.UUID) (Repository, error) {
	dir := s.dir(entityID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("entity %s: %w", entityID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat repository dir: %w", err)
	}
	return &diskRepository{dir: dir, store: s}, nil
}

// Init creates an empty repository directory for entityID
func (s *DiskStore) Init(ctx context.Context, entityID uuid.UUID) error {
	dir := s.dir(entityID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("repository already exists for entity %s", entityID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create repository dir: %w", err)
	}
	return nil
}

// Teardown removes the repository directory for entityID
func (s *DiskStore) Teardown(ctx context.Context, entityID uuid.UUID) error {
	if err := os.RemoveAll(s.dir(entityID)); err != nil {
		return fmt.Errorf("failed to remove repository dir: %w", err)
	}
	return nil
}

// repoState is the on-disk representation
type repoState struct {
	// oldest first
	Commits []Commit `json:"commits"`

	// tag name -> sha
	Tags map[string]string `json:"tags"`

	// sha -> annotation
	Visibility map[string]models.Visibility `json:"visibility"`
}

type diskRepository struct {
	dir   string
	store *DiskStore
}

func (r *diskRepository) load() (*repoState, error) {
	state := &repoState{
		Tags:       make(map[string]string),
		Visibility: make(map[string]models.Visibility),
	}

	data, err := os.ReadFile(filepath.Join(r.dir, "repo.json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return state, nil
		}
		return nil, fmt.Errorf("failed to read repository state: %w", err)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("corrupt repository state: %w", err)
	}
	return state, nil
}

func (r *diskRepository) save(state *repoState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode repository state: %w", err)
	}

	tmp := filepath.Join(r.dir, "repo.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write repository state: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(r.dir, "repo.json")); err != nil {
		return fmt.Errorf("failed to replace repository state: %w", err)
	}
	return nil
}

// ListCommits enumerates commits newest first
func (r *diskRepository) ListCommits(ctx context.Context) ([]Commit, error) {
	state, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make([]Commit, len(state.Commits))
	for i, c := range state.Commits {
		out[len(state.Commits)-1-i] = c
	}
	return out, nil
}

// Tags returns sha -> tag names
func (r *diskRepository) Tags(ctx context.Context) (map[string][]string, error) {
	state, err := r.load()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for name, sha := range state.Tags {
		out[sha] = append(out[sha], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out, nil
}

// ReadVisibility reads a commit's visibility annotation
func (r *diskRepository) ReadVisibility(ctx context.Context, sha string) (models.Visibility, bool, error) {
	state, err := r.load()
	if err != nil {
		return "", false, err
	}

	v, ok := state.Visibility[sha]
	return v, ok, nil
}

// WriteVisibility persists a commit's visibility annotation
func (r *diskRepository) WriteVisibility(ctx context.Context, sha string, v models.Visibility) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}

	state.Visibility[sha] = v
	return r.save(state)
}

// AddCommit appends a commit; exposed for tooling that seeds disk repos
func (r *diskRepository) AddCommit(commit Commit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}

	state.Commits = append(state.Commits, commit)
	return r.save(state)
}

// TagCommit points tag name at sha; exposed for tooling
func (r *diskRepository) TagCommit(sha, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	state, err := r.load()
	if err != nil {
		return err
	}

	state.Tags[name] = sha
	return r.save(state)
}
