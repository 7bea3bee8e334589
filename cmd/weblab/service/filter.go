package service

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/modelverse/weblab/cmd/weblab/models"
)

// EntityListing is one row of an entity listing as seen by filters and the
// API: the entity plus the derived visibility of its latest cached version.
type EntityListing struct {
	Entity     *models.Entity    `json:"entity"`
	Visibility models.Visibility `json:"visibility"`
	LatestSHA  string            `json:"latest_sha,omitempty"`
}

// EntityFilter evaluates caller-supplied CEL expressions against entity
// listings, e.g. `kind == "model" && visibility != "private"`. Compiled
// programs are cached by expression.
type EntityFilter struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEntityFilter creates a filter with the listing fields declared
func NewEntityFilter() (*EntityFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("author", cel.StringType),
		cel.Variable("visibility", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	return &EntityFilter{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Matches evaluates expr against one listing row
func (f *EntityFilter) Matches(expr string, row *EntityListing) (bool, error) {
	prg, err := f.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"name":       row.Entity.Name,
		"kind":       string(row.Entity.Kind),
		"author":     row.Entity.AuthorID,
		"visibility": string(row.Visibility),
	})
	if err != nil {
		return false, fmt.Errorf("filter evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter did not return boolean, got %T", out.Value())
	}

	return result, nil
}

func (f *EntityFilter) program(expr string) (cel.Program, error) {
	f.mu.RLock()
	prg, exists := f.cache[expr]
	f.mu.RUnlock()

	if exists {
		return prg, nil
	}

	ast, issues := f.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", issues.Err())
	}

	prg, err := f.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}

	f.mu.Lock()
	f.cache[expr] = prg
	f.mu.Unlock()

	return prg, nil
}
