package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/modelverse/weblab/cmd/weblab/container"
	"github.com/modelverse/weblab/common/bootstrap"
	"golang.org/x/sync/errgroup"
)

// repopulate rebuilds the cache tables from the entity repositories.
// With no arguments it walks every entity; otherwise each argument is an
// entity id to rebuild.
func main() {
	concurrency := flag.Int("concurrency", 4, "entities populated in parallel")
	flag.Parse()

	ctx := context.Background()

	components, err := bootstrap.Setup(ctx, "repopulate",
		bootstrap.WithoutQueue(),
		bootstrap.WithoutTelemetry(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap repopulate: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}
	defer serviceContainer.Shutdown()

	ids, err := targetIDs(ctx, serviceContainer, flag.Args())
	if err != nil {
		components.Logger.Error("failed to resolve targets", "error", err)
		os.Exit(1)
	}

	components.Logger.Info("repopulating entities", "count", len(ids), "concurrency", *concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := serviceContainer.PopulateService.Populate(gctx, id); err != nil {
				return fmt.Errorf("entity %s: %w", id, err)
			}
			components.Logger.Info("repopulated entity", "entity_id", id)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		components.Logger.Error("repopulation failed", "error", err)
		os.Exit(1)
	}

	components.Logger.Info("repopulation complete", "count", len(ids))
}

func targetIDs(ctx context.Context, c *container.Container, args []string) ([]uuid.UUID, error) {
	if len(args) > 0 {
		ids := make([]uuid.UUID, 0, len(args))
		for _, arg := range args {
			id, err := uuid.Parse(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid entity id %q: %w", arg, err)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}

	entities, err := c.EntityRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(entities))
	for _, entity := range entities {
		ids = append(ids, entity.ID)
	}
	return ids, nil
}
