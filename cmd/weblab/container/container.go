package container

import (
	"context"
	"fmt"

	"github.com/modelverse/weblab/cmd/weblab/repository"
	"github.com/modelverse/weblab/cmd/weblab/service"
	"github.com/modelverse/weblab/cmd/weblab/vcs"
	"github.com/modelverse/weblab/common/bootstrap"
	"github.com/modelverse/weblab/common/cache"
	"github.com/modelverse/weblab/common/clients"
	"github.com/modelverse/weblab/common/ratelimit"
	rediscommon "github.com/modelverse/weblab/common/redis"
	"github.com/redis/go-redis/v9"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	Redis      *rediscommon.Client
	RedisRaw   *redis.Client
	Store      vcs.Store
	Limiter    *ratelimit.Limiter
	Chaste     *clients.ChasteClient

	// Repositories
	EntityRepo *repository.EntityRepository
	CacheRepo  *repository.RepoCacheRepository
	ExpRepo    *repository.ExperimentRepository

	// Services
	EntityService     *service.EntityService
	PopulateService   *service.PopulateService
	VisibilityService *service.VisibilityService
	LookupService     *service.LookupService
	ExperimentService *service.ExperimentService
	Filter            *service.EntityFilter
}

// NewContainer initializes all services and repositories once
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	// Redis is optional: without it the id-set cache falls back to the
	// in-process cache and the populate rate limiter is disabled.
	var (
		redisRaw    *redis.Client
		redisClient *rediscommon.Client
		limiter     *ratelimit.Limiter
		idSets      cache.Cache
	)
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = rediscommon.New(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisRaw = redisClient.GetUnderlying()
		limiter = ratelimit.NewLimiter(redisRaw, 60, log)
		if cfg.Cache.Enabled {
			idSets = cache.NewRedisCache(redisClient)
		}
	} else if cfg.Cache.Enabled {
		idSets = components.Cache
	}

	store, err := newStore(cfg.Repo.Backend, cfg.Repo.Root)
	if err != nil {
		return nil, err
	}

	chaste := clients.NewChasteClient(cfg.Chaste.BaseURL, cfg.Chaste.Timeout, log)

	// Initialize repositories
	entityRepo := repository.NewEntityRepository(components.DB)
	cacheRepo := repository.NewRepoCacheRepository(components.DB)
	expRepo := repository.NewExperimentRepository(components.DB)

	// Initialize services (bottom-up: dependencies first)
	entityService := service.NewEntityService(entityRepo, store, idSets, log)
	populateService := service.NewPopulateService(components.DB, cacheRepo, store, idSets, log)
	visibilityService := service.NewVisibilityService(entityRepo, cacheRepo, idSets, cfg.Cache.DefaultTTL, log)
	lookupService := service.NewLookupService(cacheRepo, store, idSets, log)
	experimentService := service.NewExperimentService(
		expRepo,
		entityRepo,
		lookupService,
		visibilityService,
		chaste,
		components.Queue,
		log,
	)

	filter, err := service.NewEntityFilter()
	if err != nil {
		return nil, fmt.Errorf("failed to build entity filter: %w", err)
	}

	return &Container{
		Components:        components,
		Redis:             redisClient,
		RedisRaw:          redisRaw,
		Store:             store,
		Limiter:           limiter,
		Chaste:            chaste,
		EntityRepo:        entityRepo,
		CacheRepo:         cacheRepo,
		ExpRepo:           expRepo,
		EntityService:     entityService,
		PopulateService:   populateService,
		VisibilityService: visibilityService,
		LookupService:     lookupService,
		ExperimentService: experimentService,
		Filter:            filter,
	}, nil
}

func newStore(backend, root string) (vcs.Store, error) {
	switch backend {
	case "memory":
		return vcs.NewMemoryStore(), nil
	case "disk":
		store, err := vcs.NewDiskStore(root)
		if err != nil {
			return nil, fmt.Errorf("failed to open repository store at %s: %w", root, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown repo backend: %s", backend)
	}
}

// Shutdown releases container-owned resources. Component cleanup runs
// separately through the bootstrap layer.
func (c *Container) Shutdown() {
	if c.RedisRaw != nil {
		if err := c.RedisRaw.Close(); err != nil {
			c.Components.Logger.Warn("failed to close redis client", "error", err)
		}
	}
}
