package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Repo      RepoConfig
	Chaste    ChasteConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	Migrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds settings for the in-process id-set cache
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// RepoConfig holds settings for entity repository storage
type RepoConfig struct {
	// Root directory under which per-entity repositories live.
	// Each entity gets a subdirectory named by its id.
	Root string

	// Backend selects the repository store implementation
	// ("memory" for dev/tests, "disk" otherwise).
	Backend string
}

// ChasteConfig holds settings for the external simulation service
type ChasteConfig struct {
	BaseURL string
	Timeout time.Duration

	// CallbackBase is the externally reachable base URL of this service,
	// used to build the completion callback URL sent with each run.
	CallbackBase string
}

// RateLimitConfig holds settings for the populate rate limiter. The
// limiter needs Redis; it is skipped when Redis is disabled.
type RateLimitConfig struct {
	PopulatePerMinute int64
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "weblab"),
			User:        getEnv("POSTGRES_USER", "weblab"),
			Password:    getEnv("POSTGRES_PASSWORD", "weblab"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
			Migrate:     getEnvBool("POSTGRES_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 30*time.Second),
		},
		Repo: RepoConfig{
			Root:    getEnv("REPO_ROOT", "/var/lib/weblab/repos"),
			Backend: getEnv("REPO_BACKEND", "memory"),
		},
		Chaste: ChasteConfig{
			BaseURL:      getEnv("CHASTE_URL", "http://localhost:8089"),
			Timeout:      getEnvDuration("CHASTE_TIMEOUT", 30*time.Second),
			CallbackBase: getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),
		},
		RateLimit: RateLimitConfig{
			PopulatePerMinute: int64(getEnvInt("POPULATE_RATE_LIMIT", 10)),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", true),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Repo.Root == "" {
		return fmt.Errorf("repository root is required")
	}

	switch c.Repo.Backend {
	case "memory", "disk":
	default:
		return fmt.Errorf("unknown repo backend: %s", c.Repo.Backend)
	}

	if !strings.HasPrefix(c.Chaste.BaseURL, "http") {
		return fmt.Errorf("invalid chaste URL: %s", c.Chaste.BaseURL)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
