package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("weblab")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Service.Name != "weblab" {
		t.Errorf("service name = %q, want weblab", cfg.Service.Name)
	}
	if cfg.Service.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Service.Port)
	}
	if cfg.Repo.Backend != "memory" {
		t.Errorf("repo backend = %q, want memory", cfg.Repo.Backend)
	}
	if cfg.Cache.DefaultTTL != 30*time.Second {
		t.Errorf("cache ttl = %v, want 30s", cfg.Cache.DefaultTTL)
	}
	if cfg.RateLimit.PopulatePerMinute != 10 {
		t.Errorf("populate rate limit = %d, want 10", cfg.RateLimit.PopulatePerMinute)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("REPO_BACKEND", "disk")
	t.Setenv("REPO_ROOT", "/tmp/repos")
	t.Setenv("POPULATE_RATE_LIMIT", "3")

	cfg, err := Load("weblab")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Service.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Service.Port)
	}
	if cfg.Repo.Backend != "disk" || cfg.Repo.Root != "/tmp/repos" {
		t.Errorf("repo config not overridden: %+v", cfg.Repo)
	}
	if cfg.RateLimit.PopulatePerMinute != 3 {
		t.Errorf("populate rate limit = %d, want 3", cfg.RateLimit.PopulatePerMinute)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("weblab")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Service.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid port to fail validation")
	}

	cfg = base()
	cfg.Repo.Backend = "s3"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown backend to fail validation")
	}

	cfg = base()
	cfg.Repo.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected empty repo root to fail validation")
	}

	cfg = base()
	cfg.Chaste.BaseURL = "not-a-url"
	if err := cfg.Validate(); err == nil {
		t.Error("expected bad chaste URL to fail validation")
	}

	cfg = base()
	cfg.Database.MaxConns = 1
	cfg.Database.MinConns = 5
	if err := cfg.Validate(); err == nil {
		t.Error("expected max<min conns to fail validation")
	}
}
