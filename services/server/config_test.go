package server

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func loadFrom(t *testing.T, env map[string]string) (Config, error) {
	t.Helper()
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(env),
	}); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := loadFrom(t, map[string]string{
		"DATABASE_URL": "postgres://localhost/posd",
		"POSD_JWT_KEY": "secret",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.UndoWindow != 30*time.Minute {
		t.Fatalf("undo window = %v", cfg.UndoWindow)
	}
	if cfg.MaxPageSize != 100 {
		t.Fatalf("max page size = %d", cfg.MaxPageSize)
	}
	if cfg.JWTTTL != 8*time.Hour {
		t.Fatalf("jwt ttl = %v", cfg.JWTTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestConfigRequiredAndOverrides(t *testing.T) {
	if _, err := loadFrom(t, map[string]string{"POSD_JWT_KEY": "secret"}); err == nil {
		t.Fatal("missing DATABASE_URL should fail")
	}
	if _, err := loadFrom(t, map[string]string{"DATABASE_URL": "postgres://x"}); err == nil {
		t.Fatal("missing POSD_JWT_KEY should fail")
	}

	cfg, err := loadFrom(t, map[string]string{
		"DATABASE_URL":      "postgres://localhost/posd",
		"POSD_JWT_KEY":      "secret",
		"POSD_UNDO_WINDOW":  "10m",
		"POSD_CORS_ORIGINS": "https://a.example,https://b.example",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UndoWindow != 10*time.Minute {
		t.Fatalf("undo window override = %v", cfg.UndoWindow)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}

	if _, err := loadFrom(t, map[string]string{
		"DATABASE_URL":     "postgres://localhost/posd",
		"POSD_JWT_KEY":     "secret",
		"POSD_UNDO_WINDOW": "-5m",
	}); err == nil {
		t.Fatal("negative undo window should fail validation")
	}
}
