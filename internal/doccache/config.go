package doccache

import (
	"context"
	"fmt"
	"os"
)

// Config selects the cache backend. Evaluated once at startup.
type Config struct {
	// Backend: "memory", "badger", "gcs". Default "memory".
	Backend string

	// BadgerPath is the directory for the badger backend.
	BadgerPath string

	// GCSBucket and GCSPrefix configure the gcs backend.
	GCSBucket string
	GCSPrefix string
}

// ConfigFromEnv reads cache settings from CLOUDTUTOR_* variables.
func ConfigFromEnv() Config {
	cfg := Config{Backend: "memory"}
	if b := os.Getenv("CLOUDTUTOR_CACHE_BACKEND"); b != "" {
		cfg.Backend = b
	}
	if p := os.Getenv("CLOUDTUTOR_CACHE_DIR"); p != "" {
		cfg.BadgerPath = p
		if cfg.Backend == "memory" {
			cfg.Backend = "badger"
		}
	}
	if b := os.Getenv("CLOUDTUTOR_CACHE_GCS_BUCKET"); b != "" {
		cfg.GCSBucket = b
		cfg.Backend = "gcs"
	}
	cfg.GCSPrefix = os.Getenv("CLOUDTUTOR_CACHE_GCS_PREFIX")
	return cfg
}

// NewBackend builds the configured backend.
func NewBackend(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "badger":
		if cfg.BadgerPath == "" {
			return nil, fmt.Errorf("badger cache backend requires CLOUDTUTOR_CACHE_DIR")
		}
		return NewBadgerBackend(cfg.BadgerPath)
	case "gcs":
		return NewGCSBackend(ctx, cfg.GCSBucket, cfg.GCSPrefix)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}
