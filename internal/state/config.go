package state

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Config selects the state backend. Evaluated once at startup; the
// priority chain is relational, then blob, then local disk.
type Config struct {
	// Driver and DSN configure the relational backend. An empty Driver
	// with a non-empty DSN is inferred from the DSN scheme.
	Driver Driver
	DSN    string

	// GCSBucket and GCSPrefix configure the blob backend.
	GCSBucket string
	GCSPrefix string

	// LocalDir is the local-disk fallback directory.
	LocalDir string
}

// ConfigFromEnv reads state settings from CLOUDTUTOR_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		Driver:    Driver(os.Getenv("CLOUDTUTOR_STATE_DRIVER")),
		DSN:       os.Getenv("CLOUDTUTOR_STATE_DSN"),
		GCSBucket: os.Getenv("CLOUDTUTOR_STATE_GCS_BUCKET"),
		GCSPrefix: os.Getenv("CLOUDTUTOR_STATE_GCS_PREFIX"),
		LocalDir:  os.Getenv("CLOUDTUTOR_STATE_DIR"),
	}
	if cfg.Driver == "" && cfg.DSN != "" {
		cfg.Driver = inferDriver(cfg.DSN)
	}
	return cfg
}

func inferDriver(dsn string) Driver {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open builds the configured backend. Relational when a driver or DSN
// is set, blob when a bucket is set, local disk otherwise.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch {
	case cfg.Driver != "" || cfg.DSN != "":
		driver := cfg.Driver
		if driver == "" {
			driver = inferDriver(cfg.DSN)
		}
		return OpenSQL(ctx, driver, cfg.DSN, logger)
	case cfg.GCSBucket != "":
		return NewBlobStore(ctx, cfg.GCSBucket, cfg.GCSPrefix, logger)
	default:
		return NewLocalStore(cfg.LocalDir, logger)
	}
}
