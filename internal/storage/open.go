package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
)

// ReadStore is a store whose truck-days can be read back
type ReadStore interface {
	Store
	Reader
	Ping(ctx context.Context) error
}

// Open opens the configured dataset store
func Open(ctx context.Context, cfg *config.Config) (ReadStore, error) {
	switch cfg.Store {
	case config.StoreTimescale:
		s, err := NewTimescaleStore(ctx, cfg.TimescaleURL())
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreSQLite, "":
		s, err := NewSQLiteStore(filepath.Join(cfg.OutputDir, SQLiteFile))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
