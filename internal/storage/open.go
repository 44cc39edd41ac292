package storage

import (
	"fmt"

	"github.com/TheMichaelB/credvault/internal/config"
	"github.com/TheMichaelB/credvault/internal/events"
)

// Open builds the record store selected by cfg.Storage.Backend.
func Open(cfg *config.Config, logger *events.Logger) (RecordStore, error) {
	switch cfg.Storage.Backend {
	case "dir":
		return NewDirStore(cfg.RecordsPath(), logger)
	case "sqlite":
		return NewSQLiteStore(cfg.DBPath(), logger)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
