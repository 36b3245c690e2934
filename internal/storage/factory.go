// Package storage selects the read-model backend.
package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/storage/sqlstore"
	"github.com/bobmcallan/navboard/internal/storage/surrealdb"
)

// Backend type constants.
const (
	BackendSurrealDB = "surrealdb"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
)

// NewStorageManager creates a storage manager based on the configuration.
// Supported backends: "surrealdb", "postgres", "sqlite" (default).
func NewStorageManager(ctx context.Context, logger *common.Logger, config *common.Config) (interfaces.StorageManager, error) {
	backend := config.Storage.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSurrealDB:
		return surrealdb.NewManager(ctx, logger, config)

	case BackendPostgres:
		return sqlstore.NewManager(ctx, logger, config, sqlstore.DialectPostgres)

	case BackendSQLite:
		return sqlstore.NewManager(ctx, logger, config, sqlstore.DialectSQLite)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: surrealdb, postgres, sqlite)", backend)
	}
}
