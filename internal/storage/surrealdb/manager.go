package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/surrealdb/surrealdb.go"
)

// schema defines the read-model tables. SurrealDB v3 errors on querying
// non-existent tables, so each is defined up front.
var schema = []string{
	"DEFINE TABLE IF NOT EXISTS entity SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS valuation SCHEMALESS",
	"DEFINE TABLE IF NOT EXISTS cash_flow SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS entity_user ON TABLE entity FIELDS user_id",
	"DEFINE INDEX IF NOT EXISTS valuation_entity ON TABLE valuation FIELDS entity_id",
	"DEFINE INDEX IF NOT EXISTS cash_flow_entity ON TABLE cash_flow FIELDS entity_id",
}

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger
	series *SeriesStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(ctx context.Context, logger *common.Logger, config *common.Config) (*Manager, error) {
	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	if err := defineSchema(ctx, db); err != nil {
		db.Close(ctx)
		return nil, err
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return &Manager{
		db:     db,
		logger: logger,
		series: NewSeriesStore(db, logger),
	}, nil
}

func defineSchema(ctx context.Context, db *surrealdb.DB) error {
	for _, stmt := range schema {
		if _, err := surrealdb.Query[any](ctx, db, stmt, nil); err != nil {
			return fmt.Errorf("failed to apply schema %q: %w", stmt, err)
		}
	}
	return nil
}

func (m *Manager) SeriesStore() interfaces.SeriesStore {
	return m.series
}

// Store returns the concrete series store, which also exposes the write helpers.
func (m *Manager) Store() *SeriesStore {
	return m.series
}

func (m *Manager) Backend() string {
	return "surrealdb"
}

func (m *Manager) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, m.db, "RETURN true", nil); err != nil {
		return fmt.Errorf("surrealdb ping: %w", err)
	}
	return nil
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
