package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
)

// Manager implements interfaces.StorageManager over a SQL Store.
type Manager struct {
	store  *Store
	logger *common.Logger
}

// NewManager opens the configured SQL backend and applies the schema.
func NewManager(ctx context.Context, logger *common.Logger, config *common.Config, dialect Dialect) (*Manager, error) {
	dsn := config.Storage.DSN
	if dsn == "" {
		return nil, fmt.Errorf("storage.dsn is required for the %s backend", dialect)
	}

	if dialect == DialectSQLite && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := Open(ctx, logger, dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.db.Close()
		return nil, err
	}

	logger.Info().
		Str("backend", string(dialect)).
		Msg("SQL storage manager initialized")

	return &Manager{store: store, logger: logger}, nil
}

func (m *Manager) SeriesStore() interfaces.SeriesStore {
	return m.store
}

func (m *Manager) Backend() string {
	return string(m.store.dialect)
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.store.db.PingContext(ctx)
}

// Store returns the concrete store.
func (m *Manager) Store() *Store {
	return m.store
}

func (m *Manager) Close() error {
	return m.store.db.Close()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
