// Package interfaces defines service contracts for navboard
package interfaces

import (
	"context"

	"github.com/bobmcallan/navboard/internal/models"
)

// StorageManager coordinates the read-model backend
type StorageManager interface {
	// SeriesStore returns the valuation/cash-flow/metadata reader
	SeriesStore() SeriesStore

	// Backend names the active backend ("surrealdb", "postgres", "sqlite")
	Backend() string

	// Ping checks connectivity to the backend
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// SeriesStore reads the persisted portfolio rows. Implementations return
// points in whatever order the backend yields; the analytics layer sorts and
// deduplicates. Values that cannot be parsed are returned as NaN.
type SeriesStore interface {
	// GetValuationSeries returns the NAV and benchmark rows for one entity.
	// Returns models.ErrNotFound when the entity does not exist.
	GetValuationSeries(ctx context.Context, entityID string) (*models.EntitySeries, error)

	// GetCashFlows returns the cash-flow rows for the given entities
	GetCashFlows(ctx context.Context, entityIDs []string) ([]models.CashFlowRecord, error)

	// GetEntityMetadata lists the entities belonging to a user
	GetEntityMetadata(ctx context.Context, userID string) (*models.EntityMetadata, error)
}
