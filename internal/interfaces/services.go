package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

// PortfolioService builds analytics views over a user's entities
type PortfolioService interface {
	// GetView computes an individual or cumulative view.
	// Returns models.ErrUnauthorized if any requested entity is not the user's.
	GetView(ctx context.Context, userID string, req ViewRequest) (*models.PortfolioView, error)

	// ListEntities returns the entities the user may view
	ListEntities(ctx context.Context, userID string) ([]models.Entity, error)

	// GetReturn computes one entity's return over a named or custom window
	GetReturn(ctx context.Context, userID string, req ReturnRequest) (*models.PeriodReturn, error)
}

// ReturnRequest selects an entity series and a window. Window is a horizon
// code ("1M", "YTD", "Inception"); an empty Window with From and To set
// requests a custom range.
type ReturnRequest struct {
	EntityID string
	Window   string
	From     time.Time
	To       time.Time
	Field    string // "nav" (default) or "benchmark"
}

// ViewRequest configures a portfolio view
type ViewRequest struct {
	ViewType  models.ViewType
	EntityIDs []string           // empty selects every entity of the user
	Benchmark string             // external index name; empty uses stored benchmark rows
	From      time.Time          // optional lower bound on dates
	To        time.Time          // optional upper bound on dates
	Weights   map[string]float64 // optional per-entity weights for cumulative views
}

// CashFlowService summarises capital movements
type CashFlowService interface {
	// GetLedger returns the cash ledger and capital performance for the
	// given entities (all of the user's entities when empty)
	GetLedger(ctx context.Context, userID string, entityIDs []string) (*models.CashLedger, error)
}

// ReportService renders views into downloadable documents
type ReportService interface {
	// ExportWorkbook renders a view as an XLSX workbook
	ExportWorkbook(view *models.PortfolioView) ([]byte, error)
}
