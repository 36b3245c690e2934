// Package cashflow summarises capital movements into a cash ledger
package cashflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/navboard/internal/analytics"
	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
)

// Service implements CashFlowService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new cash flow service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// GetLedger returns the cash ledger for the given entities, valued at the
// latest NAV date across them. Empty entityIDs selects every entity of the user.
func (s *Service) GetLedger(ctx context.Context, userID string, entityIDs []string) (*models.CashLedger, error) {
	store := s.storage.SeriesStore()

	meta, err := store.GetEntityMetadata(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities for user %s: %w", userID, err)
	}
	ids, err := ResolveEntities(meta, entityIDs)
	if err != nil {
		return nil, err
	}

	latest := make([]models.ValuationPoint, len(ids))
	var flows []models.CashFlowRecord

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			series, err := store.GetValuationSeries(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to load series %s: %w", id, err)
			}
			cleaned, _ := analytics.Clean(series.Points)
			if n := len(cleaned); n > 0 {
				latest[i] = cleaned[n-1]
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		flows, err = store.GetCashFlows(gctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load cash flows: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	current := 0.0
	var asOf time.Time
	for _, p := range latest {
		current += p.Value
		if p.Date.After(asOf) {
			asOf = p.Date
		}
	}
	if asOf.IsZero() {
		asOf = analytics.DateOf(time.Now())
	}

	s.logger.Debug().
		Str("user", userID).
		Int("entities", len(ids)).
		Int("records", len(flows)).
		Msg("Cash ledger built")

	return BuildLedger(flows, current, asOf), nil
}

// BuildLedger summarises flows and compares currentValue against the net
// capital deployed. Capital performance is omitted when there are no flows.
func BuildLedger(flows []models.CashFlowRecord, currentValue float64, asOf time.Time) *models.CashLedger {
	records := make([]models.CashFlowRecord, len(flows))
	copy(records, flows)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	summary := analytics.CashTotals(records)
	ledger := &models.CashLedger{
		Summary: summary,
		Monthly: analytics.CashByMonth(records),
		Records: records,
	}
	if len(records) == 0 {
		return ledger
	}

	first := analytics.DateOf(records[0].Date)
	capital := &models.CapitalPerformance{
		TotalDeposited:        summary.TotalIn,
		TotalWithdrawn:        summary.TotalOut,
		NetCapitalDeployed:    summary.NetFlow,
		CurrentPortfolioValue: currentValue,
		FirstTransactionDate:  &first,
		TransactionCount:      summary.Count,
	}
	if summary.NetFlow > 0 {
		simple := (currentValue - summary.NetFlow) / summary.NetFlow * 100
		capital.SimpleReturnPct = &simple
		if pct, _, err := analytics.InvestmentReturn(currentValue, summary.NetFlow, first, asOf); err == nil {
			capital.AnnualizedReturnPct = &pct
		}
	}
	ledger.Capital = capital
	return ledger
}

// ResolveEntities checks requested ids against the user's entities.
// Empty requested selects all of them.
func ResolveEntities(meta *models.EntityMetadata, requested []string) ([]string, error) {
	if len(requested) == 0 {
		ids := meta.EntityIDs()
		if len(ids) == 0 {
			return nil, fmt.Errorf("no entities for user %s: %w", meta.UserID, models.ErrNotFound)
		}
		return ids, nil
	}

	seen := make(map[string]bool, len(requested))
	ids := make([]string, 0, len(requested))
	for _, id := range requested {
		if meta.Find(id) == nil {
			return nil, fmt.Errorf("entity %s: %w", id, models.ErrUnauthorized)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// Compile-time check
var _ interfaces.CashFlowService = (*Service)(nil)
