package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
	"github.com/bobmcallan/navboard/internal/storage/rowparse"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Row shapes as stored. Values are untyped so rows written by other tools
// (numbers, strings, decimals) decode without failing the whole query.

type entityRow struct {
	EntityID    string `json:"entity_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	SchemeID    string `json:"scheme_id"`
}

type valuationRow struct {
	EntityID  string `json:"entity_id"`
	NavDate   any    `json:"nav_date"`
	NAV       any    `json:"nav"`
	Benchmark any    `json:"benchmark"`
	Seq       any    `json:"seq,omitempty"`
}

type cashFlowRow struct {
	FlowID   string `json:"flow_id"`
	EntityID string `json:"entity_id"`
	SchemeID string `json:"scheme_id"`
	FlowDate any    `json:"flow_date"`
	Amount   any    `json:"amount"`
}

// SeriesStore implements interfaces.SeriesStore over SurrealDB.
type SeriesStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewSeriesStore(db *surrealdb.DB, logger *common.Logger) *SeriesStore {
	return &SeriesStore{db: db, logger: logger}
}

func (s *SeriesStore) GetValuationSeries(ctx context.Context, entityID string) (*models.EntitySeries, error) {
	ent, err := surrealdb.Select[entityRow](ctx, s.db, surrealmodels.NewRecordID("entity", entityID))
	if err != nil {
		return nil, fmt.Errorf("failed to select entity %s: %w", entityID, err)
	}
	if ent == nil {
		return nil, fmt.Errorf("entity %s: %w", entityID, models.ErrNotFound)
	}

	// seq preserves write order so the last duplicate date wins when cleaned
	sql := "SELECT entity_id, nav_date, nav, benchmark, seq FROM valuation WHERE entity_id = $entity ORDER BY seq"
	results, err := surrealdb.Query[[]valuationRow](ctx, s.db, sql, map[string]any{"entity": entityID})
	if err != nil {
		return nil, fmt.Errorf("failed to query valuations for %s: %w", entityID, err)
	}

	series := &models.EntitySeries{
		EntityID:    entityID,
		DisplayName: ent.DisplayName,
		SchemeID:    ent.SchemeID,
	}

	malformed := 0
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			date, err := parseDate(row.NavDate)
			if err != nil {
				s.logger.Warn().Str("entity", entityID).Interface("date", row.NavDate).Msg("Skipping valuation row with invalid date")
				continue
			}
			value, err := rowparse.Value(row.NAV)
			if err != nil {
				malformed++
			}
			series.Points = append(series.Points, models.ValuationPoint{Date: date, Value: value})

			if row.Benchmark != nil {
				b, err := rowparse.Value(row.Benchmark)
				if err != nil {
					malformed++
				}
				series.BenchmarkPoints = append(series.BenchmarkPoints, models.ValuationPoint{Date: date, Value: b})
			}
		}
	}

	if malformed > 0 {
		s.logger.Warn().Str("entity", entityID).Int("malformed", malformed).Msg("Valuation rows with unparseable values")
	}
	return series, nil
}

func (s *SeriesStore) GetCashFlows(ctx context.Context, entityIDs []string) ([]models.CashFlowRecord, error) {
	flows := make([]models.CashFlowRecord, 0)
	if len(entityIDs) == 0 {
		return flows, nil
	}

	sql := "SELECT flow_id, entity_id, scheme_id, flow_date, amount FROM cash_flow WHERE entity_id IN $entities ORDER BY flow_date"
	results, err := surrealdb.Query[[]cashFlowRow](ctx, s.db, sql, map[string]any{"entities": entityIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flows: %w", err)
	}

	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			date, err := parseDate(row.FlowDate)
			if err != nil {
				s.logger.Warn().Str("id", row.FlowID).Interface("date", row.FlowDate).Msg("Skipping cash flow with invalid date")
				continue
			}
			amount, err := rowparse.Decimal(row.Amount)
			if err != nil {
				s.logger.Warn().Str("id", row.FlowID).Interface("amount", row.Amount).Msg("Skipping cash flow with invalid amount")
				continue
			}
			flows = append(flows, models.CashFlowRecord{
				ID:       row.FlowID,
				Date:     date,
				EntityID: row.EntityID,
				SchemeID: row.SchemeID,
				Amount:   amount,
			})
		}
	}
	return flows, nil
}

func (s *SeriesStore) GetEntityMetadata(ctx context.Context, userID string) (*models.EntityMetadata, error) {
	sql := "SELECT entity_id, user_id, display_name, scheme_id FROM entity WHERE user_id = $user ORDER BY entity_id"
	results, err := surrealdb.Query[[]entityRow](ctx, s.db, sql, map[string]any{"user": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query entities for user %s: %w", userID, err)
	}

	meta := &models.EntityMetadata{UserID: userID, Entities: []models.Entity{}}
	if results != nil && len(*results) > 0 {
		for _, row := range (*results)[0].Result {
			meta.Entities = append(meta.Entities, models.Entity{
				EntityID:    row.EntityID,
				DisplayName: row.DisplayName,
				SchemeID:    row.SchemeID,
			})
		}
	}
	return meta, nil
}

// --- Writers (fixtures and imports) ---

// SaveEntity upserts an entity owned by userID.
func (s *SeriesStore) SaveEntity(ctx context.Context, userID string, e models.Entity) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("entity", e.EntityID),
		"data": entityRow{
			EntityID:    e.EntityID,
			UserID:      userID,
			DisplayName: e.DisplayName,
			SchemeID:    e.SchemeID,
		},
	}
	if _, err := surrealdb.Query[[]entityRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save entity %s: %w", e.EntityID, err)
	}
	return nil
}

// SaveValuations replaces the valuation rows of one entity. benchmark is
// keyed by date; dates absent from it store no benchmark value.
func (s *SeriesStore) SaveValuations(ctx context.Context, entityID string, points []models.ValuationPoint, benchmark map[string]float64) error {
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE valuation WHERE entity_id = $entity", map[string]any{"entity": entityID}); err != nil {
		return fmt.Errorf("failed to clear valuations for %s: %w", entityID, err)
	}

	rows := make([]valuationRow, 0, len(points))
	for i, p := range points {
		date := p.Date.UTC().Format(models.DateLayout)
		row := valuationRow{EntityID: entityID, NavDate: date, NAV: p.Value, Seq: i}
		if b, ok := benchmark[date]; ok {
			row.Benchmark = b
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	if _, err := surrealdb.Query[any](ctx, s.db, "INSERT INTO valuation $rows", map[string]any{"rows": rows}); err != nil {
		return fmt.Errorf("failed to insert valuations for %s: %w", entityID, err)
	}
	return nil
}

// SaveCashFlow upserts one cash-flow record keyed by its id.
func (s *SeriesStore) SaveCashFlow(ctx context.Context, rec models.CashFlowRecord) error {
	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("cash_flow", rec.ID),
		"data": cashFlowRow{
			FlowID:   rec.ID,
			EntityID: rec.EntityID,
			SchemeID: rec.SchemeID,
			FlowDate: rec.Date.UTC().Format(models.DateLayout),
			Amount:   rec.Amount.String(),
		},
	}
	if _, err := surrealdb.Query[[]cashFlowRow](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save cash flow %s: %w", rec.ID, err)
	}
	return nil
}

// parseDate accepts the stored text date or a native datetime.
func parseDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case string:
		return rowparse.Date(v)
	case time.Time:
		return rowparse.Date(v.UTC().Format(models.DateLayout))
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	default:
		return rowparse.Date(fmt.Sprint(v))
	}
}

// Compile-time check
var _ interfaces.SeriesStore = (*SeriesStore)(nil)
