package cashflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/models"
	"github.com/bobmcallan/navboard/internal/storage/sqlstore"
)

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func flow(id, entity, scheme, date, amount string) models.CashFlowRecord {
	return models.CashFlowRecord{
		ID:       id,
		EntityID: entity,
		SchemeID: scheme,
		Date:     day(date),
		Amount:   decimal.RequireFromString(amount),
	}
}

func testManager(t *testing.T) *sqlstore.Manager {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "navboard.db")
	mgr, err := sqlstore.NewManager(context.Background(), common.NewSilentLogger(), cfg, sqlstore.DialectSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestBuildLedger(t *testing.T) {
	flows := []models.CashFlowRecord{
		flow("c", "QFH0001", "S1", "2023-06-01", "-200"),
		flow("a", "QFH0001", "S1", "2023-01-01", "1000"),
		flow("b", "QFH0002", "", "2023-01-15", "200.50"),
	}

	ledger := BuildLedger(flows, 1500, day("2024-02-05"))

	require.Len(t, ledger.Records, 3)
	assert.Equal(t, "a", ledger.Records[0].ID, "records sorted by date")
	assert.Equal(t, "c", flows[0].ID, "input not reordered")

	assert.InDelta(t, 1200.50, ledger.Summary.TotalIn, 1e-9)
	assert.InDelta(t, 200, ledger.Summary.TotalOut, 1e-9)
	assert.InDelta(t, 1000.50, ledger.Summary.NetFlow, 1e-9)
	require.Len(t, ledger.Monthly, 2)
	assert.Equal(t, "2023-01", ledger.Monthly[0].Month)

	require.NotNil(t, ledger.Capital)
	assert.Equal(t, 3, ledger.Capital.TransactionCount)
	assert.Equal(t, day("2023-01-01"), *ledger.Capital.FirstTransactionDate)
	require.NotNil(t, ledger.Capital.SimpleReturnPct)
	assert.InDelta(t, (1500-1000.50)/1000.50*100, *ledger.Capital.SimpleReturnPct, 1e-9)

	// 400 days held: annualised
	require.NotNil(t, ledger.Capital.AnnualizedReturnPct)
	assert.Less(t, *ledger.Capital.AnnualizedReturnPct, *ledger.Capital.SimpleReturnPct)
}

func TestBuildLedger_NoFlows(t *testing.T) {
	ledger := BuildLedger(nil, 100, day("2024-01-01"))
	assert.Nil(t, ledger.Capital)
	assert.Empty(t, ledger.Records)
	assert.Equal(t, 0, ledger.Summary.Count)
}

func TestBuildLedger_NetWithdrawn(t *testing.T) {
	ledger := BuildLedger([]models.CashFlowRecord{
		flow("a", "X", "", "2024-01-01", "100"),
		flow("b", "X", "", "2024-01-02", "-150"),
	}, 10, day("2024-02-01"))

	require.NotNil(t, ledger.Capital)
	assert.Nil(t, ledger.Capital.SimpleReturnPct)
	assert.Nil(t, ledger.Capital.AnnualizedReturnPct)
}

func TestResolveEntities(t *testing.T) {
	meta := &models.EntityMetadata{UserID: "alice", Entities: []models.Entity{{EntityID: "A"}, {EntityID: "B"}}}

	ids, err := ResolveEntities(meta, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ids)

	ids, err = ResolveEntities(meta, []string{"B", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, ids)

	_, err = ResolveEntities(meta, []string{"A", "Z"})
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	_, err = ResolveEntities(&models.EntityMetadata{UserID: "nobody"}, nil)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestService_GetLedger(t *testing.T) {
	mgr := testManager(t)
	ctx := context.Background()
	store := mgr.Store()

	require.NoError(t, store.SaveEntity(ctx, "alice", models.Entity{EntityID: "QFH0001", SchemeID: "S1"}))
	require.NoError(t, store.SaveEntity(ctx, "alice", models.Entity{EntityID: "QFH0002", SchemeID: "S1"}))
	require.NoError(t, store.SaveEntity(ctx, "bob", models.Entity{EntityID: "ABC0001"}))

	require.NoError(t, store.SaveValuations(ctx, "QFH0001", []models.ValuationPoint{
		{Date: day("2024-01-01"), Value: 1000},
		{Date: day("2024-03-01"), Value: 1100},
	}, nil))
	require.NoError(t, store.SaveValuations(ctx, "QFH0002", []models.ValuationPoint{
		{Date: day("2024-01-01"), Value: 500},
		{Date: day("2024-02-01"), Value: 450},
	}, nil))

	require.NoError(t, store.SaveCashFlow(ctx, flow("a", "QFH0001", "S1", "2024-01-01", "1000")))
	require.NoError(t, store.SaveCashFlow(ctx, flow("b", "QFH0002", "S1", "2024-01-01", "500")))
	require.NoError(t, store.SaveCashFlow(ctx, flow("c", "ABC0001", "", "2024-01-01", "999")))

	svc := NewService(mgr, common.NewSilentLogger())

	ledger, err := svc.GetLedger(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.Summary.Count)
	require.NotNil(t, ledger.Capital)
	assert.InDelta(t, 1550, ledger.Capital.CurrentPortfolioValue, 1e-9)
	assert.InDelta(t, 1500, ledger.Capital.NetCapitalDeployed, 1e-9)

	_, err = svc.GetLedger(ctx, "alice", []string{"ABC0001"})
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}
