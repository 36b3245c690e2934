package sqlstore

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navboard/internal/analytics"
	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/models"
)

// testStore opens a migrated SQLite store in a temp directory.
func testStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	store, err := Open(ctx, common.NewSilentLogger(), DialectSQLite, filepath.Join(t.TempDir(), "navboard.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))

	t.Cleanup(func() { store.DB().Close() })
	return store
}

// seed inserts the fixture rows shared by the store tests.
func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	exec := func(query string, args ...any) {
		_, err := s.DB().ExecContext(ctx, s.Rebind(query), args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO entities (entity_id, user_id, display_name, scheme_id) VALUES (?, ?, ?, ?)`, "QFH0001", "alice", "Growth A", "S1")
	exec(`INSERT INTO entities (entity_id, user_id, display_name, scheme_id) VALUES (?, ?, ?, ?)`, "QFH0002", "alice", "Growth B", "S1")
	exec(`INSERT INTO entities (entity_id, user_id, display_name, scheme_id) VALUES (?, ?, ?, ?)`, "ABC0001", "bob", "Income", "S2")

	exec(`INSERT INTO valuations (entity_id, nav_date, nav, benchmark) VALUES (?, ?, ?, ?)`, "QFH0001", "2024-01-02", "100.00", "2000")
	exec(`INSERT INTO valuations (entity_id, nav_date, nav, benchmark) VALUES (?, ?, ?, ?)`, "QFH0001", "2024-01-01", "99.50", nil)
	exec(`INSERT INTO valuations (entity_id, nav_date, nav, benchmark) VALUES (?, ?, ?, ?)`, "QFH0001", "2024-01-03", "n/a", "2010.5")
	exec(`INSERT INTO valuations (entity_id, nav_date, nav, benchmark) VALUES (?, ?, ?, ?)`, "QFH0001", "not-a-date", "101", nil)

	exec(`INSERT INTO cash_flows (id, entity_id, scheme_id, flow_date, amount) VALUES (?, ?, ?, ?, ?)`, "cf1", "QFH0001", "S1", "2024-01-05", "1000.25")
	exec(`INSERT INTO cash_flows (id, entity_id, scheme_id, flow_date, amount) VALUES (?, ?, ?, ?, ?)`, "cf2", "QFH0002", "S1", "2024-01-02", "-250")
	exec(`INSERT INTO cash_flows (id, entity_id, scheme_id, flow_date, amount) VALUES (?, ?, ?, ?, ?)`, "cf3", "QFH0002", "", "2024-01-03", "oops")
	exec(`INSERT INTO cash_flows (id, entity_id, scheme_id, flow_date, amount) VALUES (?, ?, ?, ?, ?)`, "cf4", "ABC0001", "S2", "2024-01-04", "50")
}

func TestStore_GetValuationSeries(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	series, err := s.GetValuationSeries(context.Background(), "QFH0001")
	require.NoError(t, err)

	assert.Equal(t, "Growth A", series.DisplayName)
	assert.Equal(t, "S1", series.SchemeID)
	require.Len(t, series.Points, 3, "row with invalid date is skipped")

	byDate := make(map[string]float64)
	for _, p := range series.Points {
		byDate[p.Date.Format(models.DateLayout)] = p.Value
	}
	assert.Equal(t, 99.5, byDate["2024-01-01"])
	assert.Equal(t, 100.0, byDate["2024-01-02"])
	assert.True(t, math.IsNaN(byDate["2024-01-03"]), "malformed NAV is carried as NaN")

	require.Len(t, series.BenchmarkPoints, 2, "rows without a benchmark contribute no benchmark point")
}

func TestStore_GetValuationSeries_DuplicateDatesKeepWriteOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveEntity(ctx, "alice", models.Entity{EntityID: "DUP0001"}))

	exec := func(date, nav string) {
		_, err := s.DB().ExecContext(ctx, s.Rebind(`INSERT INTO valuations (entity_id, nav_date, nav) VALUES (?, ?, ?)`), "DUP0001", date, nav)
		require.NoError(t, err)
	}
	exec("2024-01-02", "101")
	exec("2024-01-01", "100")
	exec("2024-01-02", "105")
	exec("2024-01-01", "99")

	series, err := s.GetValuationSeries(ctx, "DUP0001")
	require.NoError(t, err)
	require.Len(t, series.Points, 4)
	values := make([]float64, len(series.Points))
	for i, p := range series.Points {
		values[i] = p.Value
	}
	assert.Equal(t, []float64{101, 100, 105, 99}, values, "rows come back in write order")

	cleaned, _ := analytics.Clean(series.Points)
	require.Len(t, cleaned, 2)
	assert.Equal(t, 99.0, cleaned[0].Value)
	assert.Equal(t, 105.0, cleaned[1].Value)
}

func TestStore_GetValuationSeries_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetValuationSeries(context.Background(), "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestStore_GetCashFlows(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	flows, err := s.GetCashFlows(context.Background(), []string{"QFH0001", "QFH0002"})
	require.NoError(t, err)
	require.Len(t, flows, 2, "unparseable amount is skipped")

	assert.Equal(t, "cf2", flows[0].ID, "ordered by date")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), flows[0].Date)
	assert.Equal(t, "-250", flows[0].Amount.String())
	assert.Equal(t, "1000.25", flows[1].Amount.String())

	empty, err := s.GetCashFlows(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_GetEntityMetadata(t *testing.T) {
	s := testStore(t)
	seed(t, s)

	meta, err := s.GetEntityMetadata(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"QFH0001", "QFH0002"}, meta.EntityIDs())

	none, err := s.GetEntityMetadata(context.Background(), "mallory")
	require.NoError(t, err)
	assert.Empty(t, none.Entities)
}

func TestStore_Rebind(t *testing.T) {
	pg := NewStore(nil, DialectPostgres, common.NewSilentLogger())
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y IN ($2,$3)", pg.Rebind("SELECT a FROM t WHERE x = ? AND y IN (?,?)"))

	lite := NewStore(nil, DialectSQLite, common.NewSilentLogger())
	assert.Equal(t, "x = ?", lite.Rebind("x = ?"))
}

func TestNewManager_SQLite(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "nested", "navboard.db")

	mgr, err := NewManager(context.Background(), common.NewSilentLogger(), cfg, DialectSQLite)
	require.NoError(t, err)
	defer mgr.Close()

	assert.Equal(t, "sqlite", mgr.Backend())
	assert.NoError(t, mgr.Ping(context.Background()))
	assert.NotNil(t, mgr.SeriesStore())

	meta, err := mgr.SeriesStore().GetEntityMetadata(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Empty(t, meta.Entities)
}

func TestNewManager_RequiresDSN(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.DSN = ""
	_, err := NewManager(context.Background(), common.NewSilentLogger(), cfg, DialectSQLite)
	assert.Error(t, err)
}

func TestStore_Writers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	d := func(v string) time.Time {
		tm, _ := time.Parse(models.DateLayout, v)
		return tm
	}

	require.NoError(t, s.SaveEntity(ctx, "alice", models.Entity{EntityID: "QFH0001", DisplayName: "Old"}))
	require.NoError(t, s.SaveEntity(ctx, "alice", models.Entity{EntityID: "QFH0001", DisplayName: "Growth"}))
	require.NoError(t, s.SaveValuations(ctx, "QFH0001", []models.ValuationPoint{
		{Date: d("2024-01-01"), Value: 100},
		{Date: d("2024-01-02"), Value: 100.125},
	}, map[string]float64{"2024-01-02": 2000}))
	require.NoError(t, s.SaveCashFlow(ctx, models.CashFlowRecord{ID: "cf1", Date: d("2024-01-01"), EntityID: "QFH0001", Amount: decimal.RequireFromString("10.10")}))
	require.NoError(t, s.SaveCashFlow(ctx, models.CashFlowRecord{ID: "cf1", Date: d("2024-01-01"), EntityID: "QFH0001", Amount: decimal.RequireFromString("20.20")}))

	meta, err := s.GetEntityMetadata(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, meta.Entities, 1)
	assert.Equal(t, "Growth", meta.Entities[0].DisplayName)

	series, err := s.GetValuationSeries(ctx, "QFH0001")
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	require.Len(t, series.BenchmarkPoints, 1)
	assert.Equal(t, 2000.0, series.BenchmarkPoints[0].Value)

	flows, err := s.GetCashFlows(ctx, []string{"QFH0001"})
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.True(t, flows[0].Amount.Equal(decimal.RequireFromString("20.20")))
}
