package analytics

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navboard/internal/models"
)

func prefix3(code string) string {
	if len(code) < 3 {
		return code
	}
	return code[:3]
}

func TestAggregateCumulative_SumsRawThenNormalizes(t *testing.T) {
	d0 := day(2024, 1, 1)
	entities := []models.EntitySeries{
		{EntityID: "A", Points: series(d0, 100, 200)},
		{EntityID: "B", Points: series(d0, 50, 150)},
	}

	view := AggregateCumulative(entities, nil, AggregateOptions{})

	require.Len(t, view.Normalized.Points, 2)
	assert.InDelta(t, 100.0, view.Normalized.Points[0].Value, 1e-9)
	assert.InDelta(t, 350.0/150*100, view.Normalized.Points[1].Value, 1e-9)
	assert.InDelta(t, 233.33, view.Normalized.Points[1].Value, 0.01)
	assert.NotEqual(t, 250.0, view.Normalized.Points[1].Value)
	assert.Equal(t, 350.0, view.Raw[1].Value)
}

func TestAggregateCumulative_ForwardFillsFromFirstObservation(t *testing.T) {
	d0 := day(2024, 1, 1)
	entities := []models.EntitySeries{
		{EntityID: "A", Points: series(d0, 100, 110, 120)},
		{EntityID: "B", Points: []models.ValuationPoint{pt(d0.AddDate(0, 0, 1), 50)}},
	}

	view := AggregateCumulative(entities, nil, AggregateOptions{})

	require.Len(t, view.Raw, 3)
	assert.Equal(t, []float64{100, 160, 170}, []float64{view.Raw[0].Value, view.Raw[1].Value, view.Raw[2].Value})
}

func TestAggregateCumulative_Weights(t *testing.T) {
	d0 := day(2024, 1, 1)
	entities := []models.EntitySeries{
		{EntityID: "A", Points: series(d0, 100, 200)},
		{EntityID: "B", Points: series(d0, 100, 100)},
	}

	view := AggregateCumulative(entities, nil, AggregateOptions{Weights: map[string]float64{"A": 0.5}})

	assert.Equal(t, 150.0, view.Raw[0].Value)
	assert.Equal(t, 200.0, view.Raw[1].Value)
}

func TestAggregateCumulative_AllocationAndStrategies(t *testing.T) {
	d0 := day(2024, 1, 1)
	entities := []models.EntitySeries{
		{EntityID: "QFH0001", DisplayName: "Growth A", Points: series(d0, 100, 300)},
		{EntityID: "QFH0002", DisplayName: "Growth B", Points: series(d0, 100, 100)},
		{EntityID: "ABC0001", DisplayName: "Income", Points: series(d0, 100, 400)},
		{EntityID: "ZZZ0001", DisplayName: "Closed", Points: series(d0, 100, 0)},
	}

	view := AggregateCumulative(entities, nil, AggregateOptions{CodeToStrategy: prefix3})

	require.Len(t, view.Allocation, 3, "zero-value entity is excluded")
	names := []string{view.Allocation[0].Name, view.Allocation[1].Name, view.Allocation[2].Name}
	assert.Equal(t, []string{"Growth A", "Growth B", "Income"}, names)
	assert.InDelta(t, 0.375, view.Allocation[0].Ratio, 1e-9)
	assert.InDelta(t, 0.5, view.Allocation[2].Ratio, 1e-9)

	sum := 0.0
	for _, a := range view.Allocation {
		sum += a.Ratio
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	require.Len(t, view.StrategyAllocation, 2)
	assert.Equal(t, "QFH", view.StrategyAllocation[0].Name)
	assert.Equal(t, 400.0, view.StrategyAllocation[0].LatestValue)
	assert.InDelta(t, 0.5, view.StrategyAllocation[0].Ratio, 1e-9)
}

func TestAggregateCumulative_RecordsIssuesPerEntity(t *testing.T) {
	d0 := day(2024, 1, 1)
	entities := []models.EntitySeries{
		{EntityID: "A", Points: series(d0, 100, math.NaN(), 120)},
		{EntityID: "B", Points: series(d0, 10, 10, 10)},
	}

	view := AggregateCumulative(entities, nil, AggregateOptions{})

	require.Contains(t, view.Issues, "A")
	assert.Len(t, view.Issues["A"], 1)
	assert.NotContains(t, view.Issues, "B")
	assert.Equal(t, 110.0, view.Raw[1].Value)
}

func TestAggregateCumulative_Empty(t *testing.T) {
	view := AggregateCumulative(nil, nil, AggregateOptions{})
	assert.Empty(t, view.Raw)
	assert.True(t, view.Normalized.Empty())
	assert.Empty(t, view.Allocation)
}

func TestAllocation_ZeroTotal(t *testing.T) {
	out := Allocation([]models.AllocationEntry{
		{Name: "long", LatestValue: 5},
		{Name: "short", LatestValue: -5},
	})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestCashTotals(t *testing.T) {
	flows := []models.CashFlowRecord{
		{Date: day(2024, 1, 1), EntityID: "E1", SchemeID: "S1", Amount: decimal.RequireFromString("100.10")},
		{Date: day(2024, 1, 5), EntityID: "E1", SchemeID: "S1", Amount: decimal.RequireFromString("-40.05")},
		{Date: day(2024, 2, 1), EntityID: "E2", Amount: decimal.NewFromInt(60)},
		{Date: day(2024, 2, 2), EntityID: "E2", Amount: decimal.Zero},
	}

	summary := CashTotals(flows)

	assert.InDelta(t, 160.10, summary.TotalIn, 1e-9)
	assert.InDelta(t, 40.05, summary.TotalOut, 1e-9)
	assert.InDelta(t, 120.05, summary.NetFlow, 1e-9)
	assert.Equal(t, 4, summary.Count)

	require.Len(t, summary.ByScheme, 2)
	assert.Equal(t, "E2", summary.ByScheme[0].SchemeID, "records without a scheme group by entity")
	assert.Equal(t, 60.0, summary.ByScheme[0].NetFlow)
	assert.Equal(t, "S1", summary.ByScheme[1].SchemeID)
	assert.InDelta(t, 60.05, summary.ByScheme[1].NetFlow, 1e-9)
}

func TestCashByMonth(t *testing.T) {
	flows := []models.CashFlowRecord{
		{Date: day(2024, 2, 1), Amount: decimal.NewFromInt(60)},
		{Date: day(2024, 1, 1), Amount: decimal.NewFromInt(100)},
		{Date: day(2024, 1, 20), Amount: decimal.NewFromInt(-30)},
	}

	months := CashByMonth(flows)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-01", months[0].Month)
	assert.Equal(t, 70.0, months[0].NetFlow)
	assert.Equal(t, 30.0, months[0].TotalOut)
	assert.Equal(t, "2024-02", months[1].Month)
}

func TestInvestmentReturn_DelegatesToAnnualizedReturn(t *testing.T) {
	start := day(2023, 1, 1)

	pct, ann, err := InvestmentReturn(1100, 1000, start, start.AddDate(0, 0, 200))
	require.NoError(t, err)
	assert.False(t, ann)
	assert.InDelta(t, 10.0, pct, 1e-9)

	asOf := start.AddDate(0, 0, 800)
	pct, ann, err = InvestmentReturn(1500, 1000, start, asOf)
	require.NoError(t, err)
	assert.True(t, ann)
	want, _, _ := AnnualizedReturn(1000, 1500, 800)
	assert.InDelta(t, want, pct, 1e-12)

	_, _, err = InvestmentReturn(1500, 0, start, asOf)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}
