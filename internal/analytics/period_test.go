package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navboard/internal/models"
)

func TestMonthlyPnL_FirstToLastWithinBucket(t *testing.T) {
	pts := []models.ValuationPoint{
		pt(day(2024, 1, 1), 100),
		pt(day(2024, 1, 15), 105),
		pt(day(2024, 1, 31), 110),
		pt(day(2024, 2, 1), 110),
		pt(day(2024, 2, 29), 99),
	}
	flows := []models.CashFlowRecord{
		{Date: day(2024, 1, 1), Amount: decimal.NewFromInt(50)}, // on the first valuation, already in the base
		{Date: day(2024, 1, 15), Amount: decimal.NewFromInt(3)},
		{Date: day(2024, 2, 10), Amount: decimal.NewFromInt(-4)},
	}

	buckets := MonthlyPnL(pts, flows)
	require.Len(t, buckets, 2)

	jan := buckets[0]
	assert.Equal(t, "2024-01", jan.PeriodKey)
	assert.Equal(t, 2024, jan.Year)
	assert.Equal(t, 1, jan.Period)
	require.NotNil(t, jan.ReturnPct)
	assert.InDelta(t, 10.0, *jan.ReturnPct, 1e-9)
	assert.InDelta(t, 3.0, jan.NetFlow, 1e-9)
	assert.InDelta(t, 7.0, jan.CashPnL, 1e-9)

	feb := buckets[1]
	assert.Equal(t, "2024-02", feb.PeriodKey)
	assert.InDelta(t, -10.0, *feb.ReturnPct, 1e-9)
	assert.InDelta(t, -4.0, feb.NetFlow, 1e-9)
	assert.InDelta(t, -7.0, feb.CashPnL, 1e-9)
}

func TestMonthlyPnL_UTCCalendar(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	pts := []models.ValuationPoint{
		pt(day(2024, 1, 30), 100),
		pt(time.Date(2024, 1, 31, 23, 30, 0, 0, est), 101), // 1 Feb in UTC
	}

	buckets := MonthlyPnL(pts, nil)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2024-02", buckets[1].PeriodKey)
}

func TestMonthlyPnL_ZeroFirstValue(t *testing.T) {
	buckets := MonthlyPnL(series(day(2024, 1, 1), 0, 10), nil)
	require.Len(t, buckets, 1)
	assert.Nil(t, buckets[0].ReturnPct)
	assert.InDelta(t, 10.0, buckets[0].CashPnL, 1e-9)
}

func TestQuarterlyPnL(t *testing.T) {
	pts := []models.ValuationPoint{
		pt(day(2024, 1, 2), 100),
		pt(day(2024, 3, 28), 120),
		pt(day(2024, 4, 1), 118),
		pt(day(2024, 12, 31), 130),
	}

	buckets := QuarterlyPnL(pts, nil)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2024-Q1", buckets[0].PeriodKey)
	assert.Equal(t, "2024-Q2", buckets[1].PeriodKey)
	assert.Equal(t, 2, buckets[1].Period)
	assert.InDelta(t, 0.0, *buckets[1].ReturnPct, 1e-9, "single-point bucket")
	assert.Equal(t, "2024-Q4", buckets[2].PeriodKey)
}

func TestYearlyTotal_CompoundsGeometrically(t *testing.T) {
	buckets := []models.PeriodBucket{
		{PeriodKey: "2024-01", Year: 2024, ReturnPct: ptr(5.0)},
		{PeriodKey: "2024-02", Year: 2024, ReturnPct: ptr(-3.0)},
		{PeriodKey: "2024-03", Year: 2024, ReturnPct: ptr(2.0)},
	}

	total := YearlyTotal(buckets, 2024)
	require.NotNil(t, total)
	assert.InDelta(t, (1.05*0.97*1.02-1)*100, *total, 1e-9)
	assert.InDelta(t, 3.887, *total, 1e-3)
	assert.NotEqual(t, 4.0, *total)
}

func TestYearlyTotal_MissingBucketsCountAsZero(t *testing.T) {
	buckets := []models.PeriodBucket{
		{PeriodKey: "2024-01", Year: 2024, ReturnPct: ptr(10.0)},
		{PeriodKey: "2024-02", Year: 2024, ReturnPct: nil},
		{PeriodKey: "2024-06", Year: 2024, ReturnPct: ptr(10.0)},
		{PeriodKey: "2025-01", Year: 2025, ReturnPct: ptr(-1.0)},
	}

	assert.InDelta(t, 21.0, *YearlyTotal(buckets, 2024), 1e-9)
	assert.Nil(t, YearlyTotal(buckets, 2023))

	totals := YearlyTotals(buckets)
	require.Len(t, totals, 2)
	assert.Equal(t, 2024, totals[0].Year)
	assert.Equal(t, 2025, totals[1].Year)
	assert.InDelta(t, -1.0, *totals[1].ReturnPct, 1e-9)
}

func TestYearlyTotal_YearBoundaryUsesPriorClose(t *testing.T) {
	pts := []models.ValuationPoint{
		pt(day(2023, 12, 1), 100),
		pt(day(2023, 12, 29), 100),
		pt(day(2024, 1, 2), 110),
		pt(day(2024, 1, 31), 110),
	}

	buckets := MonthlyPnL(pts, nil)
	totals := YearlyTotals(buckets)
	require.Len(t, totals, 2)
	assert.InDelta(t, 0.0, *totals[0].ReturnPct, 1e-9)
	require.NotNil(t, totals[1].ReturnPct)
	assert.InDelta(t, 10.0, *totals[1].ReturnPct, 1e-9)

	ytd, err := YearToDate(pts, 2024)
	require.NoError(t, err)
	assert.InDelta(t, ytd.ReturnPct, *totals[1].ReturnPct, 1e-9, "yearly total agrees with year to date")

	// the January bucket itself stays first-to-last
	assert.InDelta(t, 0.0, *buckets[1].ReturnPct, 1e-9)
}

func TestYearToDate(t *testing.T) {
	pts := []models.ValuationPoint{
		pt(day(2023, 6, 1), 90),
		pt(day(2023, 12, 29), 100),
		pt(day(2024, 1, 2), 103),
		pt(day(2024, 5, 1), 112),
		pt(day(2025, 1, 2), 120),
	}

	r, err := YearToDate(pts, 2024)
	require.NoError(t, err)
	assert.Equal(t, day(2023, 12, 29), r.StartDate)
	assert.Equal(t, day(2024, 5, 1), r.EndDate)
	assert.InDelta(t, 12.0, r.ReturnPct, 1e-9)

	r, err = YearToDate(pts, 2023)
	require.NoError(t, err)
	assert.InDelta(t, (100.0-90)/90*100, r.ReturnPct, 1e-9)

	_, err = YearToDate(pts, 2026)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = YearToDate(pts[2:3], 2024)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
