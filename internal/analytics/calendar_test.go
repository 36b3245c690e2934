package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/navboard/internal/models"
)

func TestDateOf(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	assert.Equal(t, day(2024, 3, 9), DateOf(time.Date(2024, 3, 10, 2, 0, 0, 0, ist)))
	assert.Equal(t, day(2024, 3, 10), DateOf(time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(day(2024, 3, 31)))
	assert.Equal(t, "2024-Q1", QuarterKey(day(2024, 3, 31)))
	assert.Equal(t, "2024-Q4", QuarterKey(day(2024, 10, 1)))
}

func TestAddMonths_ClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, day(2024, 2, 29), addMonths(day(2024, 3, 31), -1))
	assert.Equal(t, day(2023, 2, 28), addMonths(day(2024, 2, 29), -12))
	assert.Equal(t, day(2023, 12, 15), addMonths(day(2024, 3, 15), -3))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 366, DaysBetween(day(2024, 1, 1), day(2025, 1, 1)))
	assert.Equal(t, -1, DaysBetween(day(2024, 1, 2), day(2024, 1, 1)))
}

func TestDownsampleToMonthly(t *testing.T) {
	pts := []models.ValuationPoint{
		pt(day(2024, 1, 2), 1), pt(day(2024, 1, 31), 2),
		pt(day(2024, 2, 1), 3), pt(day(2024, 2, 15), 4),
		pt(day(2025, 2, 3), 5),
	}

	monthly := DownsampleToMonthly(pts)
	require.Len(t, monthly, 3)
	assert.Equal(t, []float64{2, 4, 5}, []float64{monthly[0].Value, monthly[1].Value, monthly[2].Value})
	assert.Nil(t, DownsampleToMonthly(nil))
}

func TestDownsampleToWeekly(t *testing.T) {
	// 2024-01-01 is a Monday
	pts := series(day(2024, 1, 1), 1, 2, 3, 4, 5, 6, 7, 8, 9)

	weekly := DownsampleToWeekly(pts)
	require.Len(t, weekly, 2)
	assert.Equal(t, day(2024, 1, 7), weekly[0].Date)
	assert.Equal(t, 9.0, weekly[1].Value)
}
