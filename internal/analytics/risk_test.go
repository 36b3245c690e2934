package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyReturns(t *testing.T) {
	r := DailyReturns(series(day(2024, 1, 1), 100, 110, 99, math.NaN(), 0, 5))
	require.Len(t, r, 3)
	assert.InDelta(t, 0.10, r[0], 1e-12)
	assert.InDelta(t, -0.10, r[1], 1e-12)
	assert.InDelta(t, -1.0, r[2], 1e-12)
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Nil(t, AnnualizedVolatility(series(day(2024, 1, 1), 100, 101)))

	flat := AnnualizedVolatility(series(day(2024, 1, 1), 100, 110, 121, 133.1))
	require.NotNil(t, flat)
	assert.InDelta(t, 0.0, *flat, 1e-9, "constant growth has no dispersion")

	vol := AnnualizedVolatility(series(day(2024, 1, 1), 100, 102, 99, 103, 101))
	require.NotNil(t, vol)
	assert.Greater(t, *vol, 0.0)
}

func TestCorrelation(t *testing.T) {
	a := series(day(2024, 1, 1), 100, 102, 99, 103, 101)
	b := series(day(2024, 1, 1), 50, 51, 49.5, 51.5, 50.5)

	c := Correlation(a, b)
	require.NotNil(t, c)
	assert.InDelta(t, 1.0, *c, 1e-9)

	assert.Nil(t, Correlation(a, nil))
	assert.Nil(t, Correlation(a, series(day(2025, 1, 1), 1, 2, 3)), "no common dates")
}

func TestRisk(t *testing.T) {
	r := Risk(series(day(2024, 1, 1), 100, 120, 90, 95))
	require.NotNil(t, r.MaxDrawdownPct)
	assert.InDelta(t, -25.0, *r.MaxDrawdownPct, 1e-9)
	require.NotNil(t, r.CurrentDrawdownPct)
	assert.InDelta(t, (95.0-120)/120*100, *r.CurrentDrawdownPct, 1e-9)
	assert.NotNil(t, r.VolatilityPct)
}
