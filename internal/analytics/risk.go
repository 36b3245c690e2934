package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/navboard/internal/models"
)

// TradingDaysPerYear scales daily volatility to an annual figure
const TradingDaysPerYear = 252

// DailyReturns converts a sorted series into point-to-point fractional returns.
// Pairs with a zero or non-finite base are skipped.
func DailyReturns(points []models.ValuationPoint) []float64 {
	pts := finite(points)
	if len(pts) < 2 {
		return []float64{}
	}

	returns := make([]float64, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		prev := pts[i-1].Value
		if prev == 0 {
			continue
		}
		returns = append(returns, (pts[i].Value-prev)/prev)
	}
	return returns
}

// AnnualizedVolatility is the sample standard deviation of daily returns
// scaled by sqrt(252), in percent. Nil with fewer than two returns.
func AnnualizedVolatility(points []models.ValuationPoint) *float64 {
	returns := DailyReturns(points)
	if len(returns) < 2 {
		return nil
	}
	sd := stat.StdDev(returns, nil)
	if math.IsNaN(sd) {
		return nil
	}
	return ptr(sd * math.Sqrt(TradingDaysPerYear) * 100)
}

// Correlation is the Pearson correlation of daily returns between two series
// over their common dates. Nil when fewer than three common dates exist.
func Correlation(a, b []models.ValuationPoint) *float64 {
	grid := commonDates(finite(a), finite(b))
	if len(grid) < 3 {
		return nil
	}
	ra := DailyReturns(Align(finite(a), grid))
	rb := DailyReturns(Align(finite(b), grid))
	if len(ra) != len(rb) || len(ra) < 2 {
		return nil
	}
	c := stat.Correlation(ra, rb, nil)
	if math.IsNaN(c) {
		return nil
	}
	return &c
}

// Risk summarises drawdown and volatility for one series.
func Risk(points []models.ValuationPoint) models.RiskSummary {
	return models.RiskSummary{
		CurrentDrawdownPct: CurrentDrawdown(points),
		MaxDrawdownPct:     MaxDrawdown(points),
		VolatilityPct:      AnnualizedVolatility(points),
	}
}

func commonDates(a, b []models.ValuationPoint) []time.Time {
	inB := make(map[time.Time]bool, len(b))
	for _, p := range b {
		inB[p.Date] = true
	}
	var grid []time.Time
	for _, p := range a {
		if inB[p.Date] {
			grid = append(grid, p.Date)
		}
	}
	return grid
}
