// Package analytics provides the returns and risk calculations behind the
// dashboard: normalization, drawdowns, period returns, calendar bucketing and
// multi-entity aggregation. Every function is pure and safe for concurrent use.
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

// DateOf truncates t to its UTC calendar date. All bucketing uses the UTC calendar.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DateOf(b).Sub(DateOf(a)).Hours() / 24))
}

// MonthKey returns "YYYY-MM" for t in UTC.
func MonthKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// QuarterKey returns "YYYY-Qn" for t in UTC.
func QuarterKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d-Q%d", t.Year(), quarterOf(t))
}

func quarterOf(t time.Time) int {
	return (int(t.UTC().Month())-1)/3 + 1
}

// addMonths moves t by n months, clamping to the end of the target month
// so that 31 March minus one month is 29 February, not 2 March.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DownsampleToWeekly keeps the last data point per ISO week.
func DownsampleToWeekly(points []models.ValuationPoint) []models.ValuationPoint {
	if len(points) == 0 {
		return nil
	}

	weekly := make([]models.ValuationPoint, 0)
	for i, p := range points {
		if i == len(points)-1 {
			weekly = append(weekly, p)
			continue
		}
		y1, w1 := p.Date.UTC().ISOWeek()
		y2, w2 := points[i+1].Date.UTC().ISOWeek()
		if w1 != w2 || y1 != y2 {
			weekly = append(weekly, p)
		}
	}

	return weekly
}

// DownsampleToMonthly keeps the last data point per calendar month.
func DownsampleToMonthly(points []models.ValuationPoint) []models.ValuationPoint {
	if len(points) == 0 {
		return nil
	}

	monthly := make([]models.ValuationPoint, 0)
	for i, p := range points {
		// Keep this point if it's the last one, or if the next point is in a different month
		if i == len(points)-1 || MonthKey(points[i+1].Date) != MonthKey(p.Date) {
			monthly = append(monthly, p)
		}
	}

	return monthly
}

// finite drops non-finite points, preserving order.
func finite(points []models.ValuationPoint) []models.ValuationPoint {
	out := make([]models.ValuationPoint, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			out = append(out, p)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
