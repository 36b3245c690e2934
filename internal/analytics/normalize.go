package analytics

import (
	"sort"
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

// BaseIndex is the value every normalized series starts at.
const BaseIndex = 100.0

// Issue records a malformed value that was replaced during cleaning.
type Issue struct {
	Date       time.Time `json:"date"`
	Substitute float64   `json:"substitute"`
	Reason     string    `json:"reason"`
}

// NormalizedSeries is a cleaned series rebased so that its first point is 100.
type NormalizedSeries struct {
	Points   []models.ValuationPoint `json:"points"`
	Base     float64                 `json:"base"` // raw value of day 0
	BaseDate time.Time               `json:"base_date"`
	Issues   []Issue                 `json:"issues,omitempty"`
}

// Empty reports whether the series has no points.
func (n NormalizedSeries) Empty() bool {
	return len(n.Points) == 0
}

// Clean sorts points by UTC date, keeps one point per date (the last one in
// input order), drops leading zero or non-finite values and forward-fills
// later non-finite values from the last valid one.
func Clean(points []models.ValuationPoint) ([]models.ValuationPoint, []Issue) {
	if len(points) == 0 {
		return []models.ValuationPoint{}, nil
	}

	sorted := make([]models.ValuationPoint, len(points))
	for i, p := range points {
		sorted[i] = models.ValuationPoint{Date: DateOf(p.Date), Value: p.Value}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	// Dedupe: stable sort keeps input order within a date, so the last wins
	deduped := make([]models.ValuationPoint, 0, len(sorted))
	for _, p := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(p.Date) {
			deduped[n-1] = p
			continue
		}
		deduped = append(deduped, p)
	}

	start := 0
	for start < len(deduped) && (!deduped[start].Valid() || deduped[start].Value == 0) {
		start++
	}

	out := make([]models.ValuationPoint, 0, len(deduped)-start)
	var issues []Issue
	lastValid := 0.0
	for _, p := range deduped[start:] {
		if !p.Valid() {
			issues = append(issues, Issue{Date: p.Date, Substitute: lastValid, Reason: "malformed value forward-filled"})
			p.Value = lastValid
		} else {
			lastValid = p.Value
		}
		out = append(out, p)
	}
	return out, issues
}

// Normalize cleans points and rescales them so the first value is 100.
// Empty input yields an empty series. Normalizing an already normalized
// series returns it unchanged.
func Normalize(points []models.ValuationPoint) NormalizedSeries {
	cleaned, issues := Clean(points)
	if len(cleaned) == 0 {
		return NormalizedSeries{Points: []models.ValuationPoint{}, Issues: issues}
	}

	base := cleaned[0].Value
	factor := BaseIndex / base
	for i := range cleaned {
		cleaned[i].Value *= factor
	}

	return NormalizedSeries{
		Points:   cleaned,
		Base:     base,
		BaseDate: cleaned[0].Date,
		Issues:   issues,
	}
}

// Align forward-fills a cleaned series onto a sorted date grid. Grid dates
// before the first observation are dropped.
func Align(points []models.ValuationPoint, grid []time.Time) []models.ValuationPoint {
	dates := make([]time.Time, len(grid))
	for i, g := range grid {
		dates[i] = DateOf(g)
	}

	out := make([]models.ValuationPoint, 0, len(grid))
	for _, v := range alignIndexed(points, dates) {
		out = append(out, models.ValuationPoint{Date: dates[v.idx], Value: v.value})
	}
	return out
}

// unionDates merges the dates of several sorted series into one sorted grid.
func unionDates(series ...[]models.ValuationPoint) []time.Time {
	seen := make(map[time.Time]bool)
	var grid []time.Time
	for _, s := range series {
		for _, p := range s {
			if !seen[p.Date] {
				seen[p.Date] = true
				grid = append(grid, p.Date)
			}
		}
	}
	sort.Slice(grid, func(i, j int) bool { return grid[i].Before(grid[j]) })
	return grid
}
