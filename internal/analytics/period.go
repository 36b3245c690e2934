package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/navboard/internal/models"
)

type bucketKeyFunc func(t time.Time) (key string, year, period int)

func monthBucket(t time.Time) (string, int, int) {
	return MonthKey(t), t.UTC().Year(), int(t.UTC().Month())
}

func quarterBucket(t time.Time) (string, int, int) {
	return QuarterKey(t), t.UTC().Year(), quarterOf(t)
}

// MonthlyPnL buckets a sorted series by UTC calendar month.
func MonthlyPnL(points []models.ValuationPoint, flows []models.CashFlowRecord) []models.PeriodBucket {
	return bucketize(points, flows, monthBucket)
}

// QuarterlyPnL buckets a sorted series by UTC calendar quarter.
func QuarterlyPnL(points []models.ValuationPoint, flows []models.CashFlowRecord) []models.PeriodBucket {
	return bucketize(points, flows, quarterBucket)
}

// bucketize groups consecutive points by calendar key. ReturnPct is the
// change from the first to the last value in each bucket. NetFlow sums the
// cash flows dated after the bucket's first valuation and up to its last,
// and CashPnL is last - first - NetFlow.
func bucketize(points []models.ValuationPoint, flows []models.CashFlowRecord, keyOf bucketKeyFunc) []models.PeriodBucket {
	pts := finite(points)
	buckets := make([]models.PeriodBucket, 0)
	for _, p := range pts {
		key, year, period := keyOf(p.Date)
		if n := len(buckets); n > 0 && buckets[n-1].PeriodKey == key {
			buckets[n-1].LastDate = p.Date
			buckets[n-1].LastValue = p.Value
			continue
		}
		buckets = append(buckets, models.PeriodBucket{
			PeriodKey:  key,
			Year:       year,
			Period:     period,
			FirstDate:  p.Date,
			LastDate:   p.Date,
			FirstValue: p.Value,
			LastValue:  p.Value,
		})
	}

	sortedFlows := make([]models.CashFlowRecord, len(flows))
	copy(sortedFlows, flows)
	sort.SliceStable(sortedFlows, func(i, j int) bool { return sortedFlows[i].Date.Before(sortedFlows[j].Date) })

	for i := range buckets {
		b := &buckets[i]
		net := decimal.Zero
		for _, f := range sortedFlows {
			d := DateOf(f.Date)
			if d.After(b.LastDate) {
				break
			}
			if d.After(b.FirstDate) {
				net = net.Add(f.Amount)
			}
		}
		b.NetFlow = net.InexactFloat64()
		b.CashPnL = b.LastValue - b.FirstValue - b.NetFlow
		if b.FirstValue != 0 {
			b.ReturnPct = ptr((b.LastValue - b.FirstValue) / b.FirstValue * 100)
		}
	}
	return buckets
}

// YearlyTotal compounds the returns of every bucket in a year geometrically:
// (prod(1 + r/100) - 1) * 100. Buckets are chronological. The year's first
// bucket is measured from the prior year's last bucket value when one exists,
// so a move across the year boundary counts towards the new year. Buckets
// with no return, and months or quarters with no bucket at all, count as 0%.
// Nil when the year has no buckets.
func YearlyTotal(buckets []models.PeriodBucket, year int) *float64 {
	growth := 1.0
	found := false
	var prior *models.PeriodBucket
	for i := range buckets {
		b := &buckets[i]
		if b.Year < year {
			prior = b
			continue
		}
		if b.Year != year {
			continue
		}

		r := b.ReturnPct
		if !found && prior != nil && prior.LastValue != 0 {
			r = ptr((b.LastValue - prior.LastValue) / prior.LastValue * 100)
		}
		found = true
		if r != nil {
			growth *= 1 + *r/100
		}
	}
	if !found {
		return nil
	}
	return ptr((growth - 1) * 100)
}

// YearlyTotals returns YearlyTotal for every year present, ascending.
func YearlyTotals(buckets []models.PeriodBucket) []models.YearReturn {
	seen := make(map[int]bool)
	var years []int
	for _, b := range buckets {
		if !seen[b.Year] {
			seen[b.Year] = true
			years = append(years, b.Year)
		}
	}
	sort.Ints(years)

	totals := make([]models.YearReturn, 0, len(years))
	for _, y := range years {
		totals = append(totals, models.YearReturn{Year: y, ReturnPct: YearlyTotal(buckets, y)})
	}
	return totals
}

// YearToDate is the return within a calendar year up to its last point.
// The baseline is the prior year's last value when present, else the first
// value observed in the year.
func YearToDate(points []models.ValuationPoint, year int) (models.PeriodReturn, error) {
	pts := finite(points)
	first := sort.Search(len(pts), func(i int) bool { return pts[i].Date.Year() >= year })
	end := sort.Search(len(pts), func(i int) bool { return pts[i].Date.Year() > year }) - 1
	if first >= len(pts) || end < first {
		return models.PeriodReturn{}, ErrInsufficientData
	}

	start := first
	if first > 0 {
		start = first - 1
	}
	if start >= end {
		return models.PeriodReturn{}, ErrInsufficientData
	}
	return periodReturn(fmt.Sprintf("YTD %d", year), pts[start], pts[end], false)
}
