package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/navboard/internal/models"
)

// AggregateOptions tunes AggregateCumulative.
type AggregateOptions struct {
	// Weights scales each entity's raw values before summing. Entities
	// without an entry use a weight of 1.
	Weights map[string]float64

	// CodeToStrategy maps an entity code to its strategy family. Nil groups
	// each entity under its own code.
	CodeToStrategy func(code string) string
}

func (o AggregateOptions) weight(entityID string) float64 {
	if w, ok := o.Weights[entityID]; ok {
		return w
	}
	return 1
}

// CumulativeView is several entities combined into one portfolio.
type CumulativeView struct {
	Raw                []models.ValuationPoint // summed currency values per date
	Normalized         NormalizedSeries        // Raw rebased to 100
	Allocation         []models.AllocationEntry
	StrategyAllocation []models.AllocationEntry
	Cash               models.CashSummary
	Issues             map[string][]Issue // per entity id
}

// AggregateCumulative combines entities into one portfolio series. Raw
// values are summed per date over the union of all entity dates, each entity
// forward-filled from its first observation, and the summed series is then
// normalized once. Cumulative NAV is additive in currency terms rather than an
// average of per-entity percentages.
func AggregateCumulative(entities []models.EntitySeries, flows []models.CashFlowRecord, opts AggregateOptions) CumulativeView {
	view := CumulativeView{Issues: make(map[string][]Issue)}

	cleaned := make([][]models.ValuationPoint, len(entities))
	for i, e := range entities {
		pts, issues := Clean(e.Points)
		cleaned[i] = pts
		if len(issues) > 0 {
			view.Issues[e.EntityID] = issues
		}
	}

	grid := unionDates(cleaned...)
	sums := make([]float64, len(grid))
	for i, e := range entities {
		w := opts.weight(e.EntityID)
		for _, p := range alignIndexed(cleaned[i], grid) {
			sums[p.idx] += p.value * w
		}
	}

	view.Raw = make([]models.ValuationPoint, len(grid))
	for i, d := range grid {
		view.Raw[i] = models.ValuationPoint{Date: d, Value: sums[i]}
	}
	view.Normalized = Normalize(view.Raw)

	latest := make([]models.AllocationEntry, 0, len(entities))
	byStrategy := make(map[string]float64)
	var strategies []string
	for i, e := range entities {
		if len(cleaned[i]) == 0 {
			continue
		}
		v := cleaned[i][len(cleaned[i])-1].Value * opts.weight(e.EntityID)
		latest = append(latest, models.AllocationEntry{Name: e.Name(), LatestValue: v})

		s := e.EntityID
		if opts.CodeToStrategy != nil {
			s = opts.CodeToStrategy(e.EntityID)
		}
		if _, ok := byStrategy[s]; !ok {
			strategies = append(strategies, s)
		}
		byStrategy[s] += v
	}
	view.Allocation = Allocation(latest)

	grouped := make([]models.AllocationEntry, 0, len(strategies))
	for _, s := range strategies {
		grouped = append(grouped, models.AllocationEntry{Name: s, LatestValue: byStrategy[s]})
	}
	view.StrategyAllocation = Allocation(grouped)

	view.Cash = CashTotals(flows)
	return view
}

type indexedValue struct {
	idx   int
	value float64
}

// alignIndexed forward-fills a sorted series onto grid positions, starting at
// the series' first observation.
func alignIndexed(points []models.ValuationPoint, grid []time.Time) []indexedValue {
	out := make([]indexedValue, 0, len(grid))
	j := -1
	for i, g := range grid {
		for j+1 < len(points) && !points[j+1].Date.After(g) {
			j++
		}
		if j >= 0 {
			out = append(out, indexedValue{idx: i, value: points[j].Value})
		}
	}
	return out
}

// Allocation computes each entry's share of the total latest value.
// Entries whose value is exactly zero are excluded. When the remaining
// total is zero no ratio can be formed and the result is empty.
func Allocation(entries []models.AllocationEntry) []models.AllocationEntry {
	out := make([]models.AllocationEntry, 0, len(entries))
	total := 0.0
	for _, e := range entries {
		if e.LatestValue == 0 {
			continue
		}
		out = append(out, e)
		total += e.LatestValue
	}
	if total == 0 {
		return []models.AllocationEntry{}
	}
	for i := range out {
		out[i].Ratio = out[i].LatestValue / total
	}
	return out
}

// CashTotals sums inflows and outflows per scheme and for the whole set.
// Records without a scheme are grouped under their entity id.
func CashTotals(flows []models.CashFlowRecord) models.CashSummary {
	type acc struct {
		in, out decimal.Decimal
		n       int
	}
	total := acc{in: decimal.Zero, out: decimal.Zero}
	schemes := make(map[string]*acc)
	var order []string

	for _, f := range flows {
		key := f.SchemeID
		if key == "" {
			key = f.EntityID
		}
		a, ok := schemes[key]
		if !ok {
			a = &acc{in: decimal.Zero, out: decimal.Zero}
			schemes[key] = a
			order = append(order, key)
		}
		a.n++
		total.n++
		switch {
		case f.Amount.IsPositive():
			a.in = a.in.Add(f.Amount)
			total.in = total.in.Add(f.Amount)
		case f.Amount.IsNegative():
			a.out = a.out.Add(f.Amount.Abs())
			total.out = total.out.Add(f.Amount.Abs())
		}
	}

	toTotals := func(a acc) models.CashTotals {
		return models.CashTotals{
			TotalIn:  a.in.InexactFloat64(),
			TotalOut: a.out.InexactFloat64(),
			NetFlow:  a.in.Sub(a.out).InexactFloat64(),
			Count:    a.n,
		}
	}

	sort.Strings(order)
	summary := models.CashSummary{
		CashTotals: toTotals(total),
		ByScheme:   make([]models.SchemeCashTotals, 0, len(order)),
	}
	for _, k := range order {
		summary.ByScheme = append(summary.ByScheme, models.SchemeCashTotals{SchemeID: k, CashTotals: toTotals(*schemes[k])})
	}
	return summary
}

// CashByMonth sums inflows and outflows per UTC calendar month, ascending.
func CashByMonth(flows []models.CashFlowRecord) []models.CashMonth {
	grouped := make(map[string][]models.CashFlowRecord)
	var months []string
	for _, f := range flows {
		k := MonthKey(f.Date)
		if _, ok := grouped[k]; !ok {
			months = append(months, k)
		}
		grouped[k] = append(grouped[k], f)
	}
	sort.Strings(months)

	out := make([]models.CashMonth, 0, len(months))
	for _, m := range months {
		out = append(out, models.CashMonth{Month: m, CashTotals: CashTotals(grouped[m]).CashTotals})
	}
	return out
}

// InvestmentReturn is the return on invested capital from start to asOf,
// simple for holding periods up to 365 days and annualised beyond.
func InvestmentReturn(currentValue, invested float64, start, asOf time.Time) (pct float64, annualized bool, err error) {
	return AnnualizedReturn(invested, currentValue, DaysBetween(start, asOf))
}
