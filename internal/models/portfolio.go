package models

// ViewType selects between a single-entity and a combined portfolio view
type ViewType string

const (
	ViewIndividual ViewType = "individual"
	ViewCumulative ViewType = "cumulative"
)

// Benchmark availability reported alongside a view
const (
	BenchmarkAvailable   = "available"
	BenchmarkUnavailable = "unavailable"
	BenchmarkNone        = "none"
)

// NAVPoint is one row of the daily NAV chart, rebased to 100.
type NAVPoint struct {
	Date      string   `json:"date"`
	NAV       float64  `json:"nav"`
	Value     float64  `json:"value"` // un-normalized (summed for cumulative views)
	Benchmark *float64 `json:"benchmark,omitempty"`
}

// PortfolioDetails is the headline summary of a view.
type PortfolioDetails struct {
	EntityIDs          []string            `json:"entity_ids"`
	Names              []string            `json:"names"`
	StartDate          string              `json:"start_date,omitempty"`
	EndDate            string              `json:"end_date,omitempty"`
	LatestValue        float64             `json:"latest_value"`
	LatestNAV          float64             `json:"latest_nav"`
	AbsoluteReturnPct  *float64            `json:"absolute_return_pct"`
	CAGRPct            *float64            `json:"cagr_pct"`
	YTDReturnPct       *float64            `json:"ytd_return_pct"`
	CurrentDrawdownPct *float64            `json:"current_drawdown_pct"`
	MaxDrawdownPct     *float64            `json:"max_drawdown_pct"`
	BenchmarkName      string              `json:"benchmark_name,omitempty"`
	Capital            *CapitalPerformance `json:"capital_performance,omitempty"`
}

// PortfolioView is the full analytics payload for one dashboard request.
type PortfolioView struct {
	ViewType             ViewType          `json:"view_type"`
	DailyNAV             []NAVPoint        `json:"dailyNAV"`
	PortfolioDetails     PortfolioDetails  `json:"portfolioDetails"`
	MonthlyPnL           []PeriodBucket    `json:"monthlyPnL"`
	QuarterlyPnL         []PeriodBucket    `json:"quarterlyPnL"`
	YearlyReturns        []YearReturn      `json:"yearlyReturns"`
	CashInOutData        CashLedger        `json:"cashInOutData"`
	DrawdownCurve        []DrawdownPoint   `json:"drawdownCurve"`
	TopDrawdowns         []DrawdownEpisode `json:"topDrawdowns"`
	TrailingReturns      TrailingReturns   `json:"trailingReturns"`
	PortfoliosWithRatios []AllocationEntry `json:"portfoliosWithRatios"`
	StrategyAllocation   []AllocationEntry `json:"strategyAllocation,omitempty"`
	BenchmarkStatus      string            `json:"benchmark_status"`
	Warnings             []string          `json:"warnings,omitempty"`
}
