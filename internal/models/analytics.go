package models

import "time"

// DrawdownPoint is the drawdown from the running peak on one date, in percent (<= 0).
type DrawdownPoint struct {
	Date        time.Time `json:"date"`
	DrawdownPct float64   `json:"drawdown_pct"`
}

// DrawdownEpisode is one peak-to-trough-to-recovery decline.
// Recovery fields are nil while the episode is still open.
type DrawdownEpisode struct {
	PeakDate           time.Time  `json:"peak_date"`
	PeakValue          float64    `json:"peak_value"`
	TroughDate         time.Time  `json:"trough_date"`
	TroughValue        float64    `json:"trough_value"`
	WorstDrawdownPct   float64    `json:"worst_drawdown_pct"`
	DrawdownDays       int        `json:"drawdown_days"` // peak to trough
	RecoveryDate       *time.Time `json:"recovery_date"`
	RecoveryPeriodDays *int       `json:"recovery_period_days"`
	PeakToPeakDays     *int       `json:"peak_to_peak_days"`
}

// Recovered reports whether the series made a new high after this episode.
func (e DrawdownEpisode) Recovered() bool {
	return e.RecoveryDate != nil
}

// PeriodBucket summarises one calendar month ("YYYY-MM") or quarter ("YYYY-Qn").
// ReturnPct is the percent change from the first to the last value in the bucket;
// CashPnL is the currency change net of cash flows booked in the bucket.
type PeriodBucket struct {
	PeriodKey  string    `json:"period"`
	Year       int       `json:"year"`
	Period     int       `json:"period_index"` // month 1-12 or quarter 1-4
	FirstDate  time.Time `json:"first_date"`
	LastDate   time.Time `json:"last_date"`
	FirstValue float64   `json:"first_value"`
	LastValue  float64   `json:"last_value"`
	ReturnPct  *float64  `json:"return_pct"`
	NetFlow    float64   `json:"net_flow"`
	CashPnL    float64   `json:"cash_pnl"`
}

// YearReturn is the geometric compound of a year's period returns.
type YearReturn struct {
	Year      int      `json:"year"`
	ReturnPct *float64 `json:"return_pct"`
}

// AllocationEntry is one slice of the allocation breakdown.
type AllocationEntry struct {
	Name        string  `json:"name"`
	LatestValue float64 `json:"latest_value"`
	Ratio       float64 `json:"ratio"` // fraction of total, 0-1
}

// PeriodReturn is a resolved return over one window.
type PeriodReturn struct {
	Window     string    `json:"window"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	StartValue float64   `json:"start_value"`
	EndValue   float64   `json:"end_value"`
	Days       int       `json:"days"`
	Annualized bool      `json:"annualized"`
	ReturnPct  float64   `json:"return_pct"`
}

// TrailingRow compares strategy and benchmark over one horizon.
// Nil values mean insufficient data for that horizon.
type TrailingRow struct {
	Window     string   `json:"window"`
	Strategy   *float64 `json:"strategy"`
	Benchmark  *float64 `json:"benchmark"`
	Annualized bool     `json:"annualized"`
}

// RiskSummary holds drawdown and volatility figures for one series.
type RiskSummary struct {
	CurrentDrawdownPct *float64 `json:"current_drawdown_pct"`
	MaxDrawdownPct     *float64 `json:"max_drawdown_pct"`
	VolatilityPct      *float64 `json:"volatility_pct"` // annualised
}

// TrailingReturns is the strategy vs benchmark comparison table.
type TrailingReturns struct {
	Rows        []TrailingRow `json:"rows"`
	Strategy    RiskSummary   `json:"strategy"`
	Benchmark   RiskSummary   `json:"benchmark"`
	Correlation *float64      `json:"correlation"` // of daily returns, strategy vs benchmark
}
