package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashFlowRecord is one capital movement for an entity.
// Positive amounts are capital in, negative amounts capital out.
type CashFlowRecord struct {
	ID       string          `json:"id,omitempty"`
	Date     time.Time       `json:"date"`
	EntityID string          `json:"entity_id"`
	SchemeID string          `json:"scheme_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

// IsInflow returns true if the record moves capital into the entity.
func (r CashFlowRecord) IsInflow() bool {
	return r.Amount.IsPositive()
}

// CashTotals holds gross inflow, gross outflow and net flow for a group of records.
type CashTotals struct {
	TotalIn  float64 `json:"total_in"`
	TotalOut float64 `json:"total_out"` // absolute value of outflows
	NetFlow  float64 `json:"net_flow"`  // total_in - total_out
	Count    int     `json:"count"`
}

// SchemeCashTotals is CashTotals for one scheme.
type SchemeCashTotals struct {
	SchemeID string `json:"scheme_id"`
	CashTotals
}

// CashMonth is CashTotals for one calendar month ("YYYY-MM").
type CashMonth struct {
	Month string `json:"month"`
	CashTotals
}

// CashSummary rolls cash totals up per scheme and for the whole portfolio.
type CashSummary struct {
	CashTotals
	ByScheme []SchemeCashTotals `json:"by_scheme"`
}

// CapitalPerformance compares the current value against the net capital deployed.
type CapitalPerformance struct {
	TotalDeposited        float64    `json:"total_deposited"`
	TotalWithdrawn        float64    `json:"total_withdrawn"`
	NetCapitalDeployed    float64    `json:"net_capital_deployed"`
	CurrentPortfolioValue float64    `json:"current_portfolio_value"`
	SimpleReturnPct       *float64   `json:"simple_return_pct"`
	AnnualizedReturnPct   *float64   `json:"annualized_return_pct"`
	FirstTransactionDate  *time.Time `json:"first_transaction_date,omitempty"`
	TransactionCount      int        `json:"transaction_count"`
}

// CashLedger is the cash-in/out view for a set of entities.
type CashLedger struct {
	Summary CashSummary         `json:"summary"`
	Monthly []CashMonth         `json:"monthly"`
	Capital *CapitalPerformance `json:"capital_performance,omitempty"`
	Records []CashFlowRecord    `json:"records"`
}
