// Package report renders portfolio views into downloadable documents
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
)

// Sheet names, in workbook order
const (
	SheetSummary    = "Summary"
	SheetDailyNAV   = "Daily NAV"
	SheetMonthly    = "Monthly P&L"
	SheetQuarterly  = "Quarterly P&L"
	SheetTrailing   = "Trailing Returns"
	SheetDrawdowns  = "Drawdowns"
	SheetAllocation = "Allocation"
	SheetCashFlows  = "Cash Flows"
)

// Service implements ReportService
type Service struct {
	logger *common.Logger
}

// NewService creates a new report service
func NewService(logger *common.Logger) *Service {
	return &Service{logger: logger}
}

// ExportWorkbook renders a view as an XLSX workbook. Missing metrics are
// left as empty cells.
func (s *Service) ExportWorkbook(view *models.PortfolioView) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	w := &workbook{f: f}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		w.header = style
	}

	w.summary(view)
	w.dailyNAV(view.DailyNAV)
	w.periods(SheetMonthly, view.MonthlyPnL)
	w.periods(SheetQuarterly, view.QuarterlyPnL)
	w.trailing(view.TrailingReturns)
	w.drawdowns(view.TopDrawdowns)
	w.allocation(view.PortfoliosWithRatios, view.StrategyAllocation)
	w.cashFlows(view.CashInOutData)
	if w.err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", w.err)
	}

	// NewFile creates Sheet1; drop it once the real sheets exist
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(SheetSummary); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Debug().
		Str("view", string(view.ViewType)).
		Int("bytes", buf.Len()).
		Msg("Workbook exported")

	return buf.Bytes(), nil
}

// workbook accumulates the first error so sheet writers stay linear.
type workbook struct {
	f      *excelize.File
	header int
	err    error
}

func (w *workbook) sheet(name string, headers ...any) {
	if w.err != nil {
		return
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = err
		return
	}
	if len(headers) > 0 {
		w.row(name, 1, headers...)
		if w.header != 0 && w.err == nil {
			w.err = w.f.SetRowStyle(name, 1, 1, w.header)
		}
	}
}

func (w *workbook) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetSheetRow(sheet, cell, &values)
}

// cell turns an optional metric into a cell value; nil stays blank.
func cell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func (w *workbook) summary(view *models.PortfolioView) {
	d := view.PortfolioDetails
	w.sheet(SheetSummary, "Metric", "Value")
	rows := [][]any{
		{"View", string(view.ViewType)},
		{"Entities", strings.Join(d.Names, ", ")},
		{"Start date", d.StartDate},
		{"End date", d.EndDate},
		{"Latest value", d.LatestValue},
		{"Latest NAV", d.LatestNAV},
		{"Absolute return %", cell(d.AbsoluteReturnPct)},
		{"CAGR %", cell(d.CAGRPct)},
		{"YTD return %", cell(d.YTDReturnPct)},
		{"Current drawdown %", cell(d.CurrentDrawdownPct)},
		{"Max drawdown %", cell(d.MaxDrawdownPct)},
		{"Benchmark", view.BenchmarkStatus},
	}
	for i, r := range rows {
		w.row(SheetSummary, i+2, r...)
	}
	w.colWidth(SheetSummary, "A", 22)
}

func (w *workbook) dailyNAV(points []models.NAVPoint) {
	w.sheet(SheetDailyNAV, "Date", "NAV", "Value", "Benchmark")
	for i, p := range points {
		w.row(SheetDailyNAV, i+2, p.Date, p.NAV, p.Value, cell(p.Benchmark))
	}
}

func (w *workbook) periods(sheet string, buckets []models.PeriodBucket) {
	w.sheet(sheet, "Period", "First date", "Last date", "First value", "Last value", "Return %", "Net flow", "Cash P&L")
	for i, b := range buckets {
		w.row(sheet, i+2,
			b.PeriodKey,
			b.FirstDate.Format(models.DateLayout),
			b.LastDate.Format(models.DateLayout),
			b.FirstValue, b.LastValue, cell(b.ReturnPct), b.NetFlow, b.CashPnL)
	}
}

func (w *workbook) trailing(t models.TrailingReturns) {
	w.sheet(SheetTrailing, "Window", "Strategy %", "Benchmark %", "Annualised")
	n := 2
	for _, r := range t.Rows {
		w.row(SheetTrailing, n, r.Window, cell(r.Strategy), cell(r.Benchmark), r.Annualized)
		n++
	}
	n++
	w.row(SheetTrailing, n, "Current drawdown %", cell(t.Strategy.CurrentDrawdownPct), cell(t.Benchmark.CurrentDrawdownPct))
	w.row(SheetTrailing, n+1, "Max drawdown %", cell(t.Strategy.MaxDrawdownPct), cell(t.Benchmark.MaxDrawdownPct))
	w.row(SheetTrailing, n+2, "Volatility %", cell(t.Strategy.VolatilityPct), cell(t.Benchmark.VolatilityPct))
	w.row(SheetTrailing, n+3, "Correlation", cell(t.Correlation))
}

func (w *workbook) drawdowns(episodes []models.DrawdownEpisode) {
	w.sheet(SheetDrawdowns, "Peak date", "Trough date", "Recovery date", "Drawdown %", "Drawdown days", "Recovery days", "Peak to peak days")
	for i, e := range episodes {
		var recovery, recoveryDays, peakToPeak any
		if e.RecoveryDate != nil {
			recovery = e.RecoveryDate.Format(models.DateLayout)
		}
		if e.RecoveryPeriodDays != nil {
			recoveryDays = *e.RecoveryPeriodDays
		}
		if e.PeakToPeakDays != nil {
			peakToPeak = *e.PeakToPeakDays
		}
		w.row(SheetDrawdowns, i+2,
			e.PeakDate.Format(models.DateLayout),
			e.TroughDate.Format(models.DateLayout),
			recovery, e.WorstDrawdownPct, e.DrawdownDays, recoveryDays, peakToPeak)
	}
}

func (w *workbook) allocation(entities, strategies []models.AllocationEntry) {
	w.sheet(SheetAllocation, "Name", "Latest value", "Ratio", "Group")
	n := 2
	for _, e := range entities {
		w.row(SheetAllocation, n, e.Name, e.LatestValue, e.Ratio, "entity")
		n++
	}
	for _, e := range strategies {
		w.row(SheetAllocation, n, e.Name, e.LatestValue, e.Ratio, "strategy")
		n++
	}
}

func (w *workbook) cashFlows(ledger models.CashLedger) {
	w.sheet(SheetCashFlows, "Date", "Entity", "Scheme", "Amount")
	n := 2
	for _, r := range ledger.Records {
		w.row(SheetCashFlows, n, r.Date.Format(models.DateLayout), r.EntityID, r.SchemeID, r.Amount.InexactFloat64())
		n++
	}
	n++
	w.row(SheetCashFlows, n, "Total in", ledger.Summary.TotalIn)
	w.row(SheetCashFlows, n+1, "Total out", ledger.Summary.TotalOut)
	w.row(SheetCashFlows, n+2, "Net flow", ledger.Summary.NetFlow)
}

func (w *workbook) colWidth(sheet, col string, width float64) {
	if w.err != nil {
		return
	}
	w.err = w.f.SetColWidth(sheet, col, col, width)
}

// Compile-time check
var _ interfaces.ReportService = (*Service)(nil)
