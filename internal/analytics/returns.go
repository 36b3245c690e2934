package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

var (
	// ErrInsufficientData is returned when a series has fewer than two usable
	// points, does not reach back to a fixed window's start date, or has no
	// point inside the requested window.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDivisionByZero is returned when the baseline value is zero or not finite.
	ErrDivisionByZero = errors.New("zero or undefined baseline value")

	// ErrInvalidWindow is returned for unknown window codes or inverted custom ranges.
	ErrInvalidWindow = errors.New("invalid window")
)

// DaysPerYear is the day count used to annualise returns.
const DaysPerYear = 365

// WindowKind names a return horizon
type WindowKind string

const (
	Window10D       WindowKind = "10D"
	Window1W        WindowKind = "1W"
	Window1M        WindowKind = "1M"
	Window3M        WindowKind = "3M"
	Window6M        WindowKind = "6M"
	Window1Y        WindowKind = "1Y"
	Window3Y        WindowKind = "3Y"
	Window5Y        WindowKind = "5Y"
	WindowYTD       WindowKind = "YTD"
	WindowInception WindowKind = "Inception"
	WindowCustom    WindowKind = "Custom"
)

// TrailingHorizons is the fixed horizon set of the trailing-returns table.
var TrailingHorizons = []WindowKind{
	Window10D, Window1W, Window1M, Window3M, Window6M,
	Window1Y, Window3Y, Window5Y, WindowYTD, WindowInception,
}

// Window is a return horizon. Start and End are only used by WindowCustom.
type Window struct {
	Kind  WindowKind
	Start time.Time
	End   time.Time
}

// NamedWindow returns the window for a fixed horizon.
func NamedWindow(kind WindowKind) Window {
	return Window{Kind: kind}
}

// CustomWindow returns a window between two calendar dates.
func CustomWindow(start, end time.Time) Window {
	return Window{Kind: WindowCustom, Start: DateOf(start), End: DateOf(end)}
}

// ParseWindow resolves a horizon code such as "3M", "ytd" or "inception".
func ParseWindow(code string) (Window, error) {
	c := strings.TrimSpace(code)
	for _, k := range TrailingHorizons {
		if strings.EqualFold(c, string(k)) {
			return NamedWindow(k), nil
		}
	}
	return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, code)
}

// String returns the horizon code.
func (w Window) String() string {
	if w.Kind == WindowCustom {
		return fmt.Sprintf("%s..%s", w.Start.Format(models.DateLayout), w.End.Format(models.DateLayout))
	}
	return string(w.Kind)
}

// subYear reports whether the window is a named horizon of one year or less.
// These are never annualised, whatever span the data covers.
func (w Window) subYear() bool {
	switch w.Kind {
	case Window10D, Window1W, Window1M, Window3M, Window6M, Window1Y, WindowYTD:
		return true
	}
	return false
}

// startFrom returns latest minus the window length for fixed-length horizons.
func (w Window) startFrom(latest time.Time) time.Time {
	switch w.Kind {
	case Window10D:
		return latest.AddDate(0, 0, -10)
	case Window1W:
		return latest.AddDate(0, 0, -7)
	case Window1M:
		return addMonths(latest, -1)
	case Window3M:
		return addMonths(latest, -3)
	case Window6M:
		return addMonths(latest, -6)
	case Window1Y:
		return addMonths(latest, -12)
	case Window3Y:
		return addMonths(latest, -36)
	case Window5Y:
		return addMonths(latest, -60)
	}
	return latest
}

// Return computes the return of a sorted series over a window, in percent.
// Windows spanning more than 365 days (3Y, 5Y, Inception, Custom) are
// annualised as (end/start)^(365/days) - 1; named horizons of a year or
// less are always a simple percent change.
func Return(points []models.ValuationPoint, w Window) (models.PeriodReturn, error) {
	pts := finite(points)
	if len(pts) < 2 {
		return models.PeriodReturn{}, ErrInsufficientData
	}

	endIdx := len(pts) - 1
	var startIdx int

	switch w.Kind {
	case WindowInception:
		startIdx = 0

	case WindowYTD:
		year := pts[endIdx].Date.Year()
		first := sort.Search(len(pts), func(i int) bool { return pts[i].Date.Year() >= year })
		// Prior year's last point is the baseline when one exists
		startIdx = first
		if first > 0 {
			startIdx = first - 1
		}

	case WindowCustom:
		if w.End.Before(w.Start) {
			return models.PeriodReturn{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidWindow,
				w.End.Format(models.DateLayout), w.Start.Format(models.DateLayout))
		}
		endIdx = sort.Search(len(pts), func(i int) bool { return pts[i].Date.After(w.End) }) - 1
		if endIdx < 0 {
			return models.PeriodReturn{}, ErrInsufficientData
		}
		startIdx = sort.Search(len(pts), func(i int) bool { return !pts[i].Date.Before(w.Start) })

	case Window10D, Window1W, Window1M, Window3M, Window6M, Window1Y, Window3Y, Window5Y:
		startDate := w.startFrom(pts[endIdx].Date)
		if pts[0].Date.After(startDate) {
			// history is shorter than the horizon
			return models.PeriodReturn{}, ErrInsufficientData
		}
		startIdx = sort.Search(len(pts), func(i int) bool { return !pts[i].Date.Before(startDate) })

	default:
		return models.PeriodReturn{}, fmt.Errorf("%w: %q", ErrInvalidWindow, w.Kind)
	}

	if startIdx >= endIdx {
		return models.PeriodReturn{}, ErrInsufficientData
	}

	return periodReturn(w.String(), pts[startIdx], pts[endIdx], !w.subYear())
}

// Field selects which series of an entity a return is computed on
type Field string

const (
	FieldNAV       Field = "nav"
	FieldBenchmark Field = "benchmark"
)

// ReturnFor computes the return of one of an entity's series over a window.
func ReturnFor(series *models.EntitySeries, w Window, field Field) (models.PeriodReturn, error) {
	switch field {
	case FieldNAV:
		return Return(series.Points, w)
	case FieldBenchmark:
		return Return(series.BenchmarkPoints, w)
	}
	return models.PeriodReturn{}, fmt.Errorf("unknown field %q", field)
}

// TrailingReturn computes the return over the last n calendar days,
// annualised when n exceeds a year.
func TrailingReturn(points []models.ValuationPoint, days int) (models.PeriodReturn, error) {
	if days <= 0 {
		return models.PeriodReturn{}, fmt.Errorf("%w: %d days", ErrInvalidWindow, days)
	}
	pts := finite(points)
	if len(pts) < 2 {
		return models.PeriodReturn{}, ErrInsufficientData
	}

	end := pts[len(pts)-1]
	startDate := end.Date.AddDate(0, 0, -days)
	startIdx := sort.Search(len(pts), func(i int) bool { return !pts[i].Date.Before(startDate) })
	if startIdx >= len(pts)-1 {
		return models.PeriodReturn{}, ErrInsufficientData
	}

	return periodReturn(fmt.Sprintf("%dD", days), pts[startIdx], end, days > DaysPerYear)
}

// AbsoluteReturn is the simple percent change from the first to the last point.
func AbsoluteReturn(points []models.ValuationPoint) (models.PeriodReturn, error) {
	pts := finite(points)
	if len(pts) < 2 {
		return models.PeriodReturn{}, ErrInsufficientData
	}
	return periodReturn("Absolute", pts[0], pts[len(pts)-1], false)
}

// AnnualizedReturn converts a start and end value over a number of days into
// a percent return: simple up to 365 days, (end/start)^(365/days) - 1 beyond.
// A total loss cannot be annualised and is returned as the simple change.
func AnnualizedReturn(startValue, endValue float64, days int) (pct float64, annualized bool, err error) {
	if startValue == 0 || math.IsNaN(startValue) || math.IsInf(startValue, 0) {
		return 0, false, ErrDivisionByZero
	}
	if math.IsNaN(endValue) || math.IsInf(endValue, 0) {
		return 0, false, ErrInsufficientData
	}

	simple := (endValue - startValue) / startValue
	if days <= DaysPerYear {
		return simple * 100, false, nil
	}

	ratio := endValue / startValue
	if ratio <= 0 {
		return simple * 100, false, nil
	}
	return (math.Pow(ratio, DaysPerYear/float64(days)) - 1) * 100, true, nil
}

func periodReturn(label string, start, end models.ValuationPoint, allowAnnualize bool) (models.PeriodReturn, error) {
	days := DaysBetween(start.Date, end.Date)
	r := models.PeriodReturn{
		Window:     label,
		StartDate:  start.Date,
		EndDate:    end.Date,
		StartValue: start.Value,
		EndValue:   end.Value,
		Days:       days,
	}

	var err error
	if allowAnnualize {
		r.ReturnPct, r.Annualized, err = AnnualizedReturn(start.Value, end.Value, days)
	} else {
		r.ReturnPct, _, err = AnnualizedReturn(start.Value, end.Value, 0)
	}
	if err != nil {
		return models.PeriodReturn{}, err
	}
	return r, nil
}

// TrailingTable compares strategy and benchmark returns over every trailing
// horizon, with drawdown and volatility for both. The benchmark is clipped
// to the strategy's date range. Metrics without enough data are nil.
func TrailingTable(nav, benchmark []models.ValuationPoint) models.TrailingReturns {
	nav = finite(nav)
	benchmark = finite(benchmark)
	if len(nav) > 0 {
		benchmark = clip(benchmark, nav[0].Date, nav[len(nav)-1].Date)
	}

	rows := make([]models.TrailingRow, 0, len(TrailingHorizons))
	for _, k := range TrailingHorizons {
		w := NamedWindow(k)
		row := models.TrailingRow{Window: string(k)}
		if r, err := Return(nav, w); err == nil {
			row.Strategy = ptr(r.ReturnPct)
			row.Annualized = r.Annualized
		}
		if r, err := Return(benchmark, w); err == nil {
			row.Benchmark = ptr(r.ReturnPct)
			if row.Strategy == nil {
				row.Annualized = r.Annualized
			}
		}
		rows = append(rows, row)
	}

	return models.TrailingReturns{
		Rows:        rows,
		Strategy:    Risk(nav),
		Benchmark:   Risk(benchmark),
		Correlation: Correlation(nav, benchmark),
	}
}

// clip keeps the points of a sorted series within [from, to].
func clip(points []models.ValuationPoint, from, to time.Time) []models.ValuationPoint {
	lo := sort.Search(len(points), func(i int) bool { return !points[i].Date.Before(from) })
	hi := sort.Search(len(points), func(i int) bool { return points[i].Date.After(to) })
	if lo >= hi {
		return []models.ValuationPoint{}
	}
	return points[lo:hi]
}
