package report

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/navboard/internal/models"
)

// FormatSummary renders the headline figures of a view as markdown.
func FormatSummary(view *models.PortfolioView) string {
	var sb strings.Builder
	d := view.PortfolioDetails

	title := "Portfolio"
	if len(d.Names) == 1 {
		title = d.Names[0]
	} else if len(d.Names) > 1 {
		title = fmt.Sprintf("Cumulative (%d entities)", len(d.Names))
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if d.StartDate != "" {
		sb.WriteString(fmt.Sprintf("**Period:** %s to %s\n", d.StartDate, d.EndDate))
	}
	sb.WriteString(fmt.Sprintf("**Latest Value:** %s\n", formatMoney(d.LatestValue)))
	sb.WriteString(fmt.Sprintf("**Absolute Return:** %s\n", formatSignedPct(d.AbsoluteReturnPct)))
	sb.WriteString(fmt.Sprintf("**CAGR:** %s\n", formatSignedPct(d.CAGRPct)))
	sb.WriteString(fmt.Sprintf("**YTD:** %s\n", formatSignedPct(d.YTDReturnPct)))
	sb.WriteString(fmt.Sprintf("**Max Drawdown:** %s\n\n", formatSignedPct(d.MaxDrawdownPct)))

	if len(view.TrailingReturns.Rows) > 0 {
		sb.WriteString("## Trailing Returns\n\n")
		sb.WriteString("| Window | Strategy | Benchmark |\n")
		sb.WriteString("|--------|----------|-----------|\n")
		for _, r := range view.TrailingReturns.Rows {
			window := r.Window
			if r.Annualized {
				window += " (ann.)"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", window, formatSignedPct(r.Strategy), formatSignedPct(r.Benchmark)))
		}
		sb.WriteString("\n")
	}

	if len(view.TopDrawdowns) > 0 {
		sb.WriteString("## Worst Drawdowns\n\n")
		sb.WriteString("| Peak | Trough | Depth | Recovered |\n")
		sb.WriteString("|------|--------|-------|-----------|\n")
		for _, e := range view.TopDrawdowns {
			recovered := "-"
			if e.RecoveryDate != nil {
				recovered = e.RecoveryDate.Format(models.DateLayout)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f%% | %s |\n",
				e.PeakDate.Format(models.DateLayout), e.TroughDate.Format(models.DateLayout), e.WorstDrawdownPct, recovered))
		}
		sb.WriteString("\n")
	}

	if len(view.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range view.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
	}

	return sb.String()
}

func formatSignedPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

// formatMoney renders a value with thousands separators and two decimals.
func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}
