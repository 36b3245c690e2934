package portfolio

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/navboard/internal/analytics"
	"github.com/bobmcallan/navboard/internal/models"
)

// Daily point counts above which the chart is drawn from weekly, then
// monthly, closes.
const (
	maxChartPoints  = 750
	maxWeeklyPoints = 3650
)

// RenderNAVChart renders a PNG line chart of a view's normalized NAV.
// Two series: NAV (blue solid) and Benchmark (gray dashed, when present).
// Returns raw PNG bytes.
func RenderNAVChart(view *models.PortfolioView) ([]byte, error) {
	navPts := make([]models.ValuationPoint, 0, len(view.DailyNAV))
	benchPts := make([]models.ValuationPoint, 0, len(view.DailyNAV))
	for _, row := range view.DailyNAV {
		d, err := time.Parse(models.DateLayout, row.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid NAV date %q: %w", row.Date, err)
		}
		navPts = append(navPts, models.ValuationPoint{Date: d, Value: row.NAV})
		if row.Benchmark != nil {
			benchPts = append(benchPts, models.ValuationPoint{Date: d, Value: *row.Benchmark})
		}
	}
	if len(navPts) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(navPts))
	}

	switch {
	case len(navPts) > maxWeeklyPoints:
		navPts = analytics.DownsampleToMonthly(navPts)
		benchPts = analytics.DownsampleToMonthly(benchPts)
	case len(navPts) > maxChartPoints:
		navPts = analytics.DownsampleToWeekly(navPts)
		benchPts = analytics.DownsampleToWeekly(benchPts)
	}

	series := []chart.Series{
		timeSeries("NAV", navPts, chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		}),
	}
	if len(benchPts) >= 2 {
		series = append(series, timeSeries("Benchmark", benchPts, chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		}))
	}

	title := "NAV (rebased to 100)"
	if view.ViewType == models.ViewCumulative {
		title = "Cumulative NAV (rebased to 100)"
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

func timeSeries(name string, points []models.ValuationPoint, style chart.Style) chart.TimeSeries {
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Date
		ys[i] = p.Value
	}
	return chart.TimeSeries{Name: name, Style: style, XValues: xs, YValues: ys}
}
