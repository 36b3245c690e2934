package analytics

import (
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// series builds daily points starting at start from the given values.
func series(start time.Time, values ...float64) []models.ValuationPoint {
	pts := make([]models.ValuationPoint, len(values))
	for i, v := range values {
		pts[i] = models.ValuationPoint{Date: start.AddDate(0, 0, i), Value: v}
	}
	return pts
}

func pt(d time.Time, v float64) models.ValuationPoint {
	return models.ValuationPoint{Date: d, Value: v}
}
