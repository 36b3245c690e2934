package analytics

import (
	"sort"
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

// DefaultDrawdownLimit is the number of episodes returned when no limit is given.
const DefaultDrawdownLimit = 10

// DrawdownCurve computes the percent decline from the running peak at every
// point. Values are always <= 0 and exactly 0 on a new or equalled peak.
// Non-finite values are skipped.
func DrawdownCurve(points []models.ValuationPoint) []models.DrawdownPoint {
	curve := make([]models.DrawdownPoint, 0, len(points))
	var peak float64
	started := false
	for _, p := range points {
		if !p.Valid() {
			continue
		}
		if !started || p.Value > peak {
			peak = p.Value
			started = true
		}
		if peak <= 0 {
			continue
		}
		dd := 0.0
		if p.Value < peak {
			dd = (p.Value - peak) / peak * 100
		}
		curve = append(curve, models.DrawdownPoint{Date: p.Date, DrawdownPct: dd})
	}
	return curve
}

// Drawdowns extracts every peak-to-trough-to-recovery episode in date order.
// An episode opens on the first drop below the running peak and closes when
// the series makes a new high strictly above that peak. An episode still
// open at the end of the series has nil recovery fields.
func Drawdowns(points []models.ValuationPoint) []models.DrawdownEpisode {
	var episodes []models.DrawdownEpisode
	var current *models.DrawdownEpisode

	var peak float64
	var peakDate time.Time
	started := false

	for _, p := range points {
		if !p.Valid() {
			continue
		}
		if !started {
			peak, peakDate, started = p.Value, p.Date, true
			continue
		}

		switch {
		case p.Value > peak:
			if current != nil {
				recovery := p.Date
				current.RecoveryDate = &recovery
				current.RecoveryPeriodDays = ptr(DaysBetween(current.TroughDate, recovery))
				current.PeakToPeakDays = ptr(DaysBetween(current.PeakDate, recovery))
				episodes = append(episodes, *current)
				current = nil
			}
			peak, peakDate = p.Value, p.Date

		case p.Value < peak && peak > 0:
			if current == nil {
				current = &models.DrawdownEpisode{
					PeakDate:  peakDate,
					PeakValue: peak,
				}
			} else if p.Value >= current.TroughValue {
				continue
			}
			current.TroughDate = p.Date
			current.TroughValue = p.Value
			current.WorstDrawdownPct = (p.Value - peak) / peak * 100
			current.DrawdownDays = DaysBetween(current.PeakDate, p.Date)
		}
	}

	if current != nil {
		episodes = append(episodes, *current)
	}
	return episodes
}

// TopDrawdowns returns the worst episodes, most negative first.
// A non-positive limit uses DefaultDrawdownLimit.
func TopDrawdowns(points []models.ValuationPoint, limit int) []models.DrawdownEpisode {
	if limit <= 0 {
		limit = DefaultDrawdownLimit
	}

	episodes := Drawdowns(points)
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].WorstDrawdownPct < episodes[j].WorstDrawdownPct
	})

	if len(episodes) > limit {
		episodes = episodes[:limit]
	}
	if episodes == nil {
		return []models.DrawdownEpisode{}
	}
	return episodes
}

// MaxDrawdown returns the deepest point of the drawdown curve, or nil with fewer than 2 points.
func MaxDrawdown(points []models.ValuationPoint) *float64 {
	curve := DrawdownCurve(points)
	if len(curve) < 2 {
		return nil
	}
	worst := 0.0
	for _, c := range curve {
		if c.DrawdownPct < worst {
			worst = c.DrawdownPct
		}
	}
	return &worst
}

// CurrentDrawdown returns the drawdown at the latest point, or nil with fewer than 2 points.
func CurrentDrawdown(points []models.ValuationPoint) *float64 {
	curve := DrawdownCurve(points)
	if len(curve) < 2 {
		return nil
	}
	return ptr(curve[len(curve)-1].DrawdownPct)
}
