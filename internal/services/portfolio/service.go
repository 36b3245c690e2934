// Package portfolio builds returns and risk views over a user's entities
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/navboard/internal/analytics"
	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
	"github.com/bobmcallan/navboard/internal/services/cashflow"
)

// Service implements PortfolioService
type Service struct {
	storage        interfaces.StorageManager
	benchmark      interfaces.BenchmarkClient // nil when no index service is configured
	logger         *common.Logger
	drawdownLimit  int
	codeToStrategy func(string) string
}

// NewService creates a new portfolio service
func NewService(
	storage interfaces.StorageManager,
	benchmark interfaces.BenchmarkClient,
	config *common.Config,
	logger *common.Logger,
) *Service {
	limit := config.Analytics.DrawdownLimit
	if limit <= 0 {
		limit = analytics.DefaultDrawdownLimit
	}
	return &Service{
		storage:        storage,
		benchmark:      benchmark,
		logger:         logger,
		drawdownLimit:  limit,
		codeToStrategy: PrefixStrategy(config.Analytics.StrategyPrefixLength),
	}
}

// PrefixStrategy maps an account code to its strategy family: the leading
// letters of the code, up to n of them, upper-cased. Codes without a
// leading letter are their own family.
func PrefixStrategy(n int) func(code string) string {
	return func(code string) string {
		var b strings.Builder
		for _, r := range code {
			if !unicode.IsLetter(r) || b.Len() >= n {
				break
			}
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() == 0 {
			return code
		}
		return b.String()
	}
}

// ListEntities returns the entities the user may view
func (s *Service) ListEntities(ctx context.Context, userID string) ([]models.Entity, error) {
	meta, err := s.storage.SeriesStore().GetEntityMetadata(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities for user %s: %w", userID, err)
	}
	return meta.Entities, nil
}

// GetView computes an individual or cumulative view. Entities outside the
// user's set are rejected before anything is fetched. A storage failure
// for any entity fails the request; a benchmark failure only marks the
// benchmark unavailable.
func (s *Service) GetView(ctx context.Context, userID string, req interfaces.ViewRequest) (*models.PortfolioView, error) {
	if req.ViewType == "" {
		req.ViewType = models.ViewIndividual
	}
	if req.ViewType != models.ViewIndividual && req.ViewType != models.ViewCumulative {
		return nil, fmt.Errorf("view type %q: %w", req.ViewType, models.ErrInvalidRequest)
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return nil, fmt.Errorf("range ends before it starts: %w", models.ErrInvalidRequest)
	}

	store := s.storage.SeriesStore()
	meta, err := store.GetEntityMetadata(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities for user %s: %w", userID, err)
	}

	ids, err := cashflow.ResolveEntities(meta, req.EntityIDs)
	if err != nil {
		return nil, err
	}
	if req.ViewType == models.ViewIndividual {
		if len(req.EntityIDs) > 1 {
			return nil, fmt.Errorf("individual view takes one entity, got %d: %w", len(req.EntityIDs), models.ErrInvalidRequest)
		}
		ids = ids[:1]
	}

	entities, flows, err := s.load(ctx, ids, req.From, req.To)
	if err != nil {
		return nil, err
	}

	view := &models.PortfolioView{ViewType: req.ViewType}

	var raw []models.ValuationPoint
	var nav analytics.NormalizedSeries
	if req.ViewType == models.ViewCumulative {
		series := make([]models.EntitySeries, len(entities))
		for i, e := range entities {
			series[i] = e.EntitySeries
		}
		cv := analytics.AggregateCumulative(series, flows, analytics.AggregateOptions{
			Weights:        req.Weights,
			CodeToStrategy: s.codeToStrategy,
		})
		raw, nav = cv.Raw, cv.Normalized
		view.PortfoliosWithRatios = cv.Allocation
		view.StrategyAllocation = cv.StrategyAllocation
	} else {
		raw = entities[0].Points
		nav = analytics.Normalize(raw)
		view.PortfoliosWithRatios = analytics.Allocation(latestEntries(entities))
	}

	bench, status, warning := s.resolveBenchmark(ctx, req.Benchmark, entities, nav)
	view.BenchmarkStatus = status
	if warning != "" {
		view.Warnings = append(view.Warnings, warning)
	}
	for _, e := range entities {
		if n := e.issues; n > 0 {
			view.Warnings = append(view.Warnings, fmt.Sprintf("%s: %d malformed values forward-filled", e.EntityID, n))
		}
	}

	view.DailyNAV = dailyNAV(raw, nav, bench)
	view.MonthlyPnL = analytics.MonthlyPnL(raw, flows)
	view.QuarterlyPnL = analytics.QuarterlyPnL(raw, flows)
	view.YearlyReturns = analytics.YearlyTotals(view.MonthlyPnL)
	view.DrawdownCurve = analytics.DrawdownCurve(nav.Points)
	view.TopDrawdowns = analytics.TopDrawdowns(nav.Points, s.drawdownLimit)
	view.TrailingReturns = analytics.TrailingTable(nav.Points, bench)

	latestValue, asOf := 0.0, analytics.DateOf(time.Now())
	if n := len(raw); n > 0 {
		latestValue, asOf = raw[n-1].Value, raw[n-1].Date
	}
	view.CashInOutData = *cashflow.BuildLedger(flows, latestValue, asOf)
	view.PortfolioDetails = s.details(entities, raw, nav, view.CashInOutData.Capital)
	if status == models.BenchmarkAvailable {
		view.PortfolioDetails.BenchmarkName = benchmarkName(req.Benchmark, s.benchmark != nil)
	}

	s.logger.Info().
		Str("user", userID).
		Str("view", string(req.ViewType)).
		Int("entities", len(entities)).
		Int("points", len(nav.Points)).
		Str("benchmark", status).
		Msg("Portfolio view computed")

	return view, nil
}

// loadedEntity is an entity's cleaned series plus the count of values
// forward-filled while cleaning it.
type loadedEntity struct {
	models.EntitySeries
	issues int
}

// load fetches every entity and the cash flows concurrently. Each entity
// is cleaned and clipped to [from, to] in its own goroutine.
func (s *Service) load(ctx context.Context, ids []string, from, to time.Time) ([]loadedEntity, []models.CashFlowRecord, error) {
	store := s.storage.SeriesStore()
	loaded := make([]loadedEntity, len(ids))
	var flows []models.CashFlowRecord

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			series, err := store.GetValuationSeries(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to load series %s: %w", id, err)
			}

			points, issues := analytics.Clean(series.Points)
			for _, is := range issues {
				s.logger.Warn().
					Str("entity", id).
					Str("date", is.Date.Format(models.DateLayout)).
					Float64("substitute", is.Substitute).
					Msg(is.Reason)
			}
			bench, _ := analytics.Clean(series.BenchmarkPoints)

			series.Points = between(points, from, to)
			series.BenchmarkPoints = between(bench, from, to)
			loaded[i] = loadedEntity{EntitySeries: *series, issues: len(issues)}
			return nil
		})
	}
	g.Go(func() error {
		all, err := store.GetCashFlows(gctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load cash flows: %w", err)
		}
		flows = make([]models.CashFlowRecord, 0, len(all))
		for _, f := range all {
			d := analytics.DateOf(f.Date)
			if (!from.IsZero() && d.Before(from)) || (!to.IsZero() && d.After(to)) {
				continue
			}
			flows = append(flows, f)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return loaded, flows, nil
}

// resolveBenchmark returns the benchmark series for the view: the external
// index when one is requested and a client is configured, otherwise the
// first entity's stored benchmark rows. The result is clipped to the NAV
// date range.
func (s *Service) resolveBenchmark(ctx context.Context, index string, entities []loadedEntity, nav analytics.NormalizedSeries) ([]models.ValuationPoint, string, string) {
	if nav.Empty() {
		return nil, models.BenchmarkNone, ""
	}
	first, last := nav.Points[0].Date, nav.Points[len(nav.Points)-1].Date

	var points []models.ValuationPoint
	if index != "" && s.benchmark != nil {
		fetched, err := s.benchmark.GetBenchmarkSeries(ctx, index, first, last)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, models.BenchmarkUnavailable, ""
			}
			s.logger.Warn().Err(err).Str("index", index).Msg("Benchmark unavailable")
			return nil, models.BenchmarkUnavailable, fmt.Sprintf("benchmark %s unavailable", index)
		}
		points, _ = analytics.Clean(fetched)
	} else if len(entities) > 0 {
		points = entities[0].BenchmarkPoints
	}

	points = between(points, first, last)
	if len(points) == 0 {
		if index != "" && s.benchmark != nil {
			return nil, models.BenchmarkUnavailable, fmt.Sprintf("benchmark %s returned no data", index)
		}
		return nil, models.BenchmarkNone, ""
	}
	return points, models.BenchmarkAvailable, ""
}

func benchmarkName(index string, external bool) string {
	if index != "" && external {
		return index
	}
	return "stored"
}

func (s *Service) details(entities []loadedEntity, raw []models.ValuationPoint, nav analytics.NormalizedSeries, capital *models.CapitalPerformance) models.PortfolioDetails {
	d := models.PortfolioDetails{
		EntityIDs: make([]string, len(entities)),
		Names:     make([]string, len(entities)),
		Capital:   capital,
	}
	for i, e := range entities {
		d.EntityIDs[i] = e.EntityID
		d.Names[i] = e.Name()
	}
	if nav.Empty() {
		return d
	}

	pts := nav.Points
	d.StartDate = pts[0].Date.Format(models.DateLayout)
	d.EndDate = pts[len(pts)-1].Date.Format(models.DateLayout)
	d.LatestNAV = pts[len(pts)-1].Value
	if n := len(raw); n > 0 {
		d.LatestValue = raw[n-1].Value
	}

	if r, err := analytics.AbsoluteReturn(pts); err == nil {
		d.AbsoluteReturnPct = &r.ReturnPct
	}
	if r, err := analytics.Return(pts, analytics.NamedWindow(analytics.WindowInception)); err == nil {
		d.CAGRPct = &r.ReturnPct
	}
	if r, err := analytics.Return(pts, analytics.NamedWindow(analytics.WindowYTD)); err == nil {
		d.YTDReturnPct = &r.ReturnPct
	}
	d.CurrentDrawdownPct = analytics.CurrentDrawdown(pts)
	d.MaxDrawdownPct = analytics.MaxDrawdown(pts)
	return d
}

// dailyNAV joins the raw and normalized series, with the benchmark rebased
// to 100 on its first date inside the NAV range.
func dailyNAV(raw []models.ValuationPoint, nav analytics.NormalizedSeries, bench []models.ValuationPoint) []models.NAVPoint {
	out := make([]models.NAVPoint, 0, len(nav.Points))
	if nav.Empty() {
		return out
	}

	rawByDate := make(map[time.Time]float64, len(raw))
	for _, p := range raw {
		rawByDate[p.Date] = p.Value
	}

	benchByDate := make(map[time.Time]float64)
	if nb := analytics.Normalize(bench); !nb.Empty() {
		grid := make([]time.Time, len(nav.Points))
		for i, p := range nav.Points {
			grid[i] = p.Date
		}
		for _, p := range analytics.Align(nb.Points, grid) {
			benchByDate[p.Date] = p.Value
		}
	}

	for _, p := range nav.Points {
		row := models.NAVPoint{
			Date:  p.Date.Format(models.DateLayout),
			NAV:   p.Value,
			Value: rawByDate[p.Date],
		}
		if b, ok := benchByDate[p.Date]; ok {
			row.Benchmark = &b
		}
		out = append(out, row)
	}
	return out
}

func latestEntries(entities []loadedEntity) []models.AllocationEntry {
	out := make([]models.AllocationEntry, 0, len(entities))
	for _, e := range entities {
		if n := len(e.Points); n > 0 {
			out = append(out, models.AllocationEntry{Name: e.Name(), LatestValue: e.Points[n-1].Value})
		}
	}
	return out
}

// between keeps the points of a sorted series within [from, to]. A zero
// bound is open.
func between(points []models.ValuationPoint, from, to time.Time) []models.ValuationPoint {
	out := make([]models.ValuationPoint, 0, len(points))
	for _, p := range points {
		if !from.IsZero() && p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			break
		}
		out = append(out, p)
	}
	return out
}

// Compile-time check
var _ interfaces.PortfolioService = (*Service)(nil)

// GetReturn computes one entity's return over a named horizon or a custom
// date range, on either its NAV or its stored benchmark.
func (s *Service) GetReturn(ctx context.Context, userID string, req interfaces.ReturnRequest) (*models.PeriodReturn, error) {
	if req.EntityID == "" {
		return nil, fmt.Errorf("entity required: %w", models.ErrInvalidRequest)
	}

	var w analytics.Window
	switch {
	case req.Window != "":
		parsed, err := analytics.ParseWindow(req.Window)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidRequest)
		}
		w = parsed
	case !req.From.IsZero() && !req.To.IsZero():
		if req.To.Before(req.From) {
			return nil, fmt.Errorf("range ends before it starts: %w", models.ErrInvalidRequest)
		}
		w = analytics.CustomWindow(req.From, req.To)
	default:
		return nil, fmt.Errorf("window or from/to required: %w", models.ErrInvalidRequest)
	}

	field := analytics.Field(strings.ToLower(req.Field))
	if field == "" {
		field = analytics.FieldNAV
	}
	if field != analytics.FieldNAV && field != analytics.FieldBenchmark {
		return nil, fmt.Errorf("field %q: %w", req.Field, models.ErrInvalidRequest)
	}

	meta, err := s.storage.SeriesStore().GetEntityMetadata(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities for user %s: %w", userID, err)
	}
	ids, err := cashflow.ResolveEntities(meta, []string{req.EntityID})
	if err != nil {
		return nil, err
	}

	entities, _, err := s.load(ctx, ids[:1], time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	r, err := analytics.ReturnFor(&entities[0].EntitySeries, w, field)
	if err != nil {
		if errors.Is(err, analytics.ErrInsufficientData) {
			return nil, fmt.Errorf("%s %s: %w", req.EntityID, w, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s %s: %v: %w", req.EntityID, w, err, models.ErrInvalidRequest)
	}
	return &r, nil
}
