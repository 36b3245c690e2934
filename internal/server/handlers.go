package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
	"github.com/bobmcallan/navboard/internal/services/portfolio"
	"github.com/bobmcallan/navboard/internal/services/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// requireUser returns the caller's identity, or writes 401 when the
// request carries none.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := common.ResolveUserID(r.Context())
	if userID == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// parseViewRequest reads view, entity, benchmark, from, to and weight
// query parameters.
func parseViewRequest(r *http.Request) (interfaces.ViewRequest, error) {
	q := r.URL.Query()
	req := interfaces.ViewRequest{
		ViewType:  models.ViewType(strings.ToLower(strings.TrimSpace(q.Get("view")))),
		EntityIDs: QueryList(r, "entity"),
		Benchmark: strings.TrimSpace(q.Get("benchmark")),
	}

	var err error
	if req.From, err = QueryDate(r, "from"); err != nil {
		return req, err
	}
	if req.To, err = QueryDate(r, "to"); err != nil {
		return req, err
	}
	if req.Weights, err = QueryWeights(r); err != nil {
		return req, err
	}
	return req, nil
}

// loadView authenticates, parses and computes a view, writing the error
// response itself on failure.
func (s *Server) loadView(w http.ResponseWriter, r *http.Request) (*models.PortfolioView, bool) {
	if !RequireMethod(w, r, http.MethodGet) {
		return nil, false
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}

	req, err := parseViewRequest(r)
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return nil, false
	}

	view, err := s.app.PortfolioService.GetView(r.Context(), userID, req)
	if err != nil {
		s.logger.Warn().Err(err).Str("user", userID).Msg("Portfolio view failed")
		writeServiceError(w, err)
		return nil, false
	}
	return view, true
}

// handleEntities handles GET /api/entities.
func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	entities, err := s.app.PortfolioService.ListEntities(r.Context(), userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user", userID).Msg("List entities failed")
		writeServiceError(w, err)
		return
	}
	if entities == nil {
		entities = []models.Entity{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

// handlePortfolioView handles GET /api/portfolio.
func (s *Server) handlePortfolioView(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// handlePortfolioChart handles GET /api/portfolio/chart.png.
func (s *Server) handlePortfolioChart(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	png, err := portfolio.RenderNAVChart(view)
	if err != nil {
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, err.Error(), "chart_unavailable")
		return
	}
	WriteBytes(w, "image/png", "", png)
}

// handlePortfolioExport handles GET /api/portfolio/export.xlsx.
func (s *Server) handlePortfolioExport(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	data, err := s.app.ReportService.ExportWorkbook(view)
	if err != nil {
		s.logger.Error().Err(err).Msg("Workbook export failed")
		WriteError(w, http.StatusInternalServerError, "export failed")
		return
	}
	WriteBytes(w, xlsxContentType, fmt.Sprintf("navboard-%s.xlsx", view.ViewType), data)
}

// handlePortfolioSummary handles GET /api/portfolio/summary.md.
func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadView(w, r)
	if !ok {
		return
	}
	WriteBytes(w, "text/markdown; charset=utf-8", "", []byte(report.FormatSummary(view)))
}

// handlePortfolioReturn handles GET /api/portfolio/returns?entity=&window=|from=&to=&field=.
func (s *Server) handlePortfolioReturn(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := interfaces.ReturnRequest{
		EntityID: strings.TrimSpace(q.Get("entity")),
		Window:   strings.TrimSpace(q.Get("window")),
		Field:    strings.TrimSpace(q.Get("field")),
	}
	var err error
	if req.From, err = QueryDate(r, "from"); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}
	if req.To, err = QueryDate(r, "to"); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	ret, err := s.app.PortfolioService.GetReturn(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ret)
}

// handleCashFlows handles GET /api/cashflows.
func (s *Server) handleCashFlows(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ledger, err := s.app.CashFlowService.GetLedger(r.Context(), userID, QueryList(r, "entity"))
	if err != nil {
		s.logger.Warn().Err(err).Str("user", userID).Msg("Cash ledger failed")
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ledger)
}
