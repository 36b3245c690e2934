package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/navboard/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Entities
	mux.HandleFunc("/api/entities", s.handleEntities)

	// Portfolio views
	mux.HandleFunc("/api/portfolio", s.handlePortfolioView)
	mux.HandleFunc("/api/portfolio/returns", s.handlePortfolioReturn)
	mux.HandleFunc("/api/portfolio/chart.png", s.handlePortfolioChart)
	mux.HandleFunc("/api/portfolio/export.xlsx", s.handlePortfolioExport)
	mux.HandleFunc("/api/portfolio/summary.md", s.handlePortfolioSummary)

	// Cash flows
	mux.HandleFunc("/api/cashflows", s.handleCashFlows)
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// handleHealth reports liveness plus a storage ping. A failed ping
// answers 503 so load balancers drain the instance.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.app.Storage.Ping(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Health check storage ping failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"storage": s.app.Storage.Backend(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": s.app.Storage.Backend(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.CurrentBuild())
}
