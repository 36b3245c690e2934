package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/bobmcallan/navboard/internal/app"
	"github.com/bobmcallan/navboard/internal/common"
)

// Server serves the navboard analytics API.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel sets the channel signalled by the development
// /api/shutdown endpoint.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer builds the HTTP server from the app's [server] config.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	cfg := a.Config.Server
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      applyMiddleware(mux, a.Logger, a.Config),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  cfg.GetIdleTimeout(),
	}

	return s
}

// Handler returns the middleware-wrapped mux.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Str("storage", s.app.Storage.Backend()).
		Bool("benchmark_client", s.app.BenchmarkClient != nil).
		Msg("Starting navboard API server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured shutdown timeout,
// or earlier if ctx is done first.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.app.Config.Server.GetShutdownTimeout())
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("API server did not drain before the shutdown timeout")
		return err
	}
	s.logger.Info().Msg("API server stopped")
	return nil
}
