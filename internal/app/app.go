// Package app wires configuration, storage, clients and services together.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/navboard/internal/clients/benchmark"
	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/services/cashflow"
	"github.com/bobmcallan/navboard/internal/services/portfolio"
	"github.com/bobmcallan/navboard/internal/services/report"
	"github.com/bobmcallan/navboard/internal/storage"
)

// App holds all initialized services, clients, and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	BenchmarkClient  interfaces.BenchmarkClient // nil when no index service is configured
	PortfolioService interfaces.PortfolioService
	CashFlowService  interfaces.CashFlowService
	ReportService    interfaces.ReportService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and initializes storage, clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, NAVBOARD_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("NAVBOARD_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "navboard.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/navboard.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative SQLite path to binary directory
	if config.Storage.Backend == storage.BackendSQLite && config.Storage.DSN != "" &&
		!filepath.IsAbs(config.Storage.DSN) && !isSQLiteURI(config.Storage.DSN) {
		config.Storage.DSN = filepath.Join(binDir, config.Storage.DSN)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	return NewAppWithConfig(context.Background(), config, logger)
}

// NewAppWithConfig initializes the app from an already loaded config.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewStorageManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	benchmarkClient := benchmark.NewClientFromConfig(config.Benchmark, logger)
	if benchmarkClient == nil {
		logger.Warn().Msg("Benchmark service not configured - views use stored benchmark rows")
	}

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		BenchmarkClient:  benchmarkClient,
		PortfolioService: portfolio.NewService(storageManager, benchmarkClient, config, logger),
		CashFlowService:  cashflow.NewService(storageManager, logger),
		ReportService:    report.NewService(logger),
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("storage", storageManager.Backend()).
		Bool("benchmark_client", benchmarkClient != nil).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases storage connections.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
	}
}

func isSQLiteURI(dsn string) bool {
	return dsn == ":memory:" || (len(dsn) > 5 && dsn[:5] == "file:")
}
