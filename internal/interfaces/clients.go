package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/navboard/internal/models"
)

// BenchmarkClient provides index levels from an external benchmark service
type BenchmarkClient interface {
	// GetBenchmarkSeries returns daily index levels between start and end inclusive
	GetBenchmarkSeries(ctx context.Context, index string, start, end time.Time) ([]models.ValuationPoint, error)
}
