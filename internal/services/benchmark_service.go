package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/monitoring"
)

type BenchmarkFetcher interface {
	FetchMonthlyReturns(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

// RemoteBenchmark serves the last successfully fetched benchmark series and
// falls back to another provider for months the series lacks
type RemoteBenchmark struct {
	fetcher  BenchmarkFetcher
	fallback calculator.BenchmarkProvider
	lookback int
	metrics  monitoring.MetricsService
	logger   *logrus.Logger
	now      func() time.Time

	mu          sync.RWMutex
	series      map[string]float64
	refreshedAt time.Time
}

// NewRemoteBenchmark keeps lookbackMonths of history on each refresh
func NewRemoteBenchmark(
	fetcher BenchmarkFetcher,
	fallback calculator.BenchmarkProvider,
	lookbackMonths int,
	metrics monitoring.MetricsService,
	logger *logrus.Logger,
) *RemoteBenchmark {
	if lookbackMonths <= 0 {
		lookbackMonths = 120
	}
	if metrics == nil {
		metrics = monitoring.NoopMetrics{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &RemoteBenchmark{
		fetcher:  fetcher,
		fallback: fallback,
		lookback: lookbackMonths,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
		series:   make(map[string]float64),
	}
}

func (rb *RemoteBenchmark) MonthlyReturns(from, to time.Time) map[string]float64 {
	result := make(map[string]float64)
	if rb.fallback != nil {
		for month, value := range rb.fallback.MonthlyReturns(from, to) {
			result[month] = value
		}
	}

	rb.mu.RLock()
	defer rb.mu.RUnlock()

	for month := range result {
		if value, ok := rb.series[month]; ok {
			result[month] = value
		}
	}
	if rb.fallback == nil {
		for month, value := range rb.series {
			t, err := time.Parse("2006-01", month)
			if err != nil {
				continue
			}
			if !t.Before(monthFloor(from)) && !t.After(to) {
				result[month] = value
			}
		}
	}

	return result
}

// Refresh replaces the series with a fresh fetch. On failure the previous series
// stays in place.
func (rb *RemoteBenchmark) Refresh(ctx context.Context) error {
	to := rb.now().UTC()
	from := monthFloor(to).AddDate(0, -rb.lookback, 0)

	series, err := rb.fetcher.FetchMonthlyReturns(ctx, from, to)
	if err != nil {
		rb.metrics.RecordBenchmarkRefresh(false, 0)
		rb.logger.WithError(err).Warn("Benchmark refresh failed, keeping previous series")
		return err
	}

	rb.mu.Lock()
	rb.series = series
	rb.refreshedAt = to
	rb.mu.Unlock()

	rb.metrics.RecordBenchmarkRefresh(true, len(series))
	rb.logger.WithField("months", len(series)).Info("Benchmark series refreshed")
	return nil
}

// Months returns the number of months currently loaded
func (rb *RemoteBenchmark) Months() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.series)
}

// RefreshedAt returns when the series was last replaced
func (rb *RemoteBenchmark) RefreshedAt() time.Time {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.refreshedAt
}

func monthFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
