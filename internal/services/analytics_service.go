package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/dto"
	"portfolio-analytics-api/internal/models"
	"portfolio-analytics-api/internal/monitoring"
	"portfolio-analytics-api/internal/repositories"
	"portfolio-analytics-api/pkg/cache"
)

// Interfaces for testing
type ReportCacheInterface interface {
	GetReport(ctx context.Context, investorID int64, timeframe models.Timeframe) (*dto.AnalyticsReport, string, error)
	SetReport(ctx context.Context, report *dto.AnalyticsReport) error
	InvalidateInvestor(ctx context.Context, investorID int64) error
	ItemCount() int
}

type AnalyzerInterface interface {
	Analyze(snapshot *models.LedgerSnapshot, timeframe models.Timeframe, asOf time.Time) (*dto.AnalyticsReport, error)
}

// AnalyticsServiceConfig tunes the service
type AnalyticsServiceConfig struct {
	Backend                 string // ledger backend label for metrics
	ComputationTimeout      time.Duration
	InvalidationConcurrency int
}

type AnalyticsService struct {
	ledger   repositories.LedgerRepository
	cache    ReportCacheInterface
	analyzer AnalyzerInterface
	metrics  monitoring.MetricsService
	logger   *logrus.Logger
	config   AnalyticsServiceConfig
	now      func() time.Time

	// generations counts invalidations per investor; a report computed across
	// an invalidation is not written back
	genMu       sync.Mutex
	generations map[int64]uint64
}

// NewAnalyticsService wires the read-through analytics pipeline. reportCache may
// be nil, in which case every request reads the ledger.
func NewAnalyticsService(
	ledger repositories.LedgerRepository,
	reportCache ReportCacheInterface,
	analyzer AnalyzerInterface,
	metrics monitoring.MetricsService,
	logger *logrus.Logger,
	cfg AnalyticsServiceConfig,
) *AnalyticsService {
	if metrics == nil {
		metrics = monitoring.NoopMetrics{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.InvalidationConcurrency <= 0 {
		cfg.InvalidationConcurrency = 1
	}
	if cfg.Backend == "" {
		cfg.Backend = "unknown"
	}

	return &AnalyticsService{
		ledger:      ledger,
		cache:       reportCache,
		analyzer:    analyzer,
		metrics:     metrics,
		logger:      logger,
		config:      cfg,
		now:         time.Now,
		generations: make(map[int64]uint64),
	}
}

// GetAnalytics returns the report for one investor and timeframe along with the
// tier that served it. Ledger failures come back unchanged so callers can match
// repositories.ErrLedgerUnavailable and the driver error.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, investorID int64, timeframe models.Timeframe) (*dto.AnalyticsReport, string, error) {
	if s.cache != nil {
		report, tier, err := s.cache.GetReport(ctx, investorID, timeframe)
		s.metrics.RecordCacheLookup(tier)
		if err == nil {
			return report, tier, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			s.logger.WithError(err).WithField("investor_id", investorID).Warn("Report cache lookup failed")
		}
	}

	generation := s.generation(investorID)

	report, err := s.compute(ctx, investorID, timeframe)
	if err != nil {
		return nil, cache.TierMiss, err
	}

	if s.cache != nil {
		s.storeReport(ctx, report, investorID, timeframe, generation)
	}

	return report, cache.TierMiss, nil
}

// storeReport caches a computed report unless the investor was invalidated after
// generation was taken. The check is repeated after the write so an invalidation
// racing the write still leaves the cache empty.
func (s *AnalyticsService) storeReport(ctx context.Context, report *dto.AnalyticsReport, investorID int64, timeframe models.Timeframe, generation uint64) {
	entry := s.logger.WithFields(logrus.Fields{
		"investor_id": investorID,
		"timeframe":   timeframe,
	})

	if s.generation(investorID) != generation {
		entry.Debug("Ledger changed during computation, report not cached")
		return
	}
	if err := s.cache.SetReport(ctx, report); err != nil {
		entry.WithError(err).Warn("Failed to cache analytics report")
		return
	}
	if s.generation(investorID) != generation {
		if err := s.cache.InvalidateInvestor(ctx, investorID); err != nil {
			entry.WithError(err).Warn("Failed to evict stale analytics report")
		}
	}
}

func (s *AnalyticsService) generation(investorID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[investorID]
}

func (s *AnalyticsService) bumpGeneration(investorID int64) {
	s.genMu.Lock()
	s.generations[investorID]++
	s.genMu.Unlock()
}

func (s *AnalyticsService) compute(ctx context.Context, investorID int64, timeframe models.Timeframe) (*dto.AnalyticsReport, error) {
	if s.config.ComputationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ComputationTimeout)
		defer cancel()
	}

	start := time.Now()

	snapshot, err := s.ledger.ReadSnapshot(ctx, investorID)
	s.metrics.RecordLedgerRead(s.config.Backend, time.Since(start), err)
	if err != nil {
		s.metrics.RecordReportComputation(timeframe.String(), 0, time.Since(start), err)
		s.logger.WithError(err).WithField("investor_id", investorID).Error("Failed to read ledger snapshot")
		return nil, err
	}

	report, err := s.analyzer.Analyze(snapshot, timeframe, s.now())
	positions := 0
	if report != nil {
		positions = len(report.Investments)
	}
	s.metrics.RecordReportComputation(timeframe.String(), positions, time.Since(start), err)
	if err != nil {
		s.logger.WithError(err).WithField("investor_id", investorID).Error("Ledger snapshot failed integrity checks")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"investor_id": investorID,
		"timeframe":   timeframe,
		"positions":   positions,
		"duration":    time.Since(start).String(),
	}).Debug("Analytics report computed")

	return report, nil
}

// InvalidateInvestor drops every cached report of an investor
func (s *AnalyticsService) InvalidateInvestor(ctx context.Context, investorID int64, reason string) error {
	if s.cache == nil {
		return nil
	}
	s.bumpGeneration(investorID)
	if err := s.cache.InvalidateInvestor(ctx, investorID); err != nil {
		return err
	}
	s.metrics.RecordCacheInvalidation(reason, 1)
	return nil
}

// InvalidateProject drops the cached reports of every investor holding the project
func (s *AnalyticsService) InvalidateProject(ctx context.Context, projectID int64, reason string) (int, error) {
	if s.cache == nil {
		return 0, nil
	}

	investorIDs, err := s.ledger.InvestorIDsByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve investors of project %d: %w", projectID, err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		errs    []error
		cleared int
	)
	slots := make(chan struct{}, s.config.InvalidationConcurrency)

	for _, investorID := range investorIDs {
		wg.Add(1)
		slots <- struct{}{}
		go func(id int64) {
			defer wg.Done()
			defer func() { <-slots }()

			s.bumpGeneration(id)
			err := s.cache.InvalidateInvestor(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			cleared++
		}(investorID)
	}
	wg.Wait()

	s.metrics.RecordCacheInvalidation(reason, cleared)
	return cleared, errors.Join(errs...)
}

// RecordCacheStats publishes the local cache size
func (s *AnalyticsService) RecordCacheStats(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	s.metrics.SetLocalCacheSize(s.cache.ItemCount())
	return nil
}

// Ping checks the ledger store
func (s *AnalyticsService) Ping(ctx context.Context) error {
	return s.ledger.Ping(ctx)
}
