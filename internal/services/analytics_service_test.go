package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-analytics-api/internal/dto"
	"portfolio-analytics-api/internal/models"
	"portfolio-analytics-api/internal/repositories"
	"portfolio-analytics-api/pkg/cache"
)

// Mock implementations
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) ReadSnapshot(ctx context.Context, investorID int64) (*models.LedgerSnapshot, error) {
	args := m.Called(ctx, investorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerSnapshot), args.Error(1)
}

func (m *MockLedgerRepository) InvestorIDsByProject(ctx context.Context, projectID int64) ([]int64, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockLedgerRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockReportCache struct {
	mock.Mock
}

func (m *MockReportCache) GetReport(ctx context.Context, investorID int64, timeframe models.Timeframe) (*dto.AnalyticsReport, string, error) {
	args := m.Called(ctx, investorID, timeframe)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*dto.AnalyticsReport), args.String(1), args.Error(2)
}

func (m *MockReportCache) SetReport(ctx context.Context, report *dto.AnalyticsReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockReportCache) InvalidateInvestor(ctx context.Context, investorID int64) error {
	args := m.Called(ctx, investorID)
	return args.Error(0)
}

func (m *MockReportCache) ItemCount() int {
	args := m.Called()
	return args.Int(0)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(snapshot *models.LedgerSnapshot, timeframe models.Timeframe, asOf time.Time) (*dto.AnalyticsReport, error) {
	args := m.Called(snapshot, timeframe, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AnalyticsReport), args.Error(1)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(ledger *MockLedgerRepository, reportCache ReportCacheInterface, analyzer *MockAnalyzer) *AnalyticsService {
	svc := NewAnalyticsService(ledger, reportCache, analyzer, nil, quietLogger(), AnalyticsServiceConfig{
		Backend:                 "sqlite",
		ComputationTimeout:      time.Second,
		InvalidationConcurrency: 2,
	})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestAnalyticsService_GetAnalytics(t *testing.T) {
	ctx := context.Background()
	snapshot := models.NewLedgerSnapshot(42)
	computed := &dto.AnalyticsReport{InvestorID: 42, Timeframe: "1Y", HealthScore: 55}

	t.Run("cache hit skips the ledger", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		reportCache := new(MockReportCache)
		reportCache.On("GetReport", ctx, int64(42), models.Timeframe1Y).Return(computed, cache.TierLocal, nil)

		svc := newTestService(ledger, reportCache, analyzer)
		report, tier, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)

		require.NoError(t, err)
		assert.Equal(t, cache.TierLocal, tier)
		assert.Same(t, computed, report)
		ledger.AssertNotCalled(t, "ReadSnapshot", mock.Anything, mock.Anything)
		analyzer.AssertNotCalled(t, "Analyze", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache miss computes and stores the report", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		reportCache := new(MockReportCache)
		reportCache.On("GetReport", ctx, int64(42), models.Timeframe1Y).Return(nil, cache.TierMiss, cache.ErrNotFound)
		ledger.On("ReadSnapshot", mock.Anything, int64(42)).Return(snapshot, nil)
		analyzer.On("Analyze", snapshot, models.Timeframe1Y, fixedNow).Return(computed, nil)
		reportCache.On("SetReport", ctx, computed).Return(nil)

		svc := newTestService(ledger, reportCache, analyzer)
		report, tier, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)

		require.NoError(t, err)
		assert.Equal(t, cache.TierMiss, tier)
		assert.Equal(t, 55, report.HealthScore)
		ledger.AssertExpectations(t)
		analyzer.AssertExpectations(t)
		reportCache.AssertExpectations(t)
	})

	t.Run("cache write failure still returns the report", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		reportCache := new(MockReportCache)
		reportCache.On("GetReport", ctx, int64(42), models.Timeframe1Y).Return(nil, cache.TierMiss, cache.ErrNotFound)
		ledger.On("ReadSnapshot", mock.Anything, int64(42)).Return(snapshot, nil)
		analyzer.On("Analyze", snapshot, models.Timeframe1Y, fixedNow).Return(computed, nil)
		reportCache.On("SetReport", ctx, computed).Return(errors.New("redis down"))

		svc := newTestService(ledger, reportCache, analyzer)
		report, _, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)

		require.NoError(t, err)
		assert.Same(t, computed, report)
	})

	t.Run("report computed across an invalidation is not cached", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		reportCache := new(MockReportCache)
		svc := newTestService(ledger, reportCache, analyzer)

		reportCache.On("GetReport", ctx, int64(42), models.Timeframe1Y).Return(nil, cache.TierMiss, cache.ErrNotFound)
		reportCache.On("InvalidateInvestor", ctx, int64(42)).Return(nil)
		ledger.On("ReadSnapshot", mock.Anything, int64(42)).Return(snapshot, nil)
		analyzer.On("Analyze", snapshot, models.Timeframe1Y, fixedNow).
			Run(func(mock.Arguments) {
				require.NoError(t, svc.InvalidateInvestor(ctx, 42, "investment.placed"))
			}).
			Return(computed, nil)

		report, tier, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)

		require.NoError(t, err)
		assert.Equal(t, cache.TierMiss, tier)
		assert.Same(t, computed, report)
		reportCache.AssertNotCalled(t, "SetReport", mock.Anything, mock.Anything)
	})

	t.Run("invalidation racing the cache write evicts the report", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		reportCache := new(MockReportCache)
		svc := newTestService(ledger, reportCache, analyzer)

		reportCache.On("GetReport", ctx, int64(42), models.Timeframe1Y).Return(nil, cache.TierMiss, cache.ErrNotFound)
		reportCache.On("InvalidateInvestor", ctx, int64(42)).Return(nil)
		ledger.On("ReadSnapshot", mock.Anything, int64(42)).Return(snapshot, nil)
		analyzer.On("Analyze", snapshot, models.Timeframe1Y, fixedNow).Return(computed, nil)
		reportCache.On("SetReport", ctx, computed).
			Run(func(mock.Arguments) {
				require.NoError(t, svc.InvalidateInvestor(ctx, 42, "distribution.approved"))
			}).
			Return(nil)

		_, _, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)

		require.NoError(t, err)
		reportCache.AssertCalled(t, "SetReport", ctx, computed)
		// once by the event, once by the write-back check
		reportCache.AssertNumberOfCalls(t, "InvalidateInvestor", 2)
	})

	t.Run("ledger failure is returned unchanged and nothing is cached", func(t *testing.T) {
		driverErr := errors.New("connection reset by peer")
		ledgerErr := fmt.Errorf("%w: %w", repositories.ErrLedgerUnavailable, driverErr)

		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		reportCache := new(MockReportCache)
		reportCache.On("GetReport", ctx, int64(42), models.Timeframe1Y).Return(nil, cache.TierMiss, cache.ErrNotFound)
		ledger.On("ReadSnapshot", mock.Anything, int64(42)).Return(nil, ledgerErr)

		svc := newTestService(ledger, reportCache, analyzer)
		report, _, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)

		assert.Nil(t, report)
		assert.Same(t, ledgerErr, err)
		assert.ErrorIs(t, err, repositories.ErrLedgerUnavailable)
		assert.ErrorIs(t, err, driverErr)
		reportCache.AssertNotCalled(t, "SetReport", mock.Anything, mock.Anything)
	})

	t.Run("integrity error is returned and nothing is cached", func(t *testing.T) {
		integrityErr := &models.DataIntegrityError{ProjectID: 9, Source: "investment", RecordID: 3}

		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		reportCache := new(MockReportCache)
		reportCache.On("GetReport", ctx, int64(42), models.Timeframe1Y).Return(nil, cache.TierMiss, cache.ErrNotFound)
		ledger.On("ReadSnapshot", mock.Anything, int64(42)).Return(snapshot, nil)
		analyzer.On("Analyze", snapshot, models.Timeframe1Y, fixedNow).Return(nil, integrityErr)

		svc := newTestService(ledger, reportCache, analyzer)
		_, _, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)

		var target *models.DataIntegrityError
		assert.ErrorAs(t, err, &target)
		reportCache.AssertNotCalled(t, "SetReport", mock.Anything, mock.Anything)
	})

	t.Run("disabled cache always computes", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		analyzer := new(MockAnalyzer)
		ledger.On("ReadSnapshot", mock.Anything, int64(42)).Return(snapshot, nil).Twice()
		analyzer.On("Analyze", snapshot, models.Timeframe1Y, fixedNow).Return(computed, nil).Twice()

		svc := newTestService(ledger, nil, analyzer)
		_, _, err := svc.GetAnalytics(ctx, 42, models.Timeframe1Y)
		require.NoError(t, err)
		_, _, err = svc.GetAnalytics(ctx, 42, models.Timeframe1Y)
		require.NoError(t, err)

		ledger.AssertExpectations(t)
	})
}

func TestAnalyticsService_InvalidateProject(t *testing.T) {
	ctx := context.Background()

	t.Run("invalidates every holder", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		reportCache := new(MockReportCache)
		ledger.On("InvestorIDsByProject", ctx, int64(5)).Return([]int64{1, 2, 3}, nil)
		reportCache.On("InvalidateInvestor", ctx, int64(1)).Return(nil)
		reportCache.On("InvalidateInvestor", ctx, int64(2)).Return(nil)
		reportCache.On("InvalidateInvestor", ctx, int64(3)).Return(nil)

		svc := newTestService(ledger, reportCache, new(MockAnalyzer))
		cleared, err := svc.InvalidateProject(ctx, 5, "distribution.approved")

		require.NoError(t, err)
		assert.Equal(t, 3, cleared)
		reportCache.AssertExpectations(t)
	})

	t.Run("partial failures are joined", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		reportCache := new(MockReportCache)
		ledger.On("InvestorIDsByProject", ctx, int64(5)).Return([]int64{1, 2}, nil)
		reportCache.On("InvalidateInvestor", ctx, int64(1)).Return(nil)
		reportCache.On("InvalidateInvestor", ctx, int64(2)).Return(errors.New("timeout"))

		svc := newTestService(ledger, reportCache, new(MockAnalyzer))
		cleared, err := svc.InvalidateProject(ctx, 5, "distribution.created")

		assert.Equal(t, 1, cleared)
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("ledger failure is reported", func(t *testing.T) {
		ledger := new(MockLedgerRepository)
		ledger.On("InvestorIDsByProject", ctx, int64(5)).Return(nil, repositories.ErrLedgerUnavailable)

		svc := newTestService(ledger, new(MockReportCache), new(MockAnalyzer))
		_, err := svc.InvalidateProject(ctx, 5, "distribution.created")

		assert.ErrorIs(t, err, repositories.ErrLedgerUnavailable)
	})
}

func TestAnalyticsService_InvalidateInvestor(t *testing.T) {
	ctx := context.Background()
	reportCache := new(MockReportCache)
	reportCache.On("InvalidateInvestor", ctx, int64(42)).Return(nil)

	svc := newTestService(new(MockLedgerRepository), reportCache, new(MockAnalyzer))

	require.NoError(t, svc.InvalidateInvestor(ctx, 42, "manual"))
	reportCache.AssertExpectations(t)

	assert.NoError(t, newTestService(new(MockLedgerRepository), nil, new(MockAnalyzer)).InvalidateInvestor(ctx, 42, "manual"))
}
