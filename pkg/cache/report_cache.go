package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/sirupsen/logrus"

	"portfolio-analytics-api/internal/config"
	"portfolio-analytics-api/internal/dto"
	"portfolio-analytics-api/internal/models"
)

// Cache tiers reported on lookups
const (
	TierLocal  = "local"
	TierRemote = "remote"
	TierMiss   = "miss"
)

// RemoteStore is the distributed tier of the report cache
type RemoteStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// ReportCache keeps whole analytics reports as immutable JSON snapshots.
// Entries are replaced, never patched.
type ReportCache struct {
	local     *ccache.Cache
	remote    RemoteStore
	localTTL  time.Duration
	remoteTTL time.Duration
	opTimeout time.Duration
	keyPrefix string
	logger    *logrus.Logger
}

// NewReportCache builds the two-tier cache. remote may be nil for a local-only cache.
func NewReportCache(cfg config.CacheConfig, remote RemoteStore, logger *logrus.Logger) *ReportCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	local := ccache.New(ccache.Configure().
		MaxSize(cfg.LocalMaxSize).
		ItemsToPrune(cfg.ItemsToPrune).
		DeleteBuffer(256).
		PromoteBuffer(256).
		GetsPerPromote(3))

	return &ReportCache{
		local:     local,
		remote:    remote,
		localTTL:  cfg.LocalTTL,
		remoteTTL: cfg.ReportTTL,
		opTimeout: cfg.OperationWait,
		keyPrefix: cfg.KeyPrefix,
		logger:    logger,
	}
}

// Key returns the cache key for one investor and timeframe
func (c *ReportCache) Key(investorID int64, timeframe models.Timeframe) string {
	return fmt.Sprintf("%s:%d:%s", c.keyPrefix, investorID, timeframe)
}

func (c *ReportCache) investorPrefix(investorID int64) string {
	return fmt.Sprintf("%s:%d:", c.keyPrefix, investorID)
}

// GetReport looks the report up in the local tier and then in Redis. A Redis
// failure is logged and reported as a miss.
func (c *ReportCache) GetReport(ctx context.Context, investorID int64, timeframe models.Timeframe) (*dto.AnalyticsReport, string, error) {
	key := c.Key(investorID, timeframe)

	if item := c.local.Get(key); item != nil && !item.Expired() {
		if data, ok := item.Value().([]byte); ok {
			report, err := decodeReport(data)
			if err == nil {
				return report, TierLocal, nil
			}
			c.local.Delete(key)
		}
	}

	if c.remote == nil {
		return nil, TierMiss, ErrNotFound
	}

	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := c.remote.GetBytes(opCtx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.WithError(err).WithField("key", key).Warn("Report cache remote lookup failed")
		}
		return nil, TierMiss, ErrNotFound
	}

	report, err := decodeReport(data)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cached report")
		return nil, TierMiss, ErrNotFound
	}

	c.local.Set(key, data, c.localTTL)
	return report, TierRemote, nil
}

// SetReport stores the report in both tiers
func (c *ReportCache) SetReport(ctx context.Context, report *dto.AnalyticsReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	timeframe, err := models.ParseTimeframe(report.Timeframe)
	if err != nil {
		return err
	}
	key := c.Key(report.InvestorID, timeframe)

	c.local.Set(key, data, c.localTTL)

	if c.remote == nil {
		return nil
	}

	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.remote.SetBytes(opCtx, key, data, c.remoteTTL); err != nil {
		return fmt.Errorf("failed to store report in remote cache: %w", err)
	}
	return nil
}

// InvalidateInvestor drops every timeframe of an investor from both tiers
func (c *ReportCache) InvalidateInvestor(ctx context.Context, investorID int64) error {
	c.local.DeletePrefix(c.investorPrefix(investorID))

	if c.remote == nil {
		return nil
	}

	keys := make([]string, 0, len(models.AllTimeframes))
	for _, tf := range models.AllTimeframes {
		keys = append(keys, c.Key(investorID, tf))
	}

	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.remote.Delete(opCtx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate investor %d: %w", investorID, err)
	}
	return nil
}

// Ping checks the remote tier; a local-only cache is always ready
func (c *ReportCache) Ping(ctx context.Context) error {
	if c.remote == nil {
		return nil
	}
	return c.remote.Ping(ctx)
}

// ItemCount returns the number of entries in the local tier
func (c *ReportCache) ItemCount() int {
	return c.local.ItemCount()
}

// Stop releases the local cache worker
func (c *ReportCache) Stop() {
	c.local.Stop()
}

func (c *ReportCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

func decodeReport(data []byte) (*dto.AnalyticsReport, error) {
	var report dto.AnalyticsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
