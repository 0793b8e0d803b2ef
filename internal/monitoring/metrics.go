package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portfolio_analytics"

// MetricsService records operational metrics of the analytics service
type MetricsService interface {
	// HTTP metrics
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)

	// Engine metrics
	RecordReportComputation(timeframe string, positions int, duration time.Duration, err error)
	RecordLedgerRead(backend string, duration time.Duration, err error)

	// Cache metrics
	RecordCacheLookup(tier string)
	RecordCacheInvalidation(reason string, investors int)
	SetLocalCacheSize(items int)

	// Event and job metrics
	RecordLedgerEvent(routingKey, outcome string)
	RecordBenchmarkRefresh(success bool, months int)
	RecordJobRun(job string, success bool, duration time.Duration)
}

type prometheusMetrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	reportsTotal       *prometheus.CounterVec
	reportDuration     *prometheus.HistogramVec
	reportPositions    prometheus.Histogram
	ledgerReadsTotal   *prometheus.CounterVec
	ledgerReadDuration *prometheus.HistogramVec

	cacheLookupsTotal       *prometheus.CounterVec
	cacheInvalidationsTotal *prometheus.CounterVec
	localCacheItems         prometheus.Gauge

	ledgerEventsTotal     *prometheus.CounterVec
	benchmarkRefreshTotal *prometheus.CounterVec
	benchmarkMonths       prometheus.Gauge
	jobRunsTotal          *prometheus.CounterVec
	jobDuration           *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) MetricsService {
	factory := promauto.With(reg)

	return &prometheusMetrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),

		reportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "reports_total",
			Help:      "Total number of analytics reports computed",
		}, []string{"timeframe", "status"}),
		reportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "report_duration_seconds",
			Help:      "Time spent computing a report, ledger read included",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"timeframe"}),
		reportPositions: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "report_positions",
			Help:      "Number of positions per computed report",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		ledgerReadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "reads_total",
			Help:      "Total number of ledger snapshot reads",
		}, []string{"backend", "status"}),
		ledgerReadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "read_duration_seconds",
			Help:      "Ledger snapshot read duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),

		cacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Report cache lookups by serving tier",
		}, []string{"tier"}),
		cacheInvalidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidated_investors_total",
			Help:      "Investors whose cached reports were invalidated",
		}, []string{"reason"}),
		localCacheItems: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "local_items",
			Help:      "Entries held by the local report cache",
		}),

		ledgerEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ledger_events_total",
			Help:      "Ledger events consumed by routing key and outcome",
		}, []string{"routing_key", "outcome"}),
		benchmarkRefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "benchmark",
			Name:      "refresh_total",
			Help:      "Benchmark series refresh attempts",
		}, []string{"status"}),
		benchmarkMonths: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "benchmark",
			Name:      "months_loaded",
			Help:      "Months held by the remote benchmark series",
		}),
		jobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job executions",
		}, []string{"job", "status"}),
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}
}

func (m *prometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordReportComputation(timeframe string, positions int, duration time.Duration, err error) {
	m.reportsTotal.WithLabelValues(timeframe, status(err == nil)).Inc()
	m.reportDuration.WithLabelValues(timeframe).Observe(duration.Seconds())
	if err == nil {
		m.reportPositions.Observe(float64(positions))
	}
}

func (m *prometheusMetrics) RecordLedgerRead(backend string, duration time.Duration, err error) {
	m.ledgerReadsTotal.WithLabelValues(backend, status(err == nil)).Inc()
	m.ledgerReadDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func (m *prometheusMetrics) RecordCacheLookup(tier string) {
	m.cacheLookupsTotal.WithLabelValues(tier).Inc()
}

func (m *prometheusMetrics) RecordCacheInvalidation(reason string, investors int) {
	m.cacheInvalidationsTotal.WithLabelValues(reason).Add(float64(investors))
}

func (m *prometheusMetrics) SetLocalCacheSize(items int) {
	m.localCacheItems.Set(float64(items))
}

func (m *prometheusMetrics) RecordLedgerEvent(routingKey, outcome string) {
	m.ledgerEventsTotal.WithLabelValues(routingKey, outcome).Inc()
}

func (m *prometheusMetrics) RecordBenchmarkRefresh(success bool, months int) {
	m.benchmarkRefreshTotal.WithLabelValues(status(success)).Inc()
	if success {
		m.benchmarkMonths.Set(float64(months))
	}
}

func (m *prometheusMetrics) RecordJobRun(job string, success bool, duration time.Duration) {
	m.jobRunsTotal.WithLabelValues(job, status(success)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// NoopMetrics discards everything, used when metrics are disabled and in tests
type NoopMetrics struct{}

func (NoopMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}

func (NoopMetrics) RecordReportComputation(string, int, time.Duration, error) {}

func (NoopMetrics) RecordLedgerRead(string, time.Duration, error) {}

func (NoopMetrics) RecordCacheLookup(string) {}

func (NoopMetrics) RecordCacheInvalidation(string, int) {}

func (NoopMetrics) SetLocalCacheSize(int) {}

func (NoopMetrics) RecordLedgerEvent(string, string) {}

func (NoopMetrics) RecordBenchmarkRefresh(bool, int) {}

func (NoopMetrics) RecordJobRun(string, bool, time.Duration) {}
