package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "portfolio-analytics-api/docs"
	"portfolio-analytics-api/internal/analytics"
	"portfolio-analytics-api/internal/calculator"
	"portfolio-analytics-api/internal/clients"
	"portfolio-analytics-api/internal/config"
	"portfolio-analytics-api/internal/controllers"
	"portfolio-analytics-api/internal/messaging"
	"portfolio-analytics-api/internal/middleware"
	"portfolio-analytics-api/internal/monitoring"
	"portfolio-analytics-api/internal/repositories"
	mongorepo "portfolio-analytics-api/internal/repositories/mongo"
	"portfolio-analytics-api/internal/repositories/sqlstore"
	"portfolio-analytics-api/internal/scheduler"
	"portfolio-analytics-api/internal/services"
	"portfolio-analytics-api/pkg/cache"
	"portfolio-analytics-api/pkg/database"
	"portfolio-analytics-api/pkg/logger"
)

const (
	serviceName    = "portfolio-analytics-api"
	serviceVersion = "1.0.0"
)

// @title Portfolio Analytics API
// @version 1.0
// @description Read-only analytics over an investor's project investments and profit distributions

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatal("Invalid configuration: ", err)
	}

	appLogger := logger.Init(cfg.Logger)
	log := appLogger.WithField("service", serviceName)

	log.Info("Starting Portfolio Analytics API service...")

	location, err := cfg.Location()
	if err != nil {
		log.Fatal("Invalid reporting timezone: ", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	// Ledger store
	ledgerRepo, closeLedger, err := newLedgerRepository(cfg.Database, cfg.Mongo)
	if err != nil {
		log.Fatal("Failed to initialize ledger store: ", err)
	}
	defer closeLedger()
	log.WithField("driver", cfg.Database.Driver).Info("Ledger store connected")

	// Report cache
	var reportCache *cache.ReportCache
	var serviceCache services.ReportCacheInterface
	if cfg.Analytics.CacheEnabled {
		var remote cache.RemoteStore
		if cfg.Cache.RedisEnabled {
			redisClient, err := cache.NewRedisClient(cfg.Cache)
			if err != nil {
				log.WithError(err).Warn("Redis unavailable, continuing with the local cache only")
			} else {
				defer redisClient.Close()
				remote = redisClient
			}
		}
		reportCache = cache.NewReportCache(cfg.Cache, remote, appLogger)
		defer reportCache.Stop()
		serviceCache = reportCache
	}

	// Analytics engine
	var gainsPolicy calculator.UnrealizedGainsPolicy = calculator.NewLinearAccrualPolicy()
	if cfg.Analytics.ExpectedReturnPolicy == "none" {
		gainsPolicy = calculator.NoUnrealizedGains{}
	}

	var benchmark calculator.BenchmarkProvider = calculator.NewStaticBenchmark(cfg.Analytics.BenchmarkAnnualRate)
	var remoteBenchmark *services.RemoteBenchmark
	if cfg.ExternalAPIs.Benchmark.Enabled {
		benchmarkClient := clients.NewBenchmarkClient(cfg.ExternalAPIs.Benchmark)
		remoteBenchmark = services.NewRemoteBenchmark(benchmarkClient, benchmark, 0, metrics, appLogger)

		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := remoteBenchmark.Refresh(refreshCtx); err != nil {
			log.WithError(err).Warn("Initial benchmark refresh failed, using the static benchmark until the next run")
		}
		cancel()
		benchmark = remoteBenchmark
	}

	analyzer := analytics.NewPortfolioAnalyzer(
		calculator.NewAggregator(gainsPolicy),
		calculator.NewTimeSeriesBuilder(location, benchmark),
		calculator.NewRiskCalculator(calculator.RiskCalculatorConfig{RiskFreeRate: cfg.Analytics.RiskFreeRate}),
	)

	analyticsService := services.NewAnalyticsService(ledgerRepo, serviceCache, analyzer, metrics, appLogger, services.AnalyticsServiceConfig{
		Backend:                 cfg.Database.Driver,
		ComputationTimeout:      cfg.Analytics.ComputationTimeout,
		InvalidationConcurrency: cfg.Analytics.InvalidationConcurrency,
	})

	// Controllers
	analyticsController := controllers.NewAnalyticsController(
		analyticsService,
		appLogger,
		cfg.DefaultTimeframe(),
		cfg.Analytics.ComputationTimeout,
	)

	dependencies := map[string]controllers.Pinger{"ledger": analyticsService}
	if reportCache != nil {
		dependencies["cache"] = reportCache
	}
	healthController := controllers.NewHealthController(serviceName, serviceVersion, dependencies)

	// Ledger events
	var eventConsumer *messaging.LedgerEventConsumer
	if cfg.RabbitMQ.Enabled {
		eventConsumer = messaging.NewLedgerEventConsumer(cfg.RabbitMQ, analyticsService, metrics, appLogger)
		if err := eventConsumer.Start(context.Background()); err != nil {
			log.WithError(err).Error("Failed to start ledger event consumer, cached reports expire by TTL only")
			eventConsumer = nil
		}
	}

	// Scheduled jobs
	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs, err = scheduler.NewScheduler(cfg.Scheduler, metrics, appLogger)
		if err != nil {
			log.Fatal("Failed to initialize scheduler: ", err)
		}
		if remoteBenchmark != nil {
			if err := jobs.AddJob("benchmark-refresh", cfg.Scheduler.BenchmarkRefreshInterval, remoteBenchmark.Refresh); err != nil {
				log.Fatal("Failed to schedule benchmark refresh: ", err)
			}
		}
		if err := jobs.AddJob("cache-stats", cfg.Scheduler.CacheStatsInterval, analyticsService.RecordCacheStats); err != nil {
			log.Fatal("Failed to schedule cache stats: ", err)
		}
		jobs.Start()
	}

	// HTTP server
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval)
	}

	router := setupRouter(cfg, appLogger, metrics, registry, rateLimiter, analyticsController, healthController)

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	gracefulTimeout := cfg.Server.GracefulTimeout
	if gracefulTimeout <= 0 {
		gracefulTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: ", err)
	}

	if eventConsumer != nil {
		eventConsumer.Stop()
	}
	if jobs != nil {
		jobs.Stop()
	}
	if rateLimiter != nil {
		rateLimiter.Stop()
	}

	log.Info("Server exited")
}

// newLedgerRepository opens the configured ledger store and returns its closer
func newLedgerRepository(dbCfg config.DatabaseConfig, mongoCfg config.MongoConfig) (repositories.LedgerRepository, func(), error) {
	if dbCfg.Driver == "mongo" {
		mongoDB, err := database.NewMongoDB(mongoCfg)
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := mongoDB.Disconnect(); err != nil {
				logrus.WithError(err).Warn("Error disconnecting from MongoDB")
			}
		}
		return mongorepo.NewLedgerRepository(mongoDB.GetDatabase()), closer, nil
	}

	db, err := database.NewGormDB(dbCfg)
	if err != nil {
		return nil, nil, err
	}
	if dbCfg.AutoMigrate {
		if err := sqlstore.AutoMigrate(db); err != nil {
			database.CloseGormDB(db)
			return nil, nil, fmt.Errorf("failed to migrate ledger schema: %w", err)
		}
	}

	closer := func() {
		if err := database.CloseGormDB(db); err != nil {
			logrus.WithError(err).Warn("Error closing ledger database")
		}
	}
	return sqlstore.NewLedgerRepository(db, txOptionsFor(dbCfg.Driver)), closer, nil
}

// txOptionsFor leaves sqlite on driver defaults; its transactions are serializable already
func txOptionsFor(driver string) *sql.TxOptions {
	if driver == "sqlite" {
		return nil
	}
	return sqlstore.SnapshotTxOptions()
}

func setupRouter(
	cfg *config.Config,
	appLogger *logrus.Logger,
	metrics monitoring.MetricsService,
	registry *prometheus.Registry,
	rateLimiter *middleware.RateLimiter,
	analyticsController *controllers.AnalyticsController,
	healthController *controllers.HealthController,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLogger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.Metrics(metrics))

	healthController.RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	if cfg.Server.Environment != "production" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group("/api")
	if rateLimiter != nil {
		api.Use(rateLimiter.RateLimit())
	}
	analyticsController.RegisterRoutes(api)

	return router
}
