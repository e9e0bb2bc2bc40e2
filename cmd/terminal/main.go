package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wms-platform/pick-terminal/internal/api"
	"github.com/wms-platform/pick-terminal/internal/application"
	"github.com/wms-platform/pick-terminal/internal/config"
	"github.com/wms-platform/pick-terminal/internal/domain"
	"github.com/wms-platform/pick-terminal/internal/infrastructure/memory"
	mongoRepo "github.com/wms-platform/pick-terminal/internal/infrastructure/mongodb"
	"github.com/wms-platform/pick-terminal/internal/infrastructure/pickserver"
	"github.com/wms-platform/pick-terminal/pkg/logging"
	"github.com/wms-platform/pick-terminal/pkg/metrics"
	"github.com/wms-platform/pick-terminal/pkg/mongodb"
	"github.com/wms-platform/pick-terminal/pkg/resilience"
	"github.com/wms-platform/pick-terminal/pkg/tracing"
)

const serviceName = "pick-terminal"

func main() {
	configPath := flag.String("config", "", "path to a terminal.yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logConfig.Environment = cfg.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting pick terminal", "pickServer", cfg.PickServer.URL, "scanCache", cfg.ScanCache.Backend)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = cfg.Tracing.Endpoint
	tracingConfig.Environment = cfg.Environment
	tracingConfig.Enabled = cfg.Tracing.Enabled
	tracingConfig.SampleRate = cfg.Tracing.SampleRate

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		if cfg.Tracing.Enabled {
			logger.Info("Tracing initialized", "endpoint", cfg.Tracing.Endpoint)
		}
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Circuit breaker around every pick server call
	breakerConfig := resilience.DefaultCircuitBreakerConfig("pick-server")
	breakerConfig.MaxRequests = cfg.CircuitBreaker.MaxRequests
	breakerConfig.Interval = cfg.CircuitBreaker.Interval
	breakerConfig.Timeout = cfg.CircuitBreaker.Timeout
	breakerConfig.FailureThreshold = cfg.CircuitBreaker.FailureThreshold
	breaker := resilience.NewCircuitBreaker(breakerConfig, logger.Logger, func(name string, _, to gobreaker.State) {
		m.SetCircuitBreakerState(name, resilience.StateValue(to))
		if to == gobreaker.StateOpen {
			m.RecordCircuitBreakerTrip(name)
		}
	})
	m.SetCircuitBreakerState(breaker.Name(), resilience.StateValue(breaker.State()))

	clientConfig := pickserver.DefaultConfig(cfg.PickServer.URL)
	clientConfig.Timeout = cfg.PickServer.Timeout
	clientConfig.StrictContract = cfg.PickServer.StrictContract
	client, err := pickserver.NewClient(clientConfig, breaker, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create pick server client")
		os.Exit(1)
	}

	// Scan cache
	var (
		cache       domain.ScanCache
		mongoClient *mongodb.Client
	)
	switch cfg.ScanCache.Backend {
	case config.CacheBackendMongoDB:
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = cfg.MongoDB.URI
		mongoConfig.Database = cfg.MongoDB.Database

		mongoClient, err = mongodb.NewClient(ctx, mongoConfig, resilience.DefaultRetryConfig())
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Close(closeCtx)
		}()

		repo := mongoRepo.NewScanCacheRepository(mongoClient.Database(), cfg.ScanCache.Retention, m, logger)
		if err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() error {
			return repo.EnsureIndexes(ctx)
		}); err != nil {
			logger.WithError(err).Warn("Failed to create scan cache indexes")
		}
		cache = repo
		logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)
	default:
		cache = memory.NewScanCache(nil, m)
	}

	// Application services
	live := application.NewLiveResolver(client, cache, logger)
	resolver := application.NewCacheFallbackResolver(live, cache, cfg.ScanCache.TTL, logger, m)
	service := application.NewTerminalService(client, resolver, logger, m)

	router := api.NewRouter(service, &api.RouterConfig{
		ServiceName: serviceName,
		Logger:      logger,
		Metrics:     m,
		Ready: func() error {
			if status := breaker.Status(); status.State == gobreaker.StateOpen.String() {
				return fmt.Errorf("pick server circuit breaker is open after %d consecutive failures", status.ConsecutiveFailures)
			}
			if mongoClient != nil {
				pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return mongoClient.HealthCheck(pingCtx)
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.PickServer.Timeout + 15*time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
			os.Exit(1)
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped", "openSessions", service.ActiveSessions())
}
