package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/rentledger/internal/adapter/http"
	"github.com/iho/rentledger/internal/adapter/http/handler"
	"github.com/iho/rentledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/rentledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/rentledger/internal/adapter/repository/redis"
	"github.com/iho/rentledger/internal/infrastructure/auth"
	"github.com/iho/rentledger/internal/infrastructure/config"
	"github.com/iho/rentledger/internal/infrastructure/eventpublisher"
	"github.com/iho/rentledger/internal/infrastructure/logger"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
	"github.com/iho/rentledger/internal/infrastructure/postgres"
	"github.com/iho/rentledger/internal/infrastructure/redis"
	"github.com/iho/rentledger/internal/usecase"
)

const (
	rateLimitCleanupInterval = time.Minute
	rateLimitMaxIdle         = 10 * time.Minute
	eventStreamMaxLen        = 100000
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "rentledger",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// Run migrations
	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return err
		}
	}

	// Connect to PostgreSQL
	connectCtx, cancel := context.WithTimeout(ctx, cfg.DatabaseTimeout)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(connectCtx, postgres.PoolConfig{
		DatabaseURL:      cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		StatementTimeout: cfg.DatabaseStatementTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(connectCtx, redis.Config{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	registry := newRegistry()
	m := metrics.New(registry)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	retrier := postgresRepo.NewRetrier(log, m)
	propertyRepo := redisRepo.NewPropertyCache(redisClient, postgresRepo.NewPropertyRepository(pool), cfg.PropertyCacheTTL, log)
	meterRepo := postgresRepo.NewMeterRepository(pool)
	readingRepo := postgresRepo.NewReadingRepository(pool)
	utilityRepo := postgresRepo.NewFixedUtilityRepository(pool)
	occupancyRepo := postgresRepo.NewOccupancyRepository(pool)
	settlementRepo := postgresRepo.NewSettlementRepository(pool)
	postingRepo := postgresRepo.NewPostingRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	idGen := postgresRepo.NewULIDGenerator()

	// Initialize use cases
	meterUC := usecase.NewMeterUseCase(txManager, retrier, propertyRepo, meterRepo, readingRepo, outboxRepo, auditRepo, idGen, m, log)
	utilityUC := usecase.NewFixedUtilityUseCase(txManager, propertyRepo, utilityRepo, auditRepo, idGen)
	occupancyUC := usecase.NewOccupancyUseCase(propertyRepo, occupancyRepo)
	calculationUC := usecase.NewCalculationUseCase(propertyRepo, meterRepo, readingRepo, utilityRepo, occupancyUC, m)
	settlementUC := usecase.NewSettlementUseCase(txManager, retrier, calculationUC, propertyRepo, settlementRepo, postingRepo, outboxRepo, auditRepo, idGen, m, log)
	reconciliationUC := usecase.NewReconciliationUseCase(propertyRepo, settlementRepo, postingRepo)

	// Background workers
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewRedisStreamPublisher(redisClient, cfg.OutboxStream, eventStreamMaxLen),
		Logger:     log,
		Metrics:    m,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})
	go func() {
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
		go rateLimiter.RunCleanup(ctx, rateLimitCleanupInterval, rateLimitMaxIdle)
	}

	verifier, err := newTokenVerifier(cfg)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn().Str("header", middleware.OwnerHeader).Msg("authentication disabled, owner taken from request header")
	}

	// Create router
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		MeterHandler:        handler.NewMeterHandler(meterUC),
		FixedUtilityHandler: handler.NewFixedUtilityHandler(utilityUC),
		OccupancyHandler:    handler.NewOccupancyHandler(occupancyUC),
		SettlementHandler:   handler.NewSettlementHandler(calculationUC, settlementUC, reconciliationUC),
		HealthHandler:       handler.NewHealthHandler(pool, redisPinger(redisClient)),
		TokenVerifier:       verifier,
		IdempotencyStore:    idempotencyStore,
		IdempotencyTTL:      cfg.IdempotencyTTL,
		RateLimiter:         rateLimiter,
		Metrics:             m,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:              log,
	})

	server := newServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newTokenVerifier returns nil when authentication is disabled.
func newTokenVerifier(cfg *config.Config) (middleware.TokenVerifier, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required when AUTH_ENABLED is true")
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), nil
}

func redisPinger(client *goredis.Client) handler.Pinger {
	return handler.PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
