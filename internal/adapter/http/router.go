package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/rentledger/internal/adapter/http/handler"
	"github.com/iho/rentledger/internal/adapter/http/middleware"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
	"github.com/iho/rentledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	MeterHandler        *handler.MeterHandler
	FixedUtilityHandler *handler.FixedUtilityHandler
	OccupancyHandler    *handler.OccupancyHandler
	SettlementHandler   *handler.SettlementHandler
	HealthHandler       *handler.HealthHandler

	// TokenVerifier authenticates API calls. When nil the owner is taken
	// from the X-Owner-ID header.
	TokenVerifier    middleware.TokenVerifier
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Ops endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.Auth(cfg.TokenVerifier))
		} else {
			r.Use(middleware.HeaderOwner)
		}

		// Idempotency keys are scoped per owner, so this runs after auth.
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.Logger).
				WithTTL(cfg.IdempotencyTTL)
			r.Use(idempotencyMiddleware.Wrap)
		}

		// Properties
		r.Route("/properties/{propertyID}", func(r chi.Router) {
			r.Post("/meters", cfg.MeterHandler.Create)
			r.Get("/meters", cfg.MeterHandler.List)
			r.Post("/fixed-utilities", cfg.FixedUtilityHandler.Create)
			r.Get("/fixed-utilities", cfg.FixedUtilityHandler.List)
			r.Get("/occupancy", cfg.OccupancyHandler.Get)
			r.Get("/settlements", cfg.SettlementHandler.List)
			r.Get("/reconciliation", cfg.SettlementHandler.PropertyReconciliation)
		})

		// Meters
		r.Route("/meters/{id}", func(r chi.Router) {
			r.Get("/", cfg.MeterHandler.Get)
			r.Post("/readings", cfg.MeterHandler.RecordReading)
			r.Get("/readings", cfg.MeterHandler.ListReadings)
			r.Post("/exchange", cfg.MeterHandler.Exchange)
			r.Get("/usage", cfg.MeterHandler.Usage)
		})

		// Fixed utilities
		r.Delete("/fixed-utilities/{id}", cfg.FixedUtilityHandler.Deactivate)

		// Settlements
		r.Route("/settlements", func(r chi.Router) {
			r.Post("/", cfg.SettlementHandler.Create)
			r.Post("/preview", cfg.SettlementHandler.Preview)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.SettlementHandler.Get)
				r.Patch("/shares/{shareID}", cfg.SettlementHandler.AdjustShare)
				r.Post("/recalculate", cfg.SettlementHandler.Recalculate)
				r.Post("/finalize", cfg.SettlementHandler.Finalize)
				r.Post("/void", cfg.SettlementHandler.Void)
				r.Get("/postings", cfg.SettlementHandler.Postings)
				r.Get("/reconciliation", cfg.SettlementHandler.Reconciliation)
				r.Get("/export.xlsx", cfg.SettlementHandler.Export)
			})
		})
	})

	return r
}
