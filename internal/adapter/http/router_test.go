package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/rentledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/rentledger/internal/adapter/http/middleware"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/auth"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
	"github.com/iho/rentledger/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	calc := &stubCalculationService{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
		cfg.SettlementHandler = handler.NewSettlementHandler(calc, nil, nil)
	}))

	body := `{"property_id":"prop-1","start_date":"2024-01-01","end_date":"2024-02-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.OwnerHeader, "owner-1")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected preview to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.checkedKey != "owner-1:key-123" {
		t.Fatalf("expected owner scoped key, got %q", store.checkedKey)
	}
	if !store.updated {
		t.Fatalf("expected successful response to be stored")
	}
	if calc.got.PropertyID != "prop-1" {
		t.Fatalf("expected request to reach the calculation service, got %+v", calc.got)
	}
}

func TestNewRouter_RequiresOwner(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/meters/m-1", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without owner header, got %d", rec.Code)
	}
}

func TestNewRouter_TokenVerifierReplacesHeaderOwner(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.TokenVerifier = auth.NewJWTManager("secret", time.Hour)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meters/m-1", nil)
	req.Header.Set(apimiddleware.OwnerHeader, "owner-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected owner header to be ignored with auth enabled, got %d", rec.Code)
	}
}

func TestNewRouter_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Metrics = metrics.New(reg)
		cfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /metrics to return 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/health"`) {
		t.Fatalf("expected /health request to be counted:\n%s", rec.Body.String())
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/properties/{propertyID}/meters",
		"GET /api/v1/properties/{propertyID}/meters",
		"POST /api/v1/properties/{propertyID}/fixed-utilities",
		"GET /api/v1/properties/{propertyID}/occupancy",
		"GET /api/v1/properties/{propertyID}/settlements",
		"GET /api/v1/properties/{propertyID}/reconciliation",
		"GET /api/v1/meters/{id}/",
		"POST /api/v1/meters/{id}/readings",
		"POST /api/v1/meters/{id}/exchange",
		"GET /api/v1/meters/{id}/usage",
		"DELETE /api/v1/fixed-utilities/{id}",
		"POST /api/v1/settlements/",
		"POST /api/v1/settlements/preview",
		"GET /api/v1/settlements/{id}/",
		"PATCH /api/v1/settlements/{id}/shares/{shareID}",
		"POST /api/v1/settlements/{id}/recalculate",
		"POST /api/v1/settlements/{id}/finalize",
		"POST /api/v1/settlements/{id}/void",
		"GET /api/v1/settlements/{id}/postings",
		"GET /api/v1/settlements/{id}/export.xlsx",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		MeterHandler:        handler.NewMeterHandler(nil),
		FixedUtilityHandler: handler.NewFixedUtilityHandler(nil),
		OccupancyHandler:    handler.NewOccupancyHandler(nil),
		SettlementHandler:   handler.NewSettlementHandler(nil, nil, nil),
		HealthHandler:       handler.NewHealthHandler(nil, nil),
		Logger:              zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubCalculationService struct {
	got usecase.CalculationRequest
}

func (s *stubCalculationService) Preview(ctx context.Context, req usecase.CalculationRequest) (*domain.Calculation, error) {
	s.got = req
	period, err := domain.NewPeriod(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	return &domain.Calculation{PropertyID: req.PropertyID, Period: period, Approach: domain.ApproachMonthly}, nil
}

type stubIdempotencyStore struct {
	checkedKey string
	updated    bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkedKey = key
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.updated = true
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
