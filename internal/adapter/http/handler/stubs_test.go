package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// newRequest builds a request with chi URL params given as name/value pairs.
func newRequest(t *testing.T, method, target string, body any, params ...string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)

	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}

	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func strPtr(s string) *string { return &s }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func expectErrorKind(t *testing.T, rec *httptest.ResponseRecorder, kind domain.Kind) {
	t.Helper()
	var resp dto.ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Kind != string(kind) {
		t.Fatalf("expected error kind %s, got %+v", kind, resp)
	}
}

type meterServiceStub struct {
	createFn       func(ctx context.Context, input usecase.CreateMeterInput) (*domain.Meter, error)
	getFn          func(ctx context.Context, meterID string) (*domain.Meter, error)
	listFn         func(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error)
	listReadingsFn func(ctx context.Context, meterID string) ([]*domain.MeterReading, error)
	recordFn       func(ctx context.Context, input usecase.RecordReadingInput) (*usecase.RecordReadingResult, error)
	exchangeFn     func(ctx context.Context, input usecase.ExchangeMeterInput) (*usecase.ExchangeResult, error)
	usageFn        func(ctx context.Context, meterID string, period domain.Period) (*domain.Usage, error)
}

func (s *meterServiceStub) CreateMeter(ctx context.Context, input usecase.CreateMeterInput) (*domain.Meter, error) {
	return s.createFn(ctx, input)
}

func (s *meterServiceStub) GetMeter(ctx context.Context, meterID string) (*domain.Meter, error) {
	return s.getFn(ctx, meterID)
}

func (s *meterServiceStub) ListMeters(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error) {
	return s.listFn(ctx, propertyID, includeRetired)
}

func (s *meterServiceStub) ListReadings(ctx context.Context, meterID string) ([]*domain.MeterReading, error) {
	return s.listReadingsFn(ctx, meterID)
}

func (s *meterServiceStub) RecordReading(ctx context.Context, input usecase.RecordReadingInput) (*usecase.RecordReadingResult, error) {
	return s.recordFn(ctx, input)
}

func (s *meterServiceStub) ExchangeMeter(ctx context.Context, input usecase.ExchangeMeterInput) (*usecase.ExchangeResult, error) {
	return s.exchangeFn(ctx, input)
}

func (s *meterServiceStub) UsageBetween(ctx context.Context, meterID string, period domain.Period) (*domain.Usage, error) {
	return s.usageFn(ctx, meterID, period)
}

type fixedUtilityServiceStub struct {
	createFn     func(ctx context.Context, input usecase.CreateFixedUtilityInput) (*domain.FixedUtility, error)
	listFn       func(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error)
	deactivateFn func(ctx context.Context, id string, at time.Time) (*domain.FixedUtility, error)
}

func (s *fixedUtilityServiceStub) CreateFixedUtility(ctx context.Context, input usecase.CreateFixedUtilityInput) (*domain.FixedUtility, error) {
	return s.createFn(ctx, input)
}

func (s *fixedUtilityServiceStub) ListFixedUtilities(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error) {
	return s.listFn(ctx, propertyID, includeInactive)
}

func (s *fixedUtilityServiceStub) DeactivateFixedUtility(ctx context.Context, id string, at time.Time) (*domain.FixedUtility, error) {
	return s.deactivateFn(ctx, id, at)
}

type occupancyServiceStub struct {
	resolveFn func(ctx context.Context, propertyID string, period domain.Period) (*usecase.ResolvedOccupancy, error)
}

func (s *occupancyServiceStub) Resolve(ctx context.Context, propertyID string, period domain.Period) (*usecase.ResolvedOccupancy, error) {
	return s.resolveFn(ctx, propertyID, period)
}

type calculationServiceStub struct {
	previewFn func(ctx context.Context, req usecase.CalculationRequest) (*domain.Calculation, error)
}

func (s *calculationServiceStub) Preview(ctx context.Context, req usecase.CalculationRequest) (*domain.Calculation, error) {
	return s.previewFn(ctx, req)
}

type settlementServiceStub struct {
	createFn      func(ctx context.Context, req usecase.CalculationRequest) (*domain.Settlement, error)
	getFn         func(ctx context.Context, id string) (*domain.Settlement, error)
	listFn        func(ctx context.Context, input usecase.ListSettlementsInput) ([]*domain.Settlement, error)
	postingsFn    func(ctx context.Context, id string) ([]*domain.Posting, error)
	adjustFn      func(ctx context.Context, input usecase.AdjustShareInput) (*domain.Settlement, error)
	recalculateFn func(ctx context.Context, id string) (*domain.Settlement, error)
	finalizeFn    func(ctx context.Context, id string) (*domain.Settlement, error)
	voidFn        func(ctx context.Context, input usecase.VoidInput) (*domain.Settlement, error)
}

func (s *settlementServiceStub) CreateDraft(ctx context.Context, req usecase.CalculationRequest) (*domain.Settlement, error) {
	return s.createFn(ctx, req)
}

func (s *settlementServiceStub) GetSettlement(ctx context.Context, id string) (*domain.Settlement, error) {
	return s.getFn(ctx, id)
}

func (s *settlementServiceStub) ListSettlements(ctx context.Context, input usecase.ListSettlementsInput) ([]*domain.Settlement, error) {
	return s.listFn(ctx, input)
}

func (s *settlementServiceStub) ListPostings(ctx context.Context, id string) ([]*domain.Posting, error) {
	return s.postingsFn(ctx, id)
}

func (s *settlementServiceStub) AdjustShare(ctx context.Context, input usecase.AdjustShareInput) (*domain.Settlement, error) {
	return s.adjustFn(ctx, input)
}

func (s *settlementServiceStub) RecalculateDraft(ctx context.Context, id string) (*domain.Settlement, error) {
	return s.recalculateFn(ctx, id)
}

func (s *settlementServiceStub) Finalize(ctx context.Context, id string) (*domain.Settlement, error) {
	return s.finalizeFn(ctx, id)
}

func (s *settlementServiceStub) Void(ctx context.Context, input usecase.VoidInput) (*domain.Settlement, error) {
	return s.voidFn(ctx, input)
}

type reconciliationServiceStub struct {
	checkFn    func(ctx context.Context, id string) (*usecase.SettlementCheck, error)
	propertyFn func(ctx context.Context, propertyID string) (*usecase.ReconciliationReport, error)
}

func (s *reconciliationServiceStub) CheckSettlement(ctx context.Context, id string) (*usecase.SettlementCheck, error) {
	return s.checkFn(ctx, id)
}

func (s *reconciliationServiceStub) CheckProperty(ctx context.Context, propertyID string) (*usecase.ReconciliationReport, error) {
	return s.propertyFn(ctx, propertyID)
}
