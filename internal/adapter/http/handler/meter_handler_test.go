package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

func TestMeterHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateMeterInput
	handler := NewMeterHandler(&meterServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateMeterInput) (*domain.Meter, error) {
			captured = input
			return &domain.Meter{ID: "m-1", PropertyID: input.PropertyID, UtilityType: input.UtilityType, Number: input.Number, Unit: input.Unit}, nil
		},
	})

	req := newRequest(t, http.MethodPost, "/properties/prop-1/meters", dto.CreateMeterRequest{
		UtilityType:    "ELECTRICITY",
		Number:         "E-1",
		Unit:           "kWh",
		InitialReading: strPtr("1200.5"),
	}, "propertyID", "prop-1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	expectStatus(t, rec, http.StatusCreated)
	if captured.PropertyID != "prop-1" || captured.UtilityType != domain.UtilityElectricity {
		t.Fatalf("unexpected input: %+v", captured)
	}
	if captured.InitialReading == nil || captured.InitialReading.String() != "1200.5" {
		t.Fatalf("expected initial reading to be parsed, got %v", captured.InitialReading)
	}

	var resp dto.MeterResponse
	decodeBody(t, rec, &resp)
	if resp.ID != "m-1" || resp.Number != "E-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestMeterHandler_Create_InvalidBody(t *testing.T) {
	handler := NewMeterHandler(&meterServiceStub{})

	req := newRequest(t, http.MethodPost, "/properties/prop-1/meters", "{not json", "propertyID", "prop-1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	expectStatus(t, rec, http.StatusBadRequest)
}

func TestMeterHandler_Get_NotFound(t *testing.T) {
	handler := NewMeterHandler(&meterServiceStub{
		getFn: func(ctx context.Context, meterID string) (*domain.Meter, error) {
			return nil, domain.NotFound(domain.EntityMeter, meterID)
		},
	})

	req := newRequest(t, http.MethodGet, "/meters/missing", nil, "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	expectStatus(t, rec, http.StatusNotFound)
	expectErrorKind(t, rec, domain.KindNotFound)
}

func TestMeterHandler_List_IncludeRetired(t *testing.T) {
	var gotRetired bool
	handler := NewMeterHandler(&meterServiceStub{
		listFn: func(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error) {
			gotRetired = includeRetired
			return []*domain.Meter{{ID: "m-1"}, {ID: "m-2"}}, nil
		},
	})

	req := newRequest(t, http.MethodGet, "/properties/prop-1/meters?include_retired=true", nil, "propertyID", "prop-1")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	expectStatus(t, rec, http.StatusOK)
	if !gotRetired {
		t.Fatalf("expected include_retired to be forwarded")
	}

	var resp []dto.MeterResponse
	decodeBody(t, rec, &resp)
	if len(resp) != 2 {
		t.Fatalf("expected 2 meters, got %d", len(resp))
	}
}

func TestMeterHandler_RecordReading_ReturnsWarnings(t *testing.T) {
	handler := NewMeterHandler(&meterServiceStub{
		recordFn: func(ctx context.Context, input usecase.RecordReadingInput) (*usecase.RecordReadingResult, error) {
			if input.MeterID != "m-1" || !input.Value.Equal(decimal.NewFromInt(90)) {
				t.Fatalf("unexpected input: %+v", input)
			}
			return &usecase.RecordReadingResult{
				Reading:  &domain.MeterReading{ID: "r-1", MeterID: "m-1", Value: input.Value, ReadingDate: input.Date, Kind: domain.ReadingRegular},
				Warnings: []domain.Warning{{Code: domain.WarningReadingDecrease, Message: "reading went down"}},
			}, nil
		},
	})

	req := newRequest(t, http.MethodPost, "/meters/m-1/readings", dto.RecordReadingRequest{Value: "90", Date: "2024-01-20"}, "id", "m-1")
	rec := httptest.NewRecorder()

	handler.RecordReading(rec, req)

	expectStatus(t, rec, http.StatusCreated)

	var resp dto.RecordReadingResponse
	decodeBody(t, rec, &resp)
	if resp.Reading == nil || resp.Reading.ReadingDate != "2024-01-20" {
		t.Fatalf("unexpected reading: %+v", resp.Reading)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Code != domain.WarningReadingDecrease {
		t.Fatalf("expected decrease warning, got %+v", resp.Warnings)
	}
}

func TestMeterHandler_RecordReading_RetiredMeter(t *testing.T) {
	handler := NewMeterHandler(&meterServiceStub{
		recordFn: func(ctx context.Context, input usecase.RecordReadingInput) (*usecase.RecordReadingResult, error) {
			return nil, domain.Conflict(domain.EntityMeter, input.MeterID, domain.ErrMeterRetired.Constraint)
		},
	})

	req := newRequest(t, http.MethodPost, "/meters/m-1/readings", dto.RecordReadingRequest{Value: "10", Date: "2024-01-20"}, "id", "m-1")
	rec := httptest.NewRecorder()

	handler.RecordReading(rec, req)

	expectStatus(t, rec, http.StatusConflict)
	expectErrorKind(t, rec, domain.KindConflict)
}

func TestMeterHandler_Exchange(t *testing.T) {
	retired := domain.Date(2024, 1, 15)
	newID := "m-2"
	oldID := "m-1"
	handler := NewMeterHandler(&meterServiceStub{
		exchangeFn: func(ctx context.Context, input usecase.ExchangeMeterInput) (*usecase.ExchangeResult, error) {
			return &usecase.ExchangeResult{
				OldMeter: &domain.Meter{ID: oldID, RetiredAt: &retired, ReplacedByID: &newID},
				NewMeter: &domain.Meter{ID: newID, ReplacesID: &oldID},
			}, nil
		},
	})

	req := newRequest(t, http.MethodPost, "/meters/m-1/exchange", dto.ExchangeMeterRequest{
		ExchangeDate:   "2024-01-15",
		FinalReading:   "150",
		InitialReading: "0",
		NewMeter:       dto.NewMeterRequest{Number: "E-2"},
	}, "id", "m-1")
	rec := httptest.NewRecorder()

	handler.Exchange(rec, req)

	expectStatus(t, rec, http.StatusCreated)

	var resp dto.ExchangeResponse
	decodeBody(t, rec, &resp)
	if resp.OldMeter.RetiredAt == nil || *resp.OldMeter.RetiredAt != "2024-01-15" {
		t.Fatalf("expected retirement date, got %+v", resp.OldMeter)
	}
	if resp.NewMeter.ReplacesID == nil || *resp.NewMeter.ReplacesID != oldID {
		t.Fatalf("expected link to old meter, got %+v", resp.NewMeter)
	}
}

func TestMeterHandler_Exchange_BadDate(t *testing.T) {
	handler := NewMeterHandler(&meterServiceStub{})

	req := newRequest(t, http.MethodPost, "/meters/m-1/exchange", dto.ExchangeMeterRequest{
		ExchangeDate:   "15.01.2024",
		FinalReading:   "150",
		InitialReading: "0",
	}, "id", "m-1")
	rec := httptest.NewRecorder()

	handler.Exchange(rec, req)

	expectStatus(t, rec, http.StatusBadRequest)
	expectErrorKind(t, rec, domain.KindValidation)
}

func TestMeterHandler_Usage(t *testing.T) {
	handler := NewMeterHandler(&meterServiceStub{
		usageFn: func(ctx context.Context, meterID string, period domain.Period) (*domain.Usage, error) {
			if !period.Start.Equal(domain.Date(2024, 1, 1)) || !period.End.Equal(domain.Date(2024, 2, 1)) {
				t.Fatalf("unexpected period %s", period)
			}
			return &domain.Usage{MeterID: meterID, Period: period, Total: decimal.NewFromInt(90)}, nil
		},
	})

	req := newRequest(t, http.MethodGet, "/meters/m-2/usage?from=2024-01-01&to=2024-02-01", nil, "id", "m-2")
	rec := httptest.NewRecorder()

	handler.Usage(rec, req)

	expectStatus(t, rec, http.StatusOK)

	var resp dto.UsageResponse
	decodeBody(t, rec, &resp)
	if resp.Total != "90" {
		t.Fatalf("expected total 90, got %s", resp.Total)
	}
}

func TestMeterHandler_Usage_MissingPeriod(t *testing.T) {
	handler := NewMeterHandler(&meterServiceStub{})

	req := newRequest(t, http.MethodGet, "/meters/m-2/usage", nil, "id", "m-2")
	rec := httptest.NewRecorder()

	handler.Usage(rec, req)

	expectStatus(t, rec, http.StatusBadRequest)
}

func TestFixedUtilityHandler_Deactivate(t *testing.T) {
	var gotAt time.Time
	handler := NewFixedUtilityHandler(&fixedUtilityServiceStub{
		deactivateFn: func(ctx context.Context, id string, at time.Time) (*domain.FixedUtility, error) {
			gotAt = at
			return &domain.FixedUtility{ID: id, IsActive: false, PeriodCost: decimal.NewFromInt(60), DeactivatedAt: &at}, nil
		},
	})

	req := newRequest(t, http.MethodDelete, "/fixed-utilities/fu-1?date=2024-03-01", nil, "id", "fu-1")
	rec := httptest.NewRecorder()

	handler.Deactivate(rec, req)

	expectStatus(t, rec, http.StatusOK)
	if !gotAt.Equal(domain.Date(2024, 3, 1)) {
		t.Fatalf("expected deactivation date 2024-03-01, got %v", gotAt)
	}

	var resp dto.FixedUtilityResponse
	decodeBody(t, rec, &resp)
	if resp.IsActive || resp.PeriodCost != "60.00" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFixedUtilityHandler_Deactivate_DefaultsToToday(t *testing.T) {
	fixed := time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC)
	var gotAt time.Time
	handler := NewFixedUtilityHandler(&fixedUtilityServiceStub{
		deactivateFn: func(ctx context.Context, id string, at time.Time) (*domain.FixedUtility, error) {
			gotAt = at
			return nil, domain.Conflict(domain.EntityFixedUtility, id, domain.ErrUtilityInactive.Constraint)
		},
	})
	handler.now = func() time.Time { return fixed }

	req := newRequest(t, http.MethodDelete, "/fixed-utilities/fu-1", nil, "id", "fu-1")
	rec := httptest.NewRecorder()

	handler.Deactivate(rec, req)

	expectStatus(t, rec, http.StatusConflict)
	if !gotAt.Equal(fixed) {
		t.Fatalf("expected current time, got %v", gotAt)
	}
}

func TestFixedUtilityHandler_Create(t *testing.T) {
	var captured usecase.CreateFixedUtilityInput
	handler := NewFixedUtilityHandler(&fixedUtilityServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateFixedUtilityInput) (*domain.FixedUtility, error) {
			captured = input
			return &domain.FixedUtility{ID: "fu-1", PropertyID: input.PropertyID, Type: input.Type, Name: input.Name,
				PeriodCost: input.PeriodCost, SplitMethod: input.SplitMethod, IsActive: true, ActiveFrom: domain.Date(2024, 1, 1)}, nil
		},
	})

	req := newRequest(t, http.MethodPost, "/properties/prop-1/fixed-utilities", dto.CreateFixedUtilityRequest{
		Type:        "INTERNET",
		Name:        "Fiber",
		PeriodCost:  "60",
		SplitMethod: "BY_DAYS",
	}, "propertyID", "prop-1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	expectStatus(t, rec, http.StatusCreated)
	if captured.SplitMethod != domain.SplitByDays || !captured.PeriodCost.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected input: %+v", captured)
	}
}

func TestFixedUtilityHandler_List(t *testing.T) {
	handler := NewFixedUtilityHandler(&fixedUtilityServiceStub{
		listFn: func(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error) {
			if includeInactive {
				t.Fatalf("include_inactive should default to false")
			}
			return nil, domain.NotFound(domain.EntityProperty, propertyID)
		},
	})

	req := newRequest(t, http.MethodGet, "/properties/other/fixed-utilities", nil, "propertyID", "other")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	expectStatus(t, rec, http.StatusNotFound)
}

func TestOccupancyHandler_Get(t *testing.T) {
	handler := NewOccupancyHandler(&occupancyServiceStub{
		resolveFn: func(ctx context.Context, propertyID string, period domain.Period) (*usecase.ResolvedOccupancy, error) {
			return &usecase.ResolvedOccupancy{
				Occupancy: domain.Occupancy{
					Period:    period,
					TotalDays: period.Days(),
					Spans: []domain.OccupancySpan{
						{TenantID: "t-x", OccupiedDays: 31, Weight: decimal.NewFromInt(31), Fraction: decimal.RequireFromString("0.5")},
					},
				},
				TenantNames: map[string]string{"t-x": "Xavier"},
			}, nil
		},
	})

	req := newRequest(t, http.MethodGet, "/properties/prop-1/occupancy?from=2024-01-01&to=2024-02-01", nil, "propertyID", "prop-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	expectStatus(t, rec, http.StatusOK)

	var resp dto.OccupancyResponse
	decodeBody(t, rec, &resp)
	if resp.TotalDays != 31 || len(resp.Tenants) != 1 || resp.Tenants[0].TenantName != "Xavier" {
		t.Fatalf("unexpected occupancy: %+v", resp)
	}
}
