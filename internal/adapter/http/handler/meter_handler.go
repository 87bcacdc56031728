package handler

import (
	"context"
	"net/http"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// MeterService is the subset of the meter use case the handler needs.
type MeterService interface {
	CreateMeter(ctx context.Context, input usecase.CreateMeterInput) (*domain.Meter, error)
	GetMeter(ctx context.Context, meterID string) (*domain.Meter, error)
	ListMeters(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error)
	ListReadings(ctx context.Context, meterID string) ([]*domain.MeterReading, error)
	RecordReading(ctx context.Context, input usecase.RecordReadingInput) (*usecase.RecordReadingResult, error)
	ExchangeMeter(ctx context.Context, input usecase.ExchangeMeterInput) (*usecase.ExchangeResult, error)
	UsageBetween(ctx context.Context, meterID string, period domain.Period) (*domain.Usage, error)
}

// MeterHandler handles meter and reading HTTP requests.
type MeterHandler struct {
	meterUC MeterService
}

// NewMeterHandler creates a new MeterHandler.
func NewMeterHandler(meterUC MeterService) *MeterHandler {
	return &MeterHandler{meterUC: meterUC}
}

// Create installs a meter on a property.
func (h *MeterHandler) Create(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := urlParam(w, r, "propertyID")
	if !ok {
		return
	}

	var req dto.CreateMeterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(propertyID)
	if err != nil {
		writeDomainError(w, "invalid meter", err)
		return
	}

	meter, err := h.meterUC.CreateMeter(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create meter", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.MeterFromDomain(meter))
}

// List lists the meters of a property. Retired meters are included with
// ?include_retired=true.
func (h *MeterHandler) List(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := urlParam(w, r, "propertyID")
	if !ok {
		return
	}

	meters, err := h.meterUC.ListMeters(r.Context(), propertyID, parseBoolQuery(r, "include_retired"))
	if err != nil {
		writeDomainError(w, "failed to list meters", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MetersFromDomain(meters))
}

// Get retrieves a meter by ID.
func (h *MeterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	meter, err := h.meterUC.GetMeter(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get meter", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MeterFromDomain(meter))
}

// RecordReading appends a reading to a meter.
func (h *MeterHandler) RecordReading(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.RecordReadingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(id)
	if err != nil {
		writeDomainError(w, "invalid reading", err)
		return
	}

	result, err := h.meterUC.RecordReading(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to record reading", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RecordReadingFromResult(result))
}

// ListReadings lists the readings of a meter in date order.
func (h *MeterHandler) ListReadings(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	readings, err := h.meterUC.ListReadings(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to list readings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReadingsFromDomain(readings))
}

// Exchange retires a meter and installs its replacement.
func (h *MeterHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.ExchangeMeterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(id)
	if err != nil {
		writeDomainError(w, "invalid exchange", err)
		return
	}

	result, err := h.meterUC.ExchangeMeter(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to exchange meter", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ExchangeFromResult(result))
}

// Usage returns the consumption of a meter chain between ?from and ?to.
func (h *MeterHandler) Usage(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	period, err := parsePeriodQuery(r)
	if err != nil {
		writeDomainError(w, "invalid period", err)
		return
	}

	usage, err := h.meterUC.UsageBetween(r.Context(), id, period)
	if err != nil {
		writeDomainError(w, "failed to compute usage", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UsageFromDomain(usage))
}
