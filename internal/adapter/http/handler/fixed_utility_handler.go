package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// FixedUtilityService is the subset of the fixed-utility use case the handler needs.
type FixedUtilityService interface {
	CreateFixedUtility(ctx context.Context, input usecase.CreateFixedUtilityInput) (*domain.FixedUtility, error)
	ListFixedUtilities(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error)
	DeactivateFixedUtility(ctx context.Context, id string, at time.Time) (*domain.FixedUtility, error)
}

// FixedUtilityHandler handles fixed-utility HTTP requests.
type FixedUtilityHandler struct {
	utilityUC FixedUtilityService
	now       func() time.Time
}

// NewFixedUtilityHandler creates a new FixedUtilityHandler.
func NewFixedUtilityHandler(utilityUC FixedUtilityService) *FixedUtilityHandler {
	return &FixedUtilityHandler{utilityUC: utilityUC, now: time.Now}
}

// Create registers a fixed utility on a property.
func (h *FixedUtilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := urlParam(w, r, "propertyID")
	if !ok {
		return
	}

	var req dto.CreateFixedUtilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(propertyID)
	if err != nil {
		writeDomainError(w, "invalid fixed utility", err)
		return
	}

	utility, err := h.utilityUC.CreateFixedUtility(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create fixed utility", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.FixedUtilityFromDomain(utility))
}

// List lists fixed utilities of a property; ?include_inactive=true adds
// deactivated ones.
func (h *FixedUtilityHandler) List(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := urlParam(w, r, "propertyID")
	if !ok {
		return
	}

	utilities, err := h.utilityUC.ListFixedUtilities(r.Context(), propertyID, parseBoolQuery(r, "include_inactive"))
	if err != nil {
		writeDomainError(w, "failed to list fixed utilities", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FixedUtilitiesFromDomain(utilities))
}

// Deactivate stops a fixed utility. ?date=YYYY-MM-DD sets the end date,
// today otherwise.
func (h *FixedUtilityHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	at := h.now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			writeDomainError(w, "invalid date", err)
			return
		}
		at = d
	}

	utility, err := h.utilityUC.DeactivateFixedUtility(r.Context(), id, at)
	if err != nil {
		writeDomainError(w, "failed to deactivate fixed utility", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FixedUtilityFromDomain(utility))
}
