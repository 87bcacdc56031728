package handler

import (
	"context"
	"net/http"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// OccupancyService resolves tenant occupancy.
type OccupancyService interface {
	Resolve(ctx context.Context, propertyID string, period domain.Period) (*usecase.ResolvedOccupancy, error)
}

// OccupancyHandler handles occupancy HTTP requests.
type OccupancyHandler struct {
	occupancyUC OccupancyService
}

// NewOccupancyHandler creates a new OccupancyHandler.
func NewOccupancyHandler(occupancyUC OccupancyService) *OccupancyHandler {
	return &OccupancyHandler{occupancyUC: occupancyUC}
}

// Get returns who occupied the property between ?from and ?to.
func (h *OccupancyHandler) Get(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := urlParam(w, r, "propertyID")
	if !ok {
		return
	}

	period, err := parsePeriodQuery(r)
	if err != nil {
		writeDomainError(w, "invalid period", err)
		return
	}

	occ, err := h.occupancyUC.Resolve(r.Context(), propertyID, period)
	if err != nil {
		writeDomainError(w, "failed to resolve occupancy", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OccupancyFromDomain(occ))
}
