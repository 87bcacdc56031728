package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/iho/rentledger/internal/adapter/http/dto"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/export"
	"github.com/iho/rentledger/internal/usecase"
)

// CalculationService runs dry-run settlement calculations.
type CalculationService interface {
	Preview(ctx context.Context, req usecase.CalculationRequest) (*domain.Calculation, error)
}

// SettlementService is the subset of the settlement use case the handler needs.
type SettlementService interface {
	CreateDraft(ctx context.Context, req usecase.CalculationRequest) (*domain.Settlement, error)
	GetSettlement(ctx context.Context, id string) (*domain.Settlement, error)
	ListSettlements(ctx context.Context, input usecase.ListSettlementsInput) ([]*domain.Settlement, error)
	ListPostings(ctx context.Context, id string) ([]*domain.Posting, error)
	AdjustShare(ctx context.Context, input usecase.AdjustShareInput) (*domain.Settlement, error)
	RecalculateDraft(ctx context.Context, id string) (*domain.Settlement, error)
	Finalize(ctx context.Context, id string) (*domain.Settlement, error)
	Void(ctx context.Context, input usecase.VoidInput) (*domain.Settlement, error)
}

// ReconciliationService checks settlements against their postings.
type ReconciliationService interface {
	CheckSettlement(ctx context.Context, id string) (*usecase.SettlementCheck, error)
	CheckProperty(ctx context.Context, propertyID string) (*usecase.ReconciliationReport, error)
}

// SettlementHandler handles settlement HTTP requests.
type SettlementHandler struct {
	calculationUC    CalculationService
	settlementUC     SettlementService
	reconciliationUC ReconciliationService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(calculationUC CalculationService, settlementUC SettlementService, reconciliationUC ReconciliationService) *SettlementHandler {
	return &SettlementHandler{
		calculationUC:    calculationUC,
		settlementUC:     settlementUC,
		reconciliationUC: reconciliationUC,
	}
}

// Preview calculates a settlement without storing it.
func (h *SettlementHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req dto.CalculationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid calculation request", err)
		return
	}

	calc, err := h.calculationUC.Preview(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to preview settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CalculationFromDomain(calc))
}

// Create stores a DRAFT settlement.
func (h *SettlementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CalculationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, "invalid calculation request", err)
		return
	}

	settlement, err := h.settlementUC.CreateDraft(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create settlement", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SettlementFromDomain(settlement))
}

// List lists settlements of a property, newest first.
func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := urlParam(w, r, "propertyID")
	if !ok {
		return
	}

	settlements, err := h.settlementUC.ListSettlements(r.Context(), usecase.ListSettlementsInput{
		PropertyID: propertyID,
		Limit:      parseIntQuery(r, "limit", 50),
		Offset:     parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list settlements", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementsFromDomain(settlements))
}

// Get retrieves a settlement with its items and shares.
func (h *SettlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	settlement, err := h.settlementUC.GetSettlement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// AdjustShare edits one share of a DRAFT settlement. Shares of a finalized or
// voided settlement are reported as not found.
func (h *SettlementHandler) AdjustShare(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}
	shareID, ok := urlParam(w, r, "shareID")
	if !ok {
		return
	}

	var req dto.AdjustShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(id, shareID)
	if err != nil {
		writeDomainError(w, "invalid adjustment", err)
		return
	}

	settlement, err := h.settlementUC.AdjustShare(r.Context(), input)
	if errors.Is(err, domain.ErrSettlementNotDraft) {
		err = domain.NotFound(domain.EntityShare, shareID)
	}
	if err != nil {
		writeDomainError(w, "failed to adjust share", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// Recalculate refreshes a DRAFT settlement from current data.
func (h *SettlementHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	settlement, err := h.settlementUC.RecalculateDraft(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to recalculate settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// Finalize posts a DRAFT settlement.
func (h *SettlementHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	settlement, err := h.settlementUC.Finalize(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to finalize settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// Void reverses a FINALIZED settlement.
func (h *SettlementHandler) Void(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	var req dto.VoidSettlementRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	settlement, err := h.settlementUC.Void(r.Context(), usecase.VoidInput{SettlementID: id, Reason: req.Reason})
	if err != nil {
		writeDomainError(w, "failed to void settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(settlement))
}

// Postings lists the ledger postings of a settlement.
func (h *SettlementHandler) Postings(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	postings, err := h.settlementUC.ListPostings(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to list postings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PostingsFromDomain(postings))
}

// Reconciliation checks a settlement against its postings.
func (h *SettlementHandler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	check, err := h.reconciliationUC.CheckSettlement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to reconcile settlement", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromCheck(check))
}

// PropertyReconciliation checks every settlement of a property.
func (h *SettlementHandler) PropertyReconciliation(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := urlParam(w, r, "propertyID")
	if !ok {
		return
	}

	report, err := h.reconciliationUC.CheckProperty(r.Context(), propertyID)
	if err != nil {
		writeDomainError(w, "failed to reconcile property", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PropertyReconciliationFromReport(report))
}

// Export downloads a settlement as a spreadsheet.
func (h *SettlementHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}

	settlement, err := h.settlementUC.GetSettlement(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to get settlement", err)
		return
	}

	postings, err := h.settlementUC.ListPostings(r.Context(), id)
	if err != nil {
		writeDomainError(w, "failed to list postings", err)
		return
	}

	data, err := export.SettlementXLSX(settlement, postings)
	if err != nil {
		writeDomainError(w, "failed to export settlement", err)
		return
	}

	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="settlement-%s.xlsx"`, settlement.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
