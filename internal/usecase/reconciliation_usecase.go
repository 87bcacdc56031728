package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rentledger/internal/domain"
)

// ReconciliationUseCase checks that stored settlements balance against
// their shares and postings.
type ReconciliationUseCase struct {
	propertyRepo   PropertyRepository
	settlementRepo SettlementRepository
	postingRepo    PostingRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	propertyRepo PropertyRepository,
	settlementRepo SettlementRepository,
	postingRepo PostingRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		propertyRepo:   propertyRepo,
		settlementRepo: settlementRepo,
		postingRepo:    postingRepo,
	}
}

// SettlementCheck is the result of reconciling one settlement.
type SettlementCheck struct {
	SettlementID   string
	Status         domain.SettlementStatus
	TotalAmount    decimal.Decimal
	SharesTotal    decimal.Decimal
	PostingsTotal  decimal.Decimal
	ExpectedPosted decimal.Decimal
	Charges        int
	Reversals      int
	Issues         []string
	IsReconciled   bool
	CheckedAt      time.Time
}

// CheckSettlement verifies one settlement of the caller: shares must add up
// to the total; a FINALIZED settlement must carry one charge per share summing
// to the total; a VOIDED one must have a reversal per charge summing to zero;
// a DRAFT has no postings.
func (uc *ReconciliationUseCase) CheckSettlement(ctx context.Context, id string) (*SettlementCheck, error) {
	if _, err := domain.OwnerFromContext(ctx); err != nil {
		return nil, err
	}

	settlement, err := uc.settlementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, _, err := ownedProperty(ctx, uc.propertyRepo, settlement.PropertyID); err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.NotFound(domain.EntitySettlement, id)
		}
		return nil, err
	}

	postings, err := uc.postingRepo.ListBySettlement(ctx, id)
	if err != nil {
		return nil, err
	}

	return reconcile(settlement, postings), nil
}

func reconcile(settlement *domain.Settlement, postings []*domain.Posting) *SettlementCheck {
	check := &SettlementCheck{
		SettlementID:  settlement.ID,
		Status:        settlement.Status,
		TotalAmount:   settlement.TotalAmount,
		SharesTotal:   settlement.SharesTotal(),
		PostingsTotal: domain.SumPostings(postings),
		CheckedAt:     time.Now().UTC(),
	}

	for _, p := range postings {
		switch p.Kind {
		case domain.PostingCharge:
			check.Charges++
		case domain.PostingReversal:
			check.Reversals++
		}
	}

	if !check.SharesTotal.Equal(check.TotalAmount) {
		check.Issues = append(check.Issues, fmt.Sprintf("shares sum to %s, total is %s", check.SharesTotal, check.TotalAmount))
	}

	switch settlement.Status {
	case domain.SettlementDraft:
		check.ExpectedPosted = decimal.Zero
		if len(postings) > 0 {
			check.Issues = append(check.Issues, fmt.Sprintf("draft has %d postings", len(postings)))
		}
	case domain.SettlementFinalized:
		check.ExpectedPosted = settlement.TotalAmount
		if check.Charges != len(settlement.Shares) {
			check.Issues = append(check.Issues, fmt.Sprintf("%d charges for %d shares", check.Charges, len(settlement.Shares)))
		}
		if check.Reversals != 0 {
			check.Issues = append(check.Issues, fmt.Sprintf("finalized settlement has %d reversals", check.Reversals))
		}
	case domain.SettlementVoided:
		check.ExpectedPosted = decimal.Zero
		if check.Reversals != check.Charges {
			check.Issues = append(check.Issues, fmt.Sprintf("%d reversals for %d charges", check.Reversals, check.Charges))
		}
	}

	if !check.PostingsTotal.Equal(check.ExpectedPosted) {
		check.Issues = append(check.Issues, fmt.Sprintf("postings sum to %s, expected %s", check.PostingsTotal, check.ExpectedPosted))
	}

	check.IsReconciled = len(check.Issues) == 0

	return check
}

// ReconciliationReport summarizes the checks of all settlements of a property.
type ReconciliationReport struct {
	PropertyID    string
	Total         int
	Reconciled    int
	Discrepancies []*SettlementCheck
	CheckedAt     time.Time
}

// CheckProperty reconciles every settlement of the caller's property.
func (uc *ReconciliationUseCase) CheckProperty(ctx context.Context, propertyID string) (*ReconciliationReport, error) {
	if _, _, err := ownedProperty(ctx, uc.propertyRepo, propertyID); err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		PropertyID:    propertyID,
		Discrepancies: make([]*SettlementCheck, 0),
		CheckedAt:     time.Now().UTC(),
	}

	limit, offset := domain.ValidatePagination(MaxListLimit, 0)
	for {
		page, err := uc.settlementRepo.ListByProperty(ctx, propertyID, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, s := range page {
			full, err := uc.settlementRepo.GetByID(ctx, s.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load settlement %s: %w", s.ID, err)
			}

			postings, err := uc.postingRepo.ListBySettlement(ctx, s.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load postings of %s: %w", s.ID, err)
			}

			check := reconcile(full, postings)
			report.Total++
			if check.IsReconciled {
				report.Reconciled++
			} else {
				report.Discrepancies = append(report.Discrepancies, check)
			}
		}

		if len(page) < limit {
			break
		}
		offset += limit
	}

	return report, nil
}
