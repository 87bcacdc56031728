package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rentledger/internal/domain"
)

// FixedUtilityUseCase manages recurring flat-fee costs of a property.
type FixedUtilityUseCase struct {
	txManager    TransactionManager
	propertyRepo PropertyRepository
	utilityRepo  FixedUtilityRepository
	auditRepo    AuditRepository
	idGen        IDGenerator
}

// NewFixedUtilityUseCase creates a new FixedUtilityUseCase.
func NewFixedUtilityUseCase(
	txManager TransactionManager,
	propertyRepo PropertyRepository,
	utilityRepo FixedUtilityRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
) *FixedUtilityUseCase {
	return &FixedUtilityUseCase{
		txManager:    txManager,
		propertyRepo: propertyRepo,
		utilityRepo:  utilityRepo,
		auditRepo:    auditRepo,
		idGen:        idGen,
	}
}

// CreateFixedUtilityInput represents input for creating a fixed utility.
type CreateFixedUtilityInput struct {
	PropertyID  string
	Type        domain.UtilityType
	Name        string
	PeriodCost  decimal.Decimal
	SplitMethod domain.SplitMethod
	IsPerPerson bool
	ActiveFrom  time.Time
}

// CreateFixedUtility registers a fixed utility. ActiveFrom defaults to today.
func (uc *FixedUtilityUseCase) CreateFixedUtility(ctx context.Context, input CreateFixedUtilityInput) (*domain.FixedUtility, error) {
	_, owner, err := ownedProperty(ctx, uc.propertyRepo, input.PropertyID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	activeFrom := input.ActiveFrom
	if activeFrom.IsZero() {
		activeFrom = now
	}

	utility := &domain.FixedUtility{
		ID:          uc.idGen.Generate(),
		PropertyID:  input.PropertyID,
		Type:        input.Type,
		Name:        input.Name,
		PeriodCost:  input.PeriodCost,
		SplitMethod: input.SplitMethod,
		IsPerPerson: input.IsPerPerson,
		IsActive:    true,
		ActiveFrom:  domain.TruncateDay(activeFrom),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := utility.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.utilityRepo.Create(txCtx, tx, utility); err != nil {
		return nil, err
	}

	if uc.auditRepo != nil {
		log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionUtilityCreate, domain.ResourceFixedUtility, utility.ID, nil, utility)
		if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return utility, nil
}

// ListFixedUtilities lists the fixed utilities of a property.
func (uc *FixedUtilityUseCase) ListFixedUtilities(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error) {
	if _, _, err := ownedProperty(ctx, uc.propertyRepo, propertyID); err != nil {
		return nil, err
	}

	return uc.utilityRepo.ListByProperty(ctx, propertyID, includeInactive)
}

// DeactivateFixedUtility soft-deletes a fixed utility as of at. Settlements
// for periods before at still include it.
func (uc *FixedUtilityUseCase) DeactivateFixedUtility(ctx context.Context, id string, at time.Time) (*domain.FixedUtility, error) {
	if _, err := domain.OwnerFromContext(ctx); err != nil {
		return nil, err
	}

	current, err := uc.utilityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_, owner, err := ownedProperty(ctx, uc.propertyRepo, current.PropertyID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.NotFound(domain.EntityFixedUtility, id)
		}
		return nil, err
	}

	if at.IsZero() {
		at = time.Now().UTC()
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	utility, err := uc.utilityRepo.GetByIDForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	before := *utility

	if err := utility.Deactivate(at); err != nil {
		return nil, err
	}

	if err := uc.utilityRepo.Deactivate(txCtx, tx, id, *utility.DeactivatedAt); err != nil {
		return nil, err
	}

	if uc.auditRepo != nil {
		log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionUtilityDeactivate, domain.ResourceFixedUtility, id, &before, utility)
		if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return utility, nil
}
