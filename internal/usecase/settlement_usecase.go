package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
)

// SettlementUseCase drives the settlement lifecycle: draft, adjust,
// finalize and void.
type SettlementUseCase struct {
	txManager      TransactionManager
	retrier        Retrier
	calculator     *CalculationUseCase
	propertyRepo   PropertyRepository
	settlementRepo SettlementRepository
	postingRepo    PostingRepository
	outboxRepo     OutboxRepository
	auditRepo      AuditRepository
	idGen          IDGenerator
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	retrier Retrier,
	calculator *CalculationUseCase,
	propertyRepo PropertyRepository,
	settlementRepo SettlementRepository,
	postingRepo PostingRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager:      txManager,
		retrier:        retrier,
		calculator:     calculator,
		propertyRepo:   propertyRepo,
		settlementRepo: settlementRepo,
		postingRepo:    postingRepo,
		outboxRepo:     outboxRepo,
		auditRepo:      auditRepo,
		idGen:          idGen,
		metrics:        metrics,
		logger:         logger.With().Str("component", "settlements").Logger(),
	}
}

// CreateDraft calculates the period and stores the result as a DRAFT.
func (uc *SettlementUseCase) CreateDraft(ctx context.Context, req CalculationRequest) (*domain.Settlement, error) {
	if _, err := domain.NewPeriod(req.Start, req.End); err != nil {
		return nil, err
	}

	property, owner, err := ownedProperty(ctx, uc.propertyRepo, req.PropertyID)
	if err != nil {
		return nil, err
	}

	calc, err := uc.calculator.calculate(ctx, property, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	settlement := domain.NewDraft(calc, uc.idGen.Generate, now).Settlement()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.settlementRepo.Create(txCtx, tx, settlement); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   settlement.ID,
		AggregateType: domain.ResourceSettlement,
		EventType:     domain.EventTypeSettlementCreated,
		Payload: map[string]any{
			"settlement_id": settlement.ID,
			"property_id":   settlement.PropertyID,
			"period_start":  settlement.Period.Start.Format(domain.DateLayout),
			"period_end":    settlement.Period.End.Format(domain.DateLayout),
			"total_amount":  settlement.TotalAmount.String(),
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if uc.auditRepo != nil {
		log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionSettlementCreate, domain.ResourceSettlement, settlement.ID, nil, settlement)
		if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SettlementsCreated.Inc()
	}

	uc.logger.Info().
		Str("settlement_id", settlement.ID).
		Str("property_id", settlement.PropertyID).
		Str("period", settlement.Period.String()).
		Str("total", settlement.TotalAmount.String()).
		Int("warnings", len(settlement.Warnings)).
		Msg("draft settlement created")

	return settlement, nil
}

// ownedSettlement loads a settlement whose property belongs to the caller.
func (uc *SettlementUseCase) ownedSettlement(ctx context.Context, id string) (*domain.Settlement, domain.Owner, error) {
	if _, err := domain.OwnerFromContext(ctx); err != nil {
		return nil, domain.Owner{}, err
	}

	settlement, err := uc.settlementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Owner{}, err
	}

	_, owner, err := ownedProperty(ctx, uc.propertyRepo, settlement.PropertyID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, owner, domain.NotFound(domain.EntitySettlement, id)
		}
		return nil, owner, err
	}

	return settlement, owner, nil
}

// GetSettlement returns a settlement with its items and shares.
func (uc *SettlementUseCase) GetSettlement(ctx context.Context, id string) (*domain.Settlement, error) {
	settlement, _, err := uc.ownedSettlement(ctx, id)
	return settlement, err
}

// ListSettlementsInput represents input for listing settlements.
type ListSettlementsInput struct {
	PropertyID string
	Limit      int
	Offset     int
}

// ListSettlements lists settlements of a property, newest first.
func (uc *SettlementUseCase) ListSettlements(ctx context.Context, input ListSettlementsInput) ([]*domain.Settlement, error) {
	if _, _, err := ownedProperty(ctx, uc.propertyRepo, input.PropertyID); err != nil {
		return nil, err
	}

	limit, offset := clampLimit(input.Limit, input.Offset)

	return uc.settlementRepo.ListByProperty(ctx, input.PropertyID, limit, offset)
}

// ListPostings returns the ledger postings of a settlement.
func (uc *SettlementUseCase) ListPostings(ctx context.Context, id string) ([]*domain.Posting, error) {
	if _, _, err := uc.ownedSettlement(ctx, id); err != nil {
		return nil, err
	}

	return uc.postingRepo.ListBySettlement(ctx, id)
}

// AdjustShareInput represents an owner edit of one share.
type AdjustShareInput struct {
	SettlementID   string
	ShareID        string
	AdjustedAmount *decimal.Decimal
	Reset          bool
	Notes          *string
	OwnerNotes     *string
}

// AdjustShare edits a share of a DRAFT settlement and recomputes its total.
func (uc *SettlementUseCase) AdjustShare(ctx context.Context, input AdjustShareInput) (*domain.Settlement, error) {
	for _, notes := range []*string{input.Notes, input.OwnerNotes} {
		if notes == nil {
			continue
		}
		if err := domain.ValidateNotes(*notes); err != nil {
			return nil, err
		}
	}

	_, owner, err := uc.ownedSettlement(ctx, input.SettlementID)
	if err != nil {
		return nil, err
	}

	var result *domain.Settlement
	err = retry(ctx, uc.retrier, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		settlement, err := uc.settlementRepo.GetByIDForUpdate(txCtx, tx, input.SettlementID)
		if err != nil {
			return err
		}

		draft, err := settlement.AsDraft()
		if err != nil {
			return err
		}

		var before domain.SettlementShare
		if sh, ok := settlement.Share(input.ShareID); ok {
			before = *sh
		}

		now := time.Now().UTC()
		share, err := draft.AdjustShare(input.ShareID, domain.ShareAdjustment{
			AdjustedAmount: input.AdjustedAmount,
			Reset:          input.Reset,
			Notes:          input.Notes,
			OwnerNotes:     input.OwnerNotes,
		}, now)
		if err != nil {
			return err
		}

		if err := uc.settlementRepo.UpdateShare(txCtx, tx, share); err != nil {
			return err
		}
		if err := uc.settlementRepo.UpdateDraft(txCtx, tx, settlement); err != nil {
			return err
		}

		if uc.auditRepo != nil {
			log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionSettlementAdjust, domain.ResourceSettlement, settlement.ID, &before, share)
			if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
				return err
			}
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = settlement
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SharesAdjusted.Inc()
	}

	return result, nil
}

// RecalculateDraft recomputes a DRAFT from the current inputs. Owner
// adjustments are discarded; running it twice on unchanged inputs yields the
// same items and shares.
func (uc *SettlementUseCase) RecalculateDraft(ctx context.Context, id string) (*domain.Settlement, error) {
	current, owner, err := uc.ownedSettlement(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := current.AsDraft(); err != nil {
		return nil, err
	}

	property, err := uc.propertyRepo.GetByID(ctx, current.PropertyID)
	if err != nil {
		return nil, err
	}

	calc, err := uc.calculator.calculate(ctx, property, CalculationRequest{
		PropertyID: current.PropertyID,
		Start:      current.Period.Start,
		End:        current.Period.End,
		Approach:   current.Approach,
	})
	if err != nil {
		return nil, err
	}

	var result *domain.Settlement
	err = retry(ctx, uc.retrier, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		settlement, err := uc.settlementRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}

		draft, err := settlement.AsDraft()
		if err != nil {
			return err
		}
		beforeTotal := settlement.TotalAmount

		if err := draft.Recalculate(calc, uc.idGen.Generate, time.Now().UTC()); err != nil {
			return err
		}

		if err := uc.settlementRepo.ReplaceLines(txCtx, tx, settlement); err != nil {
			return err
		}
		if err := uc.settlementRepo.UpdateDraft(txCtx, tx, settlement); err != nil {
			return err
		}

		if uc.auditRepo != nil {
			log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionSettlementRecalculate, domain.ResourceSettlement, id,
				map[string]string{"total_amount": beforeTotal.String()},
				map[string]string{"total_amount": settlement.TotalAmount.String()})
			if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
				return err
			}
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = settlement
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Finalize freezes a DRAFT and books one CHARGE posting per share. The row
// lock and the status compare-and-swap make a second or concurrent call fail
// with InvalidState without creating postings.
func (uc *SettlementUseCase) Finalize(ctx context.Context, id string) (*domain.Settlement, error) {
	_, owner, err := uc.ownedSettlement(ctx, id)
	if err != nil {
		return nil, err
	}

	var result *domain.Settlement
	err = retry(ctx, uc.retrier, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		settlement, err := uc.settlementRepo.GetByIDForUpdate(txCtx, tx, id)
		if err != nil {
			return err
		}

		draft, err := settlement.AsDraft()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		finalized, postings, err := draft.Finalize(uc.idGen.Generate, now)
		if err != nil {
			return err
		}
		settlement = finalized.Settlement()

		if err := uc.settlementRepo.UpdateStatus(txCtx, tx, settlement, domain.SettlementDraft); err != nil {
			return err
		}
		if err := uc.postingRepo.CreateBatch(txCtx, tx, postings); err != nil {
			return err
		}

		charges := make(map[string]string, len(postings))
		for _, p := range postings {
			charges[p.TenantID] = p.Amount.String()
		}
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   settlement.ID,
			AggregateType: domain.ResourceSettlement,
			EventType:     domain.EventTypeSettlementFinalized,
			Payload: domain.MarshalState(domain.SettlementFinalizedEvent{
				SettlementID: settlement.ID,
				PropertyID:   settlement.PropertyID,
				PeriodStart:  settlement.Period.Start.Format(domain.DateLayout),
				PeriodEnd:    settlement.Period.End.Format(domain.DateLayout),
				TotalAmount:  settlement.TotalAmount.String(),
				Charges:      charges,
			}),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return err
		}

		if uc.auditRepo != nil {
			log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionSettlementFinalize, domain.ResourceSettlement, id,
				map[string]string{"status": string(domain.SettlementDraft)},
				map[string]string{"status": string(settlement.Status), "total_amount": settlement.TotalAmount.String()})
			if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
				return err
			}
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = settlement
		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.ObserveError("finalize", string(domain.KindOf(err)))
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SettlementsFinalized.Inc()
		uc.metrics.SettledAmount.Observe(result.TotalAmount.InexactFloat64())
	}

	uc.logger.Info().
		Str("settlement_id", result.ID).
		Str("total", result.TotalAmount.String()).
		Int("shares", len(result.Shares)).
		Msg("settlement finalized")

	return result, nil
}

// VoidInput represents input for voiding a settlement.
type VoidInput struct {
	SettlementID string
	Reason       string
}

// Void reverses every CHARGE of a FINALIZED settlement and marks it VOIDED.
// The original postings are kept, so the settlement's postings sum to zero.
func (uc *SettlementUseCase) Void(ctx context.Context, input VoidInput) (*domain.Settlement, error) {
	if _, err := domain.ValidateVoidReason(input.Reason); err != nil {
		return nil, err
	}

	_, owner, err := uc.ownedSettlement(ctx, input.SettlementID)
	if err != nil {
		return nil, err
	}

	var result *domain.Settlement
	err = retry(ctx, uc.retrier, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		settlement, err := uc.settlementRepo.GetByIDForUpdate(txCtx, tx, input.SettlementID)
		if err != nil {
			return err
		}

		finalized, err := settlement.AsFinalized()
		if err != nil {
			return err
		}

		charges, err := uc.postingRepo.ListBySettlementTx(txCtx, tx, settlement.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		voided, reversals, err := finalized.Void(input.Reason, charges, uc.idGen.Generate, now)
		if err != nil {
			return err
		}
		settlement = voided.Settlement()

		if err := uc.settlementRepo.UpdateStatus(txCtx, tx, settlement, domain.SettlementFinalized); err != nil {
			return err
		}
		if err := uc.postingRepo.CreateBatch(txCtx, tx, reversals); err != nil {
			return err
		}

		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   settlement.ID,
			AggregateType: domain.ResourceSettlement,
			EventType:     domain.EventTypeSettlementVoided,
			Payload: domain.MarshalState(domain.SettlementVoidedEvent{
				SettlementID: settlement.ID,
				PropertyID:   settlement.PropertyID,
				Reason:       settlement.VoidReason,
				Reversed:     domain.SumPostings(reversals).Neg().String(),
			}),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return err
		}

		if uc.auditRepo != nil {
			log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionSettlementVoid, domain.ResourceSettlement, settlement.ID,
				map[string]string{"status": string(domain.SettlementFinalized)},
				map[string]string{"status": string(settlement.Status), "reason": settlement.VoidReason})
			if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
				return err
			}
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = settlement
		return nil
	})
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.ObserveError("void", string(domain.KindOf(err)))
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SettlementsVoided.Inc()
	}

	uc.logger.Info().
		Str("settlement_id", result.ID).
		Str("reason", result.VoidReason).
		Msg("settlement voided")

	return result, nil
}
