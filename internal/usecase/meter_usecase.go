package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
)

// MeterUseCase handles meters, readings and meter exchange.
type MeterUseCase struct {
	txManager    TransactionManager
	retrier      Retrier
	propertyRepo PropertyRepository
	meterRepo    MeterRepository
	readingRepo  ReadingRepository
	outboxRepo   OutboxRepository
	auditRepo    AuditRepository
	idGen        IDGenerator
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewMeterUseCase creates a new MeterUseCase.
func NewMeterUseCase(
	txManager TransactionManager,
	retrier Retrier,
	propertyRepo PropertyRepository,
	meterRepo MeterRepository,
	readingRepo ReadingRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *MeterUseCase {
	return &MeterUseCase{
		txManager:    txManager,
		retrier:      retrier,
		propertyRepo: propertyRepo,
		meterRepo:    meterRepo,
		readingRepo:  readingRepo,
		outboxRepo:   outboxRepo,
		auditRepo:    auditRepo,
		idGen:        idGen,
		metrics:      metrics,
		logger:       logger.With().Str("component", "meters").Logger(),
	}
}

// CreateMeterInput represents input for installing a meter.
type CreateMeterInput struct {
	PropertyID     string
	UtilityType    domain.UtilityType
	Number         string
	Unit           string
	PricePerUnit   *decimal.Decimal
	InitialReading *decimal.Decimal
	InstalledOn    time.Time
	Notes          string
}

// CreateMeter installs a meter on a property, optionally with its first reading.
func (uc *MeterUseCase) CreateMeter(ctx context.Context, input CreateMeterInput) (*domain.Meter, error) {
	_, owner, err := ownedProperty(ctx, uc.propertyRepo, input.PropertyID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meter := &domain.Meter{
		ID:           uc.idGen.Generate(),
		PropertyID:   input.PropertyID,
		UtilityType:  input.UtilityType,
		Number:       input.Number,
		Unit:         input.Unit,
		PricePerUnit: input.PricePerUnit,
		Notes:        input.Notes,
		CreatedAt:    now,
	}
	if err := meter.Validate(); err != nil {
		return nil, err
	}

	var initial *domain.MeterReading
	if input.InitialReading != nil {
		installedOn := input.InstalledOn
		if installedOn.IsZero() {
			installedOn = now
		}
		initial = &domain.MeterReading{
			ID:          uc.idGen.Generate(),
			MeterID:     meter.ID,
			Value:       *input.InitialReading,
			ReadingDate: domain.TruncateDay(installedOn),
			Kind:        domain.ReadingInitial,
			CreatedAt:   now,
		}
		if err := initial.Validate(); err != nil {
			return nil, err
		}
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.meterRepo.Create(txCtx, tx, meter); err != nil {
		return nil, err
	}

	if initial != nil {
		if err := uc.readingRepo.Create(txCtx, tx, initial); err != nil {
			return nil, err
		}
	}

	if uc.auditRepo != nil {
		log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionMeterCreate, domain.ResourceMeter, meter.ID, nil, meter)
		if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return meter, nil
}

// ownedMeter loads a meter whose property belongs to the caller.
func (uc *MeterUseCase) ownedMeter(ctx context.Context, meterID string) (*domain.Meter, domain.Owner, error) {
	if _, err := domain.OwnerFromContext(ctx); err != nil {
		return nil, domain.Owner{}, err
	}

	meter, err := uc.meterRepo.GetByID(ctx, meterID)
	if err != nil {
		return nil, domain.Owner{}, err
	}

	_, owner, err := ownedProperty(ctx, uc.propertyRepo, meter.PropertyID)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, owner, domain.NotFound(domain.EntityMeter, meterID)
		}
		return nil, owner, err
	}

	return meter, owner, nil
}

// GetMeter returns a meter of the caller.
func (uc *MeterUseCase) GetMeter(ctx context.Context, meterID string) (*domain.Meter, error) {
	meter, _, err := uc.ownedMeter(ctx, meterID)
	return meter, err
}

// ListMeters lists the meters of a property.
func (uc *MeterUseCase) ListMeters(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error) {
	if _, _, err := ownedProperty(ctx, uc.propertyRepo, propertyID); err != nil {
		return nil, err
	}

	return uc.meterRepo.ListByProperty(ctx, propertyID, includeRetired)
}

// ListReadings lists the readings of a meter in date order.
func (uc *MeterUseCase) ListReadings(ctx context.Context, meterID string) ([]*domain.MeterReading, error) {
	if _, _, err := uc.ownedMeter(ctx, meterID); err != nil {
		return nil, err
	}

	readings, err := uc.readingRepo.ListByMeter(ctx, meterID)
	if err != nil {
		return nil, err
	}
	domain.SortReadings(readings)

	return readings, nil
}

// RecordReadingInput represents a new meter reading.
type RecordReadingInput struct {
	MeterID string
	Value   decimal.Decimal
	Date    time.Time
}

// RecordReadingResult is the stored reading plus review warnings.
type RecordReadingResult struct {
	Reading  *domain.MeterReading
	Warnings []domain.Warning
}

// RecordReading appends a reading to a live meter. The meter row is locked so
// a concurrent exchange cannot interleave. Readings dated before the meter's
// first reading are rejected; out-of-order values are stored but flagged.
func (uc *MeterUseCase) RecordReading(ctx context.Context, input RecordReadingInput) (*RecordReadingResult, error) {
	_, owner, err := uc.ownedMeter(ctx, input.MeterID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reading := &domain.MeterReading{
		ID:          uc.idGen.Generate(),
		MeterID:     input.MeterID,
		Value:       input.Value,
		ReadingDate: domain.TruncateDay(input.Date),
		Kind:        domain.ReadingRegular,
		CreatedAt:   now,
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	result := &RecordReadingResult{Reading: reading}

	err = retry(ctx, uc.retrier, func() error {
		result.Warnings = nil

		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		meter, err := uc.meterRepo.GetByIDForUpdate(txCtx, tx, input.MeterID)
		if err != nil {
			return err
		}

		if meter.IsRetired() {
			return domain.Conflict(domain.EntityMeter, meter.ID, domain.ErrMeterRetired.Constraint)
		}

		existing, err := uc.readingRepo.ListByMeterTx(txCtx, tx, meter.ID)
		if err != nil {
			return err
		}
		result.Warnings, err = domain.PlaceReading(meter, existing, reading)
		if err != nil {
			return err
		}

		if err := uc.readingRepo.Create(txCtx, tx, reading); err != nil {
			return err
		}

		if uc.auditRepo != nil {
			log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionMeterReading, domain.ResourceMeter, meter.ID, nil, reading)
			if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
				return err
			}
		}

		return tx.Commit(txCtx)
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ReadingsRecorded.Inc()
	}

	return result, nil
}

// NewMeterSpec describes the replacement meter. Empty fields are inherited
// from the old meter; Number is always required.
type NewMeterSpec struct {
	Number       string
	Unit         string
	UtilityType  domain.UtilityType
	PricePerUnit *decimal.Decimal
}

// ExchangeMeterInput represents a meter exchange.
type ExchangeMeterInput struct {
	OldMeterID     string
	ExchangeDate   time.Time
	FinalReading   decimal.Decimal
	NewMeter       NewMeterSpec
	InitialReading decimal.Decimal
	Notes          string
}

// ExchangeResult holds both meters and the boundary readings.
type ExchangeResult struct {
	OldMeter       *domain.Meter
	NewMeter       *domain.Meter
	FinalReading   *domain.MeterReading
	InitialReading *domain.MeterReading
	Warnings       []domain.Warning
}

// ExchangeMeter retires a meter and installs its successor in one
// transaction: final reading, retirement, new meter, initial reading and
// the link between them either all land or none do.
func (uc *MeterUseCase) ExchangeMeter(ctx context.Context, input ExchangeMeterInput) (*ExchangeResult, error) {
	_, owner, err := uc.ownedMeter(ctx, input.OldMeterID)
	if err != nil {
		return nil, err
	}

	if input.ExchangeDate.IsZero() {
		return nil, domain.Validation(domain.EntityMeter, "exchange date is required")
	}
	if input.FinalReading.IsNegative() || input.InitialReading.IsNegative() {
		return nil, domain.Validation(domain.EntityReading, "reading value must not be negative")
	}

	exchangeDay := domain.TruncateDay(input.ExchangeDate)

	var result *ExchangeResult
	err = retry(ctx, uc.retrier, func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		old, err := uc.meterRepo.GetByIDForUpdate(txCtx, tx, input.OldMeterID)
		if err != nil {
			return err
		}

		if old.IsRetired() {
			return domain.Conflict(domain.EntityMeter, old.ID, domain.ErrMeterRetired.Constraint)
		}
		before := *old

		latest, err := uc.readingRepo.LatestTx(txCtx, tx, old.ID)
		if err != nil {
			return err
		}

		var warnings []domain.Warning
		if latest != nil {
			if exchangeDay.Before(latest.ReadingDate) {
				return domain.Validation(domain.EntityMeter,
					fmt.Sprintf("exchange date %s is before the latest reading on %s",
						exchangeDay.Format(domain.DateLayout), latest.ReadingDate.Format(domain.DateLayout)))
			}
			if input.FinalReading.LessThan(latest.Value) {
				warnings = append(warnings, domain.ReadingDecrease(old, latest, input.FinalReading))
			}
		}

		now := time.Now().UTC()
		successor := &domain.Meter{
			ID:           uc.idGen.Generate(),
			PropertyID:   old.PropertyID,
			UtilityType:  old.UtilityType,
			Number:       input.NewMeter.Number,
			Unit:         old.Unit,
			PricePerUnit: old.PricePerUnit,
			ReplacesID:   &old.ID,
			Notes:        input.Notes,
			CreatedAt:    now,
		}
		if input.NewMeter.UtilityType != "" {
			successor.UtilityType = input.NewMeter.UtilityType
		}
		if input.NewMeter.Unit != "" {
			successor.Unit = input.NewMeter.Unit
		}
		if input.NewMeter.PricePerUnit != nil {
			successor.PricePerUnit = input.NewMeter.PricePerUnit
		}
		if err := successor.Validate(); err != nil {
			return err
		}

		final := &domain.MeterReading{
			ID:          uc.idGen.Generate(),
			MeterID:     old.ID,
			Value:       input.FinalReading,
			ReadingDate: exchangeDay,
			Kind:        domain.ReadingFinal,
			CreatedAt:   now,
		}
		initial := &domain.MeterReading{
			ID:          uc.idGen.Generate(),
			MeterID:     successor.ID,
			Value:       input.InitialReading,
			ReadingDate: exchangeDay,
			Kind:        domain.ReadingInitial,
			CreatedAt:   now,
		}

		if err := uc.readingRepo.Create(txCtx, tx, final); err != nil {
			return err
		}
		if err := uc.meterRepo.Create(txCtx, tx, successor); err != nil {
			return err
		}
		if err := uc.meterRepo.Retire(txCtx, tx, old.ID, successor.ID, exchangeDay); err != nil {
			return err
		}
		if err := uc.readingRepo.Create(txCtx, tx, initial); err != nil {
			return err
		}

		old.RetiredAt = &exchangeDay
		old.ReplacedByID = &successor.ID

		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   old.ID,
			AggregateType: domain.ResourceMeter,
			EventType:     domain.EventTypeMeterExchanged,
			Payload: domain.MarshalState(domain.MeterExchangedEvent{
				OldMeterID:   old.ID,
				NewMeterID:   successor.ID,
				PropertyID:   old.PropertyID,
				ExchangeDate: exchangeDay.Format(domain.DateLayout),
				FinalValue:   final.Value.String(),
				InitialValue: initial.Value.String(),
			}),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return err
		}

		if uc.auditRepo != nil {
			log := newAuditLog(ctx, uc.idGen, owner, domain.AuditActionMeterExchange, domain.ResourceMeter, old.ID, &before, old)
			if err := uc.auditRepo.CreateTx(txCtx, tx, log); err != nil {
				return err
			}
		}

		if err := tx.Commit(txCtx); err != nil {
			return err
		}

		result = &ExchangeResult{
			OldMeter:       old,
			NewMeter:       successor,
			FinalReading:   final,
			InitialReading: initial,
			Warnings:       warnings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.MeterExchanges.Inc()
	}

	uc.logger.Info().
		Str("old_meter_id", result.OldMeter.ID).
		Str("new_meter_id", result.NewMeter.ID).
		Str("exchange_date", exchangeDay.Format(domain.DateLayout)).
		Int("warnings", len(result.Warnings)).
		Msg("meter exchanged")

	return result, nil
}

// UsageBetween returns the consumption of the meter's exchange chain in the period.
func (uc *MeterUseCase) UsageBetween(ctx context.Context, meterID string, period domain.Period) (*domain.Usage, error) {
	if _, _, err := uc.ownedMeter(ctx, meterID); err != nil {
		return nil, err
	}

	chain, err := loadChain(ctx, uc.meterRepo, uc.readingRepo, meterID, period)
	if err != nil {
		return nil, err
	}

	usage := domain.UsageBetween(chain, period)
	return &usage, nil
}

// loadChain loads the exchange chain containing meterID together with the
// readings of every meter that was still live at the start of the period.
func loadChain(ctx context.Context, meters MeterRepository, readings ReadingRepository, meterID string, period domain.Period) (domain.MeterChain, error) {
	chainMeters, err := meters.GetChain(ctx, meterID)
	if err != nil {
		return nil, err
	}

	chain := make(domain.MeterChain, 0, len(chainMeters))
	for _, m := range chainMeters {
		if m.RetiredAt != nil && !m.RetiredAt.After(period.Start) {
			continue
		}

		rs, err := readings.ListByMeter(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, domain.ChainSegment{Meter: m, Readings: rs})
	}

	return chain, nil
}
