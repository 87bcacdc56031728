package usecase

import (
	"context"
	"time"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
)

// CalculationUseCase gathers settlement inputs and runs the calculator.
// It only reads; previews never touch settlement storage.
type CalculationUseCase struct {
	propertyRepo PropertyRepository
	meterRepo    MeterRepository
	readingRepo  ReadingRepository
	utilityRepo  FixedUtilityRepository
	occupancy    *OccupancyUseCase
	metrics      *metrics.Metrics
}

// NewCalculationUseCase creates a new CalculationUseCase.
func NewCalculationUseCase(
	propertyRepo PropertyRepository,
	meterRepo MeterRepository,
	readingRepo ReadingRepository,
	utilityRepo FixedUtilityRepository,
	occupancy *OccupancyUseCase,
	metrics *metrics.Metrics,
) *CalculationUseCase {
	return &CalculationUseCase{
		propertyRepo: propertyRepo,
		meterRepo:    meterRepo,
		readingRepo:  readingRepo,
		utilityRepo:  utilityRepo,
		occupancy:    occupancy,
		metrics:      metrics,
	}
}

// CalculationRequest selects the property, period and approach to calculate.
type CalculationRequest struct {
	PropertyID string
	Start      time.Time
	End        time.Time
	Approach   domain.Approach
}

// Preview runs a dry-run calculation for the caller's property.
func (uc *CalculationUseCase) Preview(ctx context.Context, req CalculationRequest) (*domain.Calculation, error) {
	if _, err := domain.NewPeriod(req.Start, req.End); err != nil {
		return nil, err
	}

	property, _, err := ownedProperty(ctx, uc.propertyRepo, req.PropertyID)
	if err != nil {
		return nil, err
	}

	return uc.calculate(ctx, property, req)
}

// calculate loads every input for the property and calls domain.Calculate.
// Tenant names are attached to the shares.
func (uc *CalculationUseCase) calculate(ctx context.Context, property *domain.Property, req CalculationRequest) (*domain.Calculation, error) {
	start := time.Now()

	period, err := domain.NewPeriod(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	meters, err := uc.meterRepo.ListByProperty(ctx, property.ID, false)
	if err != nil {
		return nil, err
	}

	chains := make([]domain.MeterChain, 0, len(meters))
	for _, m := range meters {
		chain, err := loadChain(ctx, uc.meterRepo, uc.readingRepo, m.ID, period)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}

	utilities, err := uc.utilityRepo.ListByProperty(ctx, property.ID, true)
	if err != nil {
		return nil, err
	}

	intervals, names, err := uc.occupancy.intervals(ctx, property.ID)
	if err != nil {
		return nil, err
	}

	calc, err := domain.Calculate(domain.CalculationInput{
		Property:       property,
		Start:          period.Start,
		End:            period.End,
		Approach:       req.Approach,
		MeterChains:    chains,
		FixedUtilities: utilities,
		Occupancy:      intervals,
	})
	if err != nil {
		return nil, err
	}

	for i := range calc.Shares {
		calc.Shares[i].TenantName = names[calc.Shares[i].TenantID]
	}

	if uc.metrics != nil {
		uc.metrics.CalculationDuration.Observe(time.Since(start).Seconds())
		for _, w := range calc.Warnings {
			uc.metrics.CalculationWarnings.WithLabelValues(string(w.Code)).Inc()
		}
	}

	return calc, nil
}
