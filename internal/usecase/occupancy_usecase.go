package usecase

import (
	"context"

	"github.com/iho/rentledger/internal/domain"
)

// OccupancyUseCase derives who occupied a property during a period.
type OccupancyUseCase struct {
	propertyRepo  PropertyRepository
	occupancyRepo OccupancyRepository
}

// NewOccupancyUseCase creates a new OccupancyUseCase.
func NewOccupancyUseCase(propertyRepo PropertyRepository, occupancyRepo OccupancyRepository) *OccupancyUseCase {
	return &OccupancyUseCase{
		propertyRepo:  propertyRepo,
		occupancyRepo: occupancyRepo,
	}
}

// ResolvedOccupancy is the occupancy of a period with tenant display names.
type ResolvedOccupancy struct {
	domain.Occupancy
	TenantNames map[string]string
}

// Resolve returns the day-weighted occupancy of the property in the period.
func (uc *OccupancyUseCase) Resolve(ctx context.Context, propertyID string, period domain.Period) (*ResolvedOccupancy, error) {
	if _, _, err := ownedProperty(ctx, uc.propertyRepo, propertyID); err != nil {
		return nil, err
	}

	intervals, names, err := uc.intervals(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	return &ResolvedOccupancy{
		Occupancy:   domain.ResolveOccupancy(period, intervals),
		TenantNames: names,
	}, nil
}

// intervals loads tenant and contract ranges of the property.
func (uc *OccupancyUseCase) intervals(ctx context.Context, propertyID string) ([]domain.OccupancyInterval, map[string]string, error) {
	tenants, err := uc.occupancyRepo.ListTenants(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}

	contracts, err := uc.occupancyRepo.ListContracts(ctx, propertyID)
	if err != nil {
		return nil, nil, err
	}

	names := make(map[string]string, len(tenants))
	for _, t := range tenants {
		names[t.ID] = t.Name
	}

	return domain.OccupancyIntervals(tenants, contracts), names, nil
}
