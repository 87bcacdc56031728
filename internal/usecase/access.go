package usecase

import (
	"context"
	"time"

	"github.com/iho/rentledger/internal/domain"
)

// ownedProperty loads the property and checks that the caller owns it.
// A foreign property is reported as not found.
func ownedProperty(ctx context.Context, properties PropertyRepository, propertyID string) (*domain.Property, domain.Owner, error) {
	owner, err := domain.OwnerFromContext(ctx)
	if err != nil {
		return nil, domain.Owner{}, err
	}

	property, err := properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, owner, err
	}

	if !property.OwnedBy(owner.ID) {
		return nil, owner, domain.NotFound(domain.EntityProperty, propertyID)
	}

	return property, owner, nil
}

// retry runs op through the retrier when one is configured.
func retry(ctx context.Context, r Retrier, op func() error) error {
	if r == nil {
		return op()
	}
	return r.Retry(ctx, op)
}

func newAuditLog(ctx context.Context, idGen IDGenerator, owner domain.Owner, action domain.AuditAction, resourceType, resourceID string, before, after any) *domain.AuditLog {
	return &domain.AuditLog{
		ID:           idGen.Generate(),
		OwnerID:      owner.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    domain.RequestIDFromContext(ctx),
		BeforeState:  domain.MarshalState(before),
		AfterState:   domain.MarshalState(after),
		Status:       domain.AuditStatusSuccess,
		CreatedAt:    time.Now().UTC(),
	}
}

func clampLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
