package usecase

//go:generate mockgen -source=interfaces.go -destination=gomocks/mock_interfaces.go -package=gomocks

import (
	"context"
	"time"

	"github.com/iho/rentledger/internal/domain"
)

// PropertyRepository reads properties from the registry.
type PropertyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Property, error)
}

// OccupancyRepository reads tenant and contract date ranges of a property.
type OccupancyRepository interface {
	ListTenants(ctx context.Context, propertyID string) ([]*domain.Tenant, error)
	ListContracts(ctx context.Context, propertyID string) ([]*domain.Contract, error)
}

// MeterRepository defines data access for meters.
type MeterRepository interface {
	Create(ctx context.Context, tx Transaction, meter *domain.Meter) error
	GetByID(ctx context.Context, id string) (*domain.Meter, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Meter, error)
	Retire(ctx context.Context, tx Transaction, id, replacedByID string, retiredAt time.Time) error
	ListByProperty(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error)
	// GetChain returns every meter linked to id by exchanges, oldest first.
	GetChain(ctx context.Context, id string) ([]*domain.Meter, error)
}

// ReadingRepository defines data access for meter readings.
type ReadingRepository interface {
	Create(ctx context.Context, tx Transaction, reading *domain.MeterReading) error
	ListByMeter(ctx context.Context, meterID string) ([]*domain.MeterReading, error)
	ListByMeterTx(ctx context.Context, tx Transaction, meterID string) ([]*domain.MeterReading, error)
	// LatestTx returns the most recent reading of the meter, or nil.
	LatestTx(ctx context.Context, tx Transaction, meterID string) (*domain.MeterReading, error)
}

// FixedUtilityRepository defines data access for fixed utilities.
type FixedUtilityRepository interface {
	Create(ctx context.Context, tx Transaction, utility *domain.FixedUtility) error
	GetByID(ctx context.Context, id string) (*domain.FixedUtility, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.FixedUtility, error)
	Deactivate(ctx context.Context, tx Transaction, id string, at time.Time) error
	ListByProperty(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error)
}

// SettlementRepository defines data access for settlements, their items and shares.
type SettlementRepository interface {
	Create(ctx context.Context, tx Transaction, settlement *domain.Settlement) error
	GetByID(ctx context.Context, id string) (*domain.Settlement, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Settlement, error)
	ListByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*domain.Settlement, error)
	UpdateShare(ctx context.Context, tx Transaction, share *domain.SettlementShare) error
	// ReplaceLines swaps items and shares of a draft for new ones.
	ReplaceLines(ctx context.Context, tx Transaction, settlement *domain.Settlement) error
	// UpdateDraft stores totals and warnings of a draft.
	UpdateDraft(ctx context.Context, tx Transaction, settlement *domain.Settlement) error
	// UpdateStatus moves the settlement to its new status only if the stored
	// status still equals from. It returns an invalid-state error otherwise.
	UpdateStatus(ctx context.Context, tx Transaction, settlement *domain.Settlement, from domain.SettlementStatus) error
}

// PostingRepository defines data access for ledger postings.
type PostingRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, postings []*domain.Posting) error
	ListBySettlement(ctx context.Context, settlementID string) ([]*domain.Posting, error)
	ListBySettlementTx(ctx context.Context, tx Transaction, settlementID string) ([]*domain.Posting, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation that failed with a transient storage error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
