package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// MockPropertyRepository is a mock implementation of PropertyRepository.
type MockPropertyRepository struct {
	mu         sync.RWMutex
	properties map[string]*domain.Property

	GetByIDFunc func(ctx context.Context, id string) (*domain.Property, error)
}

func NewMockPropertyRepository(properties ...*domain.Property) *MockPropertyRepository {
	m := &MockPropertyRepository{properties: make(map[string]*domain.Property)}
	for _, p := range properties {
		m.properties[p.ID] = p
	}
	return m
}

func (m *MockPropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.properties[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.NotFound(domain.EntityProperty, id)
}

// MockOccupancyRepository is a mock implementation of OccupancyRepository.
type MockOccupancyRepository struct {
	mu        sync.RWMutex
	tenants   []*domain.Tenant
	contracts []*domain.Contract

	ListTenantsFunc   func(ctx context.Context, propertyID string) ([]*domain.Tenant, error)
	ListContractsFunc func(ctx context.Context, propertyID string) ([]*domain.Contract, error)
}

func NewMockOccupancyRepository() *MockOccupancyRepository {
	return &MockOccupancyRepository{}
}

func (m *MockOccupancyRepository) AddTenant(t *domain.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants = append(m.tenants, t)
}

func (m *MockOccupancyRepository) AddContract(c *domain.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts = append(m.contracts, c)
}

func (m *MockOccupancyRepository) ListTenants(ctx context.Context, propertyID string) ([]*domain.Tenant, error) {
	if m.ListTenantsFunc != nil {
		return m.ListTenantsFunc(ctx, propertyID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Tenant
	for _, t := range m.tenants {
		if t.PropertyID == propertyID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockOccupancyRepository) ListContracts(ctx context.Context, propertyID string) ([]*domain.Contract, error) {
	if m.ListContractsFunc != nil {
		return m.ListContractsFunc(ctx, propertyID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Contract
	for _, c := range m.contracts {
		if c.PropertyID == propertyID {
			out = append(out, c)
		}
	}
	return out, nil
}

// MockMeterRepository is a mock implementation of MeterRepository.
type MockMeterRepository struct {
	mu     sync.RWMutex
	meters map[string]*domain.Meter

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, meter *domain.Meter) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Meter, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Meter, error)
	RetireFunc           func(ctx context.Context, tx usecase.Transaction, id, replacedByID string, retiredAt time.Time) error
}

func NewMockMeterRepository() *MockMeterRepository {
	return &MockMeterRepository{meters: make(map[string]*domain.Meter)}
}

func (m *MockMeterRepository) Create(ctx context.Context, tx usecase.Transaction, meter *domain.Meter) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, meter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *meter
	m.meters[meter.ID] = &cp
	return nil
}

func (m *MockMeterRepository) GetByID(ctx context.Context, id string) (*domain.Meter, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if meter, ok := m.meters[id]; ok {
		cp := *meter
		return &cp, nil
	}
	return nil, domain.NotFound(domain.EntityMeter, id)
}

func (m *MockMeterRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Meter, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockMeterRepository) Retire(ctx context.Context, tx usecase.Transaction, id, replacedByID string, retiredAt time.Time) error {
	if m.RetireFunc != nil {
		return m.RetireFunc(ctx, tx, id, replacedByID, retiredAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	meter, ok := m.meters[id]
	if !ok {
		return domain.NotFound(domain.EntityMeter, id)
	}
	if meter.RetiredAt != nil {
		return domain.Conflict(domain.EntityMeter, id, domain.ErrMeterRetired.Constraint)
	}
	meter.RetiredAt = &retiredAt
	meter.ReplacedByID = &replacedByID
	return nil
}

func (m *MockMeterRepository) ListByProperty(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Meter
	for _, meter := range m.meters {
		if meter.PropertyID != propertyID || (!includeRetired && meter.RetiredAt != nil) {
			continue
		}
		cp := *meter
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockMeterRepository) GetChain(ctx context.Context, id string) ([]*domain.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	start, ok := m.meters[id]
	if !ok {
		return nil, domain.NotFound(domain.EntityMeter, id)
	}
	for start.ReplacesID != nil {
		prev, ok := m.meters[*start.ReplacesID]
		if !ok {
			break
		}
		start = prev
	}
	var chain []*domain.Meter
	for cur := start; cur != nil; {
		cp := *cur
		chain = append(chain, &cp)
		if cur.ReplacedByID == nil {
			break
		}
		cur = m.meters[*cur.ReplacedByID]
	}
	return chain, nil
}

// MockReadingRepository is a mock implementation of ReadingRepository.
type MockReadingRepository struct {
	mu       sync.RWMutex
	readings map[string][]*domain.MeterReading

	CreateFunc func(ctx context.Context, tx usecase.Transaction, reading *domain.MeterReading) error
}

func NewMockReadingRepository() *MockReadingRepository {
	return &MockReadingRepository{readings: make(map[string][]*domain.MeterReading)}
}

func (m *MockReadingRepository) Create(ctx context.Context, tx usecase.Transaction, reading *domain.MeterReading) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, reading)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *reading
	m.readings[reading.MeterID] = append(m.readings[reading.MeterID], &cp)
	return nil
}

func (m *MockReadingRepository) ListByMeter(ctx context.Context, meterID string) ([]*domain.MeterReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.MeterReading, 0, len(m.readings[meterID]))
	for _, r := range m.readings[meterID] {
		cp := *r
		out = append(out, &cp)
	}
	domain.SortReadings(out)
	return out, nil
}

func (m *MockReadingRepository) ListByMeterTx(ctx context.Context, tx usecase.Transaction, meterID string) ([]*domain.MeterReading, error) {
	return m.ListByMeter(ctx, meterID)
}

func (m *MockReadingRepository) LatestTx(ctx context.Context, tx usecase.Transaction, meterID string) (*domain.MeterReading, error) {
	readings, _ := m.ListByMeter(ctx, meterID)
	return domain.LatestReading(readings), nil
}

// MockFixedUtilityRepository is a mock implementation of FixedUtilityRepository.
type MockFixedUtilityRepository struct {
	mu        sync.RWMutex
	utilities map[string]*domain.FixedUtility

	CreateFunc func(ctx context.Context, tx usecase.Transaction, utility *domain.FixedUtility) error
}

func NewMockFixedUtilityRepository() *MockFixedUtilityRepository {
	return &MockFixedUtilityRepository{utilities: make(map[string]*domain.FixedUtility)}
}

func (m *MockFixedUtilityRepository) Create(ctx context.Context, tx usecase.Transaction, utility *domain.FixedUtility) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, utility)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *utility
	m.utilities[utility.ID] = &cp
	return nil
}

func (m *MockFixedUtilityRepository) GetByID(ctx context.Context, id string) (*domain.FixedUtility, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.utilities[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.NotFound(domain.EntityFixedUtility, id)
}

func (m *MockFixedUtilityRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.FixedUtility, error) {
	return m.GetByID(ctx, id)
}

func (m *MockFixedUtilityRepository) Deactivate(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.utilities[id]
	if !ok {
		return domain.NotFound(domain.EntityFixedUtility, id)
	}
	u.IsActive = false
	u.DeactivatedAt = &at
	return nil
}

func (m *MockFixedUtilityRepository) ListByProperty(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.FixedUtility
	for _, u := range m.utilities {
		if u.PropertyID != propertyID || (!includeInactive && !u.IsActive) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MockSettlementRepository is a mock implementation of SettlementRepository.
// Stored settlements are copied in and out so callers cannot bypass
// UpdateStatus.
type MockSettlementRepository struct {
	mu          sync.RWMutex
	settlements map[string]*domain.Settlement

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement) error
	UpdateStatusFunc func(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement, from domain.SettlementStatus) error
}

func NewMockSettlementRepository() *MockSettlementRepository {
	return &MockSettlementRepository{settlements: make(map[string]*domain.Settlement)}
}

func cloneSettlement(s *domain.Settlement) *domain.Settlement {
	cp := *s
	cp.Warnings = append([]domain.Warning(nil), s.Warnings...)
	cp.Items = make([]*domain.SettlementItem, 0, len(s.Items))
	for _, it := range s.Items {
		item := *it
		cp.Items = append(cp.Items, &item)
	}
	cp.Shares = make([]*domain.SettlementShare, 0, len(s.Shares))
	for _, sh := range s.Shares {
		share := *sh
		cp.Shares = append(cp.Shares, &share)
	}
	return &cp
}

func (m *MockSettlementRepository) Create(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, settlement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements[settlement.ID] = cloneSettlement(settlement)
	return nil
}

func (m *MockSettlementRepository) GetByID(ctx context.Context, id string) (*domain.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settlements[id]; ok {
		return cloneSettlement(s), nil
	}
	return nil, domain.NotFound(domain.EntitySettlement, id)
}

func (m *MockSettlementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Settlement, error) {
	return m.GetByID(ctx, id)
}

func (m *MockSettlementRepository) ListByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*domain.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Settlement
	for _, s := range m.settlements {
		if s.PropertyID == propertyID {
			out = append(out, cloneSettlement(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSettlementRepository) UpdateShare(ctx context.Context, tx usecase.Transaction, share *domain.SettlementShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[share.SettlementID]
	if !ok {
		return domain.NotFound(domain.EntitySettlement, share.SettlementID)
	}
	for i, sh := range s.Shares {
		if sh.ID == share.ID {
			cp := *share
			s.Shares[i] = &cp
			return nil
		}
	}
	return domain.NotFound(domain.EntityShare, share.ID)
}

func (m *MockSettlementRepository) ReplaceLines(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[settlement.ID]
	if !ok {
		return domain.NotFound(domain.EntitySettlement, settlement.ID)
	}
	fresh := cloneSettlement(settlement)
	s.Items = fresh.Items
	s.Shares = fresh.Shares
	return nil
}

func (m *MockSettlementRepository) UpdateDraft(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[settlement.ID]
	if !ok {
		return domain.NotFound(domain.EntitySettlement, settlement.ID)
	}
	if s.Status != domain.SettlementDraft {
		return domain.InvalidState(domain.EntitySettlement, s.ID, domain.ErrSettlementNotDraft.Constraint)
	}
	s.ItemsTotal = settlement.ItemsTotal
	s.TotalAmount = settlement.TotalAmount
	s.Warnings = append([]domain.Warning(nil), settlement.Warnings...)
	s.UpdatedAt = settlement.UpdatedAt
	s.Version++
	return nil
}

func (m *MockSettlementRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, settlement *domain.Settlement, from domain.SettlementStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, settlement, from)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settlements[settlement.ID]
	if !ok {
		return domain.NotFound(domain.EntitySettlement, settlement.ID)
	}
	if s.Status != from {
		return domain.InvalidState(domain.EntitySettlement, s.ID, fmt.Sprintf("settlement is %s, not %s", s.Status, from))
	}
	s.Status = settlement.Status
	s.FinalizedAt = settlement.FinalizedAt
	s.VoidedAt = settlement.VoidedAt
	s.VoidReason = settlement.VoidReason
	s.UpdatedAt = settlement.UpdatedAt
	s.Version++
	return nil
}

// MockPostingRepository is a mock implementation of PostingRepository.
// Like the table it enforces one posting per share and kind.
type MockPostingRepository struct {
	mu       sync.RWMutex
	postings []*domain.Posting

	CreateBatchFunc func(ctx context.Context, tx usecase.Transaction, postings []*domain.Posting) error
}

func NewMockPostingRepository() *MockPostingRepository {
	return &MockPostingRepository{}
}

func (m *MockPostingRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, postings []*domain.Posting) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tx, postings)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range postings {
		for _, existing := range m.postings {
			if existing.ShareID == p.ShareID && existing.Kind == p.Kind {
				return domain.Conflict(domain.EntityShare, p.ShareID, "posting already exists")
			}
		}
	}
	for _, p := range postings {
		cp := *p
		m.postings = append(m.postings, &cp)
	}
	return nil
}

func (m *MockPostingRepository) ListBySettlement(ctx context.Context, settlementID string) ([]*domain.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Posting
	for _, p := range m.postings {
		if p.SettlementID == settlementID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPostingRepository) ListBySettlementTx(ctx context.Context, tx usecase.Transaction, settlementID string) ([]*domain.Posting, error) {
	return m.ListBySettlement(ctx, settlementID)
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	Events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

// EventTypes returns the types of all recorded events in order.
func (m *MockOutboxRepository) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.EventType)
	}
	return types
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	Logs []*domain.AuditLog
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return m.Create(ctx, log)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for _, l := range m.Logs {
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *MockAuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.AuditLog
	for _, l := range m.Logs {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			out = append(out, l)
		}
	}
	return out, nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu      sync.Mutex
	Commits int
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{
		CommitFunc: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.Commits++
			return nil
		},
	}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockRetrier runs the operation up to Attempts times while it fails.
type MockRetrier struct {
	Attempts int

	mu    sync.Mutex
	calls int
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		m.mu.Lock()
		m.calls++
		m.mu.Unlock()
		if err = operation(); err == nil {
			return nil
		}
	}
	return err
}

// Calls returns how many times an operation was run.
func (m *MockRetrier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
