package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
	"github.com/iho/rentledger/internal/usecase"
	"github.com/iho/rentledger/internal/usecase/mocks"
)

const (
	ownerID    = "owner-1"
	propertyID = "prop-1"
)

type fixture struct {
	properties  *mocks.MockPropertyRepository
	occupancy   *mocks.MockOccupancyRepository
	meters      *mocks.MockMeterRepository
	readings    *mocks.MockReadingRepository
	utilities   *mocks.MockFixedUtilityRepository
	settlements *mocks.MockSettlementRepository
	postings    *mocks.MockPostingRepository
	outbox      *mocks.MockOutboxRepository
	audit       *mocks.MockAuditRepository
	txManager   *mocks.MockTransactionManager
	retrier     *mocks.MockRetrier
	idGen       *mocks.MockIDGenerator
	metrics     *metrics.Metrics

	meterUC          *usecase.MeterUseCase
	utilityUC        *usecase.FixedUtilityUseCase
	occupancyUC      *usecase.OccupancyUseCase
	calculationUC    *usecase.CalculationUseCase
	settlementUC     *usecase.SettlementUseCase
	reconciliationUC *usecase.ReconciliationUseCase
}

// newFixture wires every use case against in-memory repositories. The
// property prop-1 belongs to owner-1; prop-2 belongs to someone else.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		properties: mocks.NewMockPropertyRepository(
			&domain.Property{ID: propertyID, OwnerID: ownerID, Name: "Flat 4", IsActive: true},
			&domain.Property{ID: "prop-2", OwnerID: "owner-2", Name: "Loft", IsActive: true},
		),
		occupancy:   mocks.NewMockOccupancyRepository(),
		meters:      mocks.NewMockMeterRepository(),
		readings:    mocks.NewMockReadingRepository(),
		utilities:   mocks.NewMockFixedUtilityRepository(),
		settlements: mocks.NewMockSettlementRepository(),
		postings:    mocks.NewMockPostingRepository(),
		outbox:      mocks.NewMockOutboxRepository(),
		audit:       mocks.NewMockAuditRepository(),
		txManager:   mocks.NewMockTransactionManager(),
		retrier:     &mocks.MockRetrier{Attempts: 3},
		idGen:       mocks.NewMockIDGenerator(),
		metrics:     metrics.New(prometheus.NewRegistry()),
	}

	logger := zerolog.Nop()

	f.meterUC = usecase.NewMeterUseCase(f.txManager, f.retrier, f.properties, f.meters, f.readings, f.outbox, f.audit, f.idGen, f.metrics, logger)
	f.utilityUC = usecase.NewFixedUtilityUseCase(f.txManager, f.properties, f.utilities, f.audit, f.idGen)
	f.occupancyUC = usecase.NewOccupancyUseCase(f.properties, f.occupancy)
	f.calculationUC = usecase.NewCalculationUseCase(f.properties, f.meters, f.readings, f.utilities, f.occupancyUC, f.metrics)
	f.settlementUC = usecase.NewSettlementUseCase(f.txManager, f.retrier, f.calculationUC, f.properties, f.settlements, f.postings, f.outbox, f.audit, f.idGen, f.metrics, logger)
	f.reconciliationUC = usecase.NewReconciliationUseCase(f.properties, f.settlements, f.postings)

	return f
}

func ownerCtx() context.Context {
	return domain.WithOwner(context.Background(), domain.Owner{ID: ownerID, Email: "owner@example.com"})
}

func strangerCtx() context.Context {
	return domain.WithOwner(context.Background(), domain.Owner{ID: "owner-2"})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return domain.Date(y, m, d) }

func ptr[T any](v T) *T { return &v }

// turnover seeds two tenants who swap on April 16 and a 60.00 internet
// flat fee split by days.
func (f *fixture) turnover(t *testing.T) {
	t.Helper()

	f.occupancy.AddTenant(&domain.Tenant{ID: "t-x", PropertyID: propertyID, Name: "Xavier", MoveIn: ptr(day(2024, 1, 1)), MoveOut: ptr(day(2024, 4, 16))})
	f.occupancy.AddTenant(&domain.Tenant{ID: "t-y", PropertyID: propertyID, Name: "Yara", MoveIn: ptr(day(2024, 4, 16))})

	_, err := f.utilityUC.CreateFixedUtility(ownerCtx(), usecase.CreateFixedUtilityInput{
		PropertyID:  propertyID,
		Type:        domain.UtilityInternet,
		Name:        "Fiber",
		PeriodCost:  dec("60.00"),
		SplitMethod: domain.SplitByDays,
		ActiveFrom:  day(2023, 1, 1),
	})
	require.NoError(t, err)
}

func april() usecase.CalculationRequest {
	return usecase.CalculationRequest{
		PropertyID: propertyID,
		Start:      day(2024, 4, 1),
		End:        day(2024, 5, 1),
		Approach:   domain.ApproachMonthly,
	}
}

func shareFor(t *testing.T, s *domain.Settlement, tenantID string) *domain.SettlementShare {
	t.Helper()
	for _, sh := range s.Shares {
		if sh.TenantID == tenantID {
			return sh
		}
	}
	t.Fatalf("settlement %s has no share for %s", s.ID, tenantID)
	return nil
}
