package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iho/rentledger/internal/adapter/repository/postgres"
	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/infrastructure/metrics"
	infrapg "github.com/iho/rentledger/internal/infrastructure/postgres"
	"github.com/iho/rentledger/internal/usecase"
)

const migrationsPath = "../../../infrastructure/postgres/migrations"

type stack struct {
	pool        *pgxpool.Pool
	meters      *usecase.MeterUseCase
	calculation *usecase.CalculationUseCase
	settlements *usecase.SettlementUseCase
	reconcile   *usecase.ReconciliationUseCase
}

// newStack starts PostgreSQL in a container, applies migrations and wires
// the use cases against the real repositories.
func newStack(t *testing.T) *stack {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test needs docker")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rentledger_test"),
		tcpostgres.WithUsername("rentledger"),
		tcpostgres.WithPassword("rentledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := zerolog.Nop()
	require.NoError(t, infrapg.RunMigrations(dsn, migrationsPath, logger))

	pool, err := infrapg.NewPool(ctx, dsn, 10, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	m := metrics.New(prometheus.NewRegistry())
	txManager := postgres.NewTxManager(pool)
	retrier := postgres.NewRetrier(logger, m)
	idGen := postgres.NewULIDGenerator()

	properties := postgres.NewPropertyRepository(pool)
	occupancy := postgres.NewOccupancyRepository(pool)
	meters := postgres.NewMeterRepository(pool)
	readings := postgres.NewReadingRepository(pool)
	utilities := postgres.NewFixedUtilityRepository(pool)
	settlements := postgres.NewSettlementRepository(pool)
	postings := postgres.NewPostingRepository(pool)
	outbox := postgres.NewOutboxRepository(pool)
	audit := postgres.NewAuditRepository(pool)

	occupancyUC := usecase.NewOccupancyUseCase(properties, occupancy)
	calculationUC := usecase.NewCalculationUseCase(properties, meters, readings, utilities, occupancyUC, m)

	return &stack{
		pool:        pool,
		meters:      usecase.NewMeterUseCase(txManager, retrier, properties, meters, readings, outbox, audit, idGen, m, logger),
		calculation: calculationUC,
		settlements: usecase.NewSettlementUseCase(txManager, retrier, calculationUC, properties, settlements, postings, outbox, audit, idGen, m, logger),
		reconcile:   usecase.NewReconciliationUseCase(properties, settlements, postings),
	}
}

func (s *stack) exec(t *testing.T, sql string, args ...any) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

// seed creates a property of owner-1 with two tenants who swap on April 16.
func (s *stack) seed(t *testing.T) {
	t.Helper()

	s.exec(t, `INSERT INTO properties (id, owner_id, name) VALUES ('prop-1', 'owner-1', 'Flat 4')`)
	s.exec(t, `INSERT INTO tenants (id, property_id, name, move_in, move_out) VALUES
		('t-x', 'prop-1', 'Xavier', '2024-01-01', '2024-04-16'),
		('t-y', 'prop-1', 'Yara', '2024-04-16', NULL)`)
	s.exec(t, `INSERT INTO fixed_utilities (id, property_id, utility_type, name, period_cost, split_method, active_from)
		VALUES ('fu-1', 'prop-1', 'INTERNET', 'Fiber', 60.00, 'BY_DAYS', '2023-01-01')`)
}

func ownerCtx() context.Context {
	return domain.WithOwner(context.Background(), domain.Owner{ID: "owner-1"})
}

func day(y int, m time.Month, d int) time.Time { return domain.Date(y, m, d) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestIntegration_SettlementLifecycle(t *testing.T) {
	s := newStack(t)
	s.seed(t)

	draft, err := s.settlements.CreateDraft(ownerCtx(), usecase.CalculationRequest{
		PropertyID: "prop-1",
		Start:      day(2024, 4, 1),
		End:        day(2024, 5, 1),
		Approach:   domain.ApproachMonthly,
	})
	require.NoError(t, err)
	require.Len(t, draft.Shares, 2)
	assert.True(t, draft.TotalAmount.Equal(dec("60")))

	stored, err := s.settlements.GetSettlement(ownerCtx(), draft.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "fu-1", stored.Items[0].SourceID)
	for _, sh := range stored.Shares {
		assert.True(t, sh.FinalAmount.Equal(dec("30")), "%s owes %s", sh.TenantID, sh.FinalAmount)
	}

	t.Run("finalize twice posts once", func(t *testing.T) {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			invalid   int
		)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.settlements.Finalize(ownerCtx(), draft.ID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, domain.ErrInvalidState):
					invalid++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, 3, invalid)

		postings, err := s.settlements.ListPostings(ownerCtx(), draft.ID)
		require.NoError(t, err)
		assert.Len(t, postings, 2)
		assert.True(t, domain.SumPostings(postings).Equal(dec("60")))
	})

	t.Run("void reverses charges", func(t *testing.T) {
		voided, err := s.settlements.Void(ownerCtx(), usecase.VoidInput{SettlementID: draft.ID, Reason: "wrong move-out date"})
		require.NoError(t, err)
		assert.Equal(t, domain.SettlementVoided, voided.Status)

		postings, err := s.settlements.ListPostings(ownerCtx(), draft.ID)
		require.NoError(t, err)
		assert.Len(t, postings, 4)
		assert.True(t, domain.SumPostings(postings).IsZero())

		check, err := s.reconcile.CheckSettlement(ownerCtx(), draft.ID)
		require.NoError(t, err)
		assert.Empty(t, check.Issues)
	})
}

func TestIntegration_MeterExchange(t *testing.T) {
	s := newStack(t)
	s.seed(t)

	price := dec("2")
	initial := dec("400")
	old, err := s.meters.CreateMeter(ownerCtx(), usecase.CreateMeterInput{
		PropertyID:     "prop-1",
		UtilityType:    domain.UtilityWater,
		Number:         "W-1",
		Unit:           "m3",
		PricePerUnit:   &price,
		InitialReading: &initial,
		InstalledOn:    day(2023, 12, 1),
	})
	require.NoError(t, err)

	_, err = s.meters.RecordReading(ownerCtx(), usecase.RecordReadingInput{MeterID: old.ID, Value: dec("450"), Date: day(2024, 1, 1)})
	require.NoError(t, err)

	res, err := s.meters.ExchangeMeter(ownerCtx(), usecase.ExchangeMeterInput{
		OldMeterID:     old.ID,
		ExchangeDate:   day(2024, 1, 15),
		FinalReading:   dec("500"),
		NewMeter:       usecase.NewMeterSpec{Number: "W-2"},
		InitialReading: dec("0"),
	})
	require.NoError(t, err)

	_, err = s.meters.RecordReading(ownerCtx(), usecase.RecordReadingInput{MeterID: res.NewMeter.ID, Value: dec("40"), Date: day(2024, 2, 1)})
	require.NoError(t, err)

	for _, id := range []string{old.ID, res.NewMeter.ID} {
		usage, err := s.meters.UsageBetween(ownerCtx(), id, domain.Period{Start: day(2024, 1, 1), End: day(2024, 2, 1)})
		require.NoError(t, err)
		assert.True(t, usage.Total.Equal(dec("90")), "usage via %s: %s", id, usage.Total)
	}

	_, err = s.meters.ExchangeMeter(ownerCtx(), usecase.ExchangeMeterInput{
		OldMeterID:   old.ID,
		ExchangeDate: day(2024, 2, 1),
		FinalReading: dec("510"),
		NewMeter:     usecase.NewMeterSpec{Number: "W-3"},
	})
	assert.ErrorIs(t, err, domain.ErrMeterRetired)

	live, err := s.meters.ListMeters(ownerCtx(), "prop-1", false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, res.NewMeter.ID, live[0].ID)
}
