package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

const meterColumns = `id, property_id, utility_type, number, unit, price_per_unit,
	replaces_id, replaced_by_id, retired_at, notes, created_at`

// MeterRepository implements usecase.MeterRepository.
type MeterRepository struct {
	db DBTX
}

// NewMeterRepository creates a new MeterRepository.
func NewMeterRepository(db DBTX) *MeterRepository {
	return &MeterRepository{db: db}
}

// Create inserts a meter within a transaction.
func (r *MeterRepository) Create(ctx context.Context, tx usecase.Transaction, meter *domain.Meter) error {
	_, err := txDB(tx).Exec(ctx, `
		INSERT INTO meters (id, property_id, utility_type, number, unit, price_per_unit,
			replaces_id, replaced_by_id, retired_at, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		meter.ID,
		meter.PropertyID,
		string(meter.UtilityType),
		meter.Number,
		meter.Unit,
		decimalPtrToNumeric(meter.PricePerUnit),
		meter.ReplacesID,
		meter.ReplacedByID,
		timePtrToPgDate(meter.RetiredAt),
		meter.Notes,
		timeToPgTimestamptz(meter.CreatedAt),
	)

	return mapError(err, domain.EntityMeter, meter.ID)
}

// GetByID retrieves a meter by ID.
func (r *MeterRepository) GetByID(ctx context.Context, id string) (*domain.Meter, error) {
	row := r.db.QueryRow(ctx, `SELECT `+meterColumns+` FROM meters WHERE id = $1`, id)

	meter, err := scanMeter(row)
	if err != nil {
		return nil, mapError(err, domain.EntityMeter, id)
	}

	return meter, nil
}

// GetByIDForUpdate retrieves a meter by ID with a FOR UPDATE lock.
func (r *MeterRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Meter, error) {
	row := txDB(tx).QueryRow(ctx, `SELECT `+meterColumns+` FROM meters WHERE id = $1 FOR UPDATE`, id)

	meter, err := scanMeter(row)
	if err != nil {
		return nil, mapError(err, domain.EntityMeter, id)
	}

	return meter, nil
}

// Retire links a live meter to its successor. A meter that is already
// retired is left untouched and reported as a conflict.
func (r *MeterRepository) Retire(ctx context.Context, tx usecase.Transaction, id, replacedByID string, retiredAt time.Time) error {
	tag, err := txDB(tx).Exec(ctx, `
		UPDATE meters
		SET retired_at = $2, replaced_by_id = $3
		WHERE id = $1 AND retired_at IS NULL
	`, id, timeToPgDate(retiredAt), replacedByID)
	if err != nil {
		return mapError(err, domain.EntityMeter, id)
	}

	if tag.RowsAffected() == 0 {
		return domain.Conflict(domain.EntityMeter, id, domain.ErrMeterRetired.Constraint)
	}

	return nil
}

// ListByProperty lists the meters of a property.
func (r *MeterRepository) ListByProperty(ctx context.Context, propertyID string, includeRetired bool) ([]*domain.Meter, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+meterColumns+`
		FROM meters
		WHERE property_id = $1 AND ($2 OR retired_at IS NULL)
		ORDER BY utility_type, number, id
	`, propertyID, includeRetired)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []*domain.Meter
	for rows.Next() {
		meter, err := scanMeter(rows)
		if err != nil {
			return nil, err
		}
		meters = append(meters, meter)
	}

	return meters, rows.Err()
}

// GetChain returns every meter linked to id by exchanges, oldest first.
func (r *MeterRepository) GetChain(ctx context.Context, id string) ([]*domain.Meter, error) {
	rows, err := r.db.Query(ctx, `
		WITH RECURSIVE back AS (
			SELECT m.id, m.replaces_id, 0 AS depth FROM meters m WHERE m.id = $1
			UNION ALL
			SELECT p.id, p.replaces_id, b.depth - 1
			FROM meters p JOIN back b ON p.id = b.replaces_id
		), forward AS (
			SELECT m.id, m.replaced_by_id, 0 AS depth FROM meters m WHERE m.id = $1
			UNION ALL
			SELECT n.id, n.replaced_by_id, f.depth + 1
			FROM meters n JOIN forward f ON n.id = f.replaced_by_id
		), chain AS (
			SELECT id, depth FROM back
			UNION
			SELECT id, depth FROM forward
		)
		SELECT m.id, m.property_id, m.utility_type, m.number, m.unit, m.price_per_unit,
			m.replaces_id, m.replaced_by_id, m.retired_at, m.notes, m.created_at
		FROM chain c JOIN meters m ON m.id = c.id
		ORDER BY c.depth
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []*domain.Meter
	for rows.Next() {
		meter, err := scanMeter(rows)
		if err != nil {
			return nil, err
		}
		meters = append(meters, meter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(meters) == 0 {
		return nil, domain.NotFound(domain.EntityMeter, id)
	}

	return meters, nil
}

func scanMeter(row rowScanner) (*domain.Meter, error) {
	var (
		m           domain.Meter
		utilityType string
		price       pgtype.Numeric
		retiredAt   pgtype.Date
		createdAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&m.ID,
		&m.PropertyID,
		&utilityType,
		&m.Number,
		&m.Unit,
		&price,
		&m.ReplacesID,
		&m.ReplacedByID,
		&retiredAt,
		&m.Notes,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	m.UtilityType = domain.UtilityType(utilityType)
	m.PricePerUnit = numericToDecimalPtr(price)
	m.RetiredAt = pgDateToTimePtr(retiredAt)
	m.CreatedAt = createdAt.Time

	return &m, nil
}
