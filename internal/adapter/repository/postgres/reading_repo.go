package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// ReadingRepository implements usecase.ReadingRepository.
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository creates a new ReadingRepository.
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Create inserts a reading within a transaction.
func (r *ReadingRepository) Create(ctx context.Context, tx usecase.Transaction, reading *domain.MeterReading) error {
	_, err := txDB(tx).Exec(ctx, `
		INSERT INTO meter_readings (id, meter_id, value, reading_date, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		reading.ID,
		reading.MeterID,
		decimalToNumeric(reading.Value),
		timeToPgDate(reading.ReadingDate),
		string(reading.Kind),
		timeToPgTimestamptz(reading.CreatedAt),
	)

	return mapError(err, domain.EntityReading, reading.ID)
}

// ListByMeter returns the readings of a meter in date order.
func (r *ReadingRepository) ListByMeter(ctx context.Context, meterID string) ([]*domain.MeterReading, error) {
	return listReadings(ctx, r.db, meterID)
}

// ListByMeterTx is ListByMeter inside a transaction.
func (r *ReadingRepository) ListByMeterTx(ctx context.Context, tx usecase.Transaction, meterID string) ([]*domain.MeterReading, error) {
	return listReadings(ctx, txDB(tx), meterID)
}

func listReadings(ctx context.Context, db DBTX, meterID string) ([]*domain.MeterReading, error) {
	rows, err := db.Query(ctx, `
		SELECT id, meter_id, value, reading_date, kind, created_at
		FROM meter_readings
		WHERE meter_id = $1
		ORDER BY reading_date, created_at
	`, meterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*domain.MeterReading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}

// LatestTx returns the most recent reading of the meter, or nil when it has none.
func (r *ReadingRepository) LatestTx(ctx context.Context, tx usecase.Transaction, meterID string) (*domain.MeterReading, error) {
	row := txDB(tx).QueryRow(ctx, `
		SELECT id, meter_id, value, reading_date, kind, created_at
		FROM meter_readings
		WHERE meter_id = $1
		ORDER BY reading_date DESC, created_at DESC
		LIMIT 1
	`, meterID)

	reading, err := scanReading(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return reading, nil
}

func scanReading(row rowScanner) (*domain.MeterReading, error) {
	var (
		r         domain.MeterReading
		value     pgtype.Numeric
		date      pgtype.Date
		kind      string
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&r.ID, &r.MeterID, &value, &date, &kind, &createdAt); err != nil {
		return nil, err
	}

	r.Value = numericToDecimal(value)
	r.ReadingDate = pgDateToTime(date)
	r.Kind = domain.ReadingKind(kind)
	r.CreatedAt = createdAt.Time

	return &r, nil
}
