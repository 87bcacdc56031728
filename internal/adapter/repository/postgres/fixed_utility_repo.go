package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

const fixedUtilityColumns = `id, property_id, utility_type, name, period_cost, split_method,
	is_per_person, is_active, active_from, deactivated_at, created_at, updated_at`

// FixedUtilityRepository implements usecase.FixedUtilityRepository.
type FixedUtilityRepository struct {
	db DBTX
}

// NewFixedUtilityRepository creates a new FixedUtilityRepository.
func NewFixedUtilityRepository(db DBTX) *FixedUtilityRepository {
	return &FixedUtilityRepository{db: db}
}

// Create inserts a fixed utility within a transaction.
func (r *FixedUtilityRepository) Create(ctx context.Context, tx usecase.Transaction, u *domain.FixedUtility) error {
	_, err := txDB(tx).Exec(ctx, `
		INSERT INTO fixed_utilities (`+fixedUtilityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		u.ID,
		u.PropertyID,
		string(u.Type),
		u.Name,
		decimalToNumeric(u.PeriodCost),
		string(u.SplitMethod),
		u.IsPerPerson,
		u.IsActive,
		timeToPgDate(u.ActiveFrom),
		timePtrToPgDate(u.DeactivatedAt),
		timeToPgTimestamptz(u.CreatedAt),
		timeToPgTimestamptz(u.UpdatedAt),
	)

	return mapError(err, domain.EntityFixedUtility, u.ID)
}

// GetByID retrieves a fixed utility by ID.
func (r *FixedUtilityRepository) GetByID(ctx context.Context, id string) (*domain.FixedUtility, error) {
	row := r.db.QueryRow(ctx, `SELECT `+fixedUtilityColumns+` FROM fixed_utilities WHERE id = $1`, id)

	u, err := scanFixedUtility(row)
	if err != nil {
		return nil, mapError(err, domain.EntityFixedUtility, id)
	}

	return u, nil
}

// GetByIDForUpdate retrieves a fixed utility by ID with a FOR UPDATE lock.
func (r *FixedUtilityRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.FixedUtility, error) {
	row := txDB(tx).QueryRow(ctx, `SELECT `+fixedUtilityColumns+` FROM fixed_utilities WHERE id = $1 FOR UPDATE`, id)

	u, err := scanFixedUtility(row)
	if err != nil {
		return nil, mapError(err, domain.EntityFixedUtility, id)
	}

	return u, nil
}

// Deactivate stops billing the utility from the given date on.
func (r *FixedUtilityRepository) Deactivate(ctx context.Context, tx usecase.Transaction, id string, at time.Time) error {
	tag, err := txDB(tx).Exec(ctx, `
		UPDATE fixed_utilities
		SET is_active = FALSE, deactivated_at = $2, updated_at = $3
		WHERE id = $1 AND is_active
	`, id, timeToPgDate(at), timeToPgTimestamptz(at))
	if err != nil {
		return mapError(err, domain.EntityFixedUtility, id)
	}

	if tag.RowsAffected() == 0 {
		return domain.Conflict(domain.EntityFixedUtility, id, domain.ErrUtilityInactive.Constraint)
	}

	return nil
}

// ListByProperty lists the fixed utilities of a property.
func (r *FixedUtilityRepository) ListByProperty(ctx context.Context, propertyID string, includeInactive bool) ([]*domain.FixedUtility, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+fixedUtilityColumns+`
		FROM fixed_utilities
		WHERE property_id = $1 AND ($2 OR is_active)
		ORDER BY created_at, id
	`, propertyID, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var utilities []*domain.FixedUtility
	for rows.Next() {
		u, err := scanFixedUtility(rows)
		if err != nil {
			return nil, err
		}
		utilities = append(utilities, u)
	}

	return utilities, rows.Err()
}

func scanFixedUtility(row rowScanner) (*domain.FixedUtility, error) {
	var (
		u                    domain.FixedUtility
		utilityType, method  string
		cost                 pgtype.Numeric
		activeFrom, deact    pgtype.Date
		createdAt, updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&u.ID,
		&u.PropertyID,
		&utilityType,
		&u.Name,
		&cost,
		&method,
		&u.IsPerPerson,
		&u.IsActive,
		&activeFrom,
		&deact,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Type = domain.UtilityType(utilityType)
	u.SplitMethod = domain.SplitMethod(method)
	u.PeriodCost = numericToDecimal(cost)
	u.ActiveFrom = pgDateToTime(activeFrom)
	u.DeactivatedAt = pgDateToTimePtr(deact)
	u.CreatedAt = createdAt.Time
	u.UpdatedAt = updatedAt.Time

	return &u, nil
}
