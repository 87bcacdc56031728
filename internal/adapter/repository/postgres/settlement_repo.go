package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

const settlementColumns = `id, property_id, period_start, period_end, approach, status,
	items_total, total_amount, warnings, void_reason, version,
	created_at, updated_at, finalized_at, voided_at`

// SettlementRepository implements usecase.SettlementRepository.
// Items and shares are always read and written together with their settlement.
type SettlementRepository struct {
	db DBTX
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(db DBTX) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create inserts the settlement with its items and shares.
func (r *SettlementRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	db := txDB(tx)

	warnings, err := marshalWarnings(s.Warnings)
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		INSERT INTO settlements (`+settlementColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		s.ID,
		s.PropertyID,
		timeToPgDate(s.Period.Start),
		timeToPgDate(s.Period.End),
		string(s.Approach),
		string(s.Status),
		decimalToNumeric(s.ItemsTotal),
		decimalToNumeric(s.TotalAmount),
		warnings,
		s.VoidReason,
		s.Version,
		timeToPgTimestamptz(s.CreatedAt),
		timeToPgTimestamptz(s.UpdatedAt),
		timePtrToPgTimestamptz(s.FinalizedAt),
		timePtrToPgTimestamptz(s.VoidedAt),
	)
	if err != nil {
		return mapError(err, domain.EntitySettlement, s.ID)
	}

	return insertLines(ctx, db, s)
}

// GetByID retrieves a settlement with its items and shares.
func (r *SettlementRepository) GetByID(ctx context.Context, id string) (*domain.Settlement, error) {
	return getSettlement(ctx, r.db, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id)
}

// GetByIDForUpdate locks the settlement row and reads it with its lines.
func (r *SettlementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Settlement, error) {
	return getSettlement(ctx, txDB(tx), `SELECT `+settlementColumns+` FROM settlements WHERE id = $1 FOR UPDATE`, id)
}

// ListByProperty lists settlements of a property, newest first. Lines are
// not loaded.
func (r *SettlementRepository) ListByProperty(ctx context.Context, propertyID string, limit, offset int) ([]*domain.Settlement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+settlementColumns+`
		FROM settlements
		WHERE property_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, propertyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settlements []*domain.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}

	return settlements, rows.Err()
}

// UpdateShare stores an owner adjustment of a share.
func (r *SettlementRepository) UpdateShare(ctx context.Context, tx usecase.Transaction, share *domain.SettlementShare) error {
	tag, err := txDB(tx).Exec(ctx, `
		UPDATE settlement_shares
		SET adjusted_amount = $3, final_amount = $4, owner_notes = $5
		WHERE id = $1 AND settlement_id = $2
	`,
		share.ID,
		share.SettlementID,
		decimalPtrToNumeric(share.AdjustedAmount),
		decimalToNumeric(share.FinalAmount),
		share.OwnerNotes,
	)
	if err != nil {
		return mapError(err, domain.EntityShare, share.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.NotFound(domain.EntityShare, share.ID)
	}

	return nil
}

// ReplaceLines drops the items and shares of a settlement and writes new ones.
func (r *SettlementRepository) ReplaceLines(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	db := txDB(tx)

	if _, err := db.Exec(ctx, `DELETE FROM settlement_items WHERE settlement_id = $1`, s.ID); err != nil {
		return mapError(err, domain.EntitySettlement, s.ID)
	}

	if _, err := db.Exec(ctx, `DELETE FROM settlement_shares WHERE settlement_id = $1`, s.ID); err != nil {
		return mapError(err, domain.EntitySettlement, s.ID)
	}

	return insertLines(ctx, db, s)
}

// UpdateDraft stores the totals and warnings of a draft.
func (r *SettlementRepository) UpdateDraft(ctx context.Context, tx usecase.Transaction, s *domain.Settlement) error {
	warnings, err := marshalWarnings(s.Warnings)
	if err != nil {
		return err
	}

	tag, err := txDB(tx).Exec(ctx, `
		UPDATE settlements
		SET items_total = $2, total_amount = $3, warnings = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND status = 'DRAFT'
	`,
		s.ID,
		decimalToNumeric(s.ItemsTotal),
		decimalToNumeric(s.TotalAmount),
		warnings,
		timeToPgTimestamptz(s.UpdatedAt),
	)
	if err != nil {
		return mapError(err, domain.EntitySettlement, s.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.InvalidState(domain.EntitySettlement, s.ID, domain.ErrSettlementNotDraft.Constraint)
	}

	return nil
}

// UpdateStatus moves the settlement to s.Status if the stored status is
// still from.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, s *domain.Settlement, from domain.SettlementStatus) error {
	tag, err := txDB(tx).Exec(ctx, `
		UPDATE settlements
		SET status = $3, finalized_at = $4, voided_at = $5, void_reason = $6,
			updated_at = $7, version = version + 1
		WHERE id = $1 AND status = $2
	`,
		s.ID,
		string(from),
		string(s.Status),
		timePtrToPgTimestamptz(s.FinalizedAt),
		timePtrToPgTimestamptz(s.VoidedAt),
		s.VoidReason,
		timeToPgTimestamptz(s.UpdatedAt),
	)
	if err != nil {
		return mapError(err, domain.EntitySettlement, s.ID)
	}

	if tag.RowsAffected() == 0 {
		return domain.InvalidState(domain.EntitySettlement, s.ID, fmt.Sprintf("settlement is no longer %s", from))
	}

	return nil
}

func getSettlement(ctx context.Context, db DBTX, query, id string) (*domain.Settlement, error) {
	s, err := scanSettlement(db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, domain.EntitySettlement, id)
	}

	if s.Items, err = listItems(ctx, db, id); err != nil {
		return nil, err
	}

	if s.Shares, err = listShares(ctx, db, id); err != nil {
		return nil, err
	}

	return s, nil
}

func insertLines(ctx context.Context, db DBTX, s *domain.Settlement) error {
	for i, item := range s.Items {
		_, err := db.Exec(ctx, `
			INSERT INTO settlement_items (id, settlement_id, position, source_type, source_id,
				description, utility_type, split_method, quantity, unit, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			item.ID,
			s.ID,
			i,
			string(item.SourceType),
			item.SourceID,
			item.Description,
			string(item.UtilityType),
			string(item.SplitMethod),
			decimalToNumeric(item.Quantity),
			item.Unit,
			decimalPtrToNumeric(item.UnitPrice),
			decimalToNumeric(item.Amount),
		)
		if err != nil {
			return mapError(err, domain.EntitySettlement, s.ID)
		}
	}

	for _, share := range s.Shares {
		_, err := db.Exec(ctx, `
			INSERT INTO settlement_shares (id, settlement_id, tenant_id, tenant_name, occupied_days,
				fraction, calculated_amount, adjusted_amount, final_amount, notes, owner_notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			share.ID,
			s.ID,
			share.TenantID,
			share.TenantName,
			share.OccupiedDays,
			decimalToNumeric(share.Fraction),
			decimalToNumeric(share.CalculatedAmount),
			decimalPtrToNumeric(share.AdjustedAmount),
			decimalToNumeric(share.FinalAmount),
			share.Notes,
			share.OwnerNotes,
		)
		if err != nil {
			return mapError(err, domain.EntityShare, share.ID)
		}
	}

	return nil
}

func listItems(ctx context.Context, db DBTX, settlementID string) ([]*domain.SettlementItem, error) {
	rows, err := db.Query(ctx, `
		SELECT id, settlement_id, source_type, source_id, description, utility_type,
			split_method, quantity, unit, unit_price, amount
		FROM settlement_items
		WHERE settlement_id = $1
		ORDER BY position
	`, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.SettlementItem
	for rows.Next() {
		var (
			item                                 domain.SettlementItem
			sourceType, utilityType, splitMethod string
			quantity, unitPrice, amount          pgtype.Numeric
		)
		err := rows.Scan(
			&item.ID,
			&item.SettlementID,
			&sourceType,
			&item.SourceID,
			&item.Description,
			&utilityType,
			&splitMethod,
			&quantity,
			&item.Unit,
			&unitPrice,
			&amount,
		)
		if err != nil {
			return nil, err
		}
		item.SourceType = domain.ItemSource(sourceType)
		item.UtilityType = domain.UtilityType(utilityType)
		item.SplitMethod = domain.SplitMethod(splitMethod)
		item.Quantity = numericToDecimal(quantity)
		item.UnitPrice = numericToDecimalPtr(unitPrice)
		item.Amount = numericToDecimal(amount)
		items = append(items, &item)
	}

	return items, rows.Err()
}

func listShares(ctx context.Context, db DBTX, settlementID string) ([]*domain.SettlementShare, error) {
	rows, err := db.Query(ctx, `
		SELECT id, settlement_id, tenant_id, tenant_name, occupied_days, fraction,
			calculated_amount, adjusted_amount, final_amount, notes, owner_notes
		FROM settlement_shares
		WHERE settlement_id = $1
		ORDER BY tenant_id
	`, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []*domain.SettlementShare
	for rows.Next() {
		var (
			share                                 domain.SettlementShare
			fraction, calculated, adjusted, final pgtype.Numeric
		)
		err := rows.Scan(
			&share.ID,
			&share.SettlementID,
			&share.TenantID,
			&share.TenantName,
			&share.OccupiedDays,
			&fraction,
			&calculated,
			&adjusted,
			&final,
			&share.Notes,
			&share.OwnerNotes,
		)
		if err != nil {
			return nil, err
		}
		share.Fraction = numericToDecimal(fraction)
		share.CalculatedAmount = numericToDecimal(calculated)
		share.AdjustedAmount = numericToDecimalPtr(adjusted)
		share.FinalAmount = numericToDecimal(final)
		shares = append(shares, &share)
	}

	return shares, rows.Err()
}

func scanSettlement(row rowScanner) (*domain.Settlement, error) {
	var (
		s                     domain.Settlement
		start, end            pgtype.Date
		approach, status      string
		itemsTotal, total     pgtype.Numeric
		warnings              []byte
		createdAt, updatedAt  pgtype.Timestamptz
		finalizedAt, voidedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&s.ID,
		&s.PropertyID,
		&start,
		&end,
		&approach,
		&status,
		&itemsTotal,
		&total,
		&warnings,
		&s.VoidReason,
		&s.Version,
		&createdAt,
		&updatedAt,
		&finalizedAt,
		&voidedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Period = domain.Period{Start: pgDateToTime(start), End: pgDateToTime(end)}
	s.Approach = domain.Approach(approach)
	s.Status = domain.SettlementStatus(status)
	s.ItemsTotal = numericToDecimal(itemsTotal)
	s.TotalAmount = numericToDecimal(total)
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	s.FinalizedAt = pgTimestamptzToTimePtr(finalizedAt)
	s.VoidedAt = pgTimestamptzToTimePtr(voidedAt)

	if len(warnings) > 0 {
		if err := json.Unmarshal(warnings, &s.Warnings); err != nil {
			return nil, fmt.Errorf("decode settlement warnings: %w", err)
		}
	}

	return &s, nil
}

func marshalWarnings(warnings []domain.Warning) ([]byte, error) {
	if warnings == nil {
		warnings = []domain.Warning{}
	}

	data, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("encode settlement warnings: %w", err)
	}

	return data, nil
}
