package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// PostingRepository implements usecase.PostingRepository. Postings are
// never updated or deleted.
type PostingRepository struct {
	db DBTX
}

// NewPostingRepository creates a new PostingRepository.
func NewPostingRepository(db DBTX) *PostingRepository {
	return &PostingRepository{db: db}
}

// CreateBatch appends postings within a transaction. A second posting of the
// same kind for a share fails with a conflict on postings_share_kind_key.
func (r *PostingRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, postings []*domain.Posting) error {
	db := txDB(tx)

	for _, p := range postings {
		_, err := db.Exec(ctx, `
			INSERT INTO postings (id, settlement_id, share_id, tenant_id, kind, amount, reverses_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			p.ID,
			p.SettlementID,
			p.ShareID,
			p.TenantID,
			string(p.Kind),
			decimalToNumeric(p.Amount),
			p.ReversesID,
			timeToPgTimestamptz(p.CreatedAt),
		)
		if err != nil {
			return mapError(err, domain.EntityShare, p.ShareID)
		}
	}

	return nil
}

// ListBySettlement returns the postings of a settlement in creation order.
func (r *PostingRepository) ListBySettlement(ctx context.Context, settlementID string) ([]*domain.Posting, error) {
	return listPostings(ctx, r.db, settlementID)
}

// ListBySettlementTx is ListBySettlement inside a transaction.
func (r *PostingRepository) ListBySettlementTx(ctx context.Context, tx usecase.Transaction, settlementID string) ([]*domain.Posting, error) {
	return listPostings(ctx, txDB(tx), settlementID)
}

func listPostings(ctx context.Context, db DBTX, settlementID string) ([]*domain.Posting, error) {
	rows, err := db.Query(ctx, `
		SELECT id, settlement_id, share_id, tenant_id, kind, amount, reverses_id, created_at
		FROM postings
		WHERE settlement_id = $1
		ORDER BY created_at, kind, tenant_id
	`, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var postings []*domain.Posting
	for rows.Next() {
		var (
			p         domain.Posting
			kind      string
			amount    pgtype.Numeric
			createdAt pgtype.Timestamptz
		)
		err := rows.Scan(&p.ID, &p.SettlementID, &p.ShareID, &p.TenantID, &kind, &amount, &p.ReversesID, &createdAt)
		if err != nil {
			return nil, err
		}
		p.Kind = domain.PostingKind(kind)
		p.Amount = numericToDecimal(amount)
		p.CreatedAt = createdAt.Time
		postings = append(postings, &p)
	}

	return postings, rows.Err()
}
