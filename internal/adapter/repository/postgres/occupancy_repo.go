package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iho/rentledger/internal/domain"
)

// OccupancyRepository implements usecase.OccupancyRepository.
type OccupancyRepository struct {
	db DBTX
}

// NewOccupancyRepository creates a new OccupancyRepository.
func NewOccupancyRepository(db DBTX) *OccupancyRepository {
	return &OccupancyRepository{db: db}
}

// ListTenants returns every tenant ever registered on the property.
func (r *OccupancyRepository) ListTenants(ctx context.Context, propertyID string) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, property_id, name, move_in, move_out
		FROM tenants
		WHERE property_id = $1
		ORDER BY id
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var (
			t               domain.Tenant
			moveIn, moveOut pgtype.Date
		)
		if err := rows.Scan(&t.ID, &t.PropertyID, &t.Name, &moveIn, &moveOut); err != nil {
			return nil, err
		}
		t.MoveIn = pgDateToTimePtr(moveIn)
		t.MoveOut = pgDateToTimePtr(moveOut)
		tenants = append(tenants, &t)
	}

	return tenants, rows.Err()
}

// ListContracts returns every rental contract of the property.
func (r *OccupancyRepository) ListContracts(ctx context.Context, propertyID string) ([]*domain.Contract, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, property_id, tenant_id, start_date, end_date
		FROM contracts
		WHERE property_id = $1
		ORDER BY start_date, id
	`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []*domain.Contract
	for rows.Next() {
		var (
			c          domain.Contract
			start, end pgtype.Date
		)
		if err := rows.Scan(&c.ID, &c.PropertyID, &c.TenantID, &start, &end); err != nil {
			return nil, err
		}
		c.StartDate = pgDateToTime(start)
		c.EndDate = pgDateToTimePtr(end)
		contracts = append(contracts, &c)
	}

	return contracts, rows.Err()
}
