package postgres

import (
	"context"

	"github.com/iho/rentledger/internal/domain"
)

// PropertyRepository implements usecase.PropertyRepository.
type PropertyRepository struct {
	db DBTX
}

// NewPropertyRepository creates a new PropertyRepository.
func NewPropertyRepository(db DBTX) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// GetByID retrieves a property by ID.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	err := r.db.QueryRow(ctx, `
		SELECT id, owner_id, name, is_active, created_at
		FROM properties
		WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err, domain.EntityProperty, id)
	}

	return &p, nil
}
