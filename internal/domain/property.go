package domain

import "time"

// Property is a rental unit as seen by the settlement engine. The registry
// that owns it lives outside this service.
type Property struct {
	ID        string
	OwnerID   string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// OwnedBy reports whether the property belongs to ownerID.
func (p *Property) OwnedBy(ownerID string) bool {
	return p.OwnerID == ownerID
}

// Tenant is an occupant of a property.
type Tenant struct {
	ID         string
	PropertyID string
	Name       string
	MoveIn     *time.Time
	MoveOut    *time.Time
}

// Contract is a rental agreement for a property.
type Contract struct {
	ID         string
	PropertyID string
	TenantID   string
	StartDate  time.Time
	EndDate    *time.Time
}

// OccupancyIntervals turns tenants and contracts into occupancy intervals.
// Tenants without a move-in date contribute nothing by themselves.
func OccupancyIntervals(tenants []*Tenant, contracts []*Contract) []OccupancyInterval {
	out := make([]OccupancyInterval, 0, len(tenants)+len(contracts))
	for _, t := range tenants {
		if t.MoveIn == nil {
			continue
		}
		out = append(out, OccupancyInterval{
			TenantID: t.ID,
			Source:   OccupancyFromTenant,
			Start:    *t.MoveIn,
			End:      t.MoveOut,
		})
	}
	for _, c := range contracts {
		out = append(out, OccupancyInterval{
			TenantID: c.TenantID,
			Source:   OccupancyFromContract,
			Start:    c.StartDate,
			End:      c.EndDate,
		})
	}
	return out
}
