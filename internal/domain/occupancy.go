package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WeightPrecision is the number of decimal places kept for day weights.
const WeightPrecision int32 = 12

// OccupancySource tells where an occupancy interval was read from.
type OccupancySource string

const (
	OccupancyFromTenant   OccupancySource = "TENANT"
	OccupancyFromContract OccupancySource = "CONTRACT"
)

// OccupancyInterval is a tenant's presence on a property: move-in to
// move-out, or contract start to contract end. End is exclusive; nil means
// the tenant has not left.
type OccupancyInterval struct {
	TenantID string
	Source   OccupancySource
	Start    time.Time
	End      *time.Time
}

// DayShare is one tenant's weight for a single calendar day.
type DayShare struct {
	TenantID string
	Weight   decimal.Decimal
}

// DayOccupancy lists who covered a calendar day. Shares is empty for vacant days.
type DayOccupancy struct {
	Day    time.Time
	Shares []DayShare
}

// OccupancySpan is the derived occupancy of one tenant inside a period.
type OccupancySpan struct {
	TenantID     string
	OccupiedDays int
	Weight       decimal.Decimal
	Fraction     decimal.Decimal
}

// Occupancy is the resolved occupancy of a property over a period.
type Occupancy struct {
	Period     Period
	TotalDays  int
	VacantDays int
	Spans      []OccupancySpan
	Days       []DayOccupancy
}

// Headcount returns the number of distinct tenants present in the period.
func (o Occupancy) Headcount() int {
	return len(o.Spans)
}

// OccupiedWeight returns the sum of all tenant weights, which equals the
// number of days with at least one tenant.
func (o Occupancy) OccupiedWeight() decimal.Decimal {
	total := decimal.Zero
	for _, s := range o.Spans {
		total = total.Add(s.Weight)
	}
	return total
}

// ResolveOccupancy attributes every day of the period to the tenants whose
// intervals cover it. Intervals of the same tenant are merged. A day covered
// by several tenants is split equally among them; the last tenant in ID order
// takes the rounding slack so every occupied day weighs exactly 1. Days with
// no tenant count as vacant.
func ResolveOccupancy(period Period, intervals []OccupancyInterval) Occupancy {
	occ := Occupancy{
		Period:    period,
		TotalDays: period.Days(),
	}

	clipped := make(map[string][]Period)
	for _, iv := range intervals {
		p, ok := period.Clip(iv.Start, iv.End)
		if !ok {
			continue
		}
		clipped[iv.TenantID] = append(clipped[iv.TenantID], p)
	}

	tenantIDs := make([]string, 0, len(clipped))
	for id := range clipped {
		tenantIDs = append(tenantIDs, id)
	}
	sort.Strings(tenantIDs)

	spans := make(map[string]*OccupancySpan, len(tenantIDs))
	for _, id := range tenantIDs {
		spans[id] = &OccupancySpan{TenantID: id, Weight: decimal.Zero}
	}

	for day := period.Start; day.Before(period.End); day = day.AddDate(0, 0, 1) {
		var covering []string
		for _, id := range tenantIDs {
			if coversDay(clipped[id], day) {
				covering = append(covering, id)
			}
		}

		entry := DayOccupancy{Day: day}
		if len(covering) == 0 {
			occ.VacantDays++
			occ.Days = append(occ.Days, entry)
			continue
		}

		part := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(len(covering))), WeightPrecision)
		assigned := decimal.Zero
		for i, id := range covering {
			w := part
			if i == len(covering)-1 {
				w = decimal.NewFromInt(1).Sub(assigned)
			}
			assigned = assigned.Add(w)

			entry.Shares = append(entry.Shares, DayShare{TenantID: id, Weight: w})
			spans[id].OccupiedDays++
			spans[id].Weight = spans[id].Weight.Add(w)
		}
		occ.Days = append(occ.Days, entry)
	}

	total := decimal.NewFromInt(int64(occ.TotalDays))
	for _, id := range tenantIDs {
		span := spans[id]
		if span.OccupiedDays == 0 {
			continue
		}
		span.Fraction = span.Weight.DivRound(total, WeightPrecision)
		occ.Spans = append(occ.Spans, *span)
	}

	return occ
}

func coversDay(periods []Period, day time.Time) bool {
	for _, p := range periods {
		if p.Contains(day) {
			return true
		}
	}
	return false
}
