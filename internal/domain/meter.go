package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UtilityType is the kind of utility a meter or fixed cost belongs to.
type UtilityType string

const (
	UtilityElectricity UtilityType = "ELECTRICITY"
	UtilityWater       UtilityType = "WATER"
	UtilityGas         UtilityType = "GAS"
	UtilityHeat        UtilityType = "HEAT"
	UtilityInternet    UtilityType = "INTERNET"
	UtilityGarbage     UtilityType = "GARBAGE"
	UtilityOther       UtilityType = "OTHER"
)

var meteredUtilityTypes = map[UtilityType]bool{
	UtilityElectricity: true,
	UtilityWater:       true,
	UtilityGas:         true,
	UtilityHeat:        true,
	UtilityOther:       true,
}

// IsMetered reports whether meters of this type can exist.
func (t UtilityType) IsMetered() bool {
	return meteredUtilityTypes[t]
}

// IsValid reports whether t is a known utility type.
func (t UtilityType) IsValid() bool {
	return t.IsMetered() || t == UtilityInternet || t == UtilityGarbage
}

// Meter is a physical meter installed on a property.
type Meter struct {
	ID           string
	PropertyID   string
	UtilityType  UtilityType
	Number       string
	Unit         string
	PricePerUnit *decimal.Decimal
	ReplacesID   *string
	ReplacedByID *string
	RetiredAt    *time.Time
	Notes        string
	CreatedAt    time.Time
}

// IsRetired reports whether the meter was superseded by an exchange.
func (m *Meter) IsRetired() bool {
	return m.RetiredAt != nil
}

// Validate checks the meter's identity fields.
func (m *Meter) Validate() error {
	if !m.UtilityType.IsMetered() {
		return Validation(EntityMeter, fmt.Sprintf("utility type %q cannot be metered", m.UtilityType))
	}

	if strings.TrimSpace(m.Number) == "" {
		return Validation(EntityMeter, "meter number is required")
	}

	if strings.TrimSpace(m.Unit) == "" {
		return Validation(EntityMeter, "unit is required")
	}

	if m.PricePerUnit != nil && m.PricePerUnit.IsNegative() {
		return Validation(EntityMeter, "price per unit must not be negative")
	}

	return nil
}

// ReadingKind distinguishes exchange boundary readings from regular ones.
type ReadingKind string

const (
	ReadingRegular ReadingKind = "REGULAR"
	ReadingFinal   ReadingKind = "FINAL"
	ReadingInitial ReadingKind = "INITIAL"
)

// MeterReading is a cumulative meter value taken on a calendar date.
type MeterReading struct {
	ID          string
	MeterID     string
	Value       decimal.Decimal
	ReadingDate time.Time
	Kind        ReadingKind
	CreatedAt   time.Time
}

// Validate checks the reading value.
func (r *MeterReading) Validate() error {
	if r.Value.IsNegative() {
		return Validation(EntityReading, "reading value must not be negative")
	}

	if r.ReadingDate.IsZero() {
		return Validation(EntityReading, "reading date is required")
	}

	return nil
}

// SortReadings orders readings by date, then by creation time.
func SortReadings(readings []*MeterReading) {
	sort.SliceStable(readings, func(i, j int) bool {
		a, b := readings[i], readings[j]
		if !a.ReadingDate.Equal(b.ReadingDate) {
			return a.ReadingDate.Before(b.ReadingDate)
		}

		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// LatestReading returns the last reading in date order, or nil.
func LatestReading(readings []*MeterReading) *MeterReading {
	if len(readings) == 0 {
		return nil
	}

	sorted := append([]*MeterReading(nil), readings...)
	SortReadings(sorted)

	return sorted[len(sorted)-1]
}

// PlaceReading checks a new reading against the readings the meter already
// has, sorted by date. A reading dated before the first one would move the
// start of the meter's lifespan and is rejected; for a successor meter that
// first reading is the installation value. A value below an earlier reading
// or above a later one is accepted but flagged.
func PlaceReading(meter *Meter, existing []*MeterReading, reading *MeterReading) ([]Warning, error) {
	if len(existing) == 0 {
		return nil, nil
	}

	first := existing[0]
	if reading.ReadingDate.Before(first.ReadingDate) {
		return nil, Validation(EntityReading, fmt.Sprintf(
			"reading date %s is before the first reading of meter %s on %s",
			reading.ReadingDate.Format(DateLayout), meter.Number, first.ReadingDate.Format(DateLayout)))
	}

	var earlier, later *MeterReading
	for _, r := range existing {
		if r.ReadingDate.After(reading.ReadingDate) {
			later = r
			break
		}
		earlier = r
	}

	var warnings []Warning
	if earlier != nil && reading.Value.LessThan(earlier.Value) {
		warnings = append(warnings, ReadingDecrease(meter, earlier, reading.Value))
	}
	if later != nil && reading.Value.GreaterThan(later.Value) {
		warnings = append(warnings, Warning{
			Code: WarningReadingAboveLater,
			Message: fmt.Sprintf("meter %s: reading %s is above the later reading %s from %s",
				meter.Number, reading.Value, later.Value, later.ReadingDate.Format(DateLayout)),
			Entity:   EntityMeter,
			EntityID: meter.ID,
		})
	}

	return warnings, nil
}

// ReadingDecrease flags a value below an earlier reading of the meter.
func ReadingDecrease(meter *Meter, earlier *MeterReading, value decimal.Decimal) Warning {
	return Warning{
		Code: WarningReadingDecrease,
		Message: fmt.Sprintf("meter %s: reading %s is below the earlier reading %s from %s",
			meter.Number, value, earlier.Value, earlier.ReadingDate.Format(DateLayout)),
		Entity:   EntityMeter,
		EntityID: meter.ID,
	}
}
