package domain

// WarningCode identifies a non-fatal condition that needs manual review.
type WarningCode string

const (
	WarningNoOccupancy         WarningCode = "NO_OCCUPANCY"
	WarningMissingPrice        WarningCode = "MISSING_PRICE"
	WarningNegativeConsumption WarningCode = "NEGATIVE_CONSUMPTION"
	WarningInactiveProperty    WarningCode = "INACTIVE_PROPERTY"
	WarningMissingReadings     WarningCode = "MISSING_READINGS"
	WarningReadingDecrease     WarningCode = "READING_DECREASE"
	WarningReadingAboveLater   WarningCode = "READING_ABOVE_LATER"
)

// Warning is returned next to a successful result, never as an error.
type Warning struct {
	Code     WarningCode `json:"code"`
	Message  string      `json:"message"`
	Entity   string      `json:"entity,omitempty"`
	EntityID string      `json:"entity_id,omitempty"`
}
