package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SplitMethod decides how a cost item is divided among tenants.
type SplitMethod string

const (
	SplitByDays   SplitMethod = "BY_DAYS"
	SplitByPerson SplitMethod = "BY_PERSON"
	SplitEqual    SplitMethod = "EQUAL"
)

// IsValid reports whether m is a known split method.
func (m SplitMethod) IsValid() bool {
	switch m {
	case SplitByDays, SplitByPerson, SplitEqual:
		return true
	}
	return false
}

// FixedUtility is a recurring flat-fee cost of a property.
type FixedUtility struct {
	ID            string
	PropertyID    string
	Type          UtilityType
	Name          string
	PeriodCost    decimal.Decimal
	SplitMethod   SplitMethod
	IsPerPerson   bool
	IsActive      bool
	ActiveFrom    time.Time
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the utility definition.
func (u *FixedUtility) Validate() error {
	if !u.Type.IsValid() {
		return Validation(EntityFixedUtility, "unknown utility type")
	}

	if strings.TrimSpace(u.Name) == "" {
		return Validation(EntityFixedUtility, "name is required")
	}

	if len(u.Name) > MaxNameLength {
		return Validation(EntityFixedUtility, "name is too long")
	}

	if u.PeriodCost.IsNegative() {
		return Validation(EntityFixedUtility, "period cost must not be negative")
	}

	if !u.SplitMethod.IsValid() {
		return Validation(EntityFixedUtility, "unknown split method")
	}

	return nil
}

// Deactivate soft-deletes the utility as of at.
func (u *FixedUtility) Deactivate(at time.Time) error {
	if !u.IsActive {
		return Conflict(EntityFixedUtility, u.ID, ErrUtilityInactive.Constraint)
	}

	day := TruncateDay(at)
	u.IsActive = false
	u.DeactivatedAt = &day
	u.UpdatedAt = at

	return nil
}

// ActiveWithin returns the part of the period during which the utility was
// active. ok is false when it was not active at all.
func (u *FixedUtility) ActiveWithin(p Period) (Period, bool) {
	return p.Clip(u.ActiveFrom, u.DeactivatedAt)
}
