package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for callers that need to render or map it.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error carries the kind of failure plus the entity and constraint involved.
type Error struct {
	Kind       Kind
	Entity     string
	ID         string
	Constraint string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder

	if e.Entity != "" {
		b.WriteString(e.Entity)
		if e.ID != "" {
			b.WriteString(" ")
			b.WriteString(e.ID)
		}
		b.WriteString(": ")
	}

	switch e.Kind {
	case KindNotFound:
		b.WriteString("not found")
	case KindUnauthorized:
		b.WriteString("unauthorized")
	case KindValidation:
		b.WriteString("validation failed")
	case KindInvalidState:
		b.WriteString("invalid state")
	case KindConflict:
		b.WriteString("conflict")
	default:
		b.WriteString("internal error")
	}

	if e.Constraint != "" {
		b.WriteString(": ")
		b.WriteString(e.Constraint)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, and by entity when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if t.Kind != e.Kind {
		return false
	}

	if t.Entity != "" && t.Entity != e.Entity {
		return false
	}

	return t.Constraint == "" || t.Constraint == e.Constraint
}

// Kind sentinels, usable with errors.Is.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrConflict     = &Error{Kind: KindConflict}
)

// Entity sentinels.
var (
	ErrPropertyNotFound     = &Error{Kind: KindNotFound, Entity: EntityProperty}
	ErrMeterNotFound        = &Error{Kind: KindNotFound, Entity: EntityMeter}
	ErrFixedUtilityNotFound = &Error{Kind: KindNotFound, Entity: EntityFixedUtility}
	ErrSettlementNotFound   = &Error{Kind: KindNotFound, Entity: EntitySettlement}
	ErrShareNotFound        = &Error{Kind: KindNotFound, Entity: EntityShare}

	ErrMeterRetired         = &Error{Kind: KindConflict, Entity: EntityMeter, Constraint: "meter is retired"}
	ErrUtilityInactive      = &Error{Kind: KindConflict, Entity: EntityFixedUtility, Constraint: "utility is already inactive"}
	ErrInvalidRange         = &Error{Kind: KindValidation, Constraint: ConstraintInvalidRange}
	ErrSettlementNotDraft   = &Error{Kind: KindInvalidState, Entity: EntitySettlement, Constraint: "settlement is not a draft"}
	ErrSettlementNotFinal   = &Error{Kind: KindInvalidState, Entity: EntitySettlement, Constraint: "settlement is not finalized"}
	ErrNothingToSettle      = &Error{Kind: KindValidation, Entity: EntitySettlement, Constraint: "settlement has no tenant shares"}
	ErrSettlementUnbalanced = &Error{Kind: KindInternal, Entity: EntitySettlement, Constraint: "shares do not sum to total"}
)

// Entity names used in error context.
const (
	EntityProperty     = "property"
	EntityMeter        = "meter"
	EntityReading      = "meter reading"
	EntityFixedUtility = "fixed utility"
	EntitySettlement   = "settlement"
	EntityShare        = "settlement share"
	EntityPeriod       = "period"
)

// ConstraintInvalidRange is reported when a period does not satisfy start < end.
const ConstraintInvalidRange = "period start must be before period end"

// NotFound reports a missing or foreign entity. Ownership failures use it too.
func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// Validation reports malformed input.
func Validation(entity, constraint string) error {
	return &Error{Kind: KindValidation, Entity: entity, Constraint: constraint}
}

// InvalidState reports an operation not permitted in the current lifecycle state.
func InvalidState(entity, id, constraint string) error {
	return &Error{Kind: KindInvalidState, Entity: entity, ID: id, Constraint: constraint}
}

// Conflict reports a collision with a concurrent or earlier mutation.
func Conflict(entity, id, constraint string) error {
	return &Error{Kind: KindConflict, Entity: entity, ID: id, Constraint: constraint}
}

// Internal wraps an unexpected failure.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}

	return KindInternal
}

// Wrapf adds context to err while keeping its kind.
func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
