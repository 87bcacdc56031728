package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxNameLength       = 255
	MaxNotesLength      = 2000
	MinVoidReasonLength = 3
	MaxVoidReasonLength = 500
	MaxMoneyAmount      = "1000000000" // 1 billion
)

// MoneyScale is the number of decimal places of the settlement currency.
const MoneyScale int32 = 2

// ValidateMoney checks an amount entered by an owner: non-negative, at most
// MoneyScale decimals, below MaxMoneyAmount.
func ValidateMoney(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Validation(EntityShare, "amount must not be negative")
	}

	if !amount.Equal(amount.Round(MoneyScale)) {
		return Validation(EntityShare, fmt.Sprintf("amount must have at most %d decimal places", MoneyScale))
	}

	if amount.GreaterThan(decimal.RequireFromString(MaxMoneyAmount)) {
		return Validation(EntityShare, "amount exceeds maximum allowed")
	}

	return nil
}

// ParseDecimal parses a decimal string supplied at the boundary.
func ParseDecimal(entity, field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, &Error{Kind: KindValidation, Entity: entity, Constraint: field + " must be a decimal number", Err: err}
	}
	return d, nil
}

// ValidateVoidReason trims the reason and checks its length.
func ValidateVoidReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)

	if len([]rune(reason)) < MinVoidReasonLength {
		return "", Validation(EntitySettlement, fmt.Sprintf("void reason must be at least %d characters", MinVoidReasonLength))
	}

	if len([]rune(reason)) > MaxVoidReasonLength {
		return "", Validation(EntitySettlement, fmt.Sprintf("void reason must not exceed %d characters", MaxVoidReasonLength))
	}

	return reason, nil
}

// ValidateNotes checks free-text notes on a share.
func ValidateNotes(notes string) error {
	if len(notes) > MaxNotesLength {
		return Validation(EntityShare, fmt.Sprintf("notes exceed %d characters", MaxNotesLength))
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
