package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingKind distinguishes charges from their reversals.
type PostingKind string

const (
	PostingCharge   PostingKind = "CHARGE"
	PostingReversal PostingKind = "REVERSAL"
)

// Posting is an append-only entry recording money owed by a tenant.
type Posting struct {
	ID           string
	SettlementID string
	ShareID      string
	TenantID     string
	Kind         PostingKind
	Amount       decimal.Decimal
	ReversesID   *string
	CreatedAt    time.Time
}

// SumPostings adds up posting amounts. Reversals are negative, so a voided
// settlement sums to zero.
func SumPostings(postings []*Posting) decimal.Decimal {
	total := decimal.Zero
	for _, p := range postings {
		total = total.Add(p.Amount)
	}
	return total
}
