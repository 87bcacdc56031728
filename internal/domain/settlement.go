package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the persisted lifecycle state of a settlement.
type SettlementStatus string

const (
	SettlementDraft     SettlementStatus = "DRAFT"
	SettlementFinalized SettlementStatus = "FINALIZED"
	SettlementVoided    SettlementStatus = "VOIDED"
)

// Approach is the billing cadence a settlement was created for.
type Approach string

const (
	ApproachMonthly   Approach = "MONTHLY"
	ApproachQuarterly Approach = "QUARTERLY"
	ApproachYearly    Approach = "YEARLY"
	ApproachCustom    Approach = "CUSTOM"
)

// IsValid reports whether a is a known approach.
func (a Approach) IsValid() bool {
	switch a {
	case ApproachMonthly, ApproachQuarterly, ApproachYearly, ApproachCustom:
		return true
	}
	return false
}

// ItemSource tells what produced a settlement line.
type ItemSource string

const (
	ItemSourceMeter        ItemSource = "METER"
	ItemSourceFixedUtility ItemSource = "FIXED_UTILITY"
)

// SettlementItem is one cost line of a settlement.
type SettlementItem struct {
	ID           string
	SettlementID string
	SourceType   ItemSource
	SourceID     string
	Description  string
	UtilityType  UtilityType
	SplitMethod  SplitMethod
	Quantity     decimal.Decimal
	Unit         string
	UnitPrice    *decimal.Decimal
	Amount       decimal.Decimal
}

// SettlementShare is one tenant's portion of a settlement.
type SettlementShare struct {
	ID               string
	SettlementID     string
	TenantID         string
	TenantName       string
	OccupiedDays     int
	Fraction         decimal.Decimal
	CalculatedAmount decimal.Decimal
	AdjustedAmount   *decimal.Decimal
	FinalAmount      decimal.Decimal
	Notes            string
	OwnerNotes       string
}

func (s *SettlementShare) refreshFinal() {
	if s.AdjustedAmount != nil {
		s.FinalAmount = *s.AdjustedAmount
		return
	}
	s.FinalAmount = s.CalculatedAmount
}

// Settlement is the persisted record. Its status only changes through the
// typed state values returned by AsDraft and AsFinalized.
type Settlement struct {
	ID          string
	PropertyID  string
	Period      Period
	Approach    Approach
	Status      SettlementStatus
	ItemsTotal  decimal.Decimal
	TotalAmount decimal.Decimal
	Warnings    []Warning
	Items       []*SettlementItem
	Shares      []*SettlementShare
	VoidReason  string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinalizedAt *time.Time
	VoidedAt    *time.Time
}

// Share returns the share with the given ID.
func (s *Settlement) Share(shareID string) (*SettlementShare, bool) {
	for _, sh := range s.Shares {
		if sh.ID == shareID {
			return sh, true
		}
	}
	return nil, false
}

// SharesTotal sums the final amounts of all shares.
func (s *Settlement) SharesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, sh := range s.Shares {
		total = total.Add(sh.FinalAmount)
	}
	return total
}

// CheckBalance verifies that the shares add up to the total amount.
func (s *Settlement) CheckBalance() error {
	if !s.SharesTotal().Equal(s.TotalAmount) {
		return &Error{Kind: KindInternal, Entity: EntitySettlement, ID: s.ID, Constraint: ErrSettlementUnbalanced.Constraint}
	}
	return nil
}

// AsDraft returns the draft view of s, or InvalidState if s is not a draft.
func (s *Settlement) AsDraft() (*DraftSettlement, error) {
	if s.Status != SettlementDraft {
		return nil, InvalidState(EntitySettlement, s.ID, ErrSettlementNotDraft.Constraint)
	}
	return &DraftSettlement{s: s}, nil
}

// AsFinalized returns the finalized view of s, or InvalidState otherwise.
func (s *Settlement) AsFinalized() (*FinalizedSettlement, error) {
	if s.Status != SettlementFinalized {
		return nil, InvalidState(EntitySettlement, s.ID, ErrSettlementNotFinal.Constraint)
	}
	return &FinalizedSettlement{s: s}, nil
}

// DraftSettlement is a settlement that may still be adjusted.
type DraftSettlement struct {
	s *Settlement
}

// FinalizedSettlement is a settlement whose shares were posted.
type FinalizedSettlement struct {
	s *Settlement
}

// VoidedSettlement is a settlement whose postings were reversed.
type VoidedSettlement struct {
	s *Settlement
}

// NewDraft builds a draft settlement from a calculation. newID is called for
// the settlement and for every item and share.
func NewDraft(calc *Calculation, newID func() string, now time.Time) *DraftSettlement {
	s := &Settlement{
		ID:         newID(),
		PropertyID: calc.PropertyID,
		Period:     calc.Period,
		Approach:   calc.Approach,
		Status:     SettlementDraft,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	d := &DraftSettlement{s: s}
	d.apply(calc, newID)

	return d
}

func (d *DraftSettlement) apply(calc *Calculation, newID func() string) {
	s := d.s
	s.ItemsTotal = calc.ItemsTotal
	s.Warnings = append([]Warning(nil), calc.Warnings...)

	s.Items = make([]*SettlementItem, 0, len(calc.Items))
	for _, it := range calc.Items {
		item := it
		item.ID = newID()
		item.SettlementID = s.ID
		s.Items = append(s.Items, &item)
	}

	s.Shares = make([]*SettlementShare, 0, len(calc.Shares))
	for _, sh := range calc.Shares {
		share := sh
		share.ID = newID()
		share.SettlementID = s.ID
		share.AdjustedAmount = nil
		share.refreshFinal()
		s.Shares = append(s.Shares, &share)
	}

	s.TotalAmount = s.SharesTotal()
}

// Settlement returns the underlying record.
func (d *DraftSettlement) Settlement() *Settlement { return d.s }

// Recalculate replaces items and shares with a fresh calculation. Owner
// adjustments are dropped.
func (d *DraftSettlement) Recalculate(calc *Calculation, newID func() string, now time.Time) error {
	if d.s == nil {
		return InvalidState(EntitySettlement, "", ErrSettlementNotDraft.Constraint)
	}
	d.apply(calc, newID)
	d.s.UpdatedAt = now

	return nil
}

// ShareAdjustment describes an owner edit of one share. Reset clears a
// previous adjustment; otherwise a non-nil AdjustedAmount replaces it.
type ShareAdjustment struct {
	AdjustedAmount *decimal.Decimal
	Reset          bool
	Notes          *string
	OwnerNotes     *string
}

// AdjustShare applies an owner edit to one share and recomputes the total.
func (d *DraftSettlement) AdjustShare(shareID string, adj ShareAdjustment, now time.Time) (*SettlementShare, error) {
	if d.s == nil {
		return nil, InvalidState(EntitySettlement, "", ErrSettlementNotDraft.Constraint)
	}

	share, ok := d.s.Share(shareID)
	if !ok {
		return nil, NotFound(EntityShare, shareID)
	}

	if adj.AdjustedAmount != nil && !adj.Reset {
		if err := ValidateMoney(*adj.AdjustedAmount); err != nil {
			return nil, err
		}
	}

	switch {
	case adj.Reset:
		share.AdjustedAmount = nil
	case adj.AdjustedAmount != nil:
		amount := *adj.AdjustedAmount
		share.AdjustedAmount = &amount
	}

	if adj.Notes != nil {
		share.Notes = *adj.Notes
	}
	if adj.OwnerNotes != nil {
		share.OwnerNotes = *adj.OwnerNotes
	}

	share.refreshFinal()
	d.s.TotalAmount = d.s.SharesTotal()
	d.s.UpdatedAt = now

	return share, nil
}

// Finalize freezes the draft and returns one CHARGE posting per share. The
// draft value is consumed and rejects further use.
func (d *DraftSettlement) Finalize(newID func() string, now time.Time) (*FinalizedSettlement, []*Posting, error) {
	if d.s == nil {
		return nil, nil, InvalidState(EntitySettlement, "", ErrSettlementNotDraft.Constraint)
	}
	s := d.s

	if len(s.Shares) == 0 {
		return nil, nil, &Error{Kind: KindValidation, Entity: EntitySettlement, ID: s.ID, Constraint: ErrNothingToSettle.Constraint}
	}

	if err := s.CheckBalance(); err != nil {
		return nil, nil, err
	}

	postings := make([]*Posting, 0, len(s.Shares))
	for _, sh := range s.Shares {
		postings = append(postings, &Posting{
			ID:           newID(),
			SettlementID: s.ID,
			ShareID:      sh.ID,
			TenantID:     sh.TenantID,
			Kind:         PostingCharge,
			Amount:       sh.FinalAmount,
			CreatedAt:    now,
		})
	}

	finalizedAt := now
	s.Status = SettlementFinalized
	s.FinalizedAt = &finalizedAt
	s.UpdatedAt = now
	d.s = nil

	return &FinalizedSettlement{s: s}, postings, nil
}

// Settlement returns the underlying record.
func (f *FinalizedSettlement) Settlement() *Settlement { return f.s }

// Void reverses the given charges and marks the settlement voided. Every
// CHARGE gets a REVERSAL of the opposite amount; the charges are kept.
func (f *FinalizedSettlement) Void(reason string, charges []*Posting, newID func() string, now time.Time) (*VoidedSettlement, []*Posting, error) {
	if f.s == nil {
		return nil, nil, InvalidState(EntitySettlement, "", ErrSettlementNotFinal.Constraint)
	}
	s := f.s

	reason, err := ValidateVoidReason(reason)
	if err != nil {
		return nil, nil, err
	}

	reversals := make([]*Posting, 0, len(charges))
	for _, p := range charges {
		if p.Kind != PostingCharge || p.SettlementID != s.ID {
			continue
		}
		original := p.ID
		reversals = append(reversals, &Posting{
			ID:           newID(),
			SettlementID: s.ID,
			ShareID:      p.ShareID,
			TenantID:     p.TenantID,
			Kind:         PostingReversal,
			Amount:       p.Amount.Neg(),
			ReversesID:   &original,
			CreatedAt:    now,
		})
	}

	voidedAt := now
	s.Status = SettlementVoided
	s.VoidReason = reason
	s.VoidedAt = &voidedAt
	s.UpdatedAt = now
	f.s = nil

	return &VoidedSettlement{s: s}, reversals, nil
}

// Settlement returns the underlying record.
func (v *VoidedSettlement) Settlement() *Settlement { return v.s }
