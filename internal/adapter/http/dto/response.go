package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// Money renders an amount with exactly two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

func optionalMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := Money(*d)
	return &s
}

func optionalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func optionalDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateLayout)
	return &s
}

// WarningResponse is a non-fatal condition reported next to a result.
type WarningResponse = domain.Warning

func warnings(ws []domain.Warning) []WarningResponse {
	if ws == nil {
		return []WarningResponse{}
	}
	return ws
}

// MeterResponse represents a meter in API responses.
type MeterResponse struct {
	ID           string    `json:"id"`
	PropertyID   string    `json:"property_id"`
	UtilityType  string    `json:"utility_type"`
	Number       string    `json:"number"`
	Unit         string    `json:"unit"`
	PricePerUnit *string   `json:"price_per_unit"`
	ReplacesID   *string   `json:"replaces_id,omitempty"`
	ReplacedByID *string   `json:"replaced_by_id,omitempty"`
	RetiredAt    *string   `json:"retired_at,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MeterFromDomain converts a domain meter to response.
func MeterFromDomain(m *domain.Meter) *MeterResponse {
	return &MeterResponse{
		ID:           m.ID,
		PropertyID:   m.PropertyID,
		UtilityType:  string(m.UtilityType),
		Number:       m.Number,
		Unit:         m.Unit,
		PricePerUnit: optionalString(m.PricePerUnit),
		ReplacesID:   m.ReplacesID,
		ReplacedByID: m.ReplacedByID,
		RetiredAt:    optionalDay(m.RetiredAt),
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

// MetersFromDomain converts domain meters to responses.
func MetersFromDomain(meters []*domain.Meter) []*MeterResponse {
	result := make([]*MeterResponse, len(meters))
	for i, m := range meters {
		result[i] = MeterFromDomain(m)
	}
	return result
}

// ReadingResponse represents a meter reading in API responses.
type ReadingResponse struct {
	ID          string    `json:"id"`
	MeterID     string    `json:"meter_id"`
	Value       string    `json:"value"`
	ReadingDate string    `json:"reading_date"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReadingFromDomain converts a domain reading to response.
func ReadingFromDomain(r *domain.MeterReading) *ReadingResponse {
	if r == nil {
		return nil
	}
	return &ReadingResponse{
		ID:          r.ID,
		MeterID:     r.MeterID,
		Value:       r.Value.String(),
		ReadingDate: r.ReadingDate.Format(domain.DateLayout),
		Kind:        string(r.Kind),
		CreatedAt:   r.CreatedAt,
	}
}

// ReadingsFromDomain converts domain readings to responses.
func ReadingsFromDomain(readings []*domain.MeterReading) []*ReadingResponse {
	result := make([]*ReadingResponse, len(readings))
	for i, r := range readings {
		result[i] = ReadingFromDomain(r)
	}
	return result
}

// RecordReadingResponse is a stored reading plus review warnings.
type RecordReadingResponse struct {
	Reading  *ReadingResponse  `json:"reading"`
	Warnings []WarningResponse `json:"warnings"`
}

// RecordReadingFromResult converts a use case result to response.
func RecordReadingFromResult(res *usecase.RecordReadingResult) *RecordReadingResponse {
	return &RecordReadingResponse{
		Reading:  ReadingFromDomain(res.Reading),
		Warnings: warnings(res.Warnings),
	}
}

// ExchangeResponse holds both meters of an exchange.
type ExchangeResponse struct {
	OldMeter       *MeterResponse    `json:"old_meter"`
	NewMeter       *MeterResponse    `json:"new_meter"`
	FinalReading   *ReadingResponse  `json:"final_reading"`
	InitialReading *ReadingResponse  `json:"initial_reading"`
	Warnings       []WarningResponse `json:"warnings"`
}

// ExchangeFromResult converts a use case result to response.
func ExchangeFromResult(res *usecase.ExchangeResult) *ExchangeResponse {
	return &ExchangeResponse{
		OldMeter:       MeterFromDomain(res.OldMeter),
		NewMeter:       MeterFromDomain(res.NewMeter),
		FinalReading:   ReadingFromDomain(res.FinalReading),
		InitialReading: ReadingFromDomain(res.InitialReading),
		Warnings:       warnings(res.Warnings),
	}
}

// UsageSegmentResponse is the consumption of one meter of a chain.
type UsageSegmentResponse struct {
	MeterID      string  `json:"meter_id"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	StartValue   string  `json:"start_value"`
	EndValue     string  `json:"end_value"`
	Usage        string  `json:"usage"`
	PricePerUnit *string `json:"price_per_unit"`
}

// UsageResponse is the consumption of a meter chain over a period.
type UsageResponse struct {
	MeterID   string                 `json:"meter_id"`
	StartDate string                 `json:"start_date"`
	EndDate   string                 `json:"end_date"`
	Total     string                 `json:"total"`
	Segments  []UsageSegmentResponse `json:"segments"`
	Warnings  []WarningResponse      `json:"warnings"`
}

// UsageFromDomain converts domain usage to response.
func UsageFromDomain(u *domain.Usage) *UsageResponse {
	resp := &UsageResponse{
		MeterID:   u.MeterID,
		StartDate: u.Period.Start.Format(domain.DateLayout),
		EndDate:   u.Period.End.Format(domain.DateLayout),
		Total:     u.Total.String(),
		Segments:  make([]UsageSegmentResponse, len(u.Segments)),
		Warnings:  warnings(u.Warnings),
	}
	for i, s := range u.Segments {
		resp.Segments[i] = UsageSegmentResponse{
			MeterID:      s.MeterID,
			From:         s.From.Format(domain.DateLayout),
			To:           s.To.Format(domain.DateLayout),
			StartValue:   s.StartValue.String(),
			EndValue:     s.EndValue.String(),
			Usage:        s.Usage.String(),
			PricePerUnit: optionalString(s.PricePerUnit),
		}
	}
	return resp
}

// FixedUtilityResponse represents a fixed utility in API responses.
type FixedUtilityResponse struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"property_id"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	PeriodCost    string    `json:"period_cost"`
	SplitMethod   string    `json:"split_method"`
	IsPerPerson   bool      `json:"is_per_person"`
	IsActive      bool      `json:"is_active"`
	ActiveFrom    string    `json:"active_from"`
	DeactivatedAt *string   `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FixedUtilityFromDomain converts a domain fixed utility to response.
func FixedUtilityFromDomain(u *domain.FixedUtility) *FixedUtilityResponse {
	return &FixedUtilityResponse{
		ID:            u.ID,
		PropertyID:    u.PropertyID,
		Type:          string(u.Type),
		Name:          u.Name,
		PeriodCost:    Money(u.PeriodCost),
		SplitMethod:   string(u.SplitMethod),
		IsPerPerson:   u.IsPerPerson,
		IsActive:      u.IsActive,
		ActiveFrom:    u.ActiveFrom.Format(domain.DateLayout),
		DeactivatedAt: optionalDay(u.DeactivatedAt),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// FixedUtilitiesFromDomain converts domain fixed utilities to responses.
func FixedUtilitiesFromDomain(utilities []*domain.FixedUtility) []*FixedUtilityResponse {
	result := make([]*FixedUtilityResponse, len(utilities))
	for i, u := range utilities {
		result[i] = FixedUtilityFromDomain(u)
	}
	return result
}

// OccupancySpanResponse is one tenant's presence in a period.
type OccupancySpanResponse struct {
	TenantID     string `json:"tenant_id"`
	TenantName   string `json:"tenant_name,omitempty"`
	OccupiedDays int    `json:"occupied_days"`
	Weight       string `json:"weight"`
	Fraction     string `json:"fraction"`
}

// OccupancyResponse is the resolved occupancy of a period.
type OccupancyResponse struct {
	StartDate  string                  `json:"start_date"`
	EndDate    string                  `json:"end_date"`
	TotalDays  int                     `json:"total_days"`
	VacantDays int                     `json:"vacant_days"`
	Tenants    []OccupancySpanResponse `json:"tenants"`
}

// OccupancyFromDomain converts a resolved occupancy to response.
func OccupancyFromDomain(o *usecase.ResolvedOccupancy) *OccupancyResponse {
	resp := &OccupancyResponse{
		StartDate:  o.Period.Start.Format(domain.DateLayout),
		EndDate:    o.Period.End.Format(domain.DateLayout),
		TotalDays:  o.TotalDays,
		VacantDays: o.VacantDays,
		Tenants:    make([]OccupancySpanResponse, len(o.Spans)),
	}
	for i, s := range o.Spans {
		resp.Tenants[i] = OccupancySpanResponse{
			TenantID:     s.TenantID,
			TenantName:   o.TenantNames[s.TenantID],
			OccupiedDays: s.OccupiedDays,
			Weight:       s.Weight.String(),
			Fraction:     s.Fraction.String(),
		}
	}
	return resp
}

// ItemResponse is one cost line of a settlement or preview.
type ItemResponse struct {
	ID          string  `json:"id,omitempty"`
	SourceType  string  `json:"source_type"`
	SourceID    string  `json:"source_id"`
	Description string  `json:"description"`
	UtilityType string  `json:"utility_type"`
	SplitMethod string  `json:"split_method"`
	Quantity    string  `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   *string `json:"unit_price"`
	Amount      string  `json:"amount"`
}

func itemFromDomain(it *domain.SettlementItem) ItemResponse {
	return ItemResponse{
		ID:          it.ID,
		SourceType:  string(it.SourceType),
		SourceID:    it.SourceID,
		Description: it.Description,
		UtilityType: string(it.UtilityType),
		SplitMethod: string(it.SplitMethod),
		Quantity:    it.Quantity.String(),
		Unit:        it.Unit,
		UnitPrice:   optionalString(it.UnitPrice),
		Amount:      Money(it.Amount),
	}
}

// ShareResponse is one tenant's portion of a settlement or preview.
type ShareResponse struct {
	ID               string  `json:"id,omitempty"`
	TenantID         string  `json:"tenant_id"`
	TenantName       string  `json:"tenant_name,omitempty"`
	OccupiedDays     int     `json:"occupied_days"`
	Fraction         string  `json:"fraction"`
	CalculatedAmount string  `json:"calculated_amount"`
	AdjustedAmount   *string `json:"adjusted_amount"`
	FinalAmount      string  `json:"final_amount"`
	Notes            string  `json:"notes,omitempty"`
	OwnerNotes       string  `json:"owner_notes,omitempty"`
}

func shareFromDomain(sh *domain.SettlementShare) ShareResponse {
	return ShareResponse{
		ID:               sh.ID,
		TenantID:         sh.TenantID,
		TenantName:       sh.TenantName,
		OccupiedDays:     sh.OccupiedDays,
		Fraction:         sh.Fraction.String(),
		CalculatedAmount: Money(sh.CalculatedAmount),
		AdjustedAmount:   optionalMoney(sh.AdjustedAmount),
		FinalAmount:      Money(sh.FinalAmount),
		Notes:            sh.Notes,
		OwnerNotes:       sh.OwnerNotes,
	}
}

// CalculationResponse is a dry-run settlement.
type CalculationResponse struct {
	PropertyID  string            `json:"property_id"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Approach    string            `json:"approach"`
	Items       []ItemResponse    `json:"items"`
	Shares      []ShareResponse   `json:"shares"`
	ItemsTotal  string            `json:"items_total"`
	TotalAmount string            `json:"total_amount"`
	Warnings    []WarningResponse `json:"warnings"`
}

// CalculationFromDomain converts a calculation to response.
func CalculationFromDomain(c *domain.Calculation) *CalculationResponse {
	resp := &CalculationResponse{
		PropertyID:  c.PropertyID,
		StartDate:   c.Period.Start.Format(domain.DateLayout),
		EndDate:     c.Period.End.Format(domain.DateLayout),
		Approach:    string(c.Approach),
		Items:       make([]ItemResponse, len(c.Items)),
		Shares:      make([]ShareResponse, len(c.Shares)),
		ItemsTotal:  Money(c.ItemsTotal),
		TotalAmount: Money(c.TotalAmount),
		Warnings:    warnings(c.Warnings),
	}
	for i := range c.Items {
		resp.Items[i] = itemFromDomain(&c.Items[i])
	}
	for i := range c.Shares {
		resp.Shares[i] = shareFromDomain(&c.Shares[i])
	}
	return resp
}

// SettlementResponse represents a persisted settlement.
type SettlementResponse struct {
	ID          string            `json:"id"`
	PropertyID  string            `json:"property_id"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Approach    string            `json:"approach"`
	Status      string            `json:"status"`
	ItemsTotal  string            `json:"items_total"`
	TotalAmount string            `json:"total_amount"`
	Items       []ItemResponse    `json:"items"`
	Shares      []ShareResponse   `json:"shares"`
	Warnings    []WarningResponse `json:"warnings"`
	VoidReason  string            `json:"void_reason,omitempty"`
	Version     int64             `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	FinalizedAt *time.Time        `json:"finalized_at,omitempty"`
	VoidedAt    *time.Time        `json:"voided_at,omitempty"`
}

// SettlementFromDomain converts a domain settlement to response.
func SettlementFromDomain(s *domain.Settlement) *SettlementResponse {
	resp := &SettlementResponse{
		ID:          s.ID,
		PropertyID:  s.PropertyID,
		StartDate:   s.Period.Start.Format(domain.DateLayout),
		EndDate:     s.Period.End.Format(domain.DateLayout),
		Approach:    string(s.Approach),
		Status:      string(s.Status),
		ItemsTotal:  Money(s.ItemsTotal),
		TotalAmount: Money(s.TotalAmount),
		Items:       make([]ItemResponse, len(s.Items)),
		Shares:      make([]ShareResponse, len(s.Shares)),
		Warnings:    warnings(s.Warnings),
		VoidReason:  s.VoidReason,
		Version:     s.Version,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		FinalizedAt: s.FinalizedAt,
		VoidedAt:    s.VoidedAt,
	}
	for i, it := range s.Items {
		resp.Items[i] = itemFromDomain(it)
	}
	for i, sh := range s.Shares {
		resp.Shares[i] = shareFromDomain(sh)
	}
	return resp
}

// SettlementsFromDomain converts domain settlements to responses.
func SettlementsFromDomain(settlements []*domain.Settlement) []*SettlementResponse {
	result := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		result[i] = SettlementFromDomain(s)
	}
	return result
}

// PostingResponse represents a ledger posting.
type PostingResponse struct {
	ID           string    `json:"id"`
	SettlementID string    `json:"settlement_id"`
	ShareID      string    `json:"share_id"`
	TenantID     string    `json:"tenant_id"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	ReversesID   *string   `json:"reverses_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PostingsFromDomain converts domain postings to responses.
func PostingsFromDomain(postings []*domain.Posting) []*PostingResponse {
	result := make([]*PostingResponse, len(postings))
	for i, p := range postings {
		result[i] = &PostingResponse{
			ID:           p.ID,
			SettlementID: p.SettlementID,
			ShareID:      p.ShareID,
			TenantID:     p.TenantID,
			Kind:         string(p.Kind),
			Amount:       Money(p.Amount),
			ReversesID:   p.ReversesID,
			CreatedAt:    p.CreatedAt,
		}
	}
	return result
}

// ReconciliationResponse is the result of checking one settlement.
type ReconciliationResponse struct {
	SettlementID   string    `json:"settlement_id"`
	Status         string    `json:"status"`
	TotalAmount    string    `json:"total_amount"`
	SharesTotal    string    `json:"shares_total"`
	PostingsTotal  string    `json:"postings_total"`
	ExpectedPosted string    `json:"expected_posted"`
	Charges        int       `json:"charges"`
	Reversals      int       `json:"reversals"`
	Issues         []string  `json:"issues"`
	IsReconciled   bool      `json:"is_reconciled"`
	CheckedAt      time.Time `json:"checked_at"`
}

// ReconciliationFromCheck converts a settlement check to response.
func ReconciliationFromCheck(c *usecase.SettlementCheck) *ReconciliationResponse {
	issues := c.Issues
	if issues == nil {
		issues = []string{}
	}
	return &ReconciliationResponse{
		SettlementID:   c.SettlementID,
		Status:         string(c.Status),
		TotalAmount:    Money(c.TotalAmount),
		SharesTotal:    Money(c.SharesTotal),
		PostingsTotal:  Money(c.PostingsTotal),
		ExpectedPosted: Money(c.ExpectedPosted),
		Charges:        c.Charges,
		Reversals:      c.Reversals,
		Issues:         issues,
		IsReconciled:   c.IsReconciled,
		CheckedAt:      c.CheckedAt,
	}
}

// PropertyReconciliationResponse summarizes the checks of a property.
type PropertyReconciliationResponse struct {
	PropertyID    string                    `json:"property_id"`
	Total         int                       `json:"total"`
	Reconciled    int                       `json:"reconciled"`
	Discrepancies []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt     time.Time                 `json:"checked_at"`
}

// PropertyReconciliationFromReport converts a report to response.
func PropertyReconciliationFromReport(r *usecase.ReconciliationReport) *PropertyReconciliationResponse {
	resp := &PropertyReconciliationResponse{
		PropertyID:    r.PropertyID,
		Total:         r.Total,
		Reconciled:    r.Reconciled,
		Discrepancies: make([]*ReconciliationResponse, len(r.Discrepancies)),
		CheckedAt:     r.CheckedAt,
	}
	for i, c := range r.Discrepancies {
		resp.Discrepancies[i] = ReconciliationFromCheck(c)
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Entity     string `json:"entity,omitempty"`
	Constraint string `json:"constraint,omitempty"`
}
