package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/rentledger/internal/domain"
	"github.com/iho/rentledger/internal/usecase"
)

// CreateMeterRequest represents a request to install a meter.
type CreateMeterRequest struct {
	UtilityType    string  `json:"utility_type"`
	Number         string  `json:"number"`
	Unit           string  `json:"unit"`
	PricePerUnit   *string `json:"price_per_unit,omitempty"`
	InitialReading *string `json:"initial_reading,omitempty"`
	InstalledOn    string  `json:"installed_on,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateMeterRequest) ToUseCaseInput(propertyID string) (usecase.CreateMeterInput, error) {
	input := usecase.CreateMeterInput{
		PropertyID:  propertyID,
		UtilityType: domain.UtilityType(r.UtilityType),
		Number:      r.Number,
		Unit:        r.Unit,
		Notes:       r.Notes,
	}

	var err error
	if input.PricePerUnit, err = optionalDecimal(domain.EntityMeter, "price_per_unit", r.PricePerUnit); err != nil {
		return input, err
	}
	if input.InitialReading, err = optionalDecimal(domain.EntityMeter, "initial_reading", r.InitialReading); err != nil {
		return input, err
	}
	if input.InstalledOn, err = optionalDate(r.InstalledOn); err != nil {
		return input, err
	}

	return input, nil
}

// RecordReadingRequest represents a new meter reading.
type RecordReadingRequest struct {
	Value string `json:"value"`
	Date  string `json:"date"`
}

// ToUseCaseInput converts to use case input.
func (r *RecordReadingRequest) ToUseCaseInput(meterID string) (usecase.RecordReadingInput, error) {
	value, err := domain.ParseDecimal(domain.EntityReading, "value", r.Value)
	if err != nil {
		return usecase.RecordReadingInput{}, err
	}

	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return usecase.RecordReadingInput{}, err
	}

	return usecase.RecordReadingInput{MeterID: meterID, Value: value, Date: date}, nil
}

// NewMeterRequest describes the replacement meter of an exchange.
type NewMeterRequest struct {
	Number       string  `json:"number"`
	Unit         string  `json:"unit,omitempty"`
	UtilityType  string  `json:"utility_type,omitempty"`
	PricePerUnit *string `json:"price_per_unit,omitempty"`
}

// ExchangeMeterRequest represents a meter exchange.
type ExchangeMeterRequest struct {
	ExchangeDate   string          `json:"exchange_date"`
	FinalReading   string          `json:"final_reading"`
	InitialReading string          `json:"initial_reading"`
	NewMeter       NewMeterRequest `json:"new_meter"`
	Notes          string          `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ExchangeMeterRequest) ToUseCaseInput(meterID string) (usecase.ExchangeMeterInput, error) {
	input := usecase.ExchangeMeterInput{
		OldMeterID: meterID,
		Notes:      r.Notes,
		NewMeter: usecase.NewMeterSpec{
			Number:      r.NewMeter.Number,
			Unit:        r.NewMeter.Unit,
			UtilityType: domain.UtilityType(r.NewMeter.UtilityType),
		},
	}

	var err error
	if input.ExchangeDate, err = domain.ParseDate(r.ExchangeDate); err != nil {
		return input, err
	}
	if input.FinalReading, err = domain.ParseDecimal(domain.EntityReading, "final_reading", r.FinalReading); err != nil {
		return input, err
	}
	if input.InitialReading, err = domain.ParseDecimal(domain.EntityReading, "initial_reading", r.InitialReading); err != nil {
		return input, err
	}
	if input.NewMeter.PricePerUnit, err = optionalDecimal(domain.EntityMeter, "price_per_unit", r.NewMeter.PricePerUnit); err != nil {
		return input, err
	}

	return input, nil
}

// CreateFixedUtilityRequest represents a request to register a fixed utility.
type CreateFixedUtilityRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	PeriodCost  string `json:"period_cost"`
	SplitMethod string `json:"split_method"`
	IsPerPerson bool   `json:"is_per_person"`
	ActiveFrom  string `json:"active_from,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateFixedUtilityRequest) ToUseCaseInput(propertyID string) (usecase.CreateFixedUtilityInput, error) {
	input := usecase.CreateFixedUtilityInput{
		PropertyID:  propertyID,
		Type:        domain.UtilityType(r.Type),
		Name:        r.Name,
		SplitMethod: domain.SplitMethod(r.SplitMethod),
		IsPerPerson: r.IsPerPerson,
	}

	var err error
	if input.PeriodCost, err = domain.ParseDecimal(domain.EntityFixedUtility, "period_cost", r.PeriodCost); err != nil {
		return input, err
	}
	if input.ActiveFrom, err = optionalDate(r.ActiveFrom); err != nil {
		return input, err
	}

	return input, nil
}

// CalculationRequest selects what to preview or settle.
type CalculationRequest struct {
	PropertyID string `json:"property_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Approach   string `json:"approach,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CalculationRequest) ToUseCaseInput() (usecase.CalculationRequest, error) {
	if r.PropertyID == "" {
		return usecase.CalculationRequest{}, domain.Validation(domain.EntitySettlement, "property_id is required")
	}

	period, err := domain.ParsePeriod(r.StartDate, r.EndDate)
	if err != nil {
		return usecase.CalculationRequest{}, err
	}

	return usecase.CalculationRequest{
		PropertyID: r.PropertyID,
		Start:      period.Start,
		End:        period.End,
		Approach:   domain.Approach(r.Approach),
	}, nil
}

// AdjustShareRequest represents an owner edit of one share. A null
// adjusted_amount leaves the amount alone; reset drops a previous adjustment.
type AdjustShareRequest struct {
	AdjustedAmount *string `json:"adjusted_amount,omitempty"`
	Reset          bool    `json:"reset,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	OwnerNotes     *string `json:"owner_notes,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *AdjustShareRequest) ToUseCaseInput(settlementID, shareID string) (usecase.AdjustShareInput, error) {
	amount, err := optionalDecimal(domain.EntityShare, "adjusted_amount", r.AdjustedAmount)
	if err != nil {
		return usecase.AdjustShareInput{}, err
	}

	return usecase.AdjustShareInput{
		SettlementID:   settlementID,
		ShareID:        shareID,
		AdjustedAmount: amount,
		Reset:          r.Reset,
		Notes:          r.Notes,
		OwnerNotes:     r.OwnerNotes,
	}, nil
}

// VoidSettlementRequest represents a request to void a settlement.
type VoidSettlementRequest struct {
	Reason string `json:"reason"`
}

func optionalDecimal(entity, field string, value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}

	d, err := domain.ParseDecimal(entity, field, *value)
	if err != nil {
		return nil, err
	}

	return &d, nil
}

func optionalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	return domain.ParseDate(value)
}
