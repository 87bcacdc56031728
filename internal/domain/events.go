package domain

import "time"

// Event types
const (
	EventTypeSettlementCreated   = "settlement.created"
	EventTypeSettlementFinalized = "settlement.finalized"
	EventTypeSettlementVoided    = "settlement.voided"
	EventTypeMeterExchanged      = "meter.exchanged"
)

// OutboxEvent is written in the same transaction as the change it announces
// and published later.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// SettlementFinalizedEvent payload
type SettlementFinalizedEvent struct {
	SettlementID string            `json:"settlement_id"`
	PropertyID   string            `json:"property_id"`
	PeriodStart  string            `json:"period_start"`
	PeriodEnd    string            `json:"period_end"`
	TotalAmount  string            `json:"total_amount"`
	Charges      map[string]string `json:"charges"` // tenant ID to amount
}

// SettlementVoidedEvent payload
type SettlementVoidedEvent struct {
	SettlementID string `json:"settlement_id"`
	PropertyID   string `json:"property_id"`
	Reason       string `json:"reason"`
	Reversed     string `json:"reversed"`
}

// MeterExchangedEvent payload
type MeterExchangedEvent struct {
	OldMeterID   string `json:"old_meter_id"`
	NewMeterID   string `json:"new_meter_id"`
	PropertyID   string `json:"property_id"`
	ExchangeDate string `json:"exchange_date"`
	FinalValue   string `json:"final_value"`
	InitialValue string `json:"initial_value"`
}
