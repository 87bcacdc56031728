package domain

import (
	"encoding/json"
	"time"
)

// AuditLog is an append-only record of an owner's mutation.
type AuditLog struct {
	ID           string
	OwnerID      string // Who performed the action
	Action       AuditAction
	ResourceType string // meter, fixed_utility, settlement
	ResourceID   string
	RequestID    string
	BeforeState  JSON
	AfterState   JSON
	Status       AuditStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction names an auditable action.
type AuditAction string

const (
	AuditActionMeterCreate   AuditAction = "meter.create"
	AuditActionMeterReading  AuditAction = "meter.reading"
	AuditActionMeterExchange AuditAction = "meter.exchange"

	AuditActionUtilityCreate     AuditAction = "fixed_utility.create"
	AuditActionUtilityDeactivate AuditAction = "fixed_utility.deactivate"

	AuditActionSettlementCreate      AuditAction = "settlement.create"
	AuditActionSettlementAdjust      AuditAction = "settlement.adjust"
	AuditActionSettlementRecalculate AuditAction = "settlement.recalculate"
	AuditActionSettlementFinalize    AuditAction = "settlement.finalize"
	AuditActionSettlementVoid        AuditAction = "settlement.void"
)

// Resource types used in audit logs and outbox events.
const (
	ResourceMeter        = "meter"
	ResourceFixedUtility = "fixed_utility"
	ResourceSettlement   = "settlement"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	OwnerID      string
	Action       AuditAction
	ResourceType string
	ResourceID   string
	StartDate    *time.Time
	EndDate      *time.Time
	Limit        int
	Offset       int
}
