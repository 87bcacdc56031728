package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ChainSegment is one meter of an exchange chain together with its readings.
type ChainSegment struct {
	Meter    *Meter
	Readings []*MeterReading
}

// MeterChain is an exchange chain ordered from the oldest meter to the newest.
type MeterChain []ChainSegment

// Head returns the newest meter of the chain.
func (c MeterChain) Head() *Meter {
	if len(c) == 0 {
		return nil
	}

	return c[len(c)-1].Meter
}

// lifespan returns the first day the segment measured and, for retired
// meters, the day it was exchanged.
func (s ChainSegment) lifespan() (time.Time, *time.Time) {
	start := TruncateDay(s.Meter.CreatedAt)
	if len(s.Readings) > 0 {
		start = s.Readings[0].ReadingDate
	}

	if s.Meter.RetiredAt == nil {
		return start, nil
	}

	end := TruncateDay(*s.Meter.RetiredAt)

	return start, &end
}

// valueAt returns the latest reading taken on or before day.
func (s ChainSegment) valueAt(day time.Time) (*MeterReading, bool) {
	var found *MeterReading
	for _, r := range s.Readings {
		if r.ReadingDate.After(day) {
			break
		}
		found = r
	}

	return found, found != nil
}

// UsageSegment is the consumption measured by one meter inside a period.
type UsageSegment struct {
	MeterID      string
	From         time.Time
	To           time.Time
	StartValue   decimal.Decimal
	EndValue     decimal.Decimal
	Usage        decimal.Decimal
	PricePerUnit *decimal.Decimal
}

// Usage is the total consumption of an exchange chain inside a period.
type Usage struct {
	MeterID  string
	Period   Period
	Segments []UsageSegment
	Total    decimal.Decimal
	Warnings []Warning
}

// UsageBetween sums consumption across every meter of the chain that was
// live during the period. Each meter contributes the delta between its value
// at the later of (period start, installation) and its value at the earlier
// of (period end, exchange), so an exchange inside the period adds
// (final − value at start) for the old meter and (value at end − initial)
// for the new one.
func UsageBetween(chain MeterChain, period Period) Usage {
	usage := Usage{Period: period, Total: decimal.Zero}
	if head := chain.Head(); head != nil {
		usage.MeterID = head.ID
	}

	for _, seg := range chain {
		readings := append([]*MeterReading(nil), seg.Readings...)
		SortReadings(readings)
		seg.Readings = readings

		if len(readings) == 0 {
			if seg.Meter.RetiredAt == nil || period.Contains(*seg.Meter.RetiredAt) {
				usage.Warnings = append(usage.Warnings, Warning{
					Code:     WarningMissingReadings,
					Message:  fmt.Sprintf("meter %s has no readings", seg.Meter.Number),
					Entity:   EntityMeter,
					EntityID: seg.Meter.ID,
				})
			}
			continue
		}

		segStart, segEnd := seg.lifespan()

		from := period.Start
		if segStart.After(from) {
			from = segStart
		}

		to := period.End
		if segEnd != nil && segEnd.Before(to) {
			to = *segEnd
		}

		if !from.Before(to) {
			continue
		}

		startReading, _ := seg.valueAt(from)
		endReading, _ := seg.valueAt(to)

		delta := endReading.Value.Sub(startReading.Value)
		if delta.IsNegative() {
			usage.Warnings = append(usage.Warnings, Warning{
				Code: WarningNegativeConsumption,
				Message: fmt.Sprintf("meter %s reads %s on %s, below %s on %s",
					seg.Meter.Number, endReading.Value, endReading.ReadingDate.Format(DateLayout),
					startReading.Value, startReading.ReadingDate.Format(DateLayout)),
				Entity:   EntityMeter,
				EntityID: seg.Meter.ID,
			})
			delta = decimal.Zero
		}

		usage.Segments = append(usage.Segments, UsageSegment{
			MeterID:      seg.Meter.ID,
			From:         from,
			To:           to,
			StartValue:   startReading.Value,
			EndValue:     endReading.Value,
			Usage:        delta,
			PricePerUnit: seg.Meter.PricePerUnit,
		})
		usage.Total = usage.Total.Add(delta)
	}

	return usage
}
