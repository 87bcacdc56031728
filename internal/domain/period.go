package domain

import (
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Period is a half-open range of calendar days [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period from two dates, truncated to UTC midnight.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: TruncateDay(start), End: TruncateDay(end)}
	if !p.Start.Before(p.End) {
		return Period{}, &Error{Kind: KindValidation, Entity: EntityPeriod, Constraint: ConstraintInvalidRange}
	}

	return p, nil
}

// ParsePeriod parses two YYYY-MM-DD dates into a period.
func ParsePeriod(start, end string) (Period, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, err
	}

	e, err := ParseDate(end)
	if err != nil {
		return Period{}, err
	}

	return NewPeriod(s, e)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, &Error{Kind: KindValidation, Entity: EntityPeriod, Constraint: "dates must use YYYY-MM-DD", Err: err}
	}

	return t, nil
}

// Days returns the number of calendar days in the period.
func (p Period) Days() int {
	return daysBetween(p.Start, p.End)
}

// Contains reports whether day falls inside the period.
func (p Period) Contains(day time.Time) bool {
	day = TruncateDay(day)
	return !day.Before(p.Start) && day.Before(p.End)
}

// Clip intersects [from, to) with the period. A nil to means open-ended.
// ok is false when the intersection is empty.
func (p Period) Clip(from time.Time, to *time.Time) (Period, bool) {
	start := TruncateDay(from)
	if start.Before(p.Start) {
		start = p.Start
	}

	end := p.End
	if to != nil {
		if t := TruncateDay(*to); t.Before(end) {
			end = t
		}
	}

	if !start.Before(end) {
		return Period{}, false
	}

	return Period{Start: start, End: end}, true
}

// String renders the period as start..end.
func (p Period) String() string {
	return p.Start.Format(DateLayout) + ".." + p.End.Format(DateLayout)
}

// TruncateDay drops the time-of-day and normalizes to UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a shorthand for a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(TruncateDay(to).Sub(TruncateDay(from)).Hours() / 24)
}
