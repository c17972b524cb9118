// Package engine holds the pure pay-period computations: period aggregation
// and recurring item projection. Nothing here mutates its inputs.
//
// This file implements the Strategy Pattern for projecting recurring items.
// Each frequency has a Stepper that moves an occurrence to the next one.

package engine

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Stepper is the strategy interface for advancing a recurring occurrence.
type Stepper interface {
	// Next returns the occurrence that follows d.
	Next(d core.Date) core.Date
}

// WeeklyStepper advances by seven days.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(d core.Date) core.Date { return d.AddDays(7) }

// MonthlyStepper advances by one calendar month from the previous occurrence.
// Month-length overflow normalizes forward (Jan 31 -> Mar 2 in a leap year)
// and the drift is carried on to later occurrences.
type MonthlyStepper struct{}

func (MonthlyStepper) Next(d core.Date) core.Date { return d.AddMonths(1) }

// steppers maps frequencies to their strategies.
var steppers = map[core.Frequency]Stepper{
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
}

// GetStepper returns the stepper for a frequency.
func GetStepper(frequency core.Frequency) (Stepper, error) {
	s, ok := steppers[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, frequency)
	}
	return s, nil
}

// RegisterStepper registers a stepper for a new frequency.
func RegisterStepper(frequency core.Frequency, s Stepper) {
	steppers[frequency] = s
}

// NextOccurrence returns the first occurrence of r on or after the date of now.
// It returns false when the series has ended, when the next occurrence falls
// after EndDate, or when the frequency is unknown. Nothing about previously
// posted occurrences is remembered.
func NextOccurrence(r core.Recurring, now time.Time) (core.Date, bool) {
	stepper, err := GetStepper(r.Frequency)
	if err != nil || r.StartDate.IsEmpty() {
		return core.Date{}, false
	}
	today := core.DateOf(now)
	if !r.EndDate.IsEmpty() && today.After(r.EndDate) {
		return core.Date{}, false
	}

	d := r.StartDate
	for d.Before(today) {
		next := stepper.Next(d)
		if !next.After(d) {
			return core.Date{}, false
		}
		d = next
	}

	if !r.EndDate.IsEmpty() && d.After(r.EndDate) {
		return core.Date{}, false
	}
	return d, true
}

// UpcomingOccurrences projects the next occurrence of every item, in input order.
func UpcomingOccurrences(items []core.Recurring, now time.Time) []core.Occurrence {
	out := make([]core.Occurrence, 0, len(items))
	for _, r := range items {
		next, ok := NextOccurrence(r, now)
		out = append(out, core.Occurrence{Recurring: r, Next: next, Ok: ok})
	}
	return out
}
