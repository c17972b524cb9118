package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidMonth is returned by ParseMonth for anything that is not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")

// Period is the half-open interval [Start, End) between two consecutive paydays.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// PeriodContaining returns the pay period that ref falls in. Start is the latest
// payday at or before ref and End is the same day-of-month one month later.
func PeriodContaining(ref Date, payday int) Period {
	payday = ClampPayday(payday)
	start := NewDate(ref.Year(), ref.Month(), payday)
	if ref.Before(start) {
		start = NewDate(ref.Year(), ref.Month()-1, payday)
	}
	return Period{Start: start, End: NewDate(start.Year(), start.Month()+1, start.Day())}
}

// PeriodForMonth returns the period that starts on payday of the given month (1-12).
func PeriodForMonth(year, month, payday int) Period {
	payday = ClampPayday(payday)
	return Period{
		Start: NewDate(year, month, payday),
		End:   NewDate(year, month+1, payday),
	}
}

// Contains reports whether d lies in [Start, End).
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && d.Before(p.End)
}

// Days is the length of the period in calendar days.
func (p Period) Days() int {
	return p.Start.DaysUntil(p.End)
}

func (p Period) String() string {
	return p.Start.String() + "/" + p.End.String()
}

// Month is an explicit year-month selection used instead of "now".
type Month struct {
	Year  int
	Month int
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(y)
	if err != nil || year < 1 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: year, Month: month}, nil
}

// Period returns the pay period of this month for the given payday.
func (m Month) Period(payday int) Period {
	return PeriodForMonth(m.Year, m.Month, payday)
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}
