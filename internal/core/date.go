package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of every calendar date in a snapshot.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for zero or unparsable dates.
var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar date stored as midnight UTC. The zero value means "no date".
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day. Out-of-range values
// normalize the way time.Date does (Feb 30 becomes Mar 1 or 2).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day of t, keeping the calendar date t has in its own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, which is truncated to its date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty returns true if the date is zero (optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths moves the date by n calendar months, keeping the day-of-month and
// letting time.Date normalize overflow (Jan 31 + 1 month = Mar 2 or 3).
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// DaysUntil returns the number of whole days from d to o (negative if o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	s := string(data[1 : len(data)-1])
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
