package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 12, 31).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{}).Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for zero date, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-03-31", NewDate(2024, 3, 31), true},
		{" 2024-01-02 ", NewDate(2024, 1, 2), true},
		{"2024-03-31T18:45:00Z", NewDate(2024, 3, 31), true},
		{"2024-03-31T23:30:00+03:00", NewDate(2024, 3, 31), true},
		{"31/03/2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseDate(%q) err = %v", tc.in, err)
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestDateOfDropsTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	got := DateOf(time.Date(2024, 6, 1, 23, 59, 0, 0, loc))
	if !got.Equal(NewDate(2024, 6, 1)) {
		t.Fatalf("DateOf = %s", got)
	}
	if !DateOf(time.Time{}).IsEmpty() {
		t.Fatalf("zero time must map to empty date")
	}
}

func TestDateArithmetic(t *testing.T) {
	if got := NewDate(2024, 1, 31).AddMonths(1); !got.Equal(NewDate(2024, 3, 2)) {
		t.Fatalf("Jan 31 + 1 month = %s, want 2024-03-02", got)
	}
	if got := NewDate(2024, 2, 27).AddDays(3); !got.Equal(NewDate(2024, 3, 1)) {
		t.Fatalf("AddDays = %s", got)
	}
	if n := NewDate(2024, 3, 1).DaysUntil(NewDate(2024, 4, 1)); n != 31 {
		t.Fatalf("DaysUntil = %d", n)
	}
	if n := NewDate(2024, 4, 1).DaysUntil(NewDate(2024, 3, 1)); n != -31 {
		t.Fatalf("DaysUntil backwards = %d", n)
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		A Date `json:"a"`
		B Date `json:"b"`
	}
	out, err := json.Marshal(wrapper{A: NewDate(2024, 2, 29)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":"2024-02-29","b":null}` {
		t.Fatalf("marshal = %s", out)
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"a":"2024-05-06T10:00:00Z","b":""}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !w.A.Equal(NewDate(2024, 5, 6)) || !w.B.IsEmpty() {
		t.Fatalf("unexpected %+v", w)
	}
	if err := json.Unmarshal([]byte(`{"a":12}`), &w); err == nil {
		t.Fatalf("expected error for numeric date")
	}
}
