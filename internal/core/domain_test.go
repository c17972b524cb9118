package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:     Expense,
		Category: "Food",
		Amount:   decimal.NewFromInt(100),
		Date:     NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"bad type", Transaction{Type: "transfer", Category: "c", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1)}, ErrInvalidType},
		{"blank category", Transaction{Type: Income, Category: "  ", Amount: decimal.NewFromInt(1), Date: NewDate(2025, 1, 1)}, ErrEmptyCategory},
		{"zero amount", Transaction{Type: Income, Category: "c", Amount: decimal.Zero, Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{"negative amount", Transaction{Type: Income, Category: "c", Amount: decimal.NewFromInt(-5), Date: NewDate(2025, 1, 1)}, ErrInvalidAmount},
		{"zero date", Transaction{Type: Income, Category: "c", Amount: decimal.NewFromInt(1)}, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDebtValidate(t *testing.T) {
	d := Debt{Direction: Lent, Person: "Ann", Principal: decimal.NewFromInt(10), Date: NewDate(2024, 5, 1)}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	d.Person = ""
	if err := d.Validate(); !errors.Is(err, ErrEmptyPerson) {
		t.Fatalf("expected ErrEmptyPerson, got %v", err)
	}
	d.Person = "Ann"
	d.Direction = "gift"
	if err := d.Validate(); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestRecurringValidate(t *testing.T) {
	r := Recurring{
		Type:      Expense,
		Category:  "Rent",
		Amount:    decimal.NewFromInt(900),
		Frequency: Monthly,
		StartDate: NewDate(2024, 1, 5),
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	r.EndDate = NewDate(2024, 1, 5)
	if err := r.Validate(); err != nil {
		t.Fatalf("end equal to start should be ok, got %v", err)
	}

	r.EndDate = NewDate(2023, 12, 31)
	if err := r.Validate(); !errors.Is(err, ErrEndBeforeStart) {
		t.Fatalf("expected ErrEndBeforeStart, got %v", err)
	}

	r.EndDate = Date{}
	r.Frequency = "daily"
	if err := r.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestClampPayday(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 15: 15, 28: 28, 29: 28, 31: 28}
	for in, want := range cases {
		if got := ClampPayday(in); got != want {
			t.Errorf("ClampPayday(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestEmptySnapshot(t *testing.T) {
	s := EmptySnapshot()
	if s.Transactions == nil || s.Budgets == nil || s.Debts == nil || s.Recurring == nil {
		t.Fatalf("collections must be non-nil: %+v", s)
	}
	if s.Settings.Payday != 1 || !s.Settings.CreditLimit.IsZero() || s.Settings.Currency != DefaultCurrency {
		t.Fatalf("unexpected default settings: %+v", s.Settings)
	}
}
