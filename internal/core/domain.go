package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"

	Lent     Direction = "lent"
	Borrowed Direction = "borrowed"

	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

const (
	DefaultPayday   = 1
	MinPayday       = 1
	MaxPayday       = 28
	DefaultCurrency = "₽"
)

type (
	EntryType string
	Direction string
	Frequency string

	Transaction struct {
		ID       string          `json:"id"`
		Type     EntryType       `json:"type"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
		Date     Date            `json:"date"`
		Note     string          `json:"note,omitempty"`
	}

	Budget struct {
		ID       string          `json:"id"`
		Category string          `json:"category"`
		Amount   decimal.Decimal `json:"amount"`
	}

	Payment struct {
		ID     string          `json:"id"`
		Date   Date            `json:"date"`
		Amount decimal.Decimal `json:"amount"`
	}

	Debt struct {
		ID        string          `json:"id"`
		Direction Direction       `json:"direction"`
		Person    string          `json:"person"`
		Principal decimal.Decimal `json:"principal"`
		Date      Date            `json:"date"`
		DueDate   Date            `json:"dueDate"`
		Note      string          `json:"note,omitempty"`
		Payments  []Payment       `json:"payments"`
		Closed    bool            `json:"closed,omitempty"`
	}

	Recurring struct {
		ID        string          `json:"id"`
		Type      EntryType       `json:"type"`
		Category  string          `json:"category"`
		Amount    decimal.Decimal `json:"amount"`
		Frequency Frequency       `json:"frequency"`
		StartDate Date            `json:"startDate"`
		EndDate   Date            `json:"endDate"`
	}

	Settings struct {
		Payday      int             `json:"payday"`
		CreditLimit decimal.Decimal `json:"creditLimit"`
		Currency    string          `json:"currency"`
	}

	// Snapshot is the whole ledger document as it is stored and synced.
	Snapshot struct {
		Transactions []Transaction `json:"transactions"`
		Budgets      []Budget      `json:"budgets"`
		Debts        []Debt        `json:"debts"`
		Recurring    []Recurring   `json:"recurring"`
		Settings     Settings      `json:"settings"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyPerson      = errors.New("empty person")
	ErrInvalidType      = errors.New("invalid entry type")
	ErrInvalidDirection = errors.New("invalid debt direction")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEndBeforeStart   = errors.New("end date must not be before start date")
)

func init() {
	// Snapshots carry amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

func (t EntryType) Valid() bool { return t == Income || t == Expense }

func (d Direction) Valid() bool { return d == Lent || d == Borrowed }

func (f Frequency) Valid() bool { return f == Weekly || f == Monthly }

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	return t.Date.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return ValidateAmount(b.Amount)
}

func (p Payment) Validate() error {
	if err := ValidateAmount(p.Amount); err != nil {
		return err
	}
	return p.Date.Validate()
}

func (d Debt) Validate() error {
	if !d.Direction.Valid() {
		return ErrInvalidDirection
	}
	if strings.TrimSpace(d.Person) == "" {
		return ErrEmptyPerson
	}
	if err := ValidateAmount(d.Principal); err != nil {
		return err
	}
	if err := d.Date.Validate(); err != nil {
		return err
	}
	for _, p := range d.Payments {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r Recurring) Validate() error {
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if err := ValidateAmount(r.Amount); err != nil {
		return err
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if err := r.StartDate.Validate(); err != nil {
		return err
	}
	if !r.EndDate.IsEmpty() && r.EndDate.Before(r.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// DefaultSettings returns the settings of a fresh ledger.
func DefaultSettings() Settings {
	return Settings{
		Payday:      DefaultPayday,
		CreditLimit: decimal.Zero,
		Currency:    DefaultCurrency,
	}
}

// ClampPayday keeps a payday inside [MinPayday, MaxPayday] so every month has it.
func ClampPayday(day int) int {
	if day < MinPayday {
		return MinPayday
	}
	if day > MaxPayday {
		return MaxPayday
	}
	return day
}

// EmptySnapshot returns a snapshot with empty collections and default settings.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Transactions: []Transaction{},
		Budgets:      []Budget{},
		Debts:        []Debt{},
		Recurring:    []Recurring{},
		Settings:     DefaultSettings(),
	}
}
