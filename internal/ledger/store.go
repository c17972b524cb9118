// Package ledger keeps one user's ledger document in memory and applies the
// validated mutations to it.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/engine"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDebtClosed = errors.New("debt is closed")
)

// RecurringNote is the note put on transactions posted from a recurring item.
const RecurringNote = "Recurring"

// ID prefixes of the generated entity ids.
const (
	PrefixTransaction = "tx"
	PrefixBudget      = "bud"
	PrefixDebt        = "debt"
	PrefixPayment     = "pay"
	PrefixRecurring   = "rec"
)

// NewID returns a fresh "<prefix>_<uuid>" identifier.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Store holds the ledger collections. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	doc core.Snapshot
}

// New returns an empty store with default settings.
func New() *Store {
	return &Store{doc: core.EmptySnapshot()}
}

// FromSnapshot returns a store holding a copy of s.
func FromSnapshot(s core.Snapshot) *Store {
	return &Store{doc: cloneSnapshot(s)}
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.doc)
}

// Settings returns the current settings.
func (s *Store) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Settings
}

// Replace swaps the whole document, as done by an upload.
func (s *Store) Replace(doc core.Snapshot) {
	doc = cloneSnapshot(doc)
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// AddTransaction validates t, assigns it an id and appends it.
func (s *Store) AddTransaction(t core.Transaction) (core.Transaction, error) {
	t.Category = strings.TrimSpace(t.Category)
	t.Note = strings.TrimSpace(t.Note)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	t.ID = NewID(PrefixTransaction)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Transactions = append(s.doc.Transactions, t)
	return t, nil
}

func (s *Store) DeleteTransaction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := removeByID(s.doc.Transactions, id, func(t core.Transaction) string { return t.ID })
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	s.doc.Transactions = out
	return nil
}

// UpsertBudget sets the plan of a category. A budget whose category matches
// case-insensitively is overwritten and keeps its original spelling.
func (s *Store) UpsertBudget(category string, amount decimal.Decimal) (core.Budget, error) {
	b := core.Budget{Category: strings.TrimSpace(category), Amount: amount}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Budgets {
		if strings.EqualFold(s.doc.Budgets[i].Category, b.Category) {
			s.doc.Budgets[i].Amount = b.Amount
			return s.doc.Budgets[i], nil
		}
	}
	b.ID = NewID(PrefixBudget)
	s.doc.Budgets = append(s.doc.Budgets, b)
	return b, nil
}

func (s *Store) DeleteBudget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := removeByID(s.doc.Budgets, id, func(b core.Budget) string { return b.ID })
	if !ok {
		return fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	s.doc.Budgets = out
	return nil
}

// AddDebt records a new open debt without payments.
func (s *Store) AddDebt(d core.Debt) (core.Debt, error) {
	d.Person = strings.TrimSpace(d.Person)
	d.Note = strings.TrimSpace(d.Note)
	d.Payments = []core.Payment{}
	d.Closed = false
	if err := d.Validate(); err != nil {
		return core.Debt{}, fmt.Errorf("add debt: %w", err)
	}
	d.ID = NewID(PrefixDebt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Debts = append(s.doc.Debts, d)
	return cloneDebt(d), nil
}

// AddPayment appends a payment to an open debt and returns the updated debt.
func (s *Store) AddPayment(debtID string, date core.Date, amount decimal.Decimal) (core.Debt, error) {
	p := core.Payment{Date: date, Amount: amount}
	if err := p.Validate(); err != nil {
		return core.Debt{}, fmt.Errorf("add payment: %w", err)
	}
	p.ID = NewID(PrefixPayment)

	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDebt(debtID)
	if d == nil {
		return core.Debt{}, fmt.Errorf("debt %s: %w", debtID, ErrNotFound)
	}
	if d.IsClosed() {
		return core.Debt{}, fmt.Errorf("add payment to %s: %w", debtID, ErrDebtClosed)
	}
	d.Payments = append(d.Payments, p)
	return cloneDebt(*d), nil
}

// ToggleDebtClosed flips the manual closed flag only.
func (s *Store) ToggleDebtClosed(id string) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDebt(id)
	if d == nil {
		return core.Debt{}, fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	d.Closed = !d.Closed
	return cloneDebt(*d), nil
}

func (s *Store) DeleteDebt(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := removeByID(s.doc.Debts, id, func(d core.Debt) string { return d.ID })
	if !ok {
		return fmt.Errorf("debt %s: %w", id, ErrNotFound)
	}
	s.doc.Debts = out
	return nil
}

func (s *Store) AddRecurring(r core.Recurring) (core.Recurring, error) {
	r.Category = strings.TrimSpace(r.Category)
	if err := r.Validate(); err != nil {
		return core.Recurring{}, fmt.Errorf("add recurring: %w", err)
	}
	r.ID = NewID(PrefixRecurring)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Recurring = append(s.doc.Recurring, r)
	return r, nil
}

func (s *Store) DeleteRecurring(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, ok := removeByID(s.doc.Recurring, id, func(r core.Recurring) string { return r.ID })
	if !ok {
		return fmt.Errorf("recurring %s: %w", id, ErrNotFound)
	}
	s.doc.Recurring = out
	return nil
}

// PostRecurring appends a transaction for the item's next occurrence, or for
// today when the series has no further occurrence. Posting twice creates two
// transactions.
func (s *Store) PostRecurring(id string, now time.Time) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var item *core.Recurring
	for i := range s.doc.Recurring {
		if s.doc.Recurring[i].ID == id {
			item = &s.doc.Recurring[i]
			break
		}
	}
	if item == nil {
		return core.Transaction{}, fmt.Errorf("recurring %s: %w", id, ErrNotFound)
	}

	date, ok := engine.NextOccurrence(*item, now)
	if !ok {
		date = core.DateOf(now)
	}
	t := core.Transaction{
		ID:       NewID(PrefixTransaction),
		Type:     item.Type,
		Category: item.Category,
		Amount:   item.Amount,
		Date:     date,
		Note:     RecurringNote,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("post recurring %s: %w", id, err)
	}
	s.doc.Transactions = append(s.doc.Transactions, t)
	return t, nil
}

// UpdateSettings overwrites the settings. Payday is clamped and a blank
// currency keeps the current one.
func (s *Store) UpdateSettings(in core.Settings) core.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := core.Settings{
		Payday:      core.ClampPayday(in.Payday),
		CreditLimit: in.CreditLimit,
		Currency:    strings.TrimSpace(in.Currency),
	}
	if next.Currency == "" {
		next.Currency = s.doc.Settings.Currency
	}
	s.doc.Settings = next
	return next
}

// Reset drops every collection and restores the default settings.
func (s *Store) Reset() {
	s.mu.Lock()
	s.doc = core.EmptySnapshot()
	s.mu.Unlock()
}

func (s *Store) findDebt(id string) *core.Debt {
	for i := range s.doc.Debts {
		if s.doc.Debts[i].ID == id {
			return &s.doc.Debts[i]
		}
	}
	return nil
}

func removeByID[T any](items []T, id string, key func(T) string) ([]T, bool) {
	for i, it := range items {
		if key(it) == id {
			out := make([]T, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}

func cloneDebt(d core.Debt) core.Debt {
	d.Payments = append(make([]core.Payment, 0, len(d.Payments)), d.Payments...)
	return d
}

func cloneSnapshot(s core.Snapshot) core.Snapshot {
	out := core.Snapshot{
		Transactions: append(make([]core.Transaction, 0, len(s.Transactions)), s.Transactions...),
		Budgets:      append(make([]core.Budget, 0, len(s.Budgets)), s.Budgets...),
		Debts:        make([]core.Debt, 0, len(s.Debts)),
		Recurring:    append(make([]core.Recurring, 0, len(s.Recurring)), s.Recurring...),
		Settings:     s.Settings,
	}
	for _, d := range s.Debts {
		out.Debts = append(out.Debts, cloneDebt(d))
	}
	return out
}
