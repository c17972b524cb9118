package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// ErrMalformedSnapshot is returned when the document is not a JSON object.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// ParseReport records what ParseSnapshot had to repair.
type ParseReport struct {
	// Defaulted lists the fields replaced by their default, e.g. "budgets"
	// or "settings.payday".
	Defaulted []string `json:"defaulted,omitempty"`
	// Dropped counts invalid entries removed per collection.
	Dropped map[string]int `json:"dropped,omitempty"`
}

// Clean reports whether the document was loaded without any repair.
func (r ParseReport) Clean() bool {
	return len(r.Defaulted) == 0 && len(r.Dropped) == 0
}

func (r *ParseReport) defaulted(field string) {
	r.Defaulted = append(r.Defaulted, field)
}

func (r *ParseReport) dropped(collection string) {
	if r.Dropped == nil {
		r.Dropped = make(map[string]int)
	}
	r.Dropped[collection]++
}

// ParseSnapshot decodes a stored document. Missing or non-array collections
// become empty, invalid entries are dropped and every settings field falls
// back to its default on its own. Only a document that is not a JSON object
// fails.
func ParseSnapshot(data []byte) (core.Snapshot, ParseReport, error) {
	var report ParseReport
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return core.Snapshot{}, report, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if fields == nil {
		return core.Snapshot{}, report, fmt.Errorf("%w: not an object", ErrMalformedSnapshot)
	}

	s := core.Snapshot{
		Transactions: parseList(fields, "transactions", &report, func(t *core.Transaction) error {
			t.ID = ensureID(t.ID, PrefixTransaction)
			t.Category = strings.TrimSpace(t.Category)
			return t.Validate()
		}),
		Budgets: parseList(fields, "budgets", &report, func(b *core.Budget) error {
			b.ID = ensureID(b.ID, PrefixBudget)
			b.Category = strings.TrimSpace(b.Category)
			return b.Validate()
		}),
		Debts: parseList(fields, "debts", &report, func(d *core.Debt) error {
			d.ID = ensureID(d.ID, PrefixDebt)
			d.Person = strings.TrimSpace(d.Person)
			payments := make([]core.Payment, 0, len(d.Payments))
			for _, p := range d.Payments {
				if err := p.Validate(); err != nil {
					report.dropped("payments")
					continue
				}
				p.ID = ensureID(p.ID, PrefixPayment)
				payments = append(payments, p)
			}
			d.Payments = payments
			return d.Validate()
		}),
		Recurring: parseList(fields, "recurring", &report, func(r *core.Recurring) error {
			r.ID = ensureID(r.ID, PrefixRecurring)
			r.Category = strings.TrimSpace(r.Category)
			return r.Validate()
		}),
		Settings: parseSettings(fields["settings"], &report),
	}
	return s, report, nil
}

// EncodeSnapshot serializes s with every collection present.
func EncodeSnapshot(s core.Snapshot) ([]byte, error) {
	s = cloneSnapshot(s)
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func parseList[T any](fields map[string]json.RawMessage, key string, report *ParseReport, fix func(*T) error) []T {
	out := make([]T, 0)
	raw, ok := fields[key]
	if !ok {
		report.defaulted(key)
		return out
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || isNull(raw) {
		report.defaulted(key)
		return out
	}
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			report.dropped(key)
			continue
		}
		if err := fix(&v); err != nil {
			report.dropped(key)
			continue
		}
		out = append(out, v)
	}
	return out
}

func parseSettings(raw json.RawMessage, report *ParseReport) core.Settings {
	s := core.DefaultSettings()
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		report.defaulted("settings")
		return s
	}

	if n, ok := numberField(fields["payday"]); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
		s.Payday = core.ClampPayday(int(math.Max(math.Min(n, math.MaxInt32), math.MinInt32)))
	} else {
		report.defaulted("settings.payday")
	}

	if d, ok := decimalField(fields["creditLimit"]); ok {
		s.CreditLimit = d
	} else {
		report.defaulted("settings.creditLimit")
	}

	var currency string
	if json.Unmarshal(fields["currency"], &currency) == nil && strings.TrimSpace(currency) != "" {
		s.Currency = strings.TrimSpace(currency)
	} else {
		report.defaulted("settings.currency")
	}
	return s
}

// numberField accepts a JSON number or a numeric string.
func numberField(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}
	var n float64
	if json.Unmarshal(raw, &n) == nil {
		return n, true
	}
	var str string
	if json.Unmarshal(raw, &str) != nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	return n, err == nil
}

func decimalField(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || isNull(raw) {
		return decimal.Zero, false
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func ensureID(id, prefix string) string {
	if strings.TrimSpace(id) == "" {
		return NewID(prefix)
	}
	return id
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
