package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// maxBodyBytes matches the 1 MB JSON limit of the sync endpoint.
const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid JSON body")

// amountInput accepts an amount as a JSON number or as a string such as "12,50".
type amountInput string

func (a *amountInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = amountInput(s)
		return nil
	}
	*a = amountInput(strings.TrimSpace(string(data)))
	return nil
}

func (a amountInput) parse() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

// parseDateOr parses YYYY-MM-DD, using fallback for an empty value.
func parseDateOr(s string, fallback core.Date) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return core.ParseDate(s)
}

type transactionRequest struct {
	Type     core.EntryType `json:"type"`
	Category string         `json:"category"`
	Amount   amountInput    `json:"amount"`
	Date     string         `json:"date"`
	Note     string         `json:"note"`
}

func (req transactionRequest) toTransaction(today core.Date) (core.Transaction, error) {
	amount, err := req.Amount.parse()
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDateOr(req.Date, today)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		Type:     req.Type,
		Category: sanitizeInput(req.Category),
		Amount:   amount,
		Date:     date,
		Note:     sanitizeInput(req.Note),
	}, nil
}

type budgetRequest struct {
	Category string      `json:"category"`
	Amount   amountInput `json:"amount"`
}

type debtRequest struct {
	Direction core.Direction `json:"direction"`
	Person    string         `json:"person"`
	Principal amountInput    `json:"principal"`
	Date      string         `json:"date"`
	DueDate   string         `json:"dueDate"`
	Note      string         `json:"note"`
}

func (req debtRequest) toDebt(today core.Date) (core.Debt, error) {
	principal, err := req.Principal.parse()
	if err != nil {
		return core.Debt{}, err
	}
	date, err := parseDateOr(req.Date, today)
	if err != nil {
		return core.Debt{}, err
	}
	due, err := parseDateOr(req.DueDate, core.Date{})
	if err != nil {
		return core.Debt{}, err
	}
	return core.Debt{
		Direction: req.Direction,
		Person:    sanitizeInput(req.Person),
		Principal: principal,
		Date:      date,
		DueDate:   due,
		Note:      sanitizeInput(req.Note),
	}, nil
}

type paymentRequest struct {
	Amount amountInput `json:"amount"`
	Date   string      `json:"date"`
}

type recurringRequest struct {
	Type      core.EntryType `json:"type"`
	Category  string         `json:"category"`
	Amount    amountInput    `json:"amount"`
	Frequency core.Frequency `json:"frequency"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
}

func (req recurringRequest) toRecurring(today core.Date) (core.Recurring, error) {
	amount, err := req.Amount.parse()
	if err != nil {
		return core.Recurring{}, err
	}
	start, err := parseDateOr(req.StartDate, today)
	if err != nil {
		return core.Recurring{}, err
	}
	end, err := parseDateOr(req.EndDate, core.Date{})
	if err != nil {
		return core.Recurring{}, err
	}
	return core.Recurring{
		Type:      req.Type,
		Category:  sanitizeInput(req.Category),
		Amount:    amount,
		Frequency: req.Frequency,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// settingsRequest is a partial update; absent fields keep their current value.
type settingsRequest struct {
	Payday      *int         `json:"payday"`
	CreditLimit *amountInput `json:"creditLimit"`
	Currency    string       `json:"currency"`
}

func (req settingsRequest) apply(current core.Settings) (core.Settings, error) {
	next := current
	if req.Payday != nil {
		next.Payday = *req.Payday
	}
	if req.CreditLimit != nil {
		limit, err := parseCreditLimit(string(*req.CreditLimit))
		if err != nil {
			return core.Settings{}, err
		}
		next.CreditLimit = limit
	}
	next.Currency = sanitizeInput(req.Currency)
	return next, nil
}

// parseCreditLimit accepts zero, unlike entered amounts.
func parseCreditLimit(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ".")); err == nil && d.IsZero() {
		return decimal.Zero, nil
	}
	return core.ParseAmount(s)
}

type stateRequest struct {
	State json.RawMessage `json:"state"`
}

// decodeJSON reads at most maxBodyBytes of JSON into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errInvalidJSON)
		}
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

// periodQuery resolves ?month=YYYY-MM against payday, or returns ok=false when absent.
func periodQuery(query url.Values, payday int) (core.Period, bool, error) {
	raw := strings.TrimSpace(query.Get("month"))
	if raw == "" {
		return core.Period{}, false, nil
	}
	m, err := core.ParseMonth(raw)
	if err != nil {
		return core.Period{}, false, err
	}
	return m.Period(payday), true, nil
}

// typeQuery parses ?type=income|expense; empty means both.
func typeQuery(query url.Values) (core.EntryType, error) {
	t := core.EntryType(strings.ToLower(strings.TrimSpace(query.Get("type"))))
	if t == "" || t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrInvalidType, t)
}
