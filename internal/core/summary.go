package core

import "github.com/shopspring/decimal"

// Totals are the income/expense sums of one period.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"category"`
	Amount decimal.Decimal `json:"total"`
}

// BudgetRow compares a budget plan with what was actually spent.
type BudgetRow struct {
	Category string          `json:"category"`
	Plan     decimal.Decimal `json:"plan"`
	Fact     decimal.Decimal `json:"fact"`
}

// Percent is the spent share of the plan, rounded and capped at 100.
func (r BudgetRow) Percent() int {
	if !r.Plan.IsPositive() {
		return 0
	}
	pct := r.Fact.Mul(decimal.NewFromInt(100)).Div(r.Plan).Round(0).IntPart()
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// Days counts the remaining and elapsed days of a period relative to today.
type Days struct {
	Remaining int `json:"remaining"`
	Elapsed   int `json:"elapsed"`
}

// Occurrence is the projected next date of a recurring item.
type Occurrence struct {
	Recurring Recurring `json:"recurring"`
	Next      Date      `json:"next"`
	Ok        bool      `json:"ok"`
}

// Dashboard gathers every figure shown for one period.
type Dashboard struct {
	Period      Period           `json:"period"`
	Currency    string           `json:"currency"`
	Totals      Totals           `json:"totals"`
	Days        Days             `json:"days"`
	Available   decimal.Decimal  `json:"available"`
	DailyBudget decimal.Decimal  `json:"dailyBudget"`
	ByCategory  []CategoryAmount `json:"byCategory"`
	Budgets     []BudgetRow      `json:"budgets"`
}
