package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DailyBudgetPlaces is the rounding applied when spreading money over days.
const DailyBudgetPlaces = 2

// defaultCategories are always offered as suggestions next to the used ones.
var defaultCategories = []string{
	"Groceries", "Transport", "Cafes", "Utilities", "Phone", "Health",
	"Subscriptions", "Clothes", "Gifts", "Salary", "Freelance", "Cashback",
}

// PeriodTotals sums income and expense of the transactions inside p.
func PeriodTotals(txs []core.Transaction, p core.Period) core.Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		if !p.Contains(t.Date) {
			continue
		}
		if t.Type == core.Income {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return core.Totals{Income: income, Expense: expense, Balance: income.Sub(expense)}
}

// ExpenseByCategory groups the period's expenses by exact category name,
// largest total first. Equal totals are ordered by name.
func ExpenseByCategory(txs []core.Transaction, p core.Period) []core.CategoryAmount {
	sums := make(map[string]decimal.Decimal)
	for _, t := range txs {
		if t.Type != core.Expense || !p.Contains(t.Date) {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amount := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// BudgetProgress returns one row per budget with the period's spending in that
// exact category, sorted by category.
func BudgetProgress(budgets []core.Budget, txs []core.Transaction, p core.Period) []core.BudgetRow {
	type keyed struct {
		id  string
		row core.BudgetRow
	}
	rows := make([]keyed, 0, len(budgets))
	for _, b := range budgets {
		spent := decimal.Zero
		for _, t := range txs {
			if t.Type != core.Expense || t.Category != b.Category || !p.Contains(t.Date) {
				continue
			}
			spent = spent.Add(t.Amount)
		}
		rows = append(rows, keyed{id: b.ID, row: core.BudgetRow{Category: b.Category, Plan: b.Amount, Fact: spent}})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].row.Category != rows[j].row.Category {
			return rows[i].row.Category < rows[j].row.Category
		}
		return rows[i].id < rows[j].id
	})

	out := make([]core.BudgetRow, len(rows))
	for i, k := range rows {
		out[i] = k.row
	}
	return out
}

// DaysInPeriod counts the days left until End (End itself excluded) and the days
// since Start, both relative to the date of now and floored at zero.
func DaysInPeriod(now time.Time, p core.Period) core.Days {
	today := core.DateOf(now)
	return core.Days{
		Remaining: max(0, today.DaysUntil(p.End)),
		Elapsed:   max(0, p.Start.DaysUntil(today)),
	}
}

// Available is the money left for the period with the unused credit line folded in.
func Available(totals core.Totals, creditLimit decimal.Decimal) decimal.Decimal {
	return totals.Income.Sub(totals.Expense).Add(creditLimit)
}

// DailyBudget spreads the available money over the remaining days. When the
// period is over the whole available amount is returned.
func DailyBudget(totals core.Totals, creditLimit decimal.Decimal, days core.Days) decimal.Decimal {
	available := Available(totals, creditLimit)
	if days.Remaining > 0 {
		return available.DivRound(decimal.NewFromInt(int64(days.Remaining)), DailyBudgetPlaces)
	}
	return available
}

// FilterTransactions returns the period's transactions, optionally of one type,
// newest first.
func FilterTransactions(txs []core.Transaction, p core.Period, typ core.EntryType) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		if typ != "" && t.Type != typ {
			continue
		}
		if !p.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

// SortedDebts returns the debts ordered by their date, oldest first.
func SortedDebts(debts []core.Debt) []core.Debt {
	out := append([]core.Debt(nil), debts...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// CategorySuggestions merges the used categories with the default ones, sorted.
func CategorySuggestions(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(txs)+len(defaultCategories))
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	for _, t := range txs {
		add(t.Category)
	}
	for _, c := range defaultCategories {
		add(c)
	}
	sort.Strings(out)
	return out
}

// BuildDashboard computes every figure of the period p for the snapshot.
func BuildDashboard(s core.Snapshot, p core.Period, now time.Time) core.Dashboard {
	totals := PeriodTotals(s.Transactions, p)
	days := DaysInPeriod(now, p)
	return core.Dashboard{
		Period:      p,
		Currency:    s.Settings.Currency,
		Totals:      totals,
		Days:        days,
		Available:   Available(totals, s.Settings.CreditLimit),
		DailyBudget: DailyBudget(totals, s.Settings.CreditLimit, days),
		ByCategory:  ExpenseByCategory(s.Transactions, p),
		Budgets:     BudgetProgress(s.Budgets, s.Transactions, p),
	}
}

// CurrentPeriod is the pay period containing the date of now.
func CurrentPeriod(settings core.Settings, now time.Time) core.Period {
	return core.PeriodContaining(core.DateOf(now), settings.Payday)
}
