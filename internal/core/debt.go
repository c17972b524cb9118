package core

import "github.com/shopspring/decimal"

// Paid is the sum of all payments made towards the debt.
func (d Debt) Paid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// Outstanding is principal minus payments, floored at zero. Direction only
// changes labeling, never the arithmetic.
func (d Debt) Outstanding() decimal.Decimal {
	rest := d.Principal.Sub(d.Paid())
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// IsClosed is true when closed manually or fully paid.
func (d Debt) IsClosed() bool {
	return d.Closed || !d.Outstanding().IsPositive()
}
