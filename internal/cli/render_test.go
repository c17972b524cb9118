package cli

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"1000", "EUR", "1000.00 EUR"},
		{"45.5", "EUR", "45.50 EUR"},
		{"0.005", "USD", "0.01 USD"},
		{"-12.3", "", "-12.30"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := FormatMoney(decimal.RequireFromString(tt.amount), tt.currency)
			if got != tt.want {
				t.Errorf("FormatMoney(%s, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestFormatSigned(t *testing.T) {
	for _, amount := range []string{"5", "-5", "0"} {
		got := FormatSigned(decimal.RequireFromString(amount), "EUR")
		want := FormatMoney(decimal.RequireFromString(amount), "EUR")
		if !strings.Contains(got, want) {
			t.Errorf("FormatSigned(%s) = %q, want it to contain %q", amount, got, want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		pct  int
		want string
	}{
		{0, "0%"},
		{23, "23%"},
		{100, "100%"},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.pct); !strings.Contains(got, tt.want) {
			t.Errorf("FormatPercent(%d) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestFormatBar(t *testing.T) {
	tests := []struct {
		name   string
		pct    int
		width  int
		filled int
	}{
		{"empty", 0, 10, 0},
		{"half", 50, 10, 5},
		{"rounds down", 29, 10, 2},
		{"full", 100, 10, 10},
		{"over", 150, 10, 10},
		{"negative", -20, 10, 0},
		{"no width", 50, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBar(tt.pct, tt.width)
			if n := strings.Count(got, "█"); n != tt.filled {
				t.Errorf("FormatBar(%d, %d) filled = %d, want %d", tt.pct, tt.width, n, tt.filled)
			}
			if n := strings.Count(got, "█") + strings.Count(got, "░"); n != tt.width {
				t.Errorf("FormatBar(%d, %d) width = %d, want %d", tt.pct, tt.width, n, tt.width)
			}
		})
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Category", "Amount"}, [][]string{
		{"Food", "45.50 EUR"},
		{"Rent", "800.00 EUR"},
	})
	for _, want := range []string{"Category", "Amount", "Food", "45.50 EUR", "Rent", "800.00 EUR"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTable() missing %q in\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines < 4 {
		t.Errorf("RenderTable() rendered %d lines, want a bordered table", lines)
	}
}

func TestRenderTitle(t *testing.T) {
	if out := RenderTitle("Summary"); !strings.Contains(out, "Summary") {
		t.Errorf("RenderTitle() = %q", out)
	}
}
