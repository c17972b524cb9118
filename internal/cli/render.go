package cli

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	numberStyle = cellStyle.
			Align(lipgloss.Right)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	positiveStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	negativeStyle = lipgloss.NewStyle().
			Foreground(ColorRed)
)

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table. Every column but the first is right-aligned.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	return t.String()
}

// RenderMuted renders a secondary line such as an empty-state hint.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

// RenderWarning renders a line that needs the user's attention.
func RenderWarning(s string) string {
	return warnStyle.Render(s)
}

// FormatMoney formats an amount with two decimals and the currency symbol.
func FormatMoney(d decimal.Decimal, currency string) string {
	s := d.StringFixed(core.AmountPlaces)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// FormatSigned colors an amount green when positive and red when negative.
func FormatSigned(d decimal.Decimal, currency string) string {
	s := FormatMoney(d, currency)
	switch {
	case d.IsPositive():
		return positiveStyle.Render(s)
	case d.IsNegative():
		return negativeStyle.Render(s)
	default:
		return s
	}
}

// FormatPercent renders a budget usage percentage, highlighted once it reaches 100.
func FormatPercent(pct int) string {
	s := strconv.Itoa(pct) + "%"
	if pct >= 100 {
		return warnStyle.Render(s)
	}
	return s
}

// FormatBar renders a text progress bar of width cells for pct in [0,100].
func FormatBar(pct, width int) string {
	if width <= 0 {
		return ""
	}
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
