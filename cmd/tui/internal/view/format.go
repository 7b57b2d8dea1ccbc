package view

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// FormatAmount formats cents into a human-readable string.
func FormatAmount(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100.0)
}

// FormatSigned renders a signed amount with an explicit sign, so debits and
// credits are distinguishable at a glance.
func FormatSigned(cents int64) string {
	if cents > 0 {
		return "+" + FormatAmount(cents)
	}

	return FormatAmount(cents)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
