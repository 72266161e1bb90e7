// Package style wraps lipgloss for the small set of looks CLI output needs.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/vesper-player/vesper/color"
)

// Semantic colors.
var (
	Text        lipgloss.TerminalColor = color.Subtle
	AccentColor lipgloss.TerminalColor = color.Purple
	ErrorColor  lipgloss.TerminalColor = color.HiRed
)

// New returns an empty lipgloss.Style.
func New() lipgloss.Style {
	return lipgloss.NewStyle()
}

// Fg returns a function rendering its argument in c.
func Fg(c lipgloss.TerminalColor) func(string) string {
	return func(s string) string { return New().Foreground(c).Render(s) }
}

var (
	Faint = func(s string) string { return New().Faint(true).Render(s) }
	Bold  = func(s string) string { return New().Bold(true).Render(s) }
)
