// Package chat provides the interactive conversation TUI for repochat.
// It renders a scrolling transcript over a ready session and forwards each
// submitted question to the ask service.
package chat

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette for the chat view.
type Theme struct {
	// Primary is the main accent colour.
	Primary lipgloss.Color

	// Foreground is the default text colour.
	Foreground lipgloss.Color

	// Muted is for less important text.
	Muted lipgloss.Color

	// Error indicates problems.
	Error lipgloss.Color

	// Border is the border colour.
	Border lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#7C3AED"), // Purple
		Foreground: lipgloss.Color("#CDD6F4"), // Light gray
		Muted:      lipgloss.Color("#6C7086"), // Medium gray
		Error:      lipgloss.Color("#F38BA8"), // Red
		Border:     lipgloss.Color("#45475A"), // Border gray
	}
}

// Styles contains pre-configured lipgloss styles for the chat view.
type Styles struct {
	// Question styles the user's submitted questions.
	Question lipgloss.Style

	// Answer styles generated answers.
	Answer lipgloss.Style

	// Citation styles the source lines under an answer.
	Citation lipgloss.Style

	// Error styles failure notices in the transcript.
	Error lipgloss.Style

	// Status styles the footer line.
	Status lipgloss.Style

	// Input styles the question input area.
	Input lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		Question: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		Answer: lipgloss.NewStyle().
			Foreground(theme.Foreground),
		Citation: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Error: lipgloss.NewStyle().
			Foreground(theme.Error),
		Status: lipgloss.NewStyle().
			Foreground(theme.Muted),
		Input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}
