package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaComment    = "#6272A4"
)

const inputWidth = 30

type styles struct {
	title, section, label, value, selected, help, hint, success, error, app lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		section: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPurple)).
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaCyan)),
		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaForeground)),
		selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		app: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(draculaCyan)).
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

func newInput(placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.Width = inputWidth
	in.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
	in.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))
	return in
}
