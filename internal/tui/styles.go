package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/haulboard/internal/feedback"
)

var (
	primaryColor = lipgloss.Color("#7aa2f7")
	successColor = lipgloss.Color("#9ece6a")
	warningColor = lipgloss.Color("#e0af68")
	errorColor   = lipgloss.Color("#f7768e")
	infoColor    = lipgloss.Color("#7dcfff")
	textColor    = lipgloss.Color("#c0caf5")
	dimColor     = lipgloss.Color("#565f89")
	borderColor  = lipgloss.Color("#414868")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	quickStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Padding(0, 1)

	loadingStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	activeStyle = lipgloss.NewStyle().
			Foreground(successColor)

	inactiveStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	dialogTitleStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true).
				MarginBottom(1)

	tableBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(borderColor)
)

func severityColor(s feedback.Severity) lipgloss.Color {
	switch s {
	case feedback.Success:
		return successColor
	case feedback.Warning:
		return warningColor
	case feedback.Error:
		return errorColor
	default:
		return infoColor
	}
}
