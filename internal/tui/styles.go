package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
const (
	colorPrimary   = lipgloss.Color("#7D56F4")
	colorSecondary = lipgloss.Color("#04B575")
	colorError     = lipgloss.Color("#FF5F87")
	colorWarning   = lipgloss.Color("#FFD700")
	colorMuted     = lipgloss.Color("#626262")
	colorText      = lipgloss.Color("#FAFAFA")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorPrimary).
			Padding(0, 1)

	StateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	InfoStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	BarFilledStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	BarEmptyStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)
