package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/alanyoungcy/arblens/internal/domain"
)

const (
	colorText    = "#F8F8F2"
	colorMuted   = "#6272A4"
	colorAccent  = "#BD93F9"
	colorSuccess = "#50FA7B"
	colorWarning = "#F1FA8C"
	colorDanger  = "#FF5555"
	colorInfo    = "#8BE9FD"
	colorSurface = "#44475A"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorAccent)).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorMuted))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText))

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(colorSurface)).
			Foreground(lipgloss.Color(colorText)).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorDanger)).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorMuted)).
			Padding(0, 1)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(colorAccent)).
			Padding(1, 2)

	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1)
)

func colored(c string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

// confidenceColor follows the table thresholds: 90 and above is strong,
// 70 and above is fair.
func confidenceColor(c int) string {
	switch {
	case c >= 90:
		return colorSuccess
	case c >= 70:
		return colorWarning
	default:
		return colorDanger
	}
}

func statusColor(s domain.PairStatus) string {
	switch s {
	case domain.PairStatusActive:
		return colorSuccess
	case domain.PairStatusPending:
		return colorWarning
	case domain.PairStatusOverridden:
		return colorInfo
	case domain.PairStatusRejected:
		return colorDanger
	default:
		return colorMuted
	}
}

func notificationColor(t domain.NotificationType) string {
	switch t {
	case domain.NotifyOpportunity:
		return colorAccent
	case domain.NotifySuccess:
		return colorSuccess
	case domain.NotifyWarning:
		return colorWarning
	case domain.NotifyError:
		return colorDanger
	default:
		return colorInfo
	}
}
