package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/midiserial/internal/tui/colors"
)

var (
	// Bridge state styles
	StateRunningStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	StateStoppedStyle = lipgloss.NewStyle().
				Foreground(colors.Overlay0).
				Bold(true)

	StateOpeningStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	StateFailedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	LogStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)
)

type State int

const (
	StateOpening State = iota
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "OPENING"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func GetStateStyle(state State) lipgloss.Style {
	switch state {
	case StateRunning:
		return StateRunningStyle
	case StateOpening:
		return StateOpeningStyle
	case StateStopped:
		return StateStoppedStyle
	default:
		return StateFailedStyle
	}
}
