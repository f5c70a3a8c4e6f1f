package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/tui/colors"
	"github.com/allbin/midiserial/internal/tui/styles"
)

// BridgeInfo describes what the bridge is connected to
type BridgeInfo struct {
	Speed  int
	Input  string
	Output string
}

type StatusBar struct {
	title    string
	portPath string
	status   string
	err      error
	width    int
	info     *BridgeInfo
	stats    midiserial.Stats
}

func NewStatusBar(title, portPath string) *StatusBar {
	return &StatusBar{
		title:    title,
		portPath: portPath,
		status:   "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetInfo(info *BridgeInfo) {
	sb.info = info
}

func (sb *StatusBar) SetStats(stats midiserial.Stats) {
	sb.stats = stats
}

func (sb *StatusBar) Status() string {
	return sb.status
}

func (sb *StatusBar) Err() error {
	return sb.err
}

func (sb *StatusBar) SetOpening() {
	sb.status = "Opening..."
	sb.err = nil
}

func (sb *StatusBar) SetRunning() {
	sb.status = "Bridging"
	sb.err = nil
}

func (sb *StatusBar) SetStopped(err error) {
	if err != nil {
		sb.status = fmt.Sprintf("Bridge stopped: %v", err)
		sb.err = err
	} else {
		sb.status = "Stopped"
		sb.err = nil
	}
}

// Counters renders the traffic counters shown on the right
func (sb *StatusBar) Counters() string {
	s := sb.stats
	text := fmt.Sprintf("rx %d/%dB  tx %d/%dB", s.RxMessages, s.RxBytes, s.TxMessages, s.TxBytes)
	if errs := s.ReadErrors + s.WriteErrors + s.SendErrors; errs > 0 {
		text += fmt.Sprintf("  err %d", errs)
	}
	if s.Discarded > 0 {
		text += fmt.Sprintf("  drop %d", s.Discarded)
	}
	return text
}

// ComprehensiveStatusBar renders state, port, endpoints, counters and time
// on one line
func (sb *StatusBar) ComprehensiveStatusBar(state styles.State, viewMode string, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	stateColor := colors.Blue
	switch state {
	case styles.StateRunning:
		stateColor = colors.Green
	case styles.StateOpening:
		stateColor = colors.Yellow
	case styles.StateFailed:
		stateColor = colors.Red
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(stateColor).
		Bold(true).
		Padding(0, 1).
		Render(state.String())

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	var indicator string
	switch {
	case sb.err != nil:
		indicator = lipgloss.NewStyle().Foreground(colors.Red).Render("✗")
	case state == styles.StateRunning:
		indicator = lipgloss.NewStyle().Foreground(colors.Green).Render("●")
	default:
		indicator = styles.GetStateStyle(state).Render("○")
	}

	details := "⚡ midi"
	if sb.info != nil {
		details = fmt.Sprintf("⚡ %d baud", sb.info.Speed)
		if sb.info.Input != "" {
			details += " in:" + sb.info.Input
		}
		if sb.info.Output != "" {
			details += " out:" + sb.info.Output
		}
	}
	detailStyle := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1)
	connectionDetails := detailStyle.Render(details)
	counters := detailStyle.Render(sb.Counters())

	view := lipgloss.NewStyle().
		Foreground(colors.Peach).
		Bold(true).
		Padding(0, 1).
		Render(viewMode)

	time := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, indicator, divider, connectionDetails)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, counters, divider, view, divider, time)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	content := lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide)
	return statusBarStyle.Render(content)
}
