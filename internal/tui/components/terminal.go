package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/allbin/midiserial/internal/tui/styles"
)

// DefaultLogLines bounds the lines kept by the log pane
const DefaultLogLines = 200

// LogLineMsg carries one rendered log line into the program
type LogLineMsg struct {
	Line string
}

// LogWriter turns log output into LogLineMsg values. It is meant as the
// destination of a zerolog console writer while the alt screen owns the
// terminal.
type LogWriter struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	partial string
}

func NewLogWriter(send func(tea.Msg)) *LogWriter {
	return &LogWriter{send: send}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	data := w.partial + string(p)
	lines := strings.Split(data, "\n")
	// the last element is an unterminated line, or empty
	w.partial = lines[len(lines)-1]
	lines = lines[:len(lines)-1]
	w.mu.Unlock()

	for _, line := range lines {
		if line = strings.TrimRight(line, "\r"); line != "" {
			w.send(LogLineMsg{Line: line})
		}
	}
	return len(p), nil
}

// LogPane shows the most recent log lines under the traffic table
type LogPane struct {
	viewport viewport.Model
	lines    []string
	maxLines int
}

func NewLogPane(width, height int) *LogPane {
	return &LogPane{
		viewport: viewport.New(width, height),
		maxLines: DefaultLogLines,
	}
}

func (l *LogPane) SetSize(width, height int) {
	l.viewport.Width = width
	l.viewport.Height = height
	l.viewport.GotoBottom()
}

func (l *LogPane) Height() int {
	return l.viewport.Height
}

func (l *LogPane) AddLine(line string) {
	l.lines = append(l.lines, line)
	if over := len(l.lines) - l.maxLines; over > 0 {
		l.lines = append(l.lines[:0], l.lines[over:]...)
	}
	l.viewport.SetContent(strings.Join(l.lines, "\n"))
	l.viewport.GotoBottom()
}

func (l *LogPane) Lines() []string {
	return l.lines
}

func (l *LogPane) Clear() {
	l.lines = nil
	l.viewport.SetContent("")
}

func (l *LogPane) View() string {
	return styles.LogStyle.Render(l.viewport.View())
}
