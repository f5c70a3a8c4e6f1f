package components

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/allbin/midiserial"
)

func TestFormatRowMatchesColumns(t *testing.T) {
	msg := TrafficMsg{
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 6_000_000, time.UTC),
		Dir:       midiserial.DirectionRx,
		Message:   midiserial.Message{0x91, 0x3C, 0x7F},
	}

	modes := []DisplayMode{
		DefaultDisplayMode(),
		{},
		{ShowHex: true},
		{ShowKind: true},
		{ShowTimestamps: true},
	}
	for _, mode := range modes {
		df := NewDataFormatter(mode)
		if cols, row := df.Columns(), df.FormatRow(msg); len(cols) != len(row) {
			t.Errorf("Mode %+v: %d columns but %d cells", mode, len(cols), len(row))
		}
	}

	row := NewDataFormatter(DefaultDisplayMode()).FormatRow(msg)
	want := []string{"03:04:05.006", "↙ rx", "note-on", "2", "91 3C 7F", "3", "✓"}
	if strings.Join(row, "|") != strings.Join(want, "|") {
		t.Errorf("Expected row %q, got %q", want, row)
	}
}

func TestFormatRowSystemMessage(t *testing.T) {
	df := NewDataFormatter(DisplayMode{ShowKind: true})
	row := df.FormatRow(TrafficMsg{
		Dir:     midiserial.DirectionTx,
		Message: midiserial.Message{0xF8},
		Err:     errors.New("write failed"),
	})

	want := []string{"↗ tx", "clock", "-", "1", "✗ error"}
	if strings.Join(row, "|") != strings.Join(want, "|") {
		t.Errorf("Expected row %q, got %q", want, row)
	}
}

func TestFormatterToggles(t *testing.T) {
	df := NewDataFormatter(DefaultDisplayMode())
	df.ToggleHex()
	df.ToggleKind()
	df.ToggleTimestamps()

	if mode := df.GetDisplayMode(); mode != (DisplayMode{}) {
		t.Errorf("Expected all columns hidden, got %+v", mode)
	}
	if cols := df.Columns(); len(cols) != 3 {
		t.Errorf("Expected Dir, Len and Status only, got %+v", cols)
	}
}

func TestTrafficTableBoundsHistory(t *testing.T) {
	tt := NewTrafficTable(100, 10)
	tt.SetMaxRows(3)

	for i := 0; i < 5; i++ {
		tt.AddMessage(TrafficMsg{Message: midiserial.Message{0xC0, byte(i)}})
	}
	if tt.Len() != 3 {
		t.Fatalf("Expected 3 rows kept, got %d", tt.Len())
	}
	if tt.rawData[0].Message[1] != 2 {
		t.Errorf("Expected oldest rows dropped first, first kept is %v", tt.rawData[0].Message)
	}

	// changing the column set must not break the table
	tt.ToggleKind()
	tt.ToggleHex()
	if view := tt.View(); view == "" {
		t.Error("Expected table to render")
	}

	tt.Clear()
	if tt.Len() != 0 {
		t.Errorf("Expected empty table after Clear, got %d rows", tt.Len())
	}
}

func TestTrafficTableViewMode(t *testing.T) {
	tt := NewTrafficTable(100, 10)
	if tt.GetViewMode() != ViewModeFollow {
		t.Errorf("Expected FOLLOW initially, got %s", tt.GetViewMode())
	}
	tt.ToggleViewMode()
	if tt.GetViewMode() != ViewModeScroll {
		t.Errorf("Expected SCROLL after toggle, got %s", tt.GetViewMode())
	}
}

func TestLogWriterSplitsLines(t *testing.T) {
	var got []string
	w := NewLogWriter(func(msg tea.Msg) {
		got = append(got, msg.(LogLineMsg).Line)
	})

	w.Write([]byte("first\nsec"))
	w.Write([]byte("ond\n\nthird\r\n"))

	want := []string{"first", "second", "third"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestLogPaneBoundsLines(t *testing.T) {
	pane := NewLogPane(40, 3)
	for i := 0; i < DefaultLogLines+10; i++ {
		pane.AddLine("line")
	}
	if len(pane.Lines()) != DefaultLogLines {
		t.Errorf("Expected %d lines kept, got %d", DefaultLogLines, len(pane.Lines()))
	}
}

func TestStatusBarCounters(t *testing.T) {
	sb := NewStatusBar("MIDI Monitor", "/dev/ttyS1")
	sb.SetStats(midiserial.Stats{RxMessages: 2, RxBytes: 5, TxMessages: 1, TxBytes: 3, WriteErrors: 1})

	want := "rx 2/5B  tx 1/3B  err 1"
	if got := sb.Counters(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	sb.SetStopped(errors.New("hangup"))
	if sb.Err() == nil || !strings.Contains(sb.Status(), "hangup") {
		t.Errorf("Expected stopped status with error, got %q", sb.Status())
	}
}
