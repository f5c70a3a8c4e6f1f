package components

import (
	"fmt"
	"strconv"
	"time"

	"github.com/allbin/midiserial"
)

// TrafficMsg is one bridged message as seen by the monitor
type TrafficMsg struct {
	Timestamp time.Time
	Dir       midiserial.Direction
	Message   midiserial.Message
	Err       error
}

type DisplayMode struct {
	ShowHex        bool
	ShowKind       bool
	ShowTimestamps bool
}

// DefaultDisplayMode shows every optional column
func DefaultDisplayMode() DisplayMode {
	return DisplayMode{ShowHex: true, ShowKind: true, ShowTimestamps: true}
}

// Column is a table header with the width it wants. A zero width column
// takes the space left over.
type Column struct {
	Title string
	Width int
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(mode DisplayMode) *DataFormatter {
	return &DataFormatter{mode: mode}
}

func (df *DataFormatter) SetDisplayMode(mode DisplayMode) {
	df.mode = mode
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleKind() {
	df.mode.ShowKind = !df.mode.ShowKind
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

// Columns lists the columns FormatRow fills, in order
func (df *DataFormatter) Columns() []Column {
	var cols []Column
	if df.mode.ShowTimestamps {
		cols = append(cols, Column{Title: "Time", Width: 12})
	}
	cols = append(cols, Column{Title: "Dir", Width: 4})
	if df.mode.ShowKind {
		cols = append(cols, Column{Title: "Kind", Width: 18}, Column{Title: "Ch", Width: 3})
	}
	if df.mode.ShowHex {
		cols = append(cols, Column{Title: "Hex"})
	}
	cols = append(cols, Column{Title: "Len", Width: 5}, Column{Title: "Status", Width: 8})
	return cols
}

// FormatRow renders msg as plain cells matching Columns
func (df *DataFormatter) FormatRow(msg TrafficMsg) []string {
	var row []string
	if df.mode.ShowTimestamps {
		row = append(row, msg.Timestamp.Format("15:04:05.000"))
	}
	row = append(row, Indicator(msg.Dir))
	if df.mode.ShowKind {
		ch := "-"
		if c, ok := msg.Message.Channel(); ok {
			ch = strconv.Itoa(int(c) + 1)
		}
		row = append(row, msg.Message.Kind(), ch)
	}
	if df.mode.ShowHex {
		row = append(row, fmt.Sprintf("% X", []byte(msg.Message)))
	}
	return append(row, strconv.Itoa(len(msg.Message)), Status(msg))
}

func (df *DataFormatter) FormatRows(messages []TrafficMsg) [][]string {
	rows := make([][]string, len(messages))
	for i, msg := range messages {
		rows[i] = df.FormatRow(msg)
	}
	return rows
}

// Indicator is the arrow shown for a direction
func Indicator(dir midiserial.Direction) string {
	if dir == midiserial.DirectionTx {
		return "↗ tx"
	}
	return "↙ rx"
}

// Status summarises the delivery result
func Status(msg TrafficMsg) string {
	if msg.Err != nil {
		return "✗ error"
	}
	return "✓"
}
