package components

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/midiserial/internal/tui/colors"
)

// DefaultMaxRows bounds the traffic history kept by the table
const DefaultMaxRows = 2000

type ViewMode int

const (
	ViewModeFollow ViewMode = iota
	ViewModeScroll
)

func (v ViewMode) String() string {
	if v == ViewModeScroll {
		return "SCROLL"
	}
	return "FOLLOW"
}

type TrafficTable struct {
	table     table.Model
	formatter *DataFormatter
	viewMode  ViewMode
	rawData   []TrafficMsg
	maxRows   int
	width     int
}

func NewTrafficTable(width, height int) *TrafficTable {
	if width < 60 {
		width = 60
	}
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithFocused(false),
		table.WithHeight(height),
		table.WithWidth(width),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Text).
		Background(colors.Surface1).
		Bold(false)
	t.SetStyles(s)

	tt := &TrafficTable{
		table:     t,
		formatter: NewDataFormatter(DefaultDisplayMode()),
		viewMode:  ViewModeFollow,
		maxRows:   DefaultMaxRows,
		width:     width,
	}
	tt.updateColumns()
	return tt
}

func (tt *TrafficTable) SetSize(width, height int) {
	if width < 60 {
		width = 60
	}
	tt.width = width
	tt.updateColumns()
	tt.table.SetHeight(height)
	tt.table.SetWidth(width)
	tt.table.UpdateViewport()
}

// SetMaxRows changes the history bound; older rows are dropped first
func (tt *TrafficTable) SetMaxRows(n int) {
	if n < 1 {
		n = 1
	}
	tt.maxRows = n
	tt.trim()
	tt.refreshTable()
}

// updateColumns sizes the fixed columns and gives the rest to the flexible one
func (tt *TrafficTable) updateColumns() {
	cols := tt.formatter.Columns()

	fixed := 0
	flex := -1
	for i, c := range cols {
		if c.Width == 0 {
			flex = i
			continue
		}
		// cell padding on both sides
		fixed += c.Width + 2
	}

	columns := make([]table.Column, len(cols))
	for i, c := range cols {
		columns[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	if flex >= 0 {
		remaining := tt.width - fixed - 2
		if remaining < 12 {
			remaining = 12
		}
		columns[flex].Width = remaining
	}

	// rows must match the new column count before the columns change
	tt.table.SetRows(nil)
	tt.table.SetColumns(columns)
}

func (tt *TrafficTable) AddMessage(msg TrafficMsg) {
	tt.rawData = append(tt.rawData, msg)
	tt.trim()
	tt.refreshTable()

	if tt.viewMode == ViewModeFollow {
		tt.table.GotoBottom()
	}
}

func (tt *TrafficTable) trim() {
	if over := len(tt.rawData) - tt.maxRows; over > 0 {
		tt.rawData = append(tt.rawData[:0], tt.rawData[over:]...)
	}
}

func (tt *TrafficTable) refreshTable() {
	cells := tt.formatter.FormatRows(tt.rawData)
	rows := make([]table.Row, len(cells))
	for i, c := range cells {
		rows[i] = table.Row(c)
	}
	tt.table.SetRows(rows)
	tt.table.UpdateViewport()
}

func (tt *TrafficTable) Len() int {
	return len(tt.rawData)
}

func (tt *TrafficTable) Clear() {
	tt.rawData = nil
	tt.table.SetRows([]table.Row{})
}

func (tt *TrafficTable) ToggleHex() {
	tt.formatter.ToggleHex()
	tt.updateColumns()
	tt.refreshTable()
}

func (tt *TrafficTable) ToggleKind() {
	tt.formatter.ToggleKind()
	tt.updateColumns()
	tt.refreshTable()
}

func (tt *TrafficTable) ToggleTimestamps() {
	tt.formatter.ToggleTimestamps()
	tt.updateColumns()
	tt.refreshTable()
}

func (tt *TrafficTable) GetDisplayMode() DisplayMode {
	return tt.formatter.GetDisplayMode()
}

func (tt *TrafficTable) GetViewMode() ViewMode {
	return tt.viewMode
}

func (tt *TrafficTable) ToggleViewMode() {
	if tt.viewMode == ViewModeFollow {
		tt.SetViewMode(ViewModeScroll)
	} else {
		tt.SetViewMode(ViewModeFollow)
	}
}

func (tt *TrafficTable) SetViewMode(mode ViewMode) {
	tt.viewMode = mode
	if mode == ViewModeFollow {
		if len(tt.rawData) > 0 {
			tt.table.SetCursor(len(tt.rawData) - 1)
		}
		tt.table.GotoBottom()
		tt.table.Blur()
	} else {
		tt.table.Focus()
	}
	tt.table.UpdateViewport()
}

func (tt *TrafficTable) Update(msg tea.Msg) (*TrafficTable, tea.Cmd) {
	var cmd tea.Cmd

	// navigation only while scrolling
	if tt.viewMode == ViewModeScroll {
		tt.table, cmd = tt.table.Update(msg)
	}
	return tt, cmd
}

func (tt *TrafficTable) View() string {
	return tt.table.View()
}
