/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/mididrv"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List MIDI devices and serial ports",
	Long: `List MIDI output devices, MIDI input devices and serial ports.

The index printed before each MIDI device is what -o and -i expect.
Serial ports include:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tableFormat, _ := cmd.Flags().GetBool("table")
		return listDevices(cmd.OutOrStdout(), tableFormat)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// deviceListing is everything list prints
type deviceListing struct {
	outputs  []mididrv.Device
	inputs   []mididrv.Device
	ports    []midiserial.PortInfo
	midiErr  error
	portsErr error
}

func collectDevices() deviceListing {
	var l deviceListing

	system, err := mididrv.Open()
	if err != nil {
		l.midiErr = err
	} else {
		defer system.Close()
		if l.outputs, err = system.Outputs(); err != nil {
			l.midiErr = err
		} else if l.inputs, err = system.Inputs(); err != nil {
			l.midiErr = err
		}
	}

	l.ports, l.portsErr = midiserial.ListPorts()
	return l
}

// listDevices prints MIDI outputs, MIDI inputs and serial ports. MIDI
// failures are reported inline so serial ports are still shown.
func listDevices(w io.Writer, tableFormat bool) error {
	l := collectDevices()
	if l.portsErr != nil && l.midiErr != nil {
		return errors.Join(l.midiErr, l.portsErr)
	}

	if tableFormat {
		renderTables(w, l)
	} else {
		renderSimple(w, l)
	}
	return nil
}

// renderSimple prints "index: name" lines per section
func renderSimple(w io.Writer, l deviceListing) {
	if l.midiErr != nil {
		fmt.Fprintf(w, "MIDI devices unavailable: %v\n", l.midiErr)
	} else {
		fmt.Fprintln(w, "MIDI output devices:")
		for _, d := range l.outputs {
			fmt.Fprintf(w, "%d: %s\n", d.Index, d.Name)
		}
		fmt.Fprintln(w, "MIDI input devices:")
		for _, d := range l.inputs {
			fmt.Fprintf(w, "%d: %s\n", d.Index, d.Name)
		}
	}

	fmt.Fprintln(w, "Serial ports:")
	if l.portsErr != nil {
		fmt.Fprintf(w, "  unavailable: %v\n", l.portsErr)
		return
	}
	for _, p := range l.ports {
		fmt.Fprintln(w, p.Path)
	}
}

var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	faintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Faint(true)
)

const (
	columnKeyIndex       = "index"
	columnKeyName        = "name"
	columnKeyPath        = "path"
	columnKeyType        = "type"
	columnKeyDescription = "description"
)

// renderTables prints each section as a bordered table
func renderTables(w io.Writer, l deviceListing) {
	if l.midiErr != nil {
		fmt.Fprintln(w, sectionStyle.Render("MIDI devices"))
		fmt.Fprintln(w, faintStyle.Render(l.midiErr.Error()))
	} else {
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("MIDI output devices (%d)", len(l.outputs))))
		fmt.Fprintln(w, midiTable(l.outputs))
		fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("MIDI input devices (%d)", len(l.inputs))))
		fmt.Fprintln(w, midiTable(l.inputs))
	}

	if l.portsErr != nil {
		fmt.Fprintln(w, sectionStyle.Render("Serial ports"))
		fmt.Fprintln(w, faintStyle.Render(l.portsErr.Error()))
		return
	}
	fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("Serial ports (%d)", len(l.ports))))
	fmt.Fprintln(w, portTable(l.ports))
}

func midiTable(devices []mididrv.Device) string {
	rows := make([]table.Row, len(devices))
	for i, d := range devices {
		rows[i] = table.NewRow(table.RowData{
			columnKeyIndex: strconv.Itoa(d.Index),
			columnKeyName:  d.Name,
		})
	}

	return table.New([]table.Column{
		table.NewColumn(columnKeyIndex, "#", 5),
		table.NewColumn(columnKeyName, "Name", 40),
	}).
		WithRows(rows).
		BorderRounded().
		View()
}

func portTable(ports []midiserial.PortInfo) string {
	rows := make([]table.Row, len(ports))
	for i, p := range ports {
		rows[i] = table.NewRow(table.RowData{
			columnKeyPath:        p.Path,
			columnKeyType:        getPortType(p.Name),
			columnKeyDescription: p.Description,
		})
	}

	return table.New([]table.Column{
		table.NewColumn(columnKeyPath, "Port", 16),
		table.NewColumn(columnKeyType, "Type", 18),
		table.NewColumn(columnKeyDescription, "Description", 30),
	}).
		WithRows(rows).
		BorderRounded().
		View()
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
