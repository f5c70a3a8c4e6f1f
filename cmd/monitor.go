/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/config"
	"github.com/allbin/midiserial/internal/tui/colors"
	"github.com/allbin/midiserial/internal/tui/components"
	"github.com/allbin/midiserial/internal/tui/keys"
	"github.com/allbin/midiserial/internal/tui/models"
	"github.com/allbin/midiserial/internal/tui/styles"
)

// statsInterval is how often the status bar counters refresh
const statsInterval = 500 * time.Millisecond

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the bridge with a live traffic display",
	Long: `Run the bridge like the root command and show MIDI traffic in a terminal UI.

Every message reassembled from the serial port (rx) and every message written
to it (tx) is listed with its kind, channel and bytes. Logs are shown in a
pane below the traffic and can be copied to a file with --log-file.

Example usage:
  midiserial monitor -p /dev/ttyUSB0 -s 31250
  midiserial monitor -p /dev/ttyAMA0 -i 1 -o 0 --log-file bridge.log`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runMonitorTUI(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	config.AddBridgeFlags(monitorCmd.Flags())
	monitorCmd.Flags().String(config.KeyLogFile, "", "Also write logs to this file")
}

// monitorModel represents the Bubble Tea model for the monitor command
type monitorModel struct {
	*models.BridgeModel
	table     *components.TrafficTable
	logs      *components.LogPane
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.MonitorKeys
	bridge    *midiserial.Bridge
}

// trafficObserver forwards bridged messages to the program
type trafficObserver struct {
	send func(tea.Msg)
}

func (o trafficObserver) ObserveMessage(dir midiserial.Direction, msg midiserial.Message, err error) {
	o.send(components.TrafficMsg{
		Timestamp: time.Now(),
		Dir:       dir,
		Message:   msg,
		Err:       err,
	})
}

func runMonitorTUI(ctx context.Context, cfg *config.Config) (err error) {
	m := &monitorModel{
		BridgeModel: models.NewBridgeModel(ctx, cfg.Port),
		table:       components.NewTrafficTable(80, 15),
		logs:        components.NewLogPane(80, 4),
		statusBar:   components.NewStatusBar("MIDI Monitor", cfg.Port),
		help:        help.New(),
		keys:        keys.NewMonitorKeys(),
	}
	m.statusBar.SetOpening()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.GetContext()))

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: components.NewLogWriter(p.Send), NoColor: true, TimeFormat: time.TimeOnly},
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		writers = append(writers, zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.RFC3339})
	}
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()

	done := make(chan error, 1)
	go func() {
		done <- monitorBridge(m.GetContext(), cfg, log, p.Send)
	}()

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		// the signal context ended the program
		err = nil
	}

	m.Cancel()
	if runErr := <-done; runErr != nil {
		return runErr
	}
	return err
}

// bridgeOpenedMsg hands the running bridge to the program
type bridgeOpenedMsg struct {
	bridge *midiserial.Bridge
	info   components.BridgeInfo
}

// monitorBridge opens the session and runs it until ctx ends. Logging
// sends to the program, so it must not run on the program's goroutine.
func monitorBridge(ctx context.Context, cfg *config.Config, log zerolog.Logger, send func(tea.Msg)) (err error) {
	s, err := openSession(cfg, log, midiserial.WithObserver(trafficObserver{send: send}))
	if err != nil {
		send(models.BridgeStatusMsg{State: styles.StateFailed, Err: err})
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing MIDI system")
			if err == nil {
				err = cerr
			}
		}
	}()

	send(bridgeOpenedMsg{
		bridge: s.bridge,
		info: components.BridgeInfo{
			Speed:  cfg.Speed,
			Input:  endpointName(s.input),
			Output: endpointName(s.output),
		},
	})
	send(models.BridgeStatusMsg{State: styles.StateRunning})

	err = s.Run(ctx)
	state := styles.StateStopped
	if err != nil {
		state = styles.StateFailed
	}
	send(models.BridgeStatusMsg{State: state, Err: err})
	return err
}

func tickStats() tea.Cmd {
	return tea.Tick(statsInterval, func(time.Time) tea.Msg {
		return statsTickMsg{}
	})
}

type statsTickMsg struct{}

func (m *monitorModel) Init() tea.Cmd {
	return tickStats()
}

func (m *monitorModel) layout(width, height int) {
	// status bar and the table border
	chrome := 2
	logHeight := 4
	tableHeight := height - chrome - logHeight - 1
	if tableHeight < 5 {
		tableHeight = 5
	}
	m.table.SetSize(width, tableHeight)
	m.logs.SetSize(width, logHeight)
	m.statusBar.SetWidth(width)
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)
		m.SetReady(true)

	case bridgeOpenedMsg:
		m.bridge = msg.bridge
		m.statusBar.SetInfo(&msg.info)

	case models.BridgeStatusMsg:
		m.Apply(msg)
		switch msg.State {
		case styles.StateRunning:
			m.statusBar.SetRunning()
		case styles.StateStopped, styles.StateFailed:
			m.statusBar.SetStopped(msg.Err)
		}

	case statsTickMsg:
		if m.bridge != nil {
			m.SetStats(m.bridge.Stats())
			m.statusBar.SetStats(m.GetStats())
		}
		cmds = append(cmds, tickStats())

	case components.TrafficMsg:
		m.table.AddMessage(msg)

	case components.LogLineMsg:
		m.logs.AddLine(msg.Line)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cancel()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Clear):
			m.table.Clear()
			m.logs.Clear()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleHex):
			m.table.ToggleHex()

		case key.Matches(msg, m.keys.ToggleKind):
			m.table.ToggleKind()

		case key.Matches(msg, m.keys.ToggleTimestamps):
			m.table.ToggleTimestamps()

		case key.Matches(msg, m.keys.ToggleFollow):
			m.table.ToggleViewMode()

		default:
			var cmd tea.Cmd
			m.table, cmd = m.table.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *monitorModel) View() string {
	if !m.IsReady() {
		return "Initializing..."
	}

	statusBar := m.statusBar.ComprehensiveStatusBar(
		m.GetState(),
		m.table.GetViewMode().String(),
		time.Now().Format("15:04:05"),
	)

	sections := []string{
		styles.ContentBorderStyle.Render(m.table.View()),
		styles.ContentBorderStyle.Render(m.logs.View()),
	}

	if m.help.ShowAll {
		helpStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(1, 2).
			Margin(1, 0)
		sections = append(sections, helpStyle.Render(m.help.View(m.keys)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, append(sections, statusBar)...)
}
