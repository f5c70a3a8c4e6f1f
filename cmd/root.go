/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/midiserial/internal/config"
)

var cfgFile string

var errorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("203"))

// rootCmd runs the bridge when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "midiserial",
	Short: "Bridge MIDI between a serial port and the MIDI system",
	Long: `Bridge MIDI messages between a serial port and MIDI devices.

Bytes read from the serial port are reassembled into MIDI messages (running
status included) and sent to the selected MIDI output. Messages from the
selected MIDI input are written to the serial port unchanged.

Without -i, -o or -c a virtual MIDI input and output named "MidiSerial" are
created for other applications to connect to.

MIDI devices are only available when built with the native driver:
  go build -tags midi_native ./cmd/midiserial

Example usage:
  midiserial -p /dev/ttyUSB0 -s 31250
  midiserial -p /dev/ttyAMA0 -i 1 -o 0 -v
  midiserial -c "Serial Synth"
  midiserial -l`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cfg.List {
			return listDevices(cmd.OutOrStdout(), false)
		}

		log := newLogger(os.Stderr, cfg.Verbose)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runBridge(ctx, cfg, log)
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")

	config.AddBridgeFlags(rootCmd.Flags())
	rootCmd.Flags().BoolP(config.KeyList, "l", false, "List MIDI input/output devices and exit")
}

// loadConfig merges the command's flags, the environment and the config file
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if err := config.Setup(v, cmd.Flags()); err != nil {
		return nil, err
	}
	return config.Load(v, cfgFile)
}
