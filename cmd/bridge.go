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
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/config"
	"github.com/allbin/midiserial/internal/mididrv"
)

// newLogger writes human readable logs to w, colored only on a terminal.
// Verbose enables debug output.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: w, NoColor: !isTerminal(w), TimeFormat: time.TimeOnly}
	return zerolog.New(console).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// session is one bridge together with the MIDI system it runs on
type session struct {
	system *mididrv.System
	bridge *midiserial.Bridge
	input  midiserial.Input
	output midiserial.Output
}

// openSession initialises the MIDI system, opens the selected endpoints and
// builds the bridge. Close must be called on every path once it succeeds.
func openSession(cfg *config.Config, log zerolog.Logger, opts ...midiserial.BridgeOption) (*session, error) {
	system, err := mididrv.Open(mididrv.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("initialising MIDI: %w", err)
	}

	in, out, err := system.Endpoints(cfg.Selection())
	if err != nil {
		_ = system.Close()
		return nil, err
	}
	logEndpoint(log, cfg.Verbose, "MIDI input", in)
	logEndpoint(log, cfg.Verbose, "MIDI output", out)

	opts = append([]midiserial.BridgeOption{
		midiserial.WithInput(in),
		midiserial.WithOutput(out),
		midiserial.WithLogger(log),
		midiserial.WithVerbose(cfg.Verbose),
		midiserial.WithMaxSysExLength(cfg.MaxSysEx),
	}, opts...)

	return &session{
		system: system,
		bridge: midiserial.NewBridge(cfg.Port, cfg.Speed, opts...),
		input:  in,
		output: out,
	}, nil
}

func logEndpoint(log zerolog.Logger, verbose bool, what string, endpoint any) {
	if name := endpointName(endpoint); verbose && name != "" {
		log.Info().Str("name", name).Msg("opening " + what)
	}
}

// Run bridges until ctx is cancelled
func (s *session) Run(ctx context.Context) error {
	return s.bridge.Run(ctx)
}

// Close releases the MIDI system. Endpoints released by the bridge are
// not closed twice.
func (s *session) Close() error {
	return s.system.Close()
}

// runBridge is the whole life of the root command
func runBridge(ctx context.Context, cfg *config.Config, log zerolog.Logger) (err error) {
	s, err := openSession(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
	}()

	log.Debug().Str("port", cfg.Port).Int("speed", cfg.Speed).Msg("starting bridge")
	if err := s.Run(ctx); err != nil {
		if errors.Is(err, midiserial.ErrOpenFailed) {
			return fmt.Errorf("cannot open %s: %w", cfg.Port, err)
		}
		return err
	}
	log.Debug().Msg("bridge stopped")
	return nil
}

// endpointName returns the driver name of an endpoint, or "" when absent
func endpointName(endpoint any) string {
	if named, ok := endpoint.(interface{ Name() string }); ok {
		return named.Name()
	}
	return ""
}
