package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/mididrv"
)

func TestRenderSimple(t *testing.T) {
	l := deviceListing{
		outputs: []mididrv.Device{{Index: 0, Name: "Synth"}},
		inputs:  []mididrv.Device{{Index: 0, Name: "Keystation"}, {Index: 1, Name: "Launchpad"}},
		ports:   []midiserial.PortInfo{{Name: "ttyUSB0", Path: "/dev/ttyUSB0"}},
	}

	var buf bytes.Buffer
	renderSimple(&buf, l)

	want := `MIDI output devices:
0: Synth
MIDI input devices:
0: Keystation
1: Launchpad
Serial ports:
/dev/ttyUSB0
`
	if buf.String() != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestRenderSimpleWithoutMIDI(t *testing.T) {
	l := deviceListing{
		midiErr: mididrv.ErrUnavailable,
		ports:   []midiserial.PortInfo{{Name: "ttyS1", Path: "/dev/ttyS1"}},
	}

	var buf bytes.Buffer
	renderSimple(&buf, l)

	if !strings.Contains(buf.String(), "MIDI devices unavailable") {
		t.Errorf("Expected MIDI error to be reported, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "/dev/ttyS1") {
		t.Errorf("Expected serial ports to be listed, got:\n%s", buf.String())
	}
}

func TestRenderTables(t *testing.T) {
	l := deviceListing{
		outputs:  []mididrv.Device{{Index: 0, Name: "Synth"}},
		portsErr: errors.New("permission denied"),
	}

	var buf bytes.Buffer
	renderTables(&buf, l)

	for _, want := range []string{"MIDI output devices (1)", "Synth", "MIDI input devices (0)", "permission denied"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, buf.String())
		}
	}
}

func TestGetPortType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"ttyUSB0", "USB Serial"},
		{"ttyACM1", "USB CDC/ACM"},
		{"ttyAMA0", "ARM Serial"},
		{"ttyS1", "Standard Serial"},
		{"ttyO2", "OMAP Serial"},
		{"rfcomm0", "Serial Port"},
	}

	for _, tt := range tests {
		if got := getPortType(tt.name); got != tt.want {
			t.Errorf("getPortType(%q) = %q, expected %q", tt.name, got, tt.want)
		}
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer

	quiet := newLogger(&buf, false)
	quiet.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected debug to be filtered, got %q", buf.String())
	}

	log := newLogger(&buf, true)
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level when verbose, got %s", log.GetLevel())
	}
	log.Debug().Str("dir", "rx").Msg("shown")
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "dir=rx") {
		t.Errorf("Expected console output with fields, got %q", buf.String())
	}
}

func TestRootHelpNamesNativeBuildTag(t *testing.T) {
	if !strings.Contains(rootCmd.Long, "-tags midi_native") {
		t.Errorf("Expected root help to mention the midi_native build tag, got %q", rootCmd.Long)
	}
}
