package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/mididrv"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddBridgeFlags(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	v := viper.New()
	if err := Setup(v, flags); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(newViper(t), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Port != midiserial.DefaultPath {
		t.Errorf("Expected port %s, got %s", midiserial.DefaultPath, c.Port)
	}
	if c.Speed != midiserial.DefaultSpeed {
		t.Errorf("Expected speed %d, got %d", midiserial.DefaultSpeed, c.Speed)
	}
	if c.Input != Unset || c.Output != Unset {
		t.Errorf("Expected unset endpoints, got input %d output %d", c.Input, c.Output)
	}

	sel := c.Selection()
	if sel != (mididrv.Selection{Input: Unset, Output: Unset}) {
		t.Errorf("Expected default virtual selection, got %+v", sel)
	}
}

func TestLoadFlags(t *testing.T) {
	c, err := Load(newViper(t, "-p", "/dev/ttyUSB0", "-s", "31250", "-v", "-i", "1", "-o", "0"), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if c.Port != "/dev/ttyUSB0" || c.Speed != 31250 || !c.Verbose {
		t.Errorf("Unexpected config: %+v", c)
	}
	if c.Input != 1 || c.Output != 0 {
		t.Errorf("Expected input 1 output 0, got %d and %d", c.Input, c.Output)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("MIDISERIAL_SPEED", "115200")
	t.Setenv("MIDISERIAL_LOG_FILE", "/tmp/midiserial.log")

	c, err := Load(newViper(t), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Speed != 115200 {
		t.Errorf("Expected speed from environment, got %d", c.Speed)
	}
	if c.LogFile != "/tmp/midiserial.log" {
		t.Errorf("Expected log file from environment, got %q", c.LogFile)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midiserial.yaml")
	data := "port: /dev/ttyAMA0\nspeed: 57600\ncreate: Rack\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(newViper(t), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Port != "/dev/ttyAMA0" || c.Speed != 57600 || c.Create != "Rack" {
		t.Errorf("Unexpected config: %+v", c)
	}

	// flags win over the file
	c, err = Load(newViper(t, "-s", "9600"), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Speed != 9600 {
		t.Errorf("Expected flag to override file, got %d", c.Speed)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(newViper(t), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{Port: "/dev/ttyS1", Speed: 38400, Input: Unset, Output: Unset}

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"zero speed", func(c *Config) { c.Speed = 0 }},
		{"negative speed", func(c *Config) { c.Speed = -9600 }},
		{"negative input", func(c *Config) { c.Input = -2 }},
		{"create with input", func(c *Config) { c.Create = "Rack"; c.Input = 0 }},
		{"create with output", func(c *Config) { c.Create = "Rack"; c.Output = 1 }},
		{"negative sysex limit", func(c *Config) { c.MaxSysEx = -1 }},
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.modify(&c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}
