// Package config loads the runtime configuration of midiserial from flags,
// MIDISERIAL_* environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/allbin/midiserial"
	"github.com/allbin/midiserial/internal/mididrv"
)

// EnvPrefix is prepended to every environment variable
const EnvPrefix = "MIDISERIAL"

// Unset marks an endpoint index that was not given
const Unset = -1

// Keys, also used as flag names
const (
	KeyPort     = "port"
	KeySpeed    = "speed"
	KeyVerbose  = "verbose"
	KeyInput    = "input"
	KeyOutput   = "output"
	KeyCreate   = "create"
	KeyList     = "list"
	KeyLogFile  = "log-file"
	KeyMaxSysEx = "max-sysex"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Port     string `mapstructure:"port"`
	Speed    int    `mapstructure:"speed"`
	Verbose  bool   `mapstructure:"verbose"`
	Input    int    `mapstructure:"input"`
	Output   int    `mapstructure:"output"`
	Create   string `mapstructure:"create"`
	List     bool   `mapstructure:"list"`
	LogFile  string `mapstructure:"log-file"`
	MaxSysEx int    `mapstructure:"max-sysex"`
}

// SetDefaults registers every key so environment variables are seen by
// Unmarshal even when no flag or file mentions them
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, midiserial.DefaultPath)
	v.SetDefault(KeySpeed, midiserial.DefaultSpeed)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyInput, Unset)
	v.SetDefault(KeyOutput, Unset)
	v.SetDefault(KeyCreate, "")
	v.SetDefault(KeyList, false)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyMaxSysEx, midiserial.DefaultMaxSysExLength)
}

// AddBridgeFlags defines the flags shared by every command that runs a bridge
func AddBridgeFlags(flags *pflag.FlagSet) {
	flags.StringP(KeyPort, "p", midiserial.DefaultPath, "Serial port")
	flags.IntP(KeySpeed, "s", midiserial.DefaultSpeed, "Serial speed in baud")
	flags.BoolP(KeyVerbose, "v", false, "Log every message sent and received")
	flags.IntP(KeyInput, "i", Unset, "MIDI input device index (see list)")
	flags.IntP(KeyOutput, "o", Unset, "MIDI output device index (see list)")
	flags.StringP(KeyCreate, "c", "", "Create a virtual MIDI input/output with this name")
	flags.Int(KeyMaxSysEx, midiserial.DefaultMaxSysExLength, "Largest SysEx message accepted from the serial line")
}

// Setup prepares v for Load: defaults, environment and bound flags
func Setup(v *viper.Viper, flags *pflag.FlagSet) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("binding flags: %w", err)
		}
	}
	return nil
}

// Load reads file, if given, and returns the validated configuration
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: port must not be empty", ErrInvalid)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("%w: speed must be positive, got %d", ErrInvalid, c.Speed)
	}
	if c.Input < Unset || c.Output < Unset {
		return fmt.Errorf("%w: device indices must not be negative", ErrInvalid)
	}
	if c.Create != "" && (c.Input != Unset || c.Output != Unset) {
		return fmt.Errorf("%w: --create cannot be combined with --input or --output", ErrInvalid)
	}
	if c.MaxSysEx < 0 {
		return fmt.Errorf("%w: max-sysex must not be negative", ErrInvalid)
	}
	return nil
}

// Selection returns the MIDI endpoints to open
func (c *Config) Selection() mididrv.Selection {
	return mididrv.Selection{
		Input:  c.Input,
		Output: c.Output,
		Create: c.Create,
	}
}
