package midiserial

import "time"

const (
	// DefaultPath is the serial device used when none is configured.
	DefaultPath = "/dev/ttyS1"
	// DefaultSpeed is the serial line speed used when none is configured.
	DefaultSpeed = 38400
	// DefaultChunkSize is the largest single read from the serial device.
	DefaultChunkSize = 255
)

// Config holds the configuration for a serial channel
type Config struct {
	Speed        int
	ChunkSize    int
	PollInterval time.Duration // upper bound on one wait for input
}

// Option is a functional option for configuring a serial channel
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Speed:        DefaultSpeed,
		ChunkSize:    DefaultChunkSize,
		PollInterval: 100 * time.Millisecond,
	}
}

// WithSpeed sets the line speed. Speeds without a termios constant are
// accepted here and reported as a configuration warning on open.
func WithSpeed(speed int) Option {
	return func(c *Config) error {
		if speed <= 0 {
			return ErrInvalidBaudRate
		}
		c.Speed = speed
		return nil
	}
}

// WithChunkSize sets the read buffer size (1-65536)
func WithChunkSize(size int) Option {
	return func(c *Config) error {
		if size < 1 || size > 65536 {
			return ErrInvalidConfig
		}
		c.ChunkSize = size
		return nil
	}
}

// WithPollInterval sets how long a read waits before reporting an empty read
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) error {
		if d < time.Millisecond {
			return ErrInvalidConfig
		}
		c.PollInterval = d
		return nil
	}
}
