package midiserial

import "errors"

// Predefined error types for robust error handling
var (
	// ErrOpenFailed is fatal: the serial device could not be opened.
	ErrOpenFailed = errors.New("failed to open serial device")
	// ErrConfigWarning marks line settings that could not be fully applied.
	// The channel stays usable.
	ErrConfigWarning = errors.New("serial configuration not fully applied")
	// ErrIO wraps a single failed read or write.
	ErrIO = errors.New("serial I/O error")

	ErrPortClosed      = errors.New("serial channel is closed")
	ErrShortWrite      = errors.New("short write")
	ErrHangup          = errors.New("serial device hung up")
	ErrInvalidBaudRate = errors.New("invalid baud rate")
	ErrInvalidConfig   = errors.New("invalid serial configuration")

	// ErrNoChannel is returned for events that arrive while the bridge
	// has no open serial channel.
	ErrNoChannel = errors.New("bridge has no open serial channel")
)
