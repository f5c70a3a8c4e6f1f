package midiserial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// Channel is the byte transport a Bridge pumps through
type Channel interface {
	// ReadChunk waits for input and reads at most len(buf) bytes. A wait
	// that ends without data returns (0, nil).
	ReadChunk(ctx context.Context, buf []byte) (int, error)
	// Write transmits all of data or fails.
	Write(data []byte) error
	Close() error
}

// SerialChannel owns one open serial device. The line settings found at
// open time are restored when the channel is closed.
type SerialChannel struct {
	mu       sync.RWMutex
	fd       int
	path     string
	config   Config
	saved    *unix.Termios // nil when the device had no line settings to snapshot
	speed    int
	closed   bool
	warnings []error
}

// Ensure SerialChannel implements Channel at compile time
var _ Channel = (*SerialChannel)(nil)

// baudRates maps line speeds to their termios constants
var baudRates = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	if b, ok := baudRates[rate]; ok {
		return b, nil
	}
	return 0, ErrInvalidBaudRate
}

// speedOf converts a termios speed constant back to a baud rate, or 0
func speedOf(constant uint32) int {
	for rate, b := range baudRates {
		if b == constant {
			return rate
		}
	}
	return 0
}

// makeRaw applies raw framing: no echo, no line editing, no character
// translation, 8 data bits, no parity, no flow control, blocking reads.
func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
}

// setSpeed sets input and output speed in the termios structure
func setSpeed(t *unix.Termios, rate int) error {
	baud, err := getBaudRate(rate)
	if err != nil {
		return fmt.Errorf("%w: %d", err, rate)
	}
	t.Cflag = (t.Cflag &^ unix.CBAUD) | baud
	t.Ispeed = baud
	t.Ospeed = baud
	return nil
}

// OpenChannel opens the serial device at path for reading and writing.
//
// Only failing to open the device is an error (wrapping ErrOpenFailed).
// Line settings that cannot be read or applied leave the channel usable
// and are reported by Warnings.
func OpenChannel(path string, opts ...Option) (*SerialChannel, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	// Non-blocking while configuring so a device waiting on carrier cannot stall the open
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}

	c := &SerialChannel{
		fd:     fd,
		path:   path,
		config: config,
	}
	c.configure()

	if err := unix.SetNonblock(fd, false); err != nil {
		c.warn(fmt.Errorf("set blocking reads on %s: %w", path, err))
	}

	return c, nil
}

// configure snapshots the current line settings and applies raw mode and speed
func (c *SerialChannel) configure() {
	saved, err := unix.IoctlGetTermios(c.fd, unix.TCGETS)
	if err != nil {
		c.warn(fmt.Errorf("read line settings of %s: %w", c.path, err))
		return
	}
	c.saved = saved

	tio := *saved
	makeRaw(&tio)
	if err := setSpeed(&tio, c.config.Speed); err != nil {
		c.warn(fmt.Errorf("set speed on %s: %w", c.path, err))
	}
	if err := unix.IoctlSetTermios(c.fd, unix.TCSETS, &tio); err != nil {
		c.warn(fmt.Errorf("apply line settings to %s: %w", c.path, err))
		c.speed = speedOf(saved.Cflag & unix.CBAUD)
		return
	}
	c.speed = speedOf(tio.Cflag & unix.CBAUD)
}

func (c *SerialChannel) warn(err error) {
	c.warnings = append(c.warnings, fmt.Errorf("%w: %w", ErrConfigWarning, err))
}

// Warnings returns the configuration steps that failed during open.
// Every entry wraps ErrConfigWarning.
func (c *SerialChannel) Warnings() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]error(nil), c.warnings...)
}

// Path returns the device path
func (c *SerialChannel) Path() string {
	return c.path
}

// Speed returns the line speed in effect, or 0 when it is unknown
func (c *SerialChannel) Speed() int {
	return c.speed
}

// ReadChunk waits up to the configured poll interval for input, then reads
// at most one chunk. A cancelled ctx is reported before waiting.
func (c *SerialChannel) ReadChunk(ctx context.Context, buf []byte) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, ErrPortClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(buf) > c.config.ChunkSize {
		buf = buf[:c.config.ChunkSize]
	}

	timeout := c.config.PollInterval
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = max(remaining, time.Millisecond)
		}
	}

	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	ready, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: poll %s: %w", ErrIO, c.path, err)
	}
	if ready == 0 {
		return 0, nil
	}

	revents := fds[0].Revents
	if revents&unix.POLLIN == 0 && revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
		return 0, fmt.Errorf("%w: %s", ErrHangup, c.path)
	}

	n, err := unix.Read(c.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read %s: %w", ErrIO, c.path, err)
	}
	if n == 0 {
		// Readable with nothing to read is end of file
		return 0, fmt.Errorf("%w: %s: %w", ErrHangup, c.path, io.EOF)
	}
	return n, nil
}

// Write writes all of data. A short write is an error.
func (c *SerialChannel) Write(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrPortClosed
	}
	if len(data) == 0 {
		return nil
	}

	var (
		n   int
		err error
	)
	for {
		n, err = unix.Write(c.fd, data)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrIO, c.path, err)
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d of %d bytes to %s", ErrShortWrite, n, len(data), c.path)
	}
	return nil
}

// Close restores the line settings captured at open and closes the device.
// Calling Close again is a no-op.
func (c *SerialChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var result *multierror.Error
	if c.saved != nil {
		if err := unix.IoctlSetTermios(c.fd, unix.TCSETS, c.saved); err != nil {
			result = multierror.Append(result, fmt.Errorf("restore line settings of %s: %w", c.path, err))
		}
	}
	if err := unix.Close(c.fd); err != nil {
		result = multierror.Append(result, fmt.Errorf("close %s: %w", c.path, err))
	}
	return result.ErrorOrNil()
}

// IsFatal reports whether a read error means the device is gone and the
// read loop cannot continue.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrHangup), errors.Is(err, ErrPortClosed):
		return true
	case errors.Is(err, unix.EBADF), errors.Is(err, unix.EIO), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
		return true
	default:
		return false
	}
}
