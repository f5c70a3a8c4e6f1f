package mididrv

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"gitlab.com/gomidi/midi"

	"github.com/allbin/midiserial"
)

// Input delivers messages from a MIDI input port to a handler
type Input struct {
	sys  *System
	port midi.In

	mu        sync.Mutex
	listening bool
	closed    bool
}

func newInput(sys *System, port midi.In) *Input {
	return &Input{sys: sys, port: port}
}

// Name returns the port name as reported by the driver
func (in *Input) Name() string {
	return in.port.String()
}

// Start installs h as the port listener. The driver calls it on its own
// goroutine with one complete message per call.
func (in *Input) Start(h midiserial.Handler) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return midiserial.ErrPortClosed
	}
	if in.listening {
		return ErrAlreadyListening
	}

	err := in.port.SetListener(func(data []byte, _ int64) {
		if len(data) == 0 {
			return
		}
		// the driver reuses its buffer
		h(midiserial.Message(append([]byte(nil), data...)))
	})
	if err != nil {
		return fmt.Errorf("listening on %q: %w", in.port.String(), err)
	}
	in.listening = true
	return nil
}

// Stop removes the listener. Stopping an idle input is a no-op.
func (in *Input) Stop() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.listening {
		return nil
	}
	in.listening = false
	if err := in.port.StopListening(); err != nil {
		return fmt.Errorf("stop listening on %q: %w", in.port.String(), err)
	}
	return nil
}

// Close stops listening and closes the port
func (in *Input) Close() error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil
	}
	in.closed = true
	listening := in.listening
	in.listening = false
	in.mu.Unlock()

	var result *multierror.Error
	if listening {
		if err := in.port.StopListening(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := in.sys.release(in.port); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing %q: %w", in.port.String(), err))
	}
	return result.ErrorOrNil()
}

// Output sends messages to a MIDI output port
type Output struct {
	sys  *System
	port midi.Out

	mu     sync.Mutex
	closed bool
}

func newOutput(sys *System, port midi.Out) *Output {
	return &Output{sys: sys, port: port}
}

// Name returns the port name as reported by the driver
func (o *Output) Name() string {
	return o.port.String()
}

// Send writes msg to the port immediately
func (o *Output) Send(msg midiserial.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return midiserial.ErrPortClosed
	}
	n, err := o.port.Write(msg)
	if err != nil {
		return fmt.Errorf("writing to %q: %w", o.port.String(), err)
	}
	if n != len(msg) {
		return fmt.Errorf("%w: %d of %d bytes to %q", midiserial.ErrShortWrite, n, len(msg), o.port.String())
	}
	return nil
}

// Close closes the port
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.sys.release(o.port); err != nil {
		return fmt.Errorf("closing %q: %w", o.port.String(), err)
	}
	return nil
}
