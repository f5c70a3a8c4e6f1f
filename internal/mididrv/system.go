package mididrv

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gitlab.com/gomidi/midi"

	"github.com/allbin/midiserial"
)

// DefaultVirtualName names the ports created when no device is selected
const DefaultVirtualName = "MidiSerial"

// VirtualDriver is a driver that can publish ports of its own
type VirtualDriver interface {
	midi.Driver
	OpenVirtualIn(name string) (midi.In, error)
	OpenVirtualOut(name string) (midi.Out, error)
}

// Device describes one MIDI port by its driver index
type Device struct {
	Index int
	Name  string
}

// Selection picks the event-side endpoints for a bridge. A negative index
// leaves that direction unselected. When neither index is set, a virtual
// input and output named Create (or DefaultVirtualName) are created.
type Selection struct {
	Input  int
	Output int
	Create string
}

// Option configures a System
type Option func(*System)

// WithLogger sets the logger used for port lifecycle events
func WithLogger(log zerolog.Logger) Option {
	return func(s *System) {
		s.log = log
	}
}

// System is the process-wide handle on the MIDI driver. Every port opened
// through it is closed by Close, before the driver itself.
type System struct {
	drv midi.Driver
	log zerolog.Logger

	mu     sync.Mutex
	ports  []midi.Port
	closed bool
}

// NewSystem wraps an already initialised driver
func NewSystem(drv midi.Driver, opts ...Option) *System {
	s := &System{
		drv: drv,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Driver returns the name of the underlying driver
func (s *System) Driver() string {
	return s.drv.String()
}

// Inputs lists the available MIDI input devices
func (s *System) Inputs() ([]Device, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	ins, err := s.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI inputs: %w", err)
	}
	devices := make([]Device, len(ins))
	for i, in := range ins {
		devices[i] = Device{Index: i, Name: in.String()}
	}
	return devices, nil
}

// Outputs lists the available MIDI output devices
func (s *System) Outputs() ([]Device, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	outs, err := s.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs: %w", err)
	}
	devices := make([]Device, len(outs))
	for i, out := range outs {
		devices[i] = Device{Index: i, Name: out.String()}
	}
	return devices, nil
}

// OpenInput opens the input device at index
func (s *System) OpenInput(index int) (*Input, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	ins, err := s.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI inputs: %w", err)
	}
	if index < 0 || index >= len(ins) {
		return nil, fmt.Errorf("%w: input %d (have %d)", ErrNoDevice, index, len(ins))
	}

	port := ins[index]
	if err := s.open(port); err != nil {
		return nil, fmt.Errorf("opening MIDI input %q: %w", port.String(), err)
	}
	s.log.Debug().Int("index", index).Str("name", port.String()).Msg("opened MIDI input")
	return newInput(s, port), nil
}

// OpenOutput opens the output device at index
func (s *System) OpenOutput(index int) (*Output, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	outs, err := s.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs: %w", err)
	}
	if index < 0 || index >= len(outs) {
		return nil, fmt.Errorf("%w: output %d (have %d)", ErrNoDevice, index, len(outs))
	}

	port := outs[index]
	if err := s.open(port); err != nil {
		return nil, fmt.Errorf("opening MIDI output %q: %w", port.String(), err)
	}
	s.log.Debug().Int("index", index).Str("name", port.String()).Msg("opened MIDI output")
	return newOutput(s, port), nil
}

// CreateVirtual publishes a virtual input and output under name so other
// applications can connect to the bridge
func (s *System) CreateVirtual(name string) (*Input, *Output, error) {
	if err := s.check(); err != nil {
		return nil, nil, err
	}
	vd, ok := s.drv.(VirtualDriver)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrVirtualUnsupported, s.drv.String())
	}

	outPort, err := vd.OpenVirtualOut(name)
	if err != nil {
		return nil, nil, fmt.Errorf("creating virtual MIDI output %q: %w", name, err)
	}
	if err := s.open(outPort); err != nil {
		return nil, nil, fmt.Errorf("creating virtual MIDI output %q: %w", name, err)
	}
	out := newOutput(s, outPort)

	inPort, err := vd.OpenVirtualIn(name)
	if err == nil {
		err = s.open(inPort)
	}
	if err != nil {
		_ = out.Close()
		return nil, nil, fmt.Errorf("creating virtual MIDI input %q: %w", name, err)
	}

	s.log.Debug().Str("name", name).Msg("created virtual MIDI ports")
	return newInput(s, inPort), out, nil
}

// Endpoints opens what sel asks for. Unselected directions come back as
// nil interfaces so they can be passed straight to a bridge.
func (s *System) Endpoints(sel Selection) (midiserial.Input, midiserial.Output, error) {
	var (
		in  midiserial.Input
		out midiserial.Output
	)

	if sel.Output >= 0 {
		o, err := s.OpenOutput(sel.Output)
		if err != nil {
			return nil, nil, err
		}
		out = o
	}
	if sel.Input >= 0 {
		i, err := s.OpenInput(sel.Input)
		if err != nil {
			if out != nil {
				_ = out.Close()
			}
			return nil, nil, err
		}
		in = i
	}
	if in != nil || out != nil {
		return in, out, nil
	}

	name := sel.Create
	if name == "" {
		name = DefaultVirtualName
	}
	i, o, err := s.CreateVirtual(name)
	if err != nil {
		return nil, nil, err
	}
	return i, o, nil
}

// Close closes every port still open, then the driver. It is safe to call
// more than once.
func (s *System) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ports := s.ports
	s.ports = nil
	s.mu.Unlock()

	var result *multierror.Error
	for _, port := range ports {
		if in, ok := port.(midi.In); ok {
			_ = in.StopListening()
		}
		if err := port.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("closing %q: %w", port.String(), err))
		}
	}
	if err := s.drv.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing MIDI driver: %w", err))
	}
	return result.ErrorOrNil()
}

func (s *System) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSystemClosed
	}
	return nil
}

func (s *System) open(port midi.Port) error {
	if !port.IsOpen() {
		if err := port.Open(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.ports = append(s.ports, port)
	s.mu.Unlock()
	return nil
}

// release closes port and stops tracking it. Ports already released by
// System.Close are left alone.
func (s *System) release(port midi.Port) error {
	s.mu.Lock()
	found := false
	for i, p := range s.ports {
		if p == port {
			s.ports = append(s.ports[:i], s.ports[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return nil
	}
	return port.Close()
}
