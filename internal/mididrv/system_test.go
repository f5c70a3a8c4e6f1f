package mididrv

import (
	"errors"
	"sync"
	"testing"

	"gitlab.com/gomidi/midi"

	"github.com/allbin/midiserial"
)

type fakePort struct {
	mu         sync.Mutex
	name       string
	number     int
	open       bool
	openErr    error
	closeCount int
}

func (p *fakePort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return p.openErr
	}
	p.open = true
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = false
	p.closeCount++
	return nil
}

func (p *fakePort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

func (p *fakePort) Number() int             { return p.number }
func (p *fakePort) String() string          { return p.name }
func (p *fakePort) Underlying() interface{} { return nil }

type fakeIn struct {
	fakePort
	listener func([]byte, int64)
	stopped  int
}

func (p *fakeIn) SetListener(fn func([]byte, int64)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = fn
	return nil
}

func (p *fakeIn) StopListening() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = nil
	p.stopped++
	return nil
}

// emit plays the driver side, reusing one buffer like native drivers do
func (p *fakeIn) emit(buf []byte, data ...byte) {
	p.mu.Lock()
	fn := p.listener
	p.mu.Unlock()
	n := copy(buf, data)
	if fn != nil {
		fn(buf[:n], 0)
	}
}

type fakeOut struct {
	fakePort
	written  [][]byte
	shortBy  int
	writeErr error
}

func (p *fakeOut) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, append([]byte(nil), b...))
	return len(b) - p.shortBy, nil
}

type fakeDriver struct {
	ins     []*fakeIn
	outs    []*fakeOut
	closed  int
	virtIns []*fakeIn
	virtOut []*fakeOut
}

func (d *fakeDriver) Ins() ([]midi.In, error) {
	ins := make([]midi.In, len(d.ins))
	for i, in := range d.ins {
		ins[i] = in
	}
	return ins, nil
}

func (d *fakeDriver) Outs() ([]midi.Out, error) {
	outs := make([]midi.Out, len(d.outs))
	for i, out := range d.outs {
		outs[i] = out
	}
	return outs, nil
}

func (d *fakeDriver) String() string { return "fake" }

func (d *fakeDriver) Close() error {
	d.closed++
	return nil
}

// fakeVirtualDriver can also publish its own ports
type fakeVirtualDriver struct {
	fakeDriver
}

func (d *fakeVirtualDriver) OpenVirtualIn(name string) (midi.In, error) {
	in := &fakeIn{fakePort: fakePort{name: name, open: true}}
	d.virtIns = append(d.virtIns, in)
	return in, nil
}

func (d *fakeVirtualDriver) OpenVirtualOut(name string) (midi.Out, error) {
	out := &fakeOut{fakePort: fakePort{name: name, open: true}}
	d.virtOut = append(d.virtOut, out)
	return out, nil
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		ins: []*fakeIn{
			{fakePort: fakePort{name: "Keystation", number: 0}},
			{fakePort: fakePort{name: "Launchpad", number: 1}},
		},
		outs: []*fakeOut{
			{fakePort: fakePort{name: "Synth", number: 0}},
		},
	}
}

func TestListDevices(t *testing.T) {
	sys := NewSystem(newFakeDriver())

	ins, err := sys.Inputs()
	if err != nil {
		t.Fatalf("Inputs failed: %v", err)
	}
	if len(ins) != 2 || ins[1] != (Device{Index: 1, Name: "Launchpad"}) {
		t.Errorf("Unexpected inputs: %+v", ins)
	}

	outs, err := sys.Outputs()
	if err != nil {
		t.Fatalf("Outputs failed: %v", err)
	}
	if len(outs) != 1 || outs[0].Name != "Synth" {
		t.Errorf("Unexpected outputs: %+v", outs)
	}
}

func TestOpenOutOfRange(t *testing.T) {
	sys := NewSystem(newFakeDriver())

	if _, err := sys.OpenInput(2); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice for input 2, got %v", err)
	}
	if _, err := sys.OpenOutput(-1); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice for output -1, got %v", err)
	}
}

func TestOpenFailurePropagates(t *testing.T) {
	drv := newFakeDriver()
	drv.outs[0].openErr = errors.New("device busy")
	sys := NewSystem(drv)

	if _, err := sys.OpenOutput(0); err == nil {
		t.Error("Expected error opening a busy device")
	}
}

func TestInputDeliversCopies(t *testing.T) {
	drv := newFakeDriver()
	sys := NewSystem(drv)

	in, err := sys.OpenInput(0)
	if err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	if !drv.ins[0].IsOpen() {
		t.Error("Expected port to be opened")
	}

	var got []midiserial.Message
	if err := in.Start(func(msg midiserial.Message) { got = append(got, msg) }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := in.Start(func(midiserial.Message) {}); !errors.Is(err, ErrAlreadyListening) {
		t.Errorf("Expected ErrAlreadyListening, got %v", err)
	}

	buf := make([]byte, 3)
	drv.ins[0].emit(buf, 0x90, 0x3C, 0x7F)
	drv.ins[0].emit(buf, 0x80, 0x3C, 0x00)
	drv.ins[0].emit(buf)

	if len(got) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(got))
	}
	if !got[0].Equal(midiserial.Message{0x90, 0x3C, 0x7F}) {
		t.Errorf("Expected first message to survive buffer reuse, got %v", got[0])
	}

	if err := in.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	drv.ins[0].emit(buf, 0xF8)
	if len(got) != 2 {
		t.Errorf("Expected no delivery after Stop, got %d messages", len(got))
	}

	if err := in.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := in.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if drv.ins[0].closeCount != 1 {
		t.Errorf("Expected port closed once, got %d", drv.ins[0].closeCount)
	}
	if err := in.Start(func(midiserial.Message) {}); !errors.Is(err, midiserial.ErrPortClosed) {
		t.Errorf("Expected ErrPortClosed after Close, got %v", err)
	}
}

func TestOutputSend(t *testing.T) {
	drv := newFakeDriver()
	sys := NewSystem(drv)

	out, err := sys.OpenOutput(0)
	if err != nil {
		t.Fatalf("OpenOutput failed: %v", err)
	}

	if err := out.Send(midiserial.Message{0xC0, 0x05}); err != nil {
		t.Errorf("Send failed: %v", err)
	}
	if len(drv.outs[0].written) != 1 || string(drv.outs[0].written[0]) != "\xc0\x05" {
		t.Errorf("Unexpected writes: % x", drv.outs[0].written)
	}

	drv.outs[0].shortBy = 1
	if err := out.Send(midiserial.Message{0x90, 0x3C, 0x7F}); !errors.Is(err, midiserial.ErrShortWrite) {
		t.Errorf("Expected ErrShortWrite, got %v", err)
	}

	if err := out.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := out.Send(midiserial.Message{0xF8}); !errors.Is(err, midiserial.ErrPortClosed) {
		t.Errorf("Expected ErrPortClosed after Close, got %v", err)
	}
}

func TestCreateVirtual(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		sys := NewSystem(newFakeDriver())
		if _, _, err := sys.CreateVirtual("Bridge"); !errors.Is(err, ErrVirtualUnsupported) {
			t.Errorf("Expected ErrVirtualUnsupported, got %v", err)
		}
	})

	t.Run("virtual driver", func(t *testing.T) {
		drv := &fakeVirtualDriver{fakeDriver: *newFakeDriver()}
		sys := NewSystem(drv)

		in, out, err := sys.CreateVirtual("Bridge")
		if err != nil {
			t.Fatalf("CreateVirtual failed: %v", err)
		}
		if in.Name() != "Bridge" || out.Name() != "Bridge" {
			t.Errorf("Expected ports named Bridge, got %q and %q", in.Name(), out.Name())
		}
	})
}

func TestEndpoints(t *testing.T) {
	tests := []struct {
		name      string
		sel       Selection
		wantIn    bool
		wantOut   bool
		wantVirt  string
		wantErrIs error
	}{
		{"input only", Selection{Input: 1, Output: -1}, true, false, "", nil},
		{"output only", Selection{Input: -1, Output: 0}, false, true, "", nil},
		{"both", Selection{Input: 0, Output: 0}, true, true, "", nil},
		{"default virtual", Selection{Input: -1, Output: -1}, true, true, DefaultVirtualName, nil},
		{"named virtual", Selection{Input: -1, Output: -1, Create: "Rack"}, true, true, "Rack", nil},
		{"bad input", Selection{Input: 5, Output: 0}, false, false, "", ErrNoDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &fakeVirtualDriver{fakeDriver: *newFakeDriver()}
			sys := NewSystem(drv)

			in, out, err := sys.Endpoints(tt.sel)
			if tt.wantErrIs != nil {
				if !errors.Is(err, tt.wantErrIs) {
					t.Fatalf("Expected %v, got %v", tt.wantErrIs, err)
				}
				if drv.outs[0].IsOpen() {
					t.Error("Expected output to be released after a failed selection")
				}
				return
			}
			if err != nil {
				t.Fatalf("Endpoints failed: %v", err)
			}

			if (in != nil) != tt.wantIn {
				t.Errorf("Expected input present=%v, got %v", tt.wantIn, in)
			}
			if (out != nil) != tt.wantOut {
				t.Errorf("Expected output present=%v, got %v", tt.wantOut, out)
			}
			if tt.wantVirt != "" {
				if len(drv.virtIns) != 1 || drv.virtIns[0].name != tt.wantVirt {
					t.Errorf("Expected virtual ports named %q", tt.wantVirt)
				}
			}
		})
	}
}

func TestSystemClose(t *testing.T) {
	drv := newFakeDriver()
	sys := NewSystem(drv)

	in, err := sys.OpenInput(0)
	if err != nil {
		t.Fatalf("OpenInput failed: %v", err)
	}
	if _, err := sys.OpenOutput(0); err != nil {
		t.Fatalf("OpenOutput failed: %v", err)
	}
	if err := in.Start(func(midiserial.Message) {}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := sys.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if drv.ins[0].IsOpen() || drv.outs[0].IsOpen() {
		t.Error("Expected all ports closed")
	}
	if drv.closed != 1 {
		t.Errorf("Expected driver closed once, got %d", drv.closed)
	}

	// closing an endpoint after the system leaves the port alone
	if err := in.Close(); err != nil {
		t.Errorf("Expected late endpoint Close to succeed, got %v", err)
	}
	if drv.ins[0].closeCount != 1 {
		t.Errorf("Expected port closed once, got %d", drv.ins[0].closeCount)
	}

	if err := sys.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if _, err := sys.Inputs(); !errors.Is(err, ErrSystemClosed) {
		t.Errorf("Expected ErrSystemClosed, got %v", err)
	}
}
