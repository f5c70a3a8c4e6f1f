package mididrv

import "errors"

var (
	// ErrUnavailable is returned when no native MIDI backend is compiled in
	ErrUnavailable = errors.New("native MIDI driver is not included in this build (build with -tags midi_native)")

	// ErrNoDevice is returned when a device index is out of range
	ErrNoDevice = errors.New("no such MIDI device")

	// ErrVirtualUnsupported is returned when the driver cannot create virtual ports
	ErrVirtualUnsupported = errors.New("MIDI driver cannot create virtual ports")

	// ErrSystemClosed is returned after the System has been closed
	ErrSystemClosed = errors.New("MIDI system closed")

	// ErrAlreadyListening is returned when Start is called on a running input
	ErrAlreadyListening = errors.New("MIDI input already started")
)
