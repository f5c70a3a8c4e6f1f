//go:build !midi_native

package mididrv

// Open reports ErrUnavailable. Build with -tags midi_native for the RtMidi
// backend.
func Open(opts ...Option) (*System, error) {
	return nil, ErrUnavailable
}
