//go:build midi_native

package mididrv

import (
	"fmt"

	"gitlab.com/gomidi/rtmididrv"
)

// Open initialises the RtMidi backend
func Open(opts ...Option) (*System, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv.New: %w", err)
	}
	return NewSystem(drv, opts...), nil
}
