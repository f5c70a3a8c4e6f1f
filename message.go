package midiserial

import (
	"fmt"
	"strings"
)

// Message is one fully framed MIDI message: a status byte followed by its
// data bytes. Its wire form on the serial side is the message itself.
type Message []byte

// Status bytes with special handling in the reassembler
const (
	StatusSysEx    byte = 0xF0
	StatusEndSysEx byte = 0xF7
)

// MessageLength returns the total length of a message starting with status.
// For system exclusive, variable is true and n is 0. ok is false for bytes
// that are not status bytes or have no defined message.
func MessageLength(status byte) (n int, variable bool, ok bool) {
	switch {
	case status < 0x80:
		return 0, false, false
	case status < 0xC0, status >= 0xE0 && status < 0xF0:
		return 3, false, true
	case status < 0xE0:
		return 2, false, true
	}

	switch status {
	case StatusSysEx:
		return 0, true, true
	case 0xF1, 0xF3:
		return 2, false, true
	case 0xF2:
		return 3, false, true
	case 0xF6:
		return 1, false, true
	case 0xF8, 0xFA, 0xFB, 0xFC, 0xFE, 0xFF:
		return 1, false, true
	default:
		// 0xF4, 0xF5, 0xF9, 0xFD are undefined; a lone 0xF7 has nothing to end
		return 0, false, false
	}
}

// IsStatus reports whether b has the high bit set
func IsStatus(b byte) bool {
	return b&0x80 != 0
}

// IsRealTime reports whether b is a system real-time status byte
func IsRealTime(b byte) bool {
	return b >= 0xF8
}

// IsChannelStatus reports whether b starts a channel voice message
func IsChannelStatus(b byte) bool {
	return b >= 0x80 && b < 0xF0
}

// Encode returns the bytes to transmit for msg. No framing is added.
func Encode(msg Message) []byte {
	return msg
}

// AppendEncoded appends the wire form of msg to dst
func AppendEncoded(dst []byte, msg Message) []byte {
	return append(dst, msg...)
}

// Status returns the status byte, or 0 for an empty message
func (m Message) Status() byte {
	if len(m) == 0 {
		return 0
	}
	return m[0]
}

// Channel returns the 0-based MIDI channel of a channel voice message
func (m Message) Channel() (uint8, bool) {
	if !IsChannelStatus(m.Status()) {
		return 0, false
	}
	return m[0] & 0x0F, true
}

// Kind names the message type
func (m Message) Kind() string {
	status := m.Status()
	if IsChannelStatus(status) {
		switch status & 0xF0 {
		case 0x80:
			return "note-off"
		case 0x90:
			return "note-on"
		case 0xA0:
			return "poly-aftertouch"
		case 0xB0:
			return "control-change"
		case 0xC0:
			return "program-change"
		case 0xD0:
			return "channel-aftertouch"
		case 0xE0:
			return "pitch-bend"
		}
	}
	switch status {
	case StatusSysEx:
		return "sysex"
	case 0xF1:
		return "mtc-quarter-frame"
	case 0xF2:
		return "song-position"
	case 0xF3:
		return "song-select"
	case 0xF6:
		return "tune-request"
	case 0xF8:
		return "clock"
	case 0xFA:
		return "start"
	case 0xFB:
		return "continue"
	case 0xFC:
		return "stop"
	case 0xFE:
		return "active-sensing"
	case 0xFF:
		return "reset"
	}
	return "unknown"
}

// Equal reports whether two messages carry the same bytes
func (m Message) Equal(other Message) bool {
	return string(m) == string(other)
}

// String formats the bytes as "0x90 0x3c 0x7f"
func (m Message) String() string {
	parts := make([]string, len(m))
	for i, b := range m {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, " ")
}
