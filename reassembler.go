package midiserial

// DefaultMaxSysExLength bounds the memory held by one system exclusive message
const DefaultMaxSysExLength = 64 * 1024

// Reassembler turns a serial byte stream into framed messages. It honours
// running status for channel voice messages and tolerates messages split
// across any number of reads.
//
// A Reassembler is not safe for concurrent use; the read loop owns it.
type Reassembler struct {
	runningStatus byte // 0 when no running status is in effect
	buf           []byte
	expected      int // total length of the fixed-length message being collected
	sysex         bool
	maxSysEx      int
	discarded     uint64
}

// NewReassembler returns an idle reassembler. maxSysEx bounds a whole
// exclusive, F0 and F7 included; <= 0 selects DefaultMaxSysExLength.
func NewReassembler(maxSysEx int) *Reassembler {
	if maxSysEx <= 0 {
		maxSysEx = DefaultMaxSysExLength
	}
	return &Reassembler{
		buf:      make([]byte, 0, 16),
		maxSysEx: maxSysEx,
	}
}

// Append feeds every byte of p and appends each completed message to dst
func (r *Reassembler) Append(dst []Message, p []byte) []Message {
	for _, b := range p {
		dst = r.Feed(dst, b)
	}
	return dst
}

// Feed consumes one byte and appends any messages it completes to dst.
// Real-time bytes complete immediately and leave a partial message intact.
func (r *Reassembler) Feed(dst []Message, b byte) []Message {
	switch {
	case IsRealTime(b):
		if _, _, ok := MessageLength(b); ok {
			return append(dst, Message{b})
		}
		r.discarded++
		return dst
	case IsStatus(b):
		return r.feedStatus(dst, b)
	default:
		return r.feedData(dst, b)
	}
}

func (r *Reassembler) feedStatus(dst []Message, b byte) []Message {
	if r.sysex {
		if b == StatusEndSysEx {
			if len(r.buf) >= r.maxSysEx {
				r.discarded += uint64(len(r.buf)) + 1
				r.clear()
				return dst
			}
			r.buf = append(r.buf, b)
			return r.emit(dst)
		}
		// Any other status ends the exclusive; pass it on unterminated
		dst = r.emit(dst)
	} else if len(r.buf) > 0 {
		r.discarded += uint64(len(r.buf))
		r.clear()
	}

	n, variable, ok := MessageLength(b)
	if !ok {
		r.runningStatus = 0
		r.discarded++
		return dst
	}

	if IsChannelStatus(b) {
		r.runningStatus = b
	} else {
		r.runningStatus = 0
	}

	r.buf = append(r.buf[:0], b)
	if variable {
		r.sysex = true
		return dst
	}
	r.expected = n
	if n == 1 {
		return r.emit(dst)
	}
	return dst
}

func (r *Reassembler) feedData(dst []Message, b byte) []Message {
	switch {
	case r.sysex:
		if len(r.buf) >= r.maxSysEx {
			// Drop the whole exclusive; the rest of it is discarded as
			// data without a status.
			r.discarded += uint64(len(r.buf)) + 1
			r.clear()
			return dst
		}
		r.buf = append(r.buf, b)
		return dst

	case r.expected > 0:
		r.buf = append(r.buf, b)
		if len(r.buf) == r.expected {
			return r.emit(dst)
		}
		return dst

	case r.runningStatus != 0:
		n, _, _ := MessageLength(r.runningStatus)
		r.buf = append(r.buf[:0], r.runningStatus, b)
		r.expected = n
		if len(r.buf) == n {
			return r.emit(dst)
		}
		return dst

	default:
		r.discarded++
		return dst
	}
}

func (r *Reassembler) emit(dst []Message) []Message {
	msg := make(Message, len(r.buf))
	copy(msg, r.buf)
	r.clear()
	return append(dst, msg)
}

// clear drops the partial message but keeps running status
func (r *Reassembler) clear() {
	r.buf = r.buf[:0]
	r.expected = 0
	r.sysex = false
}

// Reset returns to the idle state and forgets running status
func (r *Reassembler) Reset() {
	r.clear()
	r.runningStatus = 0
}

// Pending returns the number of bytes held for an incomplete message
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// RunningStatus returns the status byte that data bytes will repeat, or 0
func (r *Reassembler) RunningStatus() byte {
	return r.runningStatus
}

// Discarded returns how many bytes were dropped without producing a message
func (r *Reassembler) Discarded() uint64 {
	return r.discarded
}
