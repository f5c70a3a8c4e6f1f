package midiserial

import "go.uber.org/atomic"

// Stats is a snapshot of bridge traffic counters
type Stats struct {
	RxMessages  uint64 // messages reassembled from the serial side
	RxBytes     uint64
	TxMessages  uint64 // messages written to the serial side
	TxBytes     uint64
	ReadErrors  uint64
	WriteErrors uint64
	SendErrors  uint64 // event output rejected a message
	Discarded   uint64 // serial bytes dropped by the reassembler
}

// counters tracks bridge traffic; safe for concurrent use
type counters struct {
	rxMessages  atomic.Uint64
	rxBytes     atomic.Uint64
	txMessages  atomic.Uint64
	txBytes     atomic.Uint64
	readErrors  atomic.Uint64
	writeErrors atomic.Uint64
	sendErrors  atomic.Uint64
	discarded   atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		RxMessages:  c.rxMessages.Load(),
		RxBytes:     c.rxBytes.Load(),
		TxMessages:  c.txMessages.Load(),
		TxBytes:     c.txBytes.Load(),
		ReadErrors:  c.readErrors.Load(),
		WriteErrors: c.writeErrors.Load(),
		SendErrors:  c.sendErrors.Load(),
		Discarded:   c.discarded.Load(),
	}
}
