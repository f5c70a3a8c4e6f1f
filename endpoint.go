package midiserial

// Handler receives one complete event-side message. It may be called from
// any goroutine.
type Handler func(Message)

// Input is an event-side source that pushes messages to a Handler once
// started.
type Input interface {
	Start(h Handler) error
	Stop() error
	Close() error
}

// Output is an event-side sink. Send must not wait on the receiver.
type Output interface {
	Send(msg Message) error
	Close() error
}

// Direction of a bridged message
type Direction int

const (
	DirectionRx Direction = iota // serial to event side
	DirectionTx                  // event side to serial
)

func (d Direction) String() string {
	switch d {
	case DirectionRx:
		return "rx"
	case DirectionTx:
		return "tx"
	default:
		return "unknown"
	}
}

// Observer is told about every bridged message and the error, if any, that
// delivering it produced. Rx and tx notifications arrive on different
// goroutines.
type Observer interface {
	ObserveMessage(dir Direction, msg Message, err error)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(dir Direction, msg Message, err error)

func (f ObserverFunc) ObserveMessage(dir Direction, msg Message, err error) {
	f(dir, msg, err)
}
