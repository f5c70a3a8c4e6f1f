package midiserial

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// readErrorBackoff spaces out retries after a non-fatal read error
const readErrorBackoff = 100 * time.Millisecond

// ErrBridgeRunning is returned by Run when the bridge is already running
var ErrBridgeRunning = errors.New("bridge is already running")

// ChannelOpener opens the serial side of a bridge
type ChannelOpener func(path string, opts ...Option) (Channel, error)

// openSerial is the default ChannelOpener
func openSerial(path string, opts ...Option) (Channel, error) {
	c, err := OpenChannel(path, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// BridgeOption is a functional option for configuring a Bridge
type BridgeOption func(*Bridge)

// WithInput sets the event-side input. Without one, nothing is written to
// the serial side.
func WithInput(in Input) BridgeOption {
	return func(b *Bridge) {
		b.input = in
	}
}

// WithOutput sets the event-side output. Without one, reassembled
// messages are counted and dropped.
func WithOutput(out Output) BridgeOption {
	return func(b *Bridge) {
		b.output = out
	}
}

// WithLogger sets the logger for diagnostics and verbose traffic
func WithLogger(log zerolog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.log = log
	}
}

// WithVerbose logs every bridged message and the line setup
func WithVerbose(verbose bool) BridgeOption {
	return func(b *Bridge) {
		b.verbose = verbose
	}
}

// WithObserver registers an observer for bridged messages
func WithObserver(o Observer) BridgeOption {
	return func(b *Bridge) {
		b.observer = o
	}
}

// WithChannelOpener replaces the function used to open the serial side
func WithChannelOpener(open ChannelOpener) BridgeOption {
	return func(b *Bridge) {
		b.open = open
	}
}

// WithChannelOptions adds serial channel options
func WithChannelOptions(opts ...Option) BridgeOption {
	return func(b *Bridge) {
		b.channelOpts = append(b.channelOpts, opts...)
	}
}

// WithMaxSysExLength bounds the size of one reassembled system exclusive
func WithMaxSysExLength(n int) BridgeOption {
	return func(b *Bridge) {
		b.maxSysEx = n
	}
}

// Bridge pumps messages between a serial channel and event-side endpoints.
//
// The serial to event direction is the read loop in Run. The event to
// serial direction is OnIncomingEvent, driven by the input's own delivery
// goroutine. The two share only the channel, whose reads and writes are
// independent.
type Bridge struct {
	path        string
	input       Input
	output      Output
	log         zerolog.Logger
	verbose     bool
	observer    Observer
	open        ChannelOpener
	channelOpts []Option
	maxSysEx    int

	mu      sync.RWMutex
	channel Channel
	running bool

	stats counters
}

// NewBridge creates a bridge for the serial device at path running at speed
func NewBridge(path string, speed int, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		path:        path,
		log:         zerolog.Nop(),
		open:        openSerial,
		channelOpts: []Option{WithSpeed(speed)},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the serial device path
func (b *Bridge) Path() string {
	return b.path
}

// Stats returns a snapshot of the traffic counters
func (b *Bridge) Stats() Stats {
	return b.stats.snapshot()
}

func (b *Bridge) currentChannel() Channel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.channel
}

func (b *Bridge) setChannel(ch Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channel = ch
}

// Run opens the serial channel, starts the input and pumps serial bytes to
// the output until ctx is cancelled or a read fails fatally.
//
// Failing to open the channel returns an error wrapping ErrOpenFailed
// before the input is started. A cancelled ctx returns nil. On every exit
// the line settings are restored and the endpoints are released.
func (b *Bridge) Run(ctx context.Context) (err error) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrBridgeRunning
	}
	b.running = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	config := DefaultConfig()
	for _, opt := range b.channelOpts {
		if err := opt(&config); err != nil {
			_ = b.releaseEndpoints()
			return fmt.Errorf("%w: %w", ErrOpenFailed, err)
		}
	}

	ch, err := b.open(b.path, b.channelOpts...)
	if err != nil {
		if !errors.Is(err, ErrOpenFailed) {
			err = fmt.Errorf("%w: %w", ErrOpenFailed, err)
		}
		b.log.Error().Err(err).Str("port", b.path).Msg("cannot open serial device")
		if rerr := b.releaseEndpoints(); rerr != nil {
			b.log.Warn().Err(rerr).Msg("releasing event endpoints")
		}
		return err
	}

	if w, ok := ch.(interface{ Warnings() []error }); ok {
		for _, warning := range w.Warnings() {
			b.log.Warn().Err(warning).Str("port", b.path).Msg("serial line configuration")
		}
	}
	if b.verbose {
		event := b.log.Info().Str("port", b.path)
		if s, ok := ch.(interface{ Speed() int }); ok {
			event = event.Int("baud", s.Speed())
		}
		event.Msg("tty opened")
	}

	b.setChannel(ch)

	started := false
	if b.input != nil {
		if serr := b.input.Start(b.handleIncoming); serr != nil {
			b.log.Error().Err(serr).Msg("cannot start event input, bridging serial to event only")
		} else {
			started = true
		}
	}

	defer func() {
		if serr := b.shutdown(ch, started); serr != nil {
			b.log.Warn().Err(serr).Msg("bridge shutdown")
			if err == nil {
				err = serr
			} else {
				err = multierror.Append(err, serr)
			}
		}
	}()

	return b.pump(ctx, ch, config.ChunkSize)
}

// pump is the serial to event loop
func (b *Bridge) pump(ctx context.Context, ch Channel, chunkSize int) error {
	r := NewReassembler(b.maxSysEx)
	buf := make([]byte, chunkSize)
	msgs := make([]Message, 0, 8)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := ch.ReadChunk(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.stats.readErrors.Inc()
			if IsFatal(err) {
				b.log.Error().Err(err).Str("port", b.path).Msg("serial read failed, stopping")
				return err
			}
			b.log.Error().Err(err).Str("port", b.path).Msg("serial read failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readErrorBackoff):
			}
			continue
		}
		if n == 0 {
			continue
		}

		b.stats.rxBytes.Add(uint64(n))
		before := r.Discarded()
		msgs = r.Append(msgs[:0], buf[:n])
		if dropped := r.Discarded() - before; dropped > 0 {
			b.stats.discarded.Add(dropped)
			b.log.Debug().Uint64("bytes", dropped).Msg("discarded serial bytes without framing")
		}

		for _, msg := range msgs {
			b.deliver(msg)
		}
	}
}

// deliver sends one reassembled message to the event output
func (b *Bridge) deliver(msg Message) {
	b.stats.rxMessages.Inc()

	var err error
	if b.output != nil {
		if err = b.output.Send(msg); err != nil {
			b.stats.sendErrors.Inc()
			b.log.Error().Err(err).Str("bytes", msg.String()).Msg("event output send failed")
		}
	}

	if b.verbose {
		b.log.Info().Str("dir", DirectionRx.String()).Str("kind", msg.Kind()).Str("bytes", msg.String()).Msg("rx")
	}
	b.notify(DirectionRx, msg, err)
}

func (b *Bridge) handleIncoming(msg Message) {
	_ = b.OnIncomingEvent(msg)
}

// OnIncomingEvent writes one event-side message to the serial channel. It
// is safe to call from any goroutine. Failures are logged and returned;
// the message is not retried.
func (b *Bridge) OnIncomingEvent(msg Message) error {
	if len(msg) == 0 {
		return nil
	}

	var err error
	if ch := b.currentChannel(); ch == nil {
		err = ErrNoChannel
	} else {
		err = ch.Write(Encode(msg))
	}

	if err != nil {
		b.stats.writeErrors.Inc()
		b.log.Error().Err(err).Str("bytes", msg.String()).Msg("serial write failed")
	} else {
		b.stats.txMessages.Inc()
		b.stats.txBytes.Add(uint64(len(msg)))
	}

	if b.verbose {
		b.log.Info().Str("dir", DirectionTx.String()).Str("kind", msg.Kind()).Str("bytes", msg.String()).Msg("tx")
	}
	b.notify(DirectionTx, msg, err)
	return err
}

func (b *Bridge) notify(dir Direction, msg Message, err error) {
	if b.observer != nil {
		b.observer.ObserveMessage(dir, msg, err)
	}
}

// shutdown stops the input, restores and closes the channel, then
// releases both endpoints
func (b *Bridge) shutdown(ch Channel, started bool) error {
	var result *multierror.Error

	if started {
		if err := b.input.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop event input: %w", err))
		}
	}

	b.setChannel(nil)
	if err := ch.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close serial channel: %w", err))
	}

	result = multierror.Append(result, b.releaseEndpoints())
	return result.ErrorOrNil()
}

// releaseEndpoints closes the event-side handles
func (b *Bridge) releaseEndpoints() error {
	var result *multierror.Error
	if b.input != nil {
		if err := b.input.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close event input: %w", err))
		}
	}
	if b.output != nil {
		if err := b.output.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close event output: %w", err))
		}
	}
	return result.ErrorOrNil()
}
