// Package midiserial bridges MIDI traffic between a serial line and a MIDI
// event system on Linux.
//
// Bytes read from the serial line are reassembled into complete MIDI
// messages, honouring running status and interleaved realtime bytes, and
// handed to an event Output. Messages arriving from an event Input are
// written to the serial line unchanged.
//
// # Basic Usage
//
// Bridge a serial device to event endpoints until the context is cancelled:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	bridge := midiserial.NewBridge("/dev/ttyS1", midiserial.DefaultSpeed,
//	    midiserial.WithInput(in),
//	    midiserial.WithOutput(out),
//	    midiserial.WithLogger(logger),
//	)
//	if err := bridge.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Run restores the original line settings and releases both endpoints on
// every exit path. A cancelled context is not an error.
//
// # Serial Channel
//
// OpenChannel opens a device in raw 8-bit mode. Line configuration problems
// are collected as warnings rather than failing the open, so pseudo
// terminals and devices that reject a speed still work:
//
//	ch, err := midiserial.OpenChannel("/dev/ttyUSB0",
//	    midiserial.WithSpeed(115200),
//	    midiserial.WithPollInterval(50*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ch.Close()
//
//	for _, w := range ch.Warnings() {
//	    log.Println(w)
//	}
//
// # Message Framing
//
// A Reassembler turns arbitrary byte chunks into messages. Feeding
// 0x90 0x3C 0x7F 0x3C 0x00 yields two note messages, the second one using
// running status:
//
//	r := midiserial.NewReassembler(0)
//	msgs := r.Append(nil, chunk)
//
// Bytes that cannot be framed are counted and dropped; see Discarded.
//
// # Error Handling
//
// Errors wrap sentinel values for use with errors.Is:
//
//	if errors.Is(err, midiserial.ErrOpenFailed) {
//	    // the serial device could not be opened
//	}
//
// IsFatal reports whether a read error ends the bridge loop.
//
// # Default Configuration
//
//   - Path: /dev/ttyS1
//   - Speed: 38400
//   - ChunkSize: 255 bytes
//   - PollInterval: 100ms
//   - Maximum SysEx length: 64 KiB
package midiserial
