package mcp

import (
	"context"
	"iter"
	"log/slog"
)

// Transport is the byte-framing contract the core consumes. Each peer owns exactly one
// Transport for the lifetime of one Start/Connect invocation; the core never multiplexes
// several logical peers over a single Transport (multi-peer routing is explicitly out of
// scope). The Transport is responsible for its own wire framing: every []byte handed to Send,
// and every []byte yielded by Receive, is one complete JSON-RPC frame.
type Transport interface {
	// Connect establishes the underlying channel. Called once by the owning facade before the
	// dispatch loop starts reading.
	Connect(ctx context.Context) error

	// Disconnect tears the channel down. Safe to call after Connect has failed.
	Disconnect(ctx context.Context) error

	// Send writes one complete frame.
	Send(ctx context.Context, frame []byte) error

	// Receive returns an iterator of inbound frames paired with a terminal error (nil while
	// the stream is live). A transient, recoverable condition is reported by wrapping
	// ErrTransientTransport; any other non-nil error ends the iteration and terminates the
	// dispatch loop.
	Receive() iter.Seq2[[]byte, error]

	// Logger returns the logger this transport was configured with, or slog.Default() if
	// none was supplied.
	Logger() *slog.Logger
}
