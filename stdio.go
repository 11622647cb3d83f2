package mcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
)

// StdioTransport implements Transport over a newline-delimited stream of JSON-RPC frames on
// an io.Reader/io.Writer pair -- the shape stdin/stdout (or a pipe) naturally provides. Each
// frame is one line; writes are serialized by a mutex held across each frame so that
// concurrent Send calls from handler goroutines cannot interleave partial writes.
type StdioTransport struct {
	reader io.Reader
	writer io.Writer
	logger *slog.Logger

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// NewStdioTransport builds a StdioTransport over the given reader/writer pair. Typical usage
// passes os.Stdin/os.Stdout for a subprocess-hosted server, or a net.Conn for a socket peer.
func NewStdioTransport(reader io.Reader, writer io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: reader,
		writer: writer,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
}

// WithStdioLogger overrides the transport's logger.
func (t *StdioTransport) WithStdioLogger(logger *slog.Logger) *StdioTransport {
	t.logger = logger
	return t
}

// Connect is a no-op: the reader/writer pair is already live by construction.
func (t *StdioTransport) Connect(context.Context) error { return nil }

// Disconnect makes Receive stop before its next read and makes later Send calls fail; a read
// already blocked on the underlying reader is not interrupted. It is safe to call more than once.
func (t *StdioTransport) Disconnect(context.Context) error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// Send writes one frame terminated by a newline. Concurrent calls are serialized.
func (t *StdioTransport) Send(ctx context.Context, frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	select {
	case <-t.done:
		return NewInternalError("stdio transport is disconnected")
	default:
	}

	line := append(append([]byte{}, frame...), '\n')
	if _, err := t.writer.Write(line); err != nil {
		return fmt.Errorf("mcp: stdio write: %w", err)
	}
	return nil
}

// Receive yields one frame per line read from the underlying reader until EOF, a read error,
// or Disconnect.
func (t *StdioTransport) Receive() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		br := bufio.NewReader(t.reader)
		for {
			select {
			case <-t.done:
				return
			default:
			}

			line, err := br.ReadString('\n')
			if err != nil {
				if errors.Is(err, io.EOF) && line == "" {
					return
				}
				if !yield(nil, fmt.Errorf("mcp: stdio read: %w", err)) {
					return
				}
				return
			}

			line = strings.TrimRight(line, "\n")
			if line == "" {
				continue
			}
			if !yield([]byte(line), nil) {
				return
			}
		}
	}
}

// Logger returns the configured logger, defaulting to slog.Default().
func (t *StdioTransport) Logger() *slog.Logger {
	if t.logger == nil {
		return slog.Default()
	}
	return t.logger
}
