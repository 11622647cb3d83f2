package mcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
)

// SSETransport implements Transport for the server side of one browser/client Server-Sent
// Events connection: frames flow to the client over the SSE stream, and from the client via
// HTTP POST to a companion message endpoint. Because SSE is inherently per-connection, a
// fresh SSETransport (and, typically, a fresh *Server bound to it) is created for every
// incoming SSE connection -- the multi-client fan-out lives in SSEHandler, one layer above the
// core, which never itself multiplexes peers (§1 Non-goals).
type SSETransport struct {
	id     string
	sess   *sse.Session
	logger *slog.Logger

	received chan []byte
	done     chan struct{}
	once     sync.Once
}

// ID returns the session id embedded in this connection's message-post URL.
func (t *SSETransport) ID() string { return t.id }

// Connect is a no-op: the underlying *sse.Session is already live by the time SSEHandler
// constructs this transport.
func (t *SSETransport) Connect(context.Context) error { return nil }

// Disconnect unblocks any in-flight Receive. Safe to call more than once.
func (t *SSETransport) Disconnect(context.Context) error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// Send writes one frame as an SSE "message" event and flushes it immediately so the client
// observes frames in send order.
func (t *SSETransport) Send(ctx context.Context, frame []byte) error {
	msg := &sse.Message{Type: sse.Type("message")}
	msg.AppendData(string(frame))
	if err := t.sess.Send(msg); err != nil {
		return fmt.Errorf("mcp: sse send: %w", err)
	}
	if err := t.sess.Flush(); err != nil {
		return fmt.Errorf("mcp: sse flush: %w", err)
	}
	return nil
}

// Receive yields frames posted by the client to the companion message endpoint.
func (t *SSETransport) Receive() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			select {
			case <-t.done:
				return
			case frame, ok := <-t.received:
				if !ok {
					return
				}
				if !yield(frame, nil) {
					return
				}
			}
		}
	}
}

// Logger returns the configured logger, defaulting to slog.Default().
func (t *SSETransport) Logger() *slog.Logger {
	if t.logger == nil {
		return slog.Default()
	}
	return t.logger
}

// SSEHandler wires incoming SSE connections and their companion POST messages to fresh
// SSETransport instances, invoking OnSession for each so the embedder can bind a *Server to
// it (typically via Server.Start in its own goroutine).
type SSEHandler struct {
	// MessageURL is the path the client should POST messages to; the session id is appended
	// as a query parameter so HandleMessage can route the frame to the right transport.
	MessageURL string
	// OnSession is invoked once per new SSE connection with its freshly built transport.
	OnSession func(*SSETransport)
	// Logger defaults to slog.Default() when nil.
	Logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*SSETransport
}

func (h *SSEHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *SSEHandler) register(t *SSETransport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions == nil {
		h.sessions = make(map[string]*SSETransport)
	}
	h.sessions[t.id] = t
}

func (h *SSEHandler) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, id)
}

func (h *SSEHandler) lookup(id string) (*SSETransport, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.sessions[id]
	return t, ok
}

// HandleSSE upgrades the request to an SSE stream, sends the client its per-session message
// URL, then blocks keeping the connection open until the transport is disconnected.
func (h *SSEHandler) HandleSSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sse.Upgrade(w, r)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to upgrade session: %v", err), http.StatusInternalServerError)
			return
		}

		id := uuid.New().String()
		endpoint := fmt.Sprintf("%s?sessionID=%s", h.MessageURL, id)
		msg := &sse.Message{Type: sse.Type("endpoint")}
		msg.AppendData(endpoint)
		if err := sess.Send(msg); err != nil {
			h.logger().Error("failed to write SSE endpoint", "err", err)
			return
		}
		if err := sess.Flush(); err != nil {
			h.logger().Error("failed to flush SSE endpoint", "err", err)
			return
		}

		t := &SSETransport{
			id:       id,
			sess:     sess,
			logger:   h.logger(),
			received: make(chan []byte, 8),
			done:     make(chan struct{}),
		}
		h.register(t)
		defer h.unregister(id)

		if h.OnSession != nil {
			h.OnSession(t)
		}

		<-t.done
	})
}

// HandleMessage routes a client's POSTed frame, keyed by its sessionID query parameter, to the
// matching SSETransport's Receive stream.
func (h *SSEHandler) HandleMessage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("sessionID")
		if id == "" {
			http.Error(w, "missing sessionID query parameter", http.StatusBadRequest)
			return
		}
		t, ok := h.lookup(id)
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to read body: %v", err), http.StatusBadRequest)
			return
		}

		select {
		case t.received <- body:
			w.WriteHeader(http.StatusAccepted)
		case <-t.done:
			http.Error(w, "session closed", http.StatusGone)
		}
	})
}

// SSEClientTransport implements Transport for the client side of an SSE connection: it
// connects via HTTP GET to receive the server's stream, learns its per-session message
// endpoint from the first "endpoint" event, and POSTs outbound frames there.
type SSEClientTransport struct {
	httpClient *http.Client
	connectURL string
	logger     *slog.Logger

	messageURL string
	frames     chan []byte
	done       chan struct{}
	once       sync.Once
}

// NewSSEClientTransport builds a client transport that connects to connectURL. A nil
// httpClient defaults to http.DefaultClient.
func NewSSEClientTransport(connectURL string, httpClient *http.Client) *SSEClientTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SSEClientTransport{
		httpClient: httpClient,
		connectURL: connectURL,
		logger:     slog.Default(),
		frames:     make(chan []byte, 8),
		done:       make(chan struct{}),
	}
}

// WithSSEClientLogger overrides the transport's logger.
func (t *SSEClientTransport) WithSSEClientLogger(logger *slog.Logger) *SSEClientTransport {
	t.logger = logger
	return t
}

// Connect opens the SSE stream and blocks until the server's "endpoint" event names the
// message-post URL, then continues streaming "message" events into t.frames in the background.
func (t *SSEClientTransport) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.connectURL, nil)
	if err != nil {
		return fmt.Errorf("mcp: sse connect: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mcp: sse connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("mcp: sse connect: unexpected status %d", resp.StatusCode)
	}

	ready := make(chan error, 1)
	go t.readLoop(resp.Body, ready)

	select {
	case err := <-ready:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *SSEClientTransport) readLoop(body io.ReadCloser, ready chan<- error) {
	defer body.Close()

	endpointSeen := false
	for ev, err := range sse.Read(body, nil) {
		if err != nil {
			if !endpointSeen {
				ready <- fmt.Errorf("mcp: sse read: %w", err)
			} else {
				t.logger.Error("sse stream ended", "err", err)
			}
			return
		}

		switch ev.Type {
		case "endpoint":
			u, err := url.Parse(ev.Data)
			if err != nil || u.String() == "" {
				if !endpointSeen {
					ready <- fmt.Errorf("mcp: sse endpoint: invalid URL %q", ev.Data)
				}
				return
			}
			t.messageURL = u.String()
			if !endpointSeen {
				endpointSeen = true
				ready <- nil
			}
		case "message":
			select {
			case t.frames <- []byte(ev.Data):
			case <-t.done:
				return
			}
		default:
			t.logger.Warn("unhandled sse event type", "type", ev.Type)
		}
	}
}

// Disconnect unblocks any in-flight Receive. Safe to call more than once.
func (t *SSEClientTransport) Disconnect(context.Context) error {
	t.once.Do(func() { close(t.done) })
	return nil
}

// Send POSTs one frame to the message endpoint learned from the "endpoint" SSE event.
func (t *SSEClientTransport) Send(ctx context.Context, frame []byte) error {
	if t.messageURL == "" {
		return NewInternalError("sse client transport has no message endpoint yet")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.messageURL, bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("mcp: sse post: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mcp: sse post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mcp: sse post: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Receive yields frames streamed by the server.
func (t *SSEClientTransport) Receive() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			select {
			case <-t.done:
				return
			case frame, ok := <-t.frames:
				if !ok {
					return
				}
				if !yield(frame, nil) {
					return
				}
			}
		}
	}
}

// Logger returns the configured logger, defaulting to slog.Default().
func (t *SSEClientTransport) Logger() *slog.Logger {
	if t.logger == nil {
		return slog.Default()
	}
	return t.logger
}
