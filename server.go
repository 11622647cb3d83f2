package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ServerOption configures optional Server behavior at construction time.
type ServerOption func(*Server)

// Server is the MCP server-side facade: it owns the method/notification registries, the
// lifecycle state machine, and the single dispatch loop that reads frames from its Transport.
// A Server binds to exactly one Transport for the lifetime of one Start call; hosting many
// simultaneous clients (e.g. over SSE) means constructing one Server per connection.
type Server struct {
	info         Info
	instructions string
	strict       bool
	logger       *slog.Logger

	capabilities ServerCapabilities

	methods       *MethodRegistry
	notifications *NotificationRegistry

	// pending/ids back server-initiated requests to the client (roots/list,
	// sampling/createMessage): the server is symmetric to the client in this respect.
	pending *pendingTable
	ids     idGenerator

	initializeHook func(ctx context.Context, clientInfo Info, clientCapabilities ClientCapabilities) error

	pingInterval         time.Duration
	pingFailureThreshold int

	mu                 sync.Mutex
	state              lifecycleState
	clientInfo         Info
	clientCapabilities ClientCapabilities
	subscriptions      map[string]map[string]struct{} // resource URI -> set of subscriber ids; inert bookkeeping (§9)

	transport Transport
	cancel    context.CancelFunc
	loopDone  chan struct{}
	stopOnce  sync.Once
}

// lifecycleState mirrors the Fresh -> Initializing -> Initialized -> Terminated progression
// shared by both peers.
type lifecycleState int

const (
	stateFresh lifecycleState = iota
	stateInitializing
	stateInitialized
	stateTerminated
)

// NewServer constructs a Server with the given identity and options. It does not touch a
// Transport until Start is called.
func NewServer(info Info, opts ...ServerOption) *Server {
	s := &Server{
		info:          info,
		strict:        true,
		logger:        slog.Default(),
		methods:       NewMethodRegistry(),
		notifications: NewNotificationRegistry(),
		pending:       newPendingTable(),
		subscriptions: make(map[string]map[string]struct{}),
		state:         stateFresh,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerCoreHandlers()
	return s
}

// WithServerLogger overrides the server's logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithServerStrict toggles strict mode (default true): when enabled, the server rejects any
// non-initialize/ping request or notification received before the handshake completes.
func WithServerStrict(strict bool) ServerOption {
	return func(s *Server) { s.strict = strict }
}

// WithInstructions sets the freeform instructions string returned in the Initialize response.
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) { s.instructions = instructions }
}

// WithInitializeHook installs a callback invoked with the client's reported info and
// capabilities before the session transitions to Initialized. Returning an error vetoes the
// handshake: the server responds to Initialize with that error instead of completing it.
func WithInitializeHook(hook func(ctx context.Context, clientInfo Info, clientCapabilities ClientCapabilities) error) ServerOption {
	return func(s *Server) { s.initializeHook = hook }
}

// WithServerPingInterval enables a background pinger that sends ping at the given cadence once
// the session is initialized.
func WithServerPingInterval(interval time.Duration) ServerOption {
	return func(s *Server) { s.pingInterval = interval }
}

// WithServerPingFailureThreshold sets how many consecutive ping failures the background pinger
// tolerates before disconnecting the session.
func WithServerPingFailureThreshold(threshold int) ServerOption {
	return func(s *Server) { s.pingFailureThreshold = threshold }
}

// WithPromptsCapability registers the prompts/list and prompts/get methods and advertises the
// prompts capability during handshake.
func WithPromptsCapability(h PromptHandler) ServerOption {
	return func(s *Server) {
		s.capabilities.Prompts = &PromptsCapability{}
		RegisterMethod(s.methods, MethodPromptsList, h.ListPrompts)
		RegisterMethod(s.methods, MethodPromptsGet, h.GetPrompt)
	}
}

// WithResourcesCapability registers the resources/list, resources/read and
// resources/templates/list methods and advertises the resources capability during handshake.
func WithResourcesCapability(h ResourceHandler) ServerOption {
	return func(s *Server) {
		if s.capabilities.Resources == nil {
			s.capabilities.Resources = &ResourcesCapability{}
		}
		RegisterMethod(s.methods, MethodResourcesList, h.ListResources)
		RegisterMethod(s.methods, MethodResourcesRead, h.ReadResource)
		RegisterMethod(s.methods, MethodResourcesTemplatesList, h.ListResourceTemplates)
	}
}

// WithResourceSubscriptionHandler registers resources/subscribe and resources/unsubscribe and
// marks the resources capability as supporting subscription. The server facade itself only
// maintains the bare subscriber-set bookkeeping (§9); h supplies the actual semantics.
func WithResourceSubscriptionHandler(h ResourceSubscriptionHandler) ServerOption {
	return func(s *Server) {
		if s.capabilities.Resources == nil {
			s.capabilities.Resources = &ResourcesCapability{}
		}
		s.capabilities.Resources.Subscribe = true
		RegisterMethod(s.methods, MethodResourcesSubscribe, func(ctx context.Context, p SubscribeResourceParams) (struct{}, error) {
			s.recordSubscription(p.URI)
			return struct{}{}, h.SubscribeResource(ctx, p)
		})
		RegisterMethod(s.methods, MethodResourcesUnsubscribe, func(ctx context.Context, p UnsubscribeResourceParams) (struct{}, error) {
			s.forgetSubscription(p.URI)
			return struct{}{}, h.UnsubscribeResource(ctx, p)
		})
	}
}

// WithToolsCapability registers the tools/list and tools/call methods and advertises the tools
// capability during handshake.
func WithToolsCapability(h ToolHandler) ServerOption {
	return func(s *Server) {
		s.capabilities.Tools = &ToolsCapability{}
		RegisterMethod(s.methods, MethodToolsList, h.ListTools)
		RegisterMethod(s.methods, MethodToolsCall, h.CallTool)
	}
}

// WithCompletionHandler registers completion/complete, shared by prompt-argument and
// resource-template-argument completion (discriminated by CompletesCompletionParams.Ref.Type).
func WithCompletionHandler(h CompletionHandler) ServerOption {
	return func(s *Server) {
		RegisterMethod(s.methods, MethodCompletionComplete, h.Complete)
	}
}

// WithLoggingCapability registers logging/setLevel and advertises the logging capability.
func WithLoggingCapability(h LogLevelSetter) ServerOption {
	return func(s *Server) {
		s.capabilities.Logging = &LoggingCapability{}
		RegisterMethod(s.methods, MethodLoggingSetLevel, func(ctx context.Context, p struct {
			Level LogLevel `json:"level"`
		}) (struct{}, error) {
			return struct{}{}, h.SetLogLevel(ctx, p.Level)
		})
	}
}

func (s *Server) recordSubscription(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.subscriptions[uri]
	if !ok {
		set = make(map[string]struct{})
		s.subscriptions[uri] = set
	}
	set[s.clientInfo.Name] = struct{}{}
}

func (s *Server) forgetSubscription(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, uri)
}

// Methods exposes the server's method registry so embedders whose catalog is not covered by
// the §11 WithXxx options can call the package-level RegisterMethod directly.
func (s *Server) Methods() *MethodRegistry { return s.methods }

// Notifications exposes the server's notification registry so embedders can call the
// package-level RegisterNotification directly.
func (s *Server) Notifications() *NotificationRegistry { return s.notifications }

func (s *Server) registerCoreHandlers() {
	RegisterMethod(s.methods, methodPing, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, nil
	})
	RegisterMethod(s.methods, methodInitialize, s.handleInitialize)
}

func (s *Server) handleInitialize(ctx context.Context, params initializeParams) (initializeResult, error) {
	s.mu.Lock()
	if s.state == stateInitialized {
		s.mu.Unlock()
		return initializeResult{}, NewInvalidRequest("Server is already initialized")
	}
	s.state = stateInitializing
	s.mu.Unlock()

	if params.ProtocolVersion != CurrentProtocolVersion {
		return initializeResult{}, NewInvalidRequest("Unsupported protocol version: " + params.ProtocolVersion)
	}

	if s.initializeHook != nil {
		if err := s.initializeHook(ctx, params.ClientInfo, params.Capabilities); err != nil {
			return initializeResult{}, err
		}
	}

	if ctx.Err() != nil {
		return initializeResult{}, NewInternalError("server stopped during initialize")
	}

	s.mu.Lock()
	s.clientInfo = params.ClientInfo
	s.clientCapabilities = params.Capabilities
	s.state = stateInitialized
	s.mu.Unlock()

	go func() {
		time.Sleep(initializedNotificationDelay)
		if err := s.Notify(context.Background(), methodNotificationsInitialized, struct{}{}); err != nil {
			s.logger.Debug("failed to emit initialized notification", "err", err)
		}
	}()

	return initializeResult{
		ProtocolVersion: CurrentProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) isInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateInitialized
}

// Start binds transport, connects it, and spawns the dispatch loop in the background. It
// returns once the transport has connected; dispatch continues until Stop is called or the
// transport fails.
func (s *Server) Start(ctx context.Context, transport Transport) error {
	if err := transport.Connect(ctx); err != nil {
		return NewInternalError("transport refused to connect: " + err.Error())
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.transport = transport
	s.cancel = cancel
	s.loopDone = make(chan struct{})

	go s.dispatchLoop(loopCtx)
	if s.pingInterval > 0 {
		go s.pingLoop(loopCtx)
	}
	return nil
}

func (s *Server) dispatchLoop(ctx context.Context) {
	defer close(s.loopDone)

	for frame, err := range s.transport.Receive() {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, ErrTransientTransport) {
				time.Sleep(transientRetryDelay)
				continue
			}
			s.logger.Error("server dispatch loop terminated", "err", err)
			return
		}
		s.dispatchFrame(ctx, frame)
	}
}

func (s *Server) dispatchFrame(ctx context.Context, frame []byte) {
	msg, kind, err := decodeFrame(frame)
	if err != nil {
		s.logger.Warn("failed to parse frame", "err", err)
		id := msg.ID
		if id.IsZero() {
			id = NewStringID(uuidLike())
		}
		s.sendError(ctx, id, NewParseError(err.Error()))
		return
	}

	switch kind {
	case frameResponse:
		s.handleResponse(msg)
	case frameRequest:
		s.handleRequest(ctx, msg)
	case frameNotification:
		s.handleNotification(ctx, msg)
	default:
		s.logger.Warn("unparseable frame", "frame", string(frame))
		id := msg.ID
		if id.IsZero() {
			id = NewStringID(uuidLike())
		}
		s.sendError(ctx, id, NewParseError("unrecognized frame shape"))
	}
}

// handleResponse completes a pending server-initiated request (roots/list,
// sampling/createMessage, ...).
func (s *Server) handleResponse(msg JSONRPCMessage) {
	entry, ok := s.pending.remove(msg.ID)
	if !ok {
		s.logger.Warn("dropping response with no matching pending request", "id", msg.ID.String())
		return
	}
	if msg.Error != nil {
		entry.resume(pendingResult{err: &ProtocolError{Code: int32(msg.Error.Code), Message: msg.Error.Message, Data: msg.Error.Data}})
		return
	}
	entry.resume(pendingResult{value: msg.Result})
}

func (s *Server) handleRequest(ctx context.Context, msg JSONRPCMessage) {
	if s.strict && s.strictGateBlocks(msg.Method) {
		s.sendError(ctx, msg.ID, NewInvalidRequest("Server is not initialized"))
		return
	}

	handler, ok := s.methods.lookup(msg.Method)
	if !ok {
		err := NewMethodNotFound(msg.Method)
		s.logger.Warn("unknown method", "method", msg.Method)
		s.sendError(ctx, msg.ID, err)
		return
	}

	result, err := handler(ctx, msg.Params)
	if err != nil {
		pe := errToProtocolError(err)
		s.logger.Error("handler failed", "method", msg.Method, "err", err)
		s.sendError(ctx, msg.ID, pe)
		return
	}

	_ = s.Send(ctx, JSONRPCMessage{JSONRPC: jsonRPCVersion, ID: msg.ID, Result: result})
}

func (s *Server) strictGateBlocks(method string) bool {
	if method == methodPing || method == methodInitialize {
		return false
	}
	return !s.isInitialized()
}

func (s *Server) handleNotification(ctx context.Context, msg JSONRPCMessage) {
	if s.strict && msg.Method != methodNotificationsInitialized && !s.isInitialized() {
		s.logger.Debug("dropping notification before initialization", "method", msg.Method)
		return
	}

	handlers := s.notifications.snapshot(msg.Method)
	if len(handlers) == 0 {
		s.logger.Debug("dropping unknown notification", "method", msg.Method)
		return
	}
	for _, h := range handlers {
		h(ctx, msg.Params)
	}
}

func (s *Server) sendError(ctx context.Context, id ID, pe *ProtocolError) {
	_ = s.Send(ctx, JSONRPCMessage{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: int(pe.Code), Message: pe.Message, Data: pe.Data},
	})
}

// Send encodes and writes one response frame to the bound transport.
func (s *Server) Send(ctx context.Context, msg JSONRPCMessage) error {
	if s.transport == nil {
		return NewInternalError("server has no bound transport")
	}
	msg.JSONRPC = jsonRPCVersion
	frame, err := encodeFrame(msg)
	if err != nil {
		return NewInternalError("failed to encode response: " + err.Error())
	}
	return s.transport.Send(ctx, frame)
}

// Notify encodes params and sends a fire-and-forget notification named method.
func (s *Server) Notify(ctx context.Context, method string, params any) error {
	if s.transport == nil {
		return NewInternalError("server has no bound transport")
	}
	raw, err := marshalJSON(params)
	if err != nil {
		return NewInternalError("failed to encode notification params: " + err.Error())
	}
	frame, err := encodeFrame(JSONRPCMessage{JSONRPC: jsonRPCVersion, Method: method, Params: raw})
	if err != nil {
		return NewInternalError("failed to encode notification: " + err.Error())
	}
	return s.transport.Send(ctx, frame)
}

// Call issues a server-initiated request to the client (e.g. roots/list,
// sampling/createMessage) and blocks until the client responds, ctx is cancelled, or the
// server stops.
func Call[R any](ctx context.Context, s *Server, method string, params any) (R, error) {
	var zero R
	if s.transport == nil {
		return zero, NewInternalError("server has no bound transport")
	}

	id := s.ids.next()
	raw, err := marshalJSON(params)
	if err != nil {
		return zero, NewInternalError("failed to encode request params: " + err.Error())
	}

	ch := sendTyped[R](s.pending, id, method)
	frame, err := encodeFrame(JSONRPCMessage{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: raw})
	if err != nil {
		s.pending.remove(id)
		return zero, NewInternalError("failed to encode request: " + err.Error())
	}
	if err := s.transport.Send(ctx, frame); err != nil {
		s.pending.remove(id)
		return zero, NewInternalError("failed to send request: " + err.Error())
	}

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		s.pending.remove(id)
		return zero, ctx.Err()
	case <-s.loopDone:
		s.pending.remove(id)
		return zero, NewInternalError("server stopped")
	}
}

func (s *Server) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.isInitialized() {
				continue
			}
			if _, err := Call[struct{}](ctx, s, methodPing, struct{}{}); err != nil {
				failures++
				if s.pingFailureThreshold > 0 && failures >= s.pingFailureThreshold {
					s.logger.Error("ping failure threshold exceeded, stopping server")
					_ = s.Stop(ctx)
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// Stop cancels the dispatch loop, disconnects the transport, and drains any outstanding
// server-initiated requests with InternalError. Safe to call repeatedly.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.transport != nil {
			_ = s.transport.Disconnect(ctx)
		}
		for _, entry := range s.pending.drain() {
			entry.resume(pendingResult{err: NewInternalError("Server stopped")})
		}
		s.mu.Lock()
		s.state = stateTerminated
		s.mu.Unlock()
	})
	return nil
}

// WaitUntilCompleted blocks until the dispatch loop has terminated, whether due to Stop or a
// fatal transport error.
func (s *Server) WaitUntilCompleted() {
	if s.loopDone != nil {
		<-s.loopDone
	}
}

