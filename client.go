package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ClientOption configures optional Client behavior at construction time.
type ClientOption func(*Client)

// Client is the MCP client-side facade. It owns the pending-request table for requests it
// sends, and a method registry for the (rarer) server-initiated requests it must answer
// (roots/list, sampling/createMessage, ping) -- symmetric to Server in every respect except
// which side owns the handshake.
type Client struct {
	info   Info
	strict bool
	logger *slog.Logger

	capabilities ClientCapabilities

	methods       *MethodRegistry
	notifications *NotificationRegistry
	pending       *pendingTable
	ids           idGenerator

	pingInterval         time.Duration
	pingFailureThreshold int

	mu                    sync.Mutex
	state                 lifecycleState
	serverInfo            Info
	serverCapabilities    ServerCapabilities
	serverProtocolVersion string
	instructions          string

	transport Transport
	cancel    context.CancelFunc
	loopDone  chan struct{}
	stopOnce  sync.Once
}

// NewClient constructs a Client with the given identity and options. It does not touch a
// Transport until Connect is called.
func NewClient(info Info, opts ...ClientOption) *Client {
	c := &Client{
		info:          info,
		strict:        true,
		logger:        slog.Default(),
		methods:       NewMethodRegistry(),
		notifications: NewNotificationRegistry(),
		pending:       newPendingTable(),
		state:         stateFresh,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.registerCoreHandlers()
	return c
}

// WithClientLogger overrides the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClientStrict toggles strict mode (default true): when enabled, capability-gated helpers
// fail fast with MethodNotFound instead of issuing a wire call the server never advertised.
func WithClientStrict(strict bool) ClientOption {
	return func(c *Client) { c.strict = strict }
}

// WithClientPingInterval enables a background pinger once Initialize completes.
func WithClientPingInterval(interval time.Duration) ClientOption {
	return func(c *Client) { c.pingInterval = interval }
}

// WithClientPingFailureThreshold sets how many consecutive ping failures the background pinger
// tolerates before disconnecting the session.
func WithClientPingFailureThreshold(threshold int) ClientOption {
	return func(c *Client) { c.pingFailureThreshold = threshold }
}

// WithRootsHandler answers the server-initiated roots/list method and advertises the roots
// capability during handshake.
func WithRootsHandler(h RootsHandler) ClientOption {
	return func(c *Client) {
		c.capabilities.Roots = &RootsCapability{}
		RegisterMethod(c.methods, MethodRootsList, func(ctx context.Context, _ struct{}) (RootList, error) {
			return h.ListRoots(ctx)
		})
	}
}

// WithSamplingHandler answers the server-initiated sampling/createMessage method and
// advertises the sampling capability during handshake.
func WithSamplingHandler(h SamplingHandler) ClientOption {
	return func(c *Client) {
		c.capabilities.Sampling = &SamplingCapability{}
		RegisterMethod(c.methods, MethodSamplingCreateMessage, h.CreateSampleMessage)
	}
}

// Methods exposes the client's method registry so embedders can answer additional
// server-initiated methods via the package-level RegisterMethod.
func (c *Client) Methods() *MethodRegistry { return c.methods }

// Notifications exposes the client's notification registry so embedders can subscribe to
// additional notifications via the package-level RegisterNotification.
func (c *Client) Notifications() *NotificationRegistry { return c.notifications }

func (c *Client) registerCoreHandlers() {
	RegisterMethod(c.methods, methodPing, func(ctx context.Context, _ struct{}) (struct{}, error) {
		return struct{}{}, nil
	})
}

// Connect binds transport, connects it, and spawns the dispatch loop. It does not perform the
// Initialize handshake; call Initialize separately once Connect returns.
func (c *Client) Connect(ctx context.Context, transport Transport) error {
	if err := transport.Connect(ctx); err != nil {
		return NewInternalError("transport refused to connect: " + err.Error())
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.transport = transport
	c.cancel = cancel
	c.loopDone = make(chan struct{})

	go c.dispatchLoop(loopCtx)
	return nil
}

// Initialize issues the Initialize request and, on success, stores the server's reported
// capabilities/info/instructions and transitions the session to Initialized.
func (c *Client) Initialize(ctx context.Context) (Info, ServerCapabilities, error) {
	c.mu.Lock()
	c.state = stateInitializing
	c.mu.Unlock()

	result, err := Send[initializeResult](ctx, c, methodInitialize, initializeParams{
		ProtocolVersion: CurrentProtocolVersion,
		Capabilities:    c.capabilities,
		ClientInfo:      c.info,
	})
	if err != nil {
		return Info{}, ServerCapabilities{}, err
	}
	if result.ProtocolVersion != CurrentProtocolVersion {
		return Info{}, ServerCapabilities{}, NewInvalidRequest("Unsupported protocol version: " + result.ProtocolVersion)
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.serverCapabilities = result.Capabilities
	c.serverProtocolVersion = result.ProtocolVersion
	c.instructions = result.Instructions
	c.state = stateInitialized
	c.mu.Unlock()

	if c.pingInterval > 0 {
		go c.pingLoop(context.Background())
	}

	return result.ServerInfo, result.Capabilities, nil
}

func (c *Client) isInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateInitialized
}

// ServerInfo returns the identity the server reported during Initialize.
func (c *Client) ServerInfo() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// ServerCapabilities returns the capabilities the server reported during Initialize.
func (c *Client) ServerCapabilities() ServerCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverCapabilities
}

// Instructions returns the server-supplied instructions string, if any.
func (c *Client) Instructions() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instructions
}

func (c *Client) dispatchLoop(ctx context.Context) {
	defer close(c.loopDone)

	for frame, err := range c.transport.Receive() {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if errors.Is(err, ErrTransientTransport) {
				time.Sleep(transientRetryDelay)
				continue
			}
			c.logger.Error("client dispatch loop terminated", "err", err)
			return
		}
		c.dispatchFrame(ctx, frame)
	}
}

func (c *Client) dispatchFrame(ctx context.Context, frame []byte) {
	msg, kind, err := decodeFrame(frame)
	if err != nil {
		c.logger.Warn("failed to parse frame from server", "err", err)
		return
	}

	switch kind {
	case frameResponse:
		c.handleResponse(msg)
	case frameRequest:
		c.handleRequest(ctx, msg)
	case frameNotification:
		c.handleNotification(ctx, msg)
	default:
		c.logger.Warn("unparseable frame from server", "frame", string(frame))
	}
}

func (c *Client) handleResponse(msg JSONRPCMessage) {
	entry, ok := c.pending.remove(msg.ID)
	if !ok {
		c.logger.Warn("dropping response with no matching pending request", "id", msg.ID.String())
		return
	}
	if msg.Error != nil {
		entry.resume(pendingResult{err: &ProtocolError{Code: int32(msg.Error.Code), Message: msg.Error.Message, Data: msg.Error.Data}})
		return
	}
	entry.resume(pendingResult{value: msg.Result})
}

func (c *Client) handleRequest(ctx context.Context, msg JSONRPCMessage) {
	handler, ok := c.methods.lookup(msg.Method)
	if !ok {
		c.logger.Warn("unknown server-initiated method", "method", msg.Method)
		c.sendError(ctx, msg.ID, NewMethodNotFound(msg.Method))
		return
	}

	result, err := handler(ctx, msg.Params)
	if err != nil {
		pe := errToProtocolError(err)
		c.logger.Error("server-initiated handler failed", "method", msg.Method, "err", err)
		c.sendError(ctx, msg.ID, pe)
		return
	}

	_ = c.sendFrame(ctx, JSONRPCMessage{JSONRPC: jsonRPCVersion, ID: msg.ID, Result: result})
}

func (c *Client) handleNotification(ctx context.Context, msg JSONRPCMessage) {
	handlers := c.notifications.snapshot(msg.Method)
	if len(handlers) == 0 {
		c.logger.Debug("dropping unknown notification", "method", msg.Method)
		return
	}
	for _, h := range handlers {
		h(ctx, msg.Params)
	}
}

func (c *Client) sendError(ctx context.Context, id ID, pe *ProtocolError) {
	_ = c.sendFrame(ctx, JSONRPCMessage{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &JSONRPCError{Code: int(pe.Code), Message: pe.Message, Data: pe.Data},
	})
}

func (c *Client) sendFrame(ctx context.Context, msg JSONRPCMessage) error {
	if c.transport == nil {
		return NewInternalError("client has no bound transport")
	}
	msg.JSONRPC = jsonRPCVersion
	frame, err := encodeFrame(msg)
	if err != nil {
		return NewInternalError("failed to encode frame: " + err.Error())
	}
	return c.transport.Send(ctx, frame)
}

// Send is the typed request primitive every high-level client helper composes atop: it
// allocates a fresh id, registers a pending entry typed to R, serializes the request, and
// blocks until the server responds, ctx is cancelled, or the client disconnects.
func Send[R any](ctx context.Context, c *Client, method string, params any) (R, error) {
	var zero R
	if c.transport == nil {
		return zero, NewInternalError("client has no bound transport")
	}

	id := c.ids.next()
	raw, err := marshalJSON(params)
	if err != nil {
		return zero, NewInternalError("failed to encode request params: " + err.Error())
	}

	ch := sendTyped[R](c.pending, id, method)
	frame, err := encodeFrame(JSONRPCMessage{JSONRPC: jsonRPCVersion, ID: id, Method: method, Params: raw})
	if err != nil {
		c.pending.remove(id)
		return zero, NewInternalError("failed to encode request: " + err.Error())
	}
	if err := c.transport.Send(ctx, frame); err != nil {
		c.pending.remove(id)
		return zero, NewInternalError("failed to send request: " + err.Error())
	}

	select {
	case out := <-ch:
		return out.result, out.err
	case <-ctx.Done():
		c.pending.remove(id)
		return zero, ctx.Err()
	case <-c.loopDone:
		c.pending.remove(id)
		return zero, NewInternalError("Client disconnected")
	}
}

// Notify sends a fire-and-forget notification to the server.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	raw, err := marshalJSON(params)
	if err != nil {
		return NewInternalError("failed to encode notification params: " + err.Error())
	}
	return c.sendFrame(ctx, JSONRPCMessage{Method: method, Params: raw})
}

// gate enforces the strict-mode capability check shared by every capability-dependent helper:
// when strict, it fails fast with MethodNotFound if ok returns false against the server's
// reported capabilities, without issuing any wire call. Non-strict mode always lets the call
// through and lets the server's own MethodNotFound response speak for itself (§8 S6).
func (c *Client) gate(method string, ok func(ServerCapabilities) bool) error {
	if !c.strict {
		return nil
	}
	c.mu.Lock()
	caps := c.serverCapabilities
	initialized := c.state == stateInitialized
	c.mu.Unlock()
	if !initialized || !ok(caps) {
		return NewMethodNotFound(method)
	}
	return nil
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.loopDone:
			return
		case <-ticker.C:
			if _, err := Send[struct{}](ctx, c, methodPing, struct{}{}); err != nil {
				failures++
				if c.pingFailureThreshold > 0 && failures >= c.pingFailureThreshold {
					c.logger.Error("ping failure threshold exceeded, disconnecting client")
					_ = c.Disconnect(ctx)
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// Disconnect resolves every pending request with InternalError, cancels the dispatch loop, and
// disconnects the transport. Safe to call repeatedly.
func (c *Client) Disconnect(ctx context.Context) error {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.transport != nil {
			_ = c.transport.Disconnect(ctx)
		}
		for _, entry := range c.pending.drain() {
			entry.resume(pendingResult{err: NewInternalError("Client disconnected")})
		}
		c.mu.Lock()
		c.state = stateTerminated
		c.mu.Unlock()
	})
	return nil
}

// WaitUntilCompleted blocks until the dispatch loop has terminated.
func (c *Client) WaitUntilCompleted() {
	if c.loopDone != nil {
		<-c.loopDone
	}
}

// Ping sends a ping request and waits for the (empty) response.
func (c *Client) Ping(ctx context.Context) error {
	_, err := Send[struct{}](ctx, c, methodPing, struct{}{})
	return err
}

// ListPrompts returns one page of the server's prompt catalog.
func (c *Client) ListPrompts(ctx context.Context, cursor string) (ListPromptResult, error) {
	if err := c.gate(MethodPromptsList, func(sc ServerCapabilities) bool { return sc.Prompts != nil }); err != nil {
		return ListPromptResult{}, err
	}
	return Send[ListPromptResult](ctx, c, MethodPromptsList, ListPromptsParams{Cursor: cursor})
}

// GetPrompt retrieves a specific prompt template with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (GetPromptResult, error) {
	if err := c.gate(MethodPromptsGet, func(sc ServerCapabilities) bool { return sc.Prompts != nil }); err != nil {
		return GetPromptResult{}, err
	}
	return Send[GetPromptResult](ctx, c, MethodPromptsGet, GetPromptParams{Name: name, Arguments: arguments})
}

// ListResources returns one page of the server's resource catalog.
func (c *Client) ListResources(ctx context.Context, cursor string) (ListResourcesResult, error) {
	if err := c.gate(MethodResourcesList, func(sc ServerCapabilities) bool { return sc.Resources != nil }); err != nil {
		return ListResourcesResult{}, err
	}
	return Send[ListResourcesResult](ctx, c, MethodResourcesList, ListResourcesParams{Cursor: cursor})
}

// ReadResource retrieves the contents of a specific resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (ReadResourceResult, error) {
	if err := c.gate(MethodResourcesRead, func(sc ServerCapabilities) bool { return sc.Resources != nil }); err != nil {
		return ReadResourceResult{}, err
	}
	return Send[ReadResourceResult](ctx, c, MethodResourcesRead, ReadResourceParams{URI: uri})
}

// ListResourceTemplates returns one page of the server's resource-template catalog.
func (c *Client) ListResourceTemplates(ctx context.Context, cursor string) (ListResourceTemplatesResult, error) {
	if err := c.gate(MethodResourcesTemplatesList, func(sc ServerCapabilities) bool { return sc.Resources != nil }); err != nil {
		return ListResourceTemplatesResult{}, err
	}
	return Send[ListResourceTemplatesResult](ctx, c, MethodResourcesTemplatesList, ListResourceTemplatesParams{Cursor: cursor})
}

// SubscribeToResource asks the server to notify this client of changes to uri.
func (c *Client) SubscribeToResource(ctx context.Context, uri string) error {
	if err := c.gate(MethodResourcesSubscribe, func(sc ServerCapabilities) bool {
		return sc.Resources != nil && sc.Resources.Subscribe
	}); err != nil {
		return err
	}
	_, err := Send[struct{}](ctx, c, MethodResourcesSubscribe, SubscribeResourceParams{URI: uri})
	return err
}

// UnsubscribeFromResource asks the server to stop notifying this client of changes to uri.
func (c *Client) UnsubscribeFromResource(ctx context.Context, uri string) error {
	if err := c.gate(MethodResourcesUnsubscribe, func(sc ServerCapabilities) bool {
		return sc.Resources != nil && sc.Resources.Subscribe
	}); err != nil {
		return err
	}
	_, err := Send[struct{}](ctx, c, MethodResourcesUnsubscribe, UnsubscribeResourceParams{URI: uri})
	return err
}

// ListTools returns one page of the server's tool catalog.
func (c *Client) ListTools(ctx context.Context, cursor string) (ListToolsResult, error) {
	if err := c.gate(MethodToolsList, func(sc ServerCapabilities) bool { return sc.Tools != nil }); err != nil {
		return ListToolsResult{}, err
	}
	return Send[ListToolsResult](ctx, c, MethodToolsList, ListToolsParams{Cursor: cursor})
}

// CallTool invokes a specific tool with the given raw JSON arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments []byte) (CallToolResult, error) {
	if err := c.gate(MethodToolsCall, func(sc ServerCapabilities) bool { return sc.Tools != nil }); err != nil {
		return CallToolResult{}, err
	}
	return Send[CallToolResult](ctx, c, MethodToolsCall, CallToolParams{Name: name, Arguments: arguments})
}

// Complete requests completion suggestions for a prompt or resource-template argument. Which
// capability gates the call depends on ref.Type: prompt argument completion needs
// PromptsCapability, resource-template completion needs ResourcesCapability.
func (c *Client) Complete(ctx context.Context, ref CompletionRef, argument CompletionArgument) (CompletionResult, error) {
	if err := c.gate(MethodCompletionComplete, func(sc ServerCapabilities) bool {
		switch ref.Type {
		case CompletionRefPrompt:
			return sc.Prompts != nil
		case CompletionRefResource:
			return sc.Resources != nil
		default:
			return false
		}
	}); err != nil {
		return CompletionResult{}, err
	}
	return Send[CompletionResult](ctx, c, MethodCompletionComplete, CompletesCompletionParams{Ref: ref, Argument: argument})
}

// SetLogLevel asks the server to only emit log notifications at or above level.
func (c *Client) SetLogLevel(ctx context.Context, level LogLevel) error {
	if err := c.gate(MethodLoggingSetLevel, func(sc ServerCapabilities) bool { return sc.Logging != nil }); err != nil {
		return err
	}
	_, err := Send[struct{}](ctx, c, MethodLoggingSetLevel, struct {
		Level LogLevel `json:"level"`
	}{Level: level})
	return err
}
