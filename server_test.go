package mcp_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/arborwell/mcprelay"
)

type mockPromptHandler struct {
	listParams mcp.ListPromptsParams
}

func (m *mockPromptHandler) ListPrompts(_ context.Context, params mcp.ListPromptsParams) (mcp.ListPromptResult, error) {
	m.listParams = params
	return mcp.ListPromptResult{Prompts: []mcp.Prompt{{Name: "greet"}}}, nil
}

func (m *mockPromptHandler) GetPrompt(_ context.Context, params mcp.GetPromptParams) (mcp.GetPromptResult, error) {
	return mcp.GetPromptResult{Messages: []mcp.PromptMessage{
		{Role: mcp.RoleUser, Content: mcp.Content{Type: mcp.ContentTypeText, Text: "hello " + params.Arguments["name"]}},
	}}, nil
}

type mockResourceSubscriptionHandler struct {
	subscribed   []string
	unsubscribed []string
}

func (m *mockResourceSubscriptionHandler) SubscribeResource(_ context.Context, p mcp.SubscribeResourceParams) error {
	m.subscribed = append(m.subscribed, p.URI)
	return nil
}

func (m *mockResourceSubscriptionHandler) UnsubscribeResource(_ context.Context, p mcp.UnsubscribeResourceParams) error {
	m.unsubscribed = append(m.unsubscribed, p.URI)
	return nil
}

type mockLogLevelSetter struct {
	level mcp.LogLevel
}

func (m *mockLogLevelSetter) SetLogLevel(_ context.Context, level mcp.LogLevel) error {
	m.level = level
	return nil
}

func TestServerPromptsCapabilityRoundTrip(t *testing.T) {
	handler := &mockPromptHandler{}
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"}, mcp.WithPromptsCapability(handler))
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Start(ctx, srvTransport); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop(context.Background())
	if err := cli.Connect(ctx, cliTransport); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer cli.Disconnect(context.Background())

	if _, caps, err := cli.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	} else if caps.Prompts == nil {
		t.Fatal("expected server to advertise the prompts capability")
	}

	list, err := cli.ListPrompts(ctx, "")
	if err != nil {
		t.Fatalf("ListPrompts() error = %v", err)
	}
	if len(list.Prompts) != 1 || list.Prompts[0].Name != "greet" {
		t.Errorf("Prompts = %+v, want one prompt named greet", list.Prompts)
	}

	got, err := cli.GetPrompt(ctx, "greet", map[string]string{"name": "ada"})
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content.Text != "hello ada" {
		t.Errorf("Messages = %+v, want a single hello ada message", got.Messages)
	}
}

func TestServerResourceSubscriptionHandlerRoundTrip(t *testing.T) {
	handler := &mockResourceSubscriptionHandler{}
	resources := &mockResourceHandler{}
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"},
		mcp.WithResourcesCapability(resources),
		mcp.WithResourceSubscriptionHandler(handler),
	)
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Start(ctx, srvTransport); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop(context.Background())
	if err := cli.Connect(ctx, cliTransport); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer cli.Disconnect(context.Background())

	if _, caps, err := cli.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	} else if caps.Resources == nil || !caps.Resources.Subscribe {
		t.Fatal("expected server to advertise resource subscription support")
	}

	if err := cli.SubscribeToResource(ctx, "file:///a.txt"); err != nil {
		t.Fatalf("SubscribeToResource() error = %v", err)
	}
	if err := cli.UnsubscribeFromResource(ctx, "file:///a.txt"); err != nil {
		t.Fatalf("UnsubscribeFromResource() error = %v", err)
	}

	if len(handler.subscribed) != 1 || handler.subscribed[0] != "file:///a.txt" {
		t.Errorf("subscribed = %v, want [file:///a.txt]", handler.subscribed)
	}
	if len(handler.unsubscribed) != 1 || handler.unsubscribed[0] != "file:///a.txt" {
		t.Errorf("unsubscribed = %v, want [file:///a.txt]", handler.unsubscribed)
	}
}

type mockResourceHandler struct{}

func (mockResourceHandler) ListResources(context.Context, mcp.ListResourcesParams) (mcp.ListResourcesResult, error) {
	return mcp.ListResourcesResult{}, nil
}

func (mockResourceHandler) ReadResource(context.Context, mcp.ReadResourceParams) (mcp.ReadResourceResult, error) {
	return mcp.ReadResourceResult{}, nil
}

func (mockResourceHandler) ListResourceTemplates(context.Context, mcp.ListResourceTemplatesParams) (mcp.ListResourceTemplatesResult, error) {
	return mcp.ListResourceTemplatesResult{}, nil
}

func TestServerLoggingCapabilitySetLevel(t *testing.T) {
	handler := &mockLogLevelSetter{}
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"}, mcp.WithLoggingCapability(handler))
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Start(ctx, srvTransport); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop(context.Background())
	if err := cli.Connect(ctx, cliTransport); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer cli.Disconnect(context.Background())

	if _, _, err := cli.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := cli.SetLogLevel(ctx, mcp.LogLevelWarning); err != nil {
		t.Fatalf("SetLogLevel() error = %v", err)
	}
	if handler.level != mcp.LogLevelWarning {
		t.Errorf("level = %v, want %v", handler.level, mcp.LogLevelWarning)
	}
}

func TestServerRejectsRequestsBeforeInitializeInStrictMode(t *testing.T) {
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"}, mcp.WithToolsCapability(stubToolHandler{}))
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"}, mcp.WithClientStrict(false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Start(ctx, srvTransport); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop(context.Background())
	if err := cli.Connect(ctx, cliTransport); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer cli.Disconnect(context.Background())

	if _, err := cli.ListTools(ctx, ""); err == nil {
		t.Fatal("expected the server to reject tools/list before initialize")
	}
}

func TestServerStopDrainsPendingServerInitiatedCalls(t *testing.T) {
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"})
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Start(ctx, srvTransport); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := cli.Connect(ctx, cliTransport); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if _, _, err := cli.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer cli.Disconnect(context.Background())

	// Disconnect the client transport out from under the server so the pending roots/list call
	// below can only resolve via Stop's drain, not a real response.
	cli.Disconnect(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := mcp.Call[mcp.RootList](ctx, srv, mcp.MethodRootsList, struct{}{})
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected the drained call to return an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Call did not return after Stop drained pending requests")
	}
}

func TestServerUnknownMethodReturnsMethodNotFound(t *testing.T) {
	_, cli := newInitializedPair(t)

	_, err := mcp.Send[struct{}](context.Background(), cli, "totally/unknown", struct{}{})
	if err == nil {
		t.Fatal("expected an error calling an unknown method")
	}
	var pe *mcp.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want a *mcp.ProtocolError", err)
	}
	if pe.Code != mcp.MethodNotFoundCode {
		t.Errorf("Code = %d, want %d (MethodNotFound)", pe.Code, mcp.MethodNotFoundCode)
	}
}

// rawFramePair wires a raw, unencoded pipe to a server so a test can write malformed frames
// directly and inspect exactly what the server writes back, bypassing Client's own encoding.
func rawFramePair(t *testing.T) (reqW io.WriteCloser, respR *bufio.Scanner, srv *mcp.Server) {
	t.Helper()

	reqR, w := io.Pipe()
	r, respW := io.Pipe()

	srv = mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"})
	transport := mcp.NewStdioTransport(reqR, respW)

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx, transport); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Stop(context.Background())
	})

	return w, bufio.NewScanner(r), srv
}

func TestServerParseErrorWithRecoverableID(t *testing.T) {
	reqW, respR, _ := rawFramePair(t)

	// method is a number instead of a string: the full message fails to decode, but the id
	// probe (which only looks at the "id" field) succeeds, so the error response echoes it.
	if _, err := reqW.Write([]byte(`{"jsonrpc":"2.0","id":"abc-123","method":42}` + "\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if !respR.Scan() {
		t.Fatalf("Scan() failed: %v", respR.Err())
	}

	var msg mcp.JSONRPCMessage
	if err := json.Unmarshal(respR.Bytes(), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Error == nil || int32(msg.Error.Code) != mcp.ParseErrorCode {
		t.Fatalf("Error = %+v, want a ParseError", msg.Error)
	}
	if msg.ID.String() != "abc-123" {
		t.Errorf("ID = %q, want the id recovered from the malformed frame", msg.ID.String())
	}
}

func TestServerParseErrorWithNoRecoverableID(t *testing.T) {
	reqW, respR, _ := rawFramePair(t)

	if _, err := reqW.Write([]byte(`not json at all` + "\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if !respR.Scan() {
		t.Fatalf("Scan() failed: %v", respR.Err())
	}

	var msg mcp.JSONRPCMessage
	if err := json.Unmarshal(respR.Bytes(), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Error == nil || int32(msg.Error.Code) != mcp.ParseErrorCode {
		t.Fatalf("Error = %+v, want a ParseError", msg.Error)
	}
	if msg.ID.IsZero() {
		t.Error("expected the server to mint a synthetic id when none could be recovered")
	}
}
