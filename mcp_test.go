package mcp_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/arborwell/mcprelay"
)

// echoToolHandler is a minimal ToolHandler that advertises one tool, "echo", and returns its
// "text" argument back as text content.
type echoToolHandler struct{}

type echoArgs struct {
	Text string `json:"text"`
}

func (echoToolHandler) ListTools(context.Context, mcp.ListToolsParams) (mcp.ListToolsResult, error) {
	return mcp.ListToolsResult{Tools: []mcp.Tool{{Name: "echo", Description: "echoes text back"}}}, nil
}

func (echoToolHandler) CallTool(_ context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args echoArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, mcp.NewInvalidParams(err.Error())
	}
	return mcp.CallToolResult{Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: args.Text}}}, nil
}

func TestEndToEndInitializeAndCallTool(t *testing.T) {
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "echo-server", Version: "1.0"}, mcp.WithToolsCapability(echoToolHandler{}))
	cli := mcp.NewClient(mcp.Info{Name: "echo-client", Version: "1.0"})

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

	info, caps, err := cli.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if info.Name != "echo-server" {
		t.Errorf("ServerInfo.Name = %q, want %q", info.Name, "echo-server")
	}
	if caps.Tools == nil {
		t.Fatal("expected the tools capability to be advertised")
	}

	tools, err := cli.ListTools(ctx, "")
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools.Tools) != 1 || tools.Tools[0].Name != "echo" {
		t.Fatalf("Tools = %+v, want one tool named echo", tools.Tools)
	}

	args, err := json.Marshal(echoArgs{Text: "hello"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	result, err := cli.CallTool(ctx, "echo", args)
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hello" {
		t.Errorf("Content = %+v, want a single text block saying hello", result.Content)
	}
}

func TestEndToEndResourceUpdatedNotificationDelivery(t *testing.T) {
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"})
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})

	var mu sync.Mutex
	var received []string
	done := make(chan struct{}, 1)
	mcp.RegisterNotification(cli.Notifications(), mcp.NotificationResourcesUpdated, func(_ context.Context, params mcp.ResourceUpdatedParams) {
		mu.Lock()
		received = append(received, params.URI)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

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

	if err := srv.Notify(ctx, mcp.NotificationResourcesUpdated, mcp.ResourceUpdatedParams{URI: "file:///a.txt"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != "file:///a.txt" {
		t.Errorf("received = %v, want [file:///a.txt]", received)
	}
}

func TestEndToEndLogMessageNotificationDelivery(t *testing.T) {
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"})
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})

	done := make(chan mcp.LogParams, 1)
	mcp.RegisterNotification(cli.Notifications(), mcp.NotificationMessage, func(_ context.Context, params mcp.LogParams) {
		done <- params
	})

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

	payload, err := json.Marshal(map[string]string{"message": "server is warming up"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if err := srv.Notify(ctx, mcp.NotificationMessage, mcp.LogParams{Level: mcp.LogLevelInfo, Logger: "srv", Data: payload}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	select {
	case got := <-done:
		if got.Level != mcp.LogLevelInfo {
			t.Errorf("Level = %v, want %v", got.Level, mcp.LogLevelInfo)
		}
		if got.Logger != "srv" {
			t.Errorf("Logger = %q, want %q", got.Logger, "srv")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("log notification was not delivered")
	}
}

func TestEndToEndProgressNotificationDelivery(t *testing.T) {
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"})
	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})

	done := make(chan mcp.ProgressParams, 1)
	mcp.RegisterNotification(cli.Notifications(), mcp.NotificationProgress, func(_ context.Context, params mcp.ProgressParams) {
		done <- params
	})

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

	if err := srv.Notify(ctx, mcp.NotificationProgress, mcp.ProgressParams{
		ProgressToken: mcp.MustString("op-1"),
		Progress:      50,
		Total:         100,
	}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	select {
	case got := <-done:
		if got.ProgressToken != mcp.MustString("op-1") {
			t.Errorf("ProgressToken = %v, want op-1", got.ProgressToken)
		}
		if got.Progress != 50 || got.Total != 100 {
			t.Errorf("Progress/Total = %v/%v, want 50/100", got.Progress, got.Total)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("progress notification was not delivered")
	}
}

func TestEndToEndPingKeepsSessionAliveAcrossFailureThreshold(t *testing.T) {
	srvTransport, cliTransport := connectedTransports(t)

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"},
		mcp.WithServerPingInterval(20*time.Millisecond),
		mcp.WithServerPingFailureThreshold(3),
	)
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

	// Let a few ping intervals elapse; the client answers pings automatically via its core
	// handler, so the session must still be usable afterward.
	time.Sleep(150 * time.Millisecond)

	if err := cli.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v, want the session to have survived the background pinger", err)
	}

	cli.Disconnect(context.Background())
	srv.Stop(context.Background())
}
