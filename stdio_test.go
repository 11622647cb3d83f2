package mcp_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/arborwell/mcprelay"
)

func TestStdioTransportSendReceive(t *testing.T) {
	var buf bytes.Buffer
	tr := mcp.NewStdioTransport(&buf, &buf)

	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := tr.Send(context.Background(), []byte(`{"jsonrpc":"2.0","method":"ping"}`)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	next, stop := pullFrames(tr.Receive())
	defer stop()

	frame, err, ok := next()
	if !ok {
		t.Fatal("expected a frame, got none")
	}
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if string(frame) != `{"jsonrpc":"2.0","method":"ping"}` {
		t.Errorf("frame = %s, want the written line", frame)
	}
}

func TestStdioTransportConnectedPair(t *testing.T) {
	srvReader, srvWriter := io.Pipe()
	cliReader, cliWriter := io.Pipe()

	srvTransport := mcp.NewStdioTransport(srvReader, cliWriter)
	cliTransport := mcp.NewStdioTransport(cliReader, srvWriter)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := mcp.NewServer(mcp.Info{Name: "srv", Version: "1.0"})
	if err := srv.Start(ctx, srvTransport); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer srv.Stop(context.Background())

	cli := mcp.NewClient(mcp.Info{Name: "cli", Version: "1.0"})
	if err := cli.Connect(ctx, cliTransport); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer cli.Disconnect(context.Background())

	if _, _, err := cli.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if err := cli.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestStdioTransportDisconnectUnblocksReceive(t *testing.T) {
	r, _ := io.Pipe()
	tr := mcp.NewStdioTransport(r, io.Discard)

	done := make(chan struct{})
	go func() {
		for range tr.Receive() {
		}
		close(done)
	}()

	if err := tr.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not unblock after Disconnect")
	}

	// Disconnect must be idempotent.
	if err := tr.Disconnect(context.Background()); err != nil {
		t.Errorf("second Disconnect() error = %v", err)
	}
}

// pullFrames adapts an iter.Seq2[[]byte, error] into a pull-style next function for tests that
// only want the first frame or two.
func pullFrames(seq func(func([]byte, error) bool)) (func() ([]byte, error, bool), func()) {
	type item struct {
		frame []byte
		err   error
	}
	items := make(chan item)
	done := make(chan struct{})

	go func() {
		defer close(items)
		seq(func(frame []byte, err error) bool {
			select {
			case items <- item{frame, err}:
				return true
			case <-done:
				return false
			}
		})
	}()

	next := func() ([]byte, error, bool) {
		it, ok := <-items
		return it.frame, it.err, ok
	}
	stop := func() { close(done) }
	return next, stop
}
