package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/arborwell/mcprelay"
	"github.com/arborwell/mcprelay/servers/everything"
)

var port = "8080"

func main() {
	handler := everything.NewServer()

	sseHandler := &mcp.SSEHandler{
		MessageURL: fmt.Sprintf("%s/message", baseURL()),
		OnSession: func(t *mcp.SSETransport) {
			srv := mcp.NewServer(mcp.Info{
				Name:    "everything",
				Version: "1.0",
			},
				mcp.WithServerPingInterval(30*time.Second),
				mcp.WithPromptsCapability(handler),
				mcp.WithResourcesCapability(handler),
				mcp.WithResourceSubscriptionHandler(handler),
				mcp.WithToolsCapability(handler),
				mcp.WithCompletionHandler(handler),
				mcp.WithLoggingCapability(handler),
			)
			handler.SetServer(srv)

			if err := srv.Start(context.Background(), t); err != nil {
				log.Printf("failed to start session: %v", err)
			}
		},
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		ReadHeaderTimeout: 15 * time.Second,
	}

	http.Handle("/sse", sseHandler.HandleSSE())
	http.Handle("/message", sseHandler.HandleMessage())

	go func() {
		fmt.Printf("Server starting on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for the server to start
	time.Sleep(time.Second)
	fmt.Println("Server started")

	cli := newClient()
	go func() {
		cli.run()
	}()

	<-cli.done

	fmt.Println("Client requested shutdown...")
	fmt.Println("Shutting down server...")

	handler.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Printf("Server forced to shutdown: %v", err)
		return
	}

	fmt.Println("Server exited gracefully")
}

func baseURL() string {
	return fmt.Sprintf("http://localhost:%s", port)
}
