// Package everything implements a reference MCP server exercising every capability of the
// runtime -- prompts, resources, tools, sampling, subscriptions and logging -- primarily for
// exercising client implementations end to end.
package everything

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arborwell/mcprelay"
)

// Server implements a comprehensive test server that exercises all features of the MCP
// protocol. It provides implementations of prompts, tools, resources, and sampling
// capabilities primarily for testing MCP client implementations.
//
// Server maintains subscriptions for resource updates and pushes them, along with log
// messages, through the *mcp.Server it is bound to via SetServer.
type Server struct {
	srv *mcp.Server

	resourceSubscribers sync.Map // map[resourceURI]struct{}

	mu       sync.Mutex
	logLevel mcp.LogLevel

	done   chan struct{}
	closed sync.Once
}

// NewServer creates a new test server that implements all MCP protocol features. Call
// SetServer once the *mcp.Server it will be bound to has been constructed, since several
// capabilities (sampling, resource-update notifications, logging) are server-initiated.
func NewServer() *Server {
	return &Server{
		logLevel: mcp.LogLevelDebug,
		done:     make(chan struct{}),
	}
}

// SetServer binds the *mcp.Server this handler pushes server-initiated requests and
// notifications through. It must be called once, after the Server has been constructed with
// this handler wired into its WithXxx options.
func (s *Server) SetServer(srv *mcp.Server) {
	s.srv = srv
	go s.simulateResourceUpdates()
}

// Close stops the background resource-update simulation. Safe to call more than once.
func (s *Server) Close() {
	s.closed.Do(func() { close(s.done) })
}

func (s *Server) simulateResourceUpdates() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		s.resourceSubscribers.Range(func(key, _ any) bool {
			uri, _ := key.(string)
			s.log(fmt.Sprintf("simulateResourceUpdates: Resource %s updated", uri), mcp.LogLevelDebug)
			_ = s.srv.Notify(context.Background(), mcp.NotificationResourcesUpdated, mcp.ResourceUpdatedParams{URI: uri})
			return true
		})
	}
}
