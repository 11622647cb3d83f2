package everything

import (
	"context"
	"encoding/json"

	"github.com/arborwell/mcprelay"
)

// SetLogLevel implements mcp.LogLevelSetter.
func (s *Server) SetLogLevel(_ context.Context, level mcp.LogLevel) error {
	s.mu.Lock()
	s.logLevel = level
	s.mu.Unlock()
	return nil
}

func (s *Server) log(msg string, level mcp.LogLevel) {
	s.mu.Lock()
	threshold := s.logLevel
	s.mu.Unlock()
	if level < threshold || s.srv == nil {
		return
	}

	data, _ := json.Marshal(struct {
		Message string `json:"message"`
	}{Message: msg})

	_ = s.srv.Notify(context.Background(), mcp.NotificationMessage, mcp.LogParams{
		Level:  level,
		Logger: "everything",
		Data:   data,
	})
}
