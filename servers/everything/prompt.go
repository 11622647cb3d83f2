package everything

import (
	"context"
	"fmt"

	"github.com/arborwell/mcprelay"
)

var promptList = []mcp.Prompt{
	{
		Name:        "simple-prompt",
		Description: "A prompt without arguments",
	},
	{
		Name:        "complex-prompt",
		Description: "A prompt with arguments",
		Arguments: []mcp.PromptArgument{
			{Name: "temperature", Description: "Temperature setting", Required: true},
			{Name: "style", Description: "Output style", Required: false},
		},
	},
}

// ListPrompts implements mcp.PromptHandler.
func (s *Server) ListPrompts(_ context.Context, params mcp.ListPromptsParams) (mcp.ListPromptResult, error) {
	s.log(fmt.Sprintf("ListPrompts: %s", params.Cursor), mcp.LogLevelDebug)

	return mcp.ListPromptResult{Prompts: promptList}, nil
}

// GetPrompt implements mcp.PromptHandler.
func (s *Server) GetPrompt(_ context.Context, params mcp.GetPromptParams) (mcp.GetPromptResult, error) {
	s.log(fmt.Sprintf("GetPrompt: %s", params.Name), mcp.LogLevelDebug)

	switch params.Name {
	case "simple-prompt":
		return mcp.GetPromptResult{
			Description: "A prompt without arguments",
			Messages: []mcp.PromptMessage{
				{
					Role:    mcp.RoleUser,
					Content: mcp.Content{Type: mcp.ContentTypeText, Text: "This is a simple prompt without arguments."},
				},
			},
		}, nil
	case "complex-prompt":
		temperature := params.Arguments["temperature"]
		style := params.Arguments["style"]
		if style == "" {
			style = "unspecified"
		}
		return mcp.GetPromptResult{
			Description: "A prompt with arguments",
			Messages: []mcp.PromptMessage{
				{
					Role: mcp.RoleUser,
					Content: mcp.Content{
						Type: mcp.ContentTypeText,
						Text: fmt.Sprintf("This is a complex prompt with temperature %s and style %s.", temperature, style),
					},
				},
				{
					Role: mcp.RoleAssistant,
					Content: mcp.Content{
						Type: mcp.ContentTypeText,
						Text: "I understand, I'll use that temperature and style for my responses.",
					},
				},
			},
		}, nil
	default:
		return mcp.GetPromptResult{}, fmt.Errorf("unknown prompt: %s", params.Name)
	}
}
