package everything

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arborwell/mcprelay"
)

// mcpTinyImage is a 1x1 opaque black PNG (grayscale with alpha), returned by the getTinyImage tool so clients can
// exercise image content without shipping a real asset.
const mcpTinyImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNk+A8AAQUBAScY42YAAAAASUVORK5CYII="

var toolList = []mcp.Tool{
	{
		Name:        "echo",
		Description: "Echoes back the input",
		InputSchema: echoSchema,
	},
	{
		Name:        "add",
		Description: "Adds two numbers",
		InputSchema: addSchema,
	},
	{
		Name:        "longRunningOperation",
		Description: "Demonstrates a long running operation with progress updates",
		InputSchema: longRunningOperationSchema,
	},
	{
		Name:        "printEnv",
		Description: "Prints all environment variables, helpful for debugging MCP server configuration",
	},
	{
		Name:        "sampleLLM",
		Description: "Samples from an LLM using MCP's sampling feature",
		InputSchema: sampleLLMSchema,
	},
	{
		Name:        "getTinyImage",
		Description: "Returns the MCP_TINY_IMAGE",
	},
}

// ListTools implements mcp.ToolHandler.
func (s *Server) ListTools(context.Context, mcp.ListToolsParams) (mcp.ListToolsResult, error) {
	s.log("ListTools", mcp.LogLevelDebug)
	return mcp.ListToolsResult{Tools: toolList}, nil
}

// CallTool implements mcp.ToolHandler.
func (s *Server) CallTool(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	s.log(fmt.Sprintf("CallTool: %s", params.Name), mcp.LogLevelDebug)

	switch params.Name {
	case "echo":
		return s.callEcho(params)
	case "add":
		return s.callAdd(params)
	case "longRunningOperation":
		return s.callLongRunningOperation(ctx, params)
	case "printEnv":
		return s.callPrintEnv()
	case "sampleLLM":
		return s.callSampleLLM(ctx, params)
	case "getTinyImage":
		return s.callGetTinyImage()
	default:
		return mcp.CallToolResult{}, fmt.Errorf("tool not found: %s", params.Name)
	}
}

func (s *Server) callEcho(params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args EchoArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("params validation failed: %w", err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: args.Message}},
	}, nil
}

func (s *Server) callAdd(params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args AddArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("params validation failed: %w", err)
	}

	result := args.A + args.B
	return mcp.CallToolResult{
		Content: []mcp.Content{{
			Type: mcp.ContentTypeText,
			Text: fmt.Sprintf("The sum of %f and %f is %f", args.A, args.B, result),
		}},
	}, nil
}

func (s *Server) callLongRunningOperation(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args LongRunningOperationArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("params validation failed: %w", err)
	}

	stepDuration := args.Duration / args.Steps

	for i := 0; i < int(args.Steps); i++ {
		select {
		case <-time.After(time.Duration(stepDuration) * time.Second):
		case <-ctx.Done():
			return mcp.CallToolResult{}, ctx.Err()
		case <-s.done:
			return mcp.CallToolResult{}, fmt.Errorf("server closed")
		}

		if params.Meta.ProgressToken == "" {
			continue
		}
		_ = s.srv.Notify(ctx, mcp.NotificationProgress, mcp.ProgressParams{
			ProgressToken: params.Meta.ProgressToken,
			Progress:      float64(i + 1),
			Total:         args.Steps,
		})
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{
			Type: mcp.ContentTypeText,
			Text: fmt.Sprintf("Long running operation completed. Duration: %f seconds, Steps: %f", args.Duration, args.Steps),
		}},
	}, nil
}

func (s *Server) callPrintEnv() (mcp.CallToolResult, error) {
	return mcp.CallToolResult{
		Content: []mcp.Content{{
			Type: mcp.ContentTypeText,
			Text: fmt.Sprintf("Environment variables:\n%s", strings.Join(os.Environ(), "\n")),
		}},
	}, nil
}

func (s *Server) callSampleLLM(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	var args SampleLLMArgs
	if err := json.Unmarshal(params.Arguments, &args); err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("params validation failed: %w", err)
	}

	result, err := mcp.Call[mcp.SamplingResult](ctx, s.srv, mcp.MethodSamplingCreateMessage, mcp.SamplingParams{
		Messages: []mcp.SamplingMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.Content{Type: mcp.ContentTypeText, Text: fmt.Sprintf("Resource sampleLLM context: %s", args.Prompt)},
			},
		},
		ModelPreferences: mcp.SamplingModelPreferences{
			CostPriority:         1,
			SpeedPriority:        2,
			IntelligencePriority: 3,
		},
		SystemPrompt: "You are a helpful assistant.",
		MaxTokens:    int(args.MaxTokens),
	})
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("failed to request sampling: %w", err)
	}

	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: result.Content.Text}},
	}, nil
}

func (s *Server) callGetTinyImage() (mcp.CallToolResult, error) {
	return mcp.CallToolResult{
		Content: []mcp.Content{{
			Type:     mcp.ContentTypeImage,
			Data:     mcpTinyImage,
			MimeType: "image/png",
		}},
	}, nil
}
