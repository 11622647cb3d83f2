package everything

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/arborwell/mcprelay"
)

const pageSize = 10

var resourceCompletions = map[string][]string{
	"resourceId": {"1", "2", "3", "4", "5"},
}

var promptCompletions = map[string][]string{
	"temperature": {"0", "0.5", "1", "1.5", "2"},
	"style":       {"formal", "casual", "technical", "creative"},
}

func genResources() ([]mcp.Resource, map[string]mcp.ResourceContents) {
	var resources []mcp.Resource
	contents := make(map[string]mcp.ResourceContents)

	for i := 0; i < 100; i++ {
		uri := fmt.Sprintf("test://static/resource/%d", i+1)
		name := fmt.Sprintf("Resource %d", i+1)
		if i%2 == 0 {
			resources = append(resources, mcp.Resource{URI: uri, Name: name, MimeType: "text/plain"})
			contents[uri] = mcp.ResourceContents{
				URI:      uri,
				MimeType: "text/plain",
				Text:     fmt.Sprintf("Resource %d: This is a plain text resource", i+1),
			}
		} else {
			content := fmt.Sprintf("Resource %d: This is a base64 blob", i+1)
			resources = append(resources, mcp.Resource{URI: uri, Name: name, MimeType: "application/octet-stream"})
			contents[uri] = mcp.ResourceContents{
				URI:      uri,
				MimeType: "application/octet-stream",
				Blob:     base64.StdEncoding.EncodeToString([]byte(content)),
			}
		}
	}

	return resources, contents
}

// ListResources implements mcp.ResourceHandler.
func (s *Server) ListResources(_ context.Context, params mcp.ListResourcesParams) (mcp.ListResourcesResult, error) {
	s.log(fmt.Sprintf("ListResources: %s", params.Cursor), mcp.LogLevelDebug)

	startIndex := 0
	if params.Cursor != "" {
		startIndex, _ = strconv.Atoi(params.Cursor)
	}
	endIndex := startIndex + pageSize
	rs, _ := genResources()
	if endIndex > len(rs) {
		endIndex = len(rs)
	}
	resources := rs[startIndex:endIndex]

	nextCursor := ""
	if endIndex < len(rs) {
		nextCursor = fmt.Sprintf("%d", endIndex)
	}

	return mcp.ListResourcesResult{Resources: resources, NextCursor: nextCursor}, nil
}

// ReadResource implements mcp.ResourceHandler.
func (s *Server) ReadResource(_ context.Context, params mcp.ReadResourceParams) (mcp.ReadResourceResult, error) {
	s.log(fmt.Sprintf("ReadResource: %s", params.URI), mcp.LogLevelDebug)

	if !strings.HasPrefix(params.URI, "test://static/resource/") {
		return mcp.ReadResourceResult{}, fmt.Errorf("resource not found")
	}

	_, cs := genResources()
	resource, ok := cs[params.URI]
	if !ok {
		return mcp.ReadResourceResult{}, fmt.Errorf("resource not found")
	}

	return mcp.ReadResourceResult{Contents: []mcp.ResourceContents{resource}}, nil
}

// ListResourceTemplates implements mcp.ResourceHandler.
func (s *Server) ListResourceTemplates(context.Context, mcp.ListResourceTemplatesParams) (mcp.ListResourceTemplatesResult, error) {
	s.log("ListResourceTemplates", mcp.LogLevelDebug)

	return mcp.ListResourceTemplatesResult{
		Templates: []mcp.ResourceTemplate{
			{
				URITemplate: "test://static/resource/{id}",
				Name:        "Static Resource",
				Description: "A status resource with numeric ID",
			},
		},
	}, nil
}

// Complete implements mcp.CompletionHandler for both resource template and prompt argument
// completion; params.Ref.Type discriminates which table to consult.
func (s *Server) Complete(_ context.Context, params mcp.CompletesCompletionParams) (mcp.CompletionResult, error) {
	s.log(fmt.Sprintf("Complete: %s", params.Argument.Name), mcp.LogLevelDebug)

	table := resourceCompletions
	if params.Ref.Type == mcp.CompletionRefPrompt {
		table = promptCompletions
	}

	completions, ok := table[params.Argument.Name]
	if !ok {
		return mcp.CompletionResult{}, nil
	}

	var values []string
	for _, c := range completions {
		if strings.HasPrefix(c, params.Argument.Value) {
			values = append(values, c)
		}
	}

	result := mcp.CompletionResult{}
	result.Completion.Values = values
	return result, nil
}

// SubscribeResource implements mcp.ResourceSubscriptionHandler.
func (s *Server) SubscribeResource(_ context.Context, params mcp.SubscribeResourceParams) error {
	s.log(fmt.Sprintf("SubscribeResource: %s", params.URI), mcp.LogLevelDebug)
	s.resourceSubscribers.Store(params.URI, struct{}{})
	return nil
}

// UnsubscribeResource implements mcp.ResourceSubscriptionHandler.
func (s *Server) UnsubscribeResource(_ context.Context, params mcp.UnsubscribeResourceParams) error {
	s.log(fmt.Sprintf("UnsubscribeResource: %s", params.URI), mcp.LogLevelDebug)
	s.resourceSubscribers.Delete(params.URI)
	return nil
}
