package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arborwell/mcprelay"
)

// Server exposes a graphStore as a set of MCP tools: create/delete entities and relations,
// attach and remove observations, and read back the graph whole, filtered by name, or by
// substring search. It implements mcp.ToolHandler.
type Server struct {
	store graphStore
}

// NewServer builds a memory Server backed by the knowledge graph file at memoryFilePath. The
// file is created lazily on first write; a missing file reads as an empty graph.
func NewServer(memoryFilePath string) Server {
	return Server{store: newGraphStore(memoryFilePath)}
}

// ListTools implements mcp.ToolHandler.
func (s Server) ListTools(context.Context, mcp.ListToolsParams) (mcp.ListToolsResult, error) {
	return toolList, nil
}

// toolOp is one entry in the dispatch table: decode raw arguments into a concrete type, run
// the graphStore operation, and re-encode whatever it returns as the tool result. Op is opaque
// to CallTool, which only needs to invoke it.
type toolOp func(s Server, raw json.RawMessage) (mcp.CallToolResult, error)

// toolOps holds one entry per name in toolList except read_graph (which CallTool dispatches
// directly), replacing a hand-written switch with a lookup
// so adding a tool means adding a table row instead of a new case arm.
var toolOps = map[string]toolOp{
	"create_entities":     decodeAndRun(func(s Server, a createEntitiesArgs) (any, error) { return s.store.createEntities(a.Entities) }),
	"create_relations":    decodeAndRun(func(s Server, a createRelationsArgs) (any, error) { return s.store.createRelations(a.Relations) }),
	"add_observations":    decodeAndRun(func(s Server, a addObservationsArgs) (any, error) { return s.store.addObservations(a.Observations) }),
	"delete_entities":     decodeAndDo(func(s Server, a deleteEntitiesArgs) error { return s.store.deleteEntities(a.EntityNames) }, "Entities deleted successfully"),
	"delete_observations": decodeAndDo(func(s Server, a deleteObservationsArgs) error { return s.store.deleteObservations(a.Deletions) }, "Observations deleted successfully"),
	"delete_relations":    decodeAndDo(func(s Server, a deleteRelationsArgs) error { return s.store.deleteRelations(a.Relations) }, "Relations deleted successfully"),
	"search_nodes":        decodeAndRun(func(s Server, a searchNodesArgs) (any, error) { return s.store.searchNodes(a.Query) }),
	"open_nodes":          decodeAndRun(func(s Server, a openNodesArgs) (any, error) { return s.store.openNodes(a.Names) }),
}

// CallTool implements mcp.ToolHandler. read_graph takes no arguments, so it is dispatched
// directly rather than through toolOps, which always decodes a params struct first.
func (s Server) CallTool(_ context.Context, params mcp.CallToolParams) (mcp.CallToolResult, error) {
	if params.Name == "read_graph" {
		graph, err := s.store.readGraph()
		if err != nil {
			return mcp.CallToolResult{}, err
		}
		return textResult(graph)
	}

	op, ok := toolOps[params.Name]
	if !ok {
		return mcp.CallToolResult{}, fmt.Errorf("memory: tool not found: %s", params.Name)
	}
	return op(s, params.Arguments)
}

// decodeAndRun adapts a typed (Server, Args) -> (any, error) function into the toolOp shape,
// so each table row in toolOps only names its argument type and the store call it makes.
func decodeAndRun[A any](fn func(Server, A) (any, error)) toolOp {
	return func(s Server, raw json.RawMessage) (mcp.CallToolResult, error) {
		var args A
		if err := json.Unmarshal(raw, &args); err != nil {
			return mcp.CallToolResult{}, fmt.Errorf("memory: decode arguments: %w", err)
		}
		result, err := fn(s, args)
		if err != nil {
			return mcp.CallToolResult{}, err
		}
		return textResult(result)
	}
}

// decodeAndDo adapts a typed (Server, Args) -> error mutation into the toolOp shape, returning
// message verbatim as the tool's text content on success rather than JSON-encoding it.
func decodeAndDo[A any](fn func(Server, A) error, message string) toolOp {
	return func(s Server, raw json.RawMessage) (mcp.CallToolResult, error) {
		var args A
		if err := json.Unmarshal(raw, &args); err != nil {
			return mcp.CallToolResult{}, fmt.Errorf("memory: decode arguments: %w", err)
		}
		if err := fn(s, args); err != nil {
			return mcp.CallToolResult{}, err
		}
		return mcp.CallToolResult{Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: message}}}, nil
	}
}

// textResult marshals v as JSON and wraps it as the single text content block every
// graph-returning memory tool responds with.
func textResult(v any) (mcp.CallToolResult, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return mcp.CallToolResult{}, fmt.Errorf("memory: encode result: %w", err)
	}
	return mcp.CallToolResult{
		Content: []mcp.Content{{Type: mcp.ContentTypeText, Text: string(encoded)}},
	}, nil
}
