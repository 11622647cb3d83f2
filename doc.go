// Package mcp is a client and server implementation of the Model Context Protocol, the
// JSON-RPC 2.0 based wire protocol described at https://spec.modelcontextprotocol.io/specification/
// for connecting LLM applications to external tools, prompts, and data sources.
//
// A Server exposes prompts, resources, and tools over a Transport (stdio or SSE) to any
// compliant client; a Client drives that same protocol from the other side, including the
// client-initiated roots and sampling capabilities a server can call back into. Both share the
// same capability-negotiation handshake, request/response correlation, and cancellation model,
// so the packages under servers/ implement only their domain logic against the ToolHandler,
// ResourceHandler, and PromptHandler interfaces this package defines.
package mcp
