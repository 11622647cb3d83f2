package mcp

import "context"

// Handler interfaces for the reference MCP catalog (§11). Each is wired into the core purely
// through RegisterMethod/RegisterNotification when the matching WithXxx option is supplied to
// NewServer/NewClient -- none of these names are special-cased inside the dispatch engine.

// PromptHandler backs the prompts/list and prompts/get methods.
type PromptHandler interface {
	ListPrompts(ctx context.Context, params ListPromptsParams) (ListPromptResult, error)
	GetPrompt(ctx context.Context, params GetPromptParams) (GetPromptResult, error)
}

// ResourceHandler backs the resources/list, resources/read and resources/templates/list
// methods.
type ResourceHandler interface {
	ListResources(ctx context.Context, params ListResourcesParams) (ListResourcesResult, error)
	ReadResource(ctx context.Context, params ReadResourceParams) (ReadResourceResult, error)
	ListResourceTemplates(ctx context.Context, params ListResourceTemplatesParams) (ListResourceTemplatesResult, error)
}

// ResourceSubscriptionHandler backs resources/subscribe and resources/unsubscribe. The server
// facade maintains the bare map<uri, set<client name>> storage (unsubscribe drops a URI's whole
// set); this handler supplies whatever semantics (watching a filesystem, polling a database, ...) should
// run when a client subscribes.
type ResourceSubscriptionHandler interface {
	SubscribeResource(ctx context.Context, params SubscribeResourceParams) error
	UnsubscribeResource(ctx context.Context, params UnsubscribeResourceParams) error
}

// ToolHandler backs tools/list and tools/call.
type ToolHandler interface {
	ListTools(ctx context.Context, params ListToolsParams) (ListToolsResult, error)
	CallTool(ctx context.Context, params CallToolParams) (CallToolResult, error)
}

// CompletionHandler backs completion/complete for both prompt-argument and
// resource-template-argument completion; Ref.Type discriminates which.
type CompletionHandler interface {
	Complete(ctx context.Context, params CompletesCompletionParams) (CompletionResult, error)
}

// LogLevelSetter backs logging/setLevel. The server passes the requested level to SetLogLevel
// and keeps no copy of it; filtering outgoing log notifications by level is up to the
// implementation.
type LogLevelSetter interface {
	SetLogLevel(ctx context.Context, level LogLevel) error
}

// RootsHandler backs the server-initiated roots/list method; the client answers it.
type RootsHandler interface {
	ListRoots(ctx context.Context) (RootList, error)
}

// SamplingHandler backs the server-initiated sampling/createMessage method; the client answers
// it by invoking (or brokering to) a model.
type SamplingHandler interface {
	CreateSampleMessage(ctx context.Context, params SamplingParams) (SamplingResult, error)
}

// SamplingParams defines the parameters for a server-initiated sampling/createMessage call.
type SamplingParams struct {
	Messages         []SamplingMessage        `json:"messages"`
	ModelPreferences SamplingModelPreferences `json:"modelPreferences"`
	SystemPrompt     string                   `json:"systemPrompt,omitempty"`
	MaxTokens        int                      `json:"maxTokens"`
}

// SamplingMessage is one entry in a sampling conversation history.
type SamplingMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// SamplingModelPreferences steers model selection for a sampling request.
type SamplingModelPreferences struct {
	Hints                []SamplingModelHint `json:"hints,omitempty"`
	CostPriority         float64             `json:"costPriority,omitempty"`
	SpeedPriority        float64             `json:"speedPriority,omitempty"`
	IntelligencePriority float64             `json:"intelligencePriority,omitempty"`
}

// SamplingModelHint names a model family the requester would prefer, if available.
type SamplingModelHint struct {
	Name string `json:"name"`
}

// SamplingResult is the outcome of a sampling/createMessage call.
type SamplingResult struct {
	Role       Role    `json:"role"`
	Content    Content `json:"content"`
	Model      string  `json:"model"`
	StopReason string  `json:"stopReason,omitempty"`
}

// Notification method names, exported for embedders that emit these directly via
// Server.Notify/Client.Notify rather than through a WithXxx-registered handler.
const (
	NotificationInitialized          = methodNotificationsInitialized
	NotificationCancelled            = methodNotificationsCancelled
	NotificationPromptsListChanged   = methodNotificationsPromptsListChanged
	NotificationResourcesListChanged = methodNotificationsResourcesListChanged
	NotificationResourcesUpdated     = methodNotificationsResourcesUpdated
	NotificationToolsListChanged     = methodNotificationsToolsListChanged
	NotificationProgress             = methodNotificationsProgress
	NotificationMessage              = methodNotificationsMessage
	NotificationRootsListChanged     = methodNotificationsRootsListChanged
)

// ResourceUpdatedParams carries the URI of a resource named in a
// notifications/resources/updated notification.
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}

// CancelledParams carries the id and optional reason of a notifications/cancelled
// notification.
type CancelledParams struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason"`
}
