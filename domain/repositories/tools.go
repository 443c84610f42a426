package repositories

import "context"

// Tool is a callable the voice backend may invoke during a conversation.
// The relay core never calls tools directly.
type Tool interface {
	Name() string
	Description() string
	Parameters() []ToolParameter
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ToolParameter describes one string argument of a tool
type ToolParameter struct {
	Name        string
	Description string
	Required    bool
}

// KnowledgeBase retrieves passages relevant to a query
type KnowledgeBase interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// ToolDispatcher exposes the registered tools to a backend and runs calls
// by name. Failures are reported inside the returned response.
type ToolDispatcher interface {
	Tools() []Tool
	Dispatch(ctx context.Context, name string, args map[string]any) map[string]any
}
