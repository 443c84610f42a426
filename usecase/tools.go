package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voicerelay/domain/repositories"
)

const toolCallTimeout = 20 * time.Second

// ToolRegistry holds the tools offered to the voice backend
type ToolRegistry struct {
	mu     sync.RWMutex
	tools  map[string]repositories.Tool
	order  []string
	logger *zap.Logger
}

// NewToolRegistry creates a registry with the given tools
func NewToolRegistry(logger *zap.Logger, tools ...repositories.Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{
		tools:  make(map[string]repositories.Tool),
		logger: logger,
	}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be unique.
func (r *ToolRegistry) Register(tool repositories.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.order = append(r.order, tool.Name())
	return nil
}

// Tools returns the registered tools in registration order
func (r *ToolRegistry) Tools() []repositories.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]repositories.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Dispatch runs the named tool. Unknown tools and failures come back as
// {"error": ...} so the model can recover in conversation.
func (r *ToolRegistry) Dispatch(ctx context.Context, name string, args map[string]any) map[string]any {
	r.mu.RLock()
	tool, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		r.logger.Warn("Unknown tool requested", zap.String("tool", name))
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", name)}
	}

	ctx, cancel := context.WithTimeout(ctx, toolCallTimeout)
	defer cancel()

	start := time.Now()
	result, err := tool.Call(ctx, args)
	if err != nil {
		r.logger.Error("Tool call failed",
			zap.String("tool", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return map[string]any{"error": err.Error()}
	}

	r.logger.Info("Tool call completed",
		zap.String("tool", name),
		zap.Duration("duration", time.Since(start)))
	return result
}

// stringArg reads a string argument, reporting whether it was present and non-empty
func stringArg(args map[string]any, name string) (string, bool) {
	value, ok := args[name].(string)
	return value, ok && value != ""
}
