package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrToolNotFound is returned when executing an unregistered tool name.
// This is the only fatal tool-invocation error; everything else surfaces as
// ToolResult.Success=false.
var ErrToolNotFound = errors.New("tool not found")

// Registry is a name-keyed tool lookup.
type Registry struct {
	tools map[string]Tool
	log   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{tools: make(map[string]Tool), log: log}
}

// Register adds a tool, replacing any prior tool with the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
	r.log.Debug("registered tool", "name", t.Name())
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns every registered tool, sorted by name.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Schemas returns function-calling schemas for every registered tool.
func (r *Registry) Schemas() []map[string]any {
	all := r.All()
	out := make([]map[string]any, 0, len(all))
	for _, t := range all {
		out = append(out, Schema(t))
	}
	return out
}

// Execute runs the named tool. Unknown names return ErrToolNotFound; tool
// failures are reported inside the ToolResult, not as errors.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (ToolResult, error) {
	t, ok := r.tools[name]
	if !ok {
		return ToolResult{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t.Execute(ctx, params), nil
}
