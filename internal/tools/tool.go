package tools

import (
	"context"
	"fmt"
)

// ToolResult is the uniform envelope every tool returns. Missing evidence is
// modeled as Success=false with a descriptive Error, never as a Go error:
// callers treat it as "no evidence" and move on.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Failure builds a failed ToolResult.
func Failure(format string, args ...any) ToolResult {
	return ToolResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Param describes one tool parameter in a provider-agnostic shape.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Tool is a uniform invocation surface over heterogeneous evidence sources:
// static analysis, commit history, file content.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Param
	Execute(ctx context.Context, params map[string]any) ToolResult
}

// Schema renders a tool's interface as a function-calling schema in the
// shape shared by the major providers.
func Schema(t Tool) map[string]any {
	properties := make(map[string]any)
	var required []string
	for _, p := range t.Parameters() {
		properties[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"name":        t.Name(),
		"description": t.Description(),
		"input_schema": map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// stringParam reads a string parameter, tolerating absence.
func stringParam(params map[string]any, name string) string {
	if v, ok := params[name].(string); ok {
		return v
	}
	return ""
}

// intParam reads an integer parameter; JSON decoding yields float64.
func intParam(params map[string]any, name string, fallback int) int {
	switch v := params[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// intSliceParam reads a list of line numbers from []int, []float64, or []any.
func intSliceParam(params map[string]any, name string) []int {
	switch v := params[name].(type) {
	case []int:
		return v
	case []float64:
		out := make([]int, len(v))
		for i, f := range v {
			out[i] = int(f)
		}
		return out
	case []any:
		var out []int
		for _, e := range v {
			switch n := e.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	}
	return nil
}
