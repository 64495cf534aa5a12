// Package tools provides tool definitions, an instance registry, tolerant
// tool-call resolution, and batch execution for model-requested tool use.
package tools

import "context"

// Property defines a single parameter in a tool's input schema.
type Property struct {
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
}

// InputSchema describes a tool's parameters in JSON-schema style.
type InputSchema struct {
	Properties map[string]Property `json:"properties,omitempty"`
	Type       string              `json:"type"`
	Required   []string            `json:"required,omitempty"`
}

// Definition is the provider-facing description of a tool.
type Definition struct {
	InputSchema InputSchema `json:"input_schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
}

// Tool is a single invocable unit of work requested by the model.
type Tool interface {
	Definition() Definition
	Exec(ctx context.Context, args map[string]any) (any, error)
}

/// Call is a resolved tool invocation: a normalized {name, parameters} pair.
type Call struct {
	Parameters map[string]any `json:"parameters"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
}

// ExecResult is the per-call outcome of tool execution. A failing call sets
// Err and leaves Output empty; it never aborts the rest of the batch.
type ExecResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Output     string `json:"output,omitempty"`
	Err        string `json:"error,omitempty"`
}

// IsError reports whether this result carries a per-call failure.
func (r *ExecResult) IsError() bool {
	return r.Err != ""
}
