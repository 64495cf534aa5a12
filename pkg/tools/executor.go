package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"botchat/pkg/logx"
)

// Executor invokes resolved tool calls. Errors are per-call and never abort
// the batch.
type Executor interface {
	ExecuteAll(ctx context.Context, calls []Call) []ExecResult
}

// ProviderExecutor runs tool calls against a Provider's allowed tool set.
type ProviderExecutor struct {
	provider *Provider
	logger   *logx.Logger
}

// NewProviderExecutor creates an executor backed by the given provider.
func NewProviderExecutor(provider *Provider, logger *logx.Logger) *ProviderExecutor {
	if logger == nil {
		logger = logx.NewLogger("tool-executor")
	}
	return &ProviderExecutor{provider: provider, logger: logger}
}

// ExecuteAll runs every call, collecting per-call results and errors.
// Partial failure of one tool does not abort the batch.
func (e *ProviderExecutor) ExecuteAll(ctx context.Context, calls []Call) []ExecResult {
	results := make([]ExecResult, len(calls))
	for i := range calls {
		call := &calls[i]
		results[i] = e.executeOne(ctx, call)
	}
	return results
}

func (e *ProviderExecutor) executeOne(ctx context.Context, call *Call) ExecResult {
	result := ExecResult{ToolCallID: call.ID, Name: call.Name}

	tool, err := e.provider.Get(call.Name)
	if err != nil {
		e.logger.Error("Failed to get tool %s: %v", call.Name, err)
		result.Err = err.Error()
		return result
	}

	start := time.Now()
	out, err := tool.Exec(ctx, call.Parameters)
	duration := time.Since(start)

	if err != nil {
		e.logger.Error("Tool %s failed after %.3fs: %v", call.Name, duration.Seconds(), err)
		result.Err = err.Error()
		return result
	}

	e.logger.Debug("tools", "Tool %s completed in %.3fs", call.Name, duration.Seconds())
	result.Output = formatOutput(out)
	return result
}

// formatOutput converts a tool's return value to the string form stored in
// results and fed back to the model.
func formatOutput(out any) string {
	switch v := out.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
