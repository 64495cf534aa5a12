package metrics

import (
	"context"
	"time"

	"botchat/pkg/llm"
	"botchat/pkg/logx"
	"botchat/pkg/tokens"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// UsageExtractor extracts token usage from a request and response pair.
type UsageExtractor func(req llm.ChatRequest, resp llm.ChatResponse) (promptTokens, completionTokens int)

// DefaultUsageExtractor counts tokens with tiktoken.
func DefaultUsageExtractor(req llm.ChatRequest, resp llm.ChatResponse) (promptTokens, completionTokens int) {
	var promptText string
	for i := range req.Messages {
		promptText += req.Messages[i].Content + "\n"
	}
	return tokens.CountSimple(promptText), tokens.CountSimple(resp.Content)
}

// Middleware records latency, token usage, and success/failure per gateway
// call, labeled by the bot the client serves.
func Middleware(recorder Recorder, usageExtractor UsageExtractor, botID string, logger *logx.Logger) llm.Middleware {
	if usageExtractor == nil {
		usageExtractor = DefaultUsageExtractor
	}

	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
				start := time.Now()
				resp, err := next.Chat(ctx, req)
				duration := time.Since(start)

				var promptTokens, completionTokens int
				if err == nil {
					promptTokens, completionTokens = usageExtractor(req, resp)
				}

				errorType := ""
				if err != nil {
					errorType = classifyError(err)
				}

				recorder.ObserveRequest(next.ModelName(), botID, promptTokens, completionTokens, err == nil, errorType, duration)

				if logger != nil {
					status := statusSuccess
					if err != nil {
						status = statusError
					}
					logger.Info("🎯 LLM request: model=%s bot=%s tokens=%d+%d status=%s duration=%dms",
						next.ModelName(), botID, promptTokens, completionTokens, status, duration.Milliseconds())
				}

				return resp, err //nolint:wrapcheck // Middleware passes errors through unchanged
			},
			next.ModelName,
		)
	}
}

// classifyError buckets errors for metrics labeling.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	switch err.Error() {
	case "context deadline exceeded":
		return "timeout"
	case "context canceled":
		return "canceled"
	default:
		return "unknown"
	}
}
