// Package llm provides the gateway interface and types for language model interactions.
// All model calls issued by the pipeline go through a single Client.
package llm

import (
	"context"

	"botchat/pkg/chat"
	"botchat/pkg/tools"
)

const (
	// TemperatureDefault is the default sampling temperature for chat turns.
	TemperatureDefault = 0.7

	// TemperatureJudge is the temperature for reprocessing judgments.
	// Low randomness keeps pass/fail decisions stable.
	TemperatureJudge = 0.1
)

// ChatMessage represents a message in a chat request.
type ChatMessage struct {
	Content string
	Role    chat.Role
}

// ToolCall represents a tool call directive returned by the model.
type ToolCall struct {
	Parameters map[string]any `json:"parameters"`
	// RawArguments holds the argument blob as the provider returned it when
	// it could not be decoded into Parameters. Tool resolution substitutes an
	// empty parameter set for such calls rather than failing the batch.
	RawArguments string `json:"raw_arguments,omitempty"`
	ID           string `json:"id"`
	Name         string `json:"name"`
}

// ChatRequest represents a request to generate a completion.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type ChatRequest struct {
	Messages    []ChatMessage
	Tools       []tools.Definition
	MaxTokens   int
	Temperature float32
}

// ChatResponse represents a response from a chat request.
//
//nolint:govet // fieldalignment: value semantics preferred over pointer indirection
type ChatResponse struct {
	ToolCalls  []ToolCall
	Content    string // Main response text
	StopReason string // Why the response stopped: "end_turn", "max_tokens", "tool_use", etc.
}

// HasToolCalls reports whether the model requested tool use.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Client defines the interface for language model interactions.
// Implementations must treat transport failures and malformed provider
// responses as errors; callers convert them to safe fallback results.
type Client interface {
	// Chat generates a completion synchronously.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ModelName returns the model identifier this client targets.
	ModelName() string
}

// NewChatRequest creates a chat request with default sampling values.
func NewChatRequest(messages []ChatMessage) ChatRequest {
	return ChatRequest{
		Messages:    messages,
		MaxTokens:   4096,
		Temperature: TemperatureDefault,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: chat.RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: chat.RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: chat.RoleAssistant, Content: content}
}

// MessagesFromHistory converts conversation history into request messages.
func MessagesFromHistory(history []chat.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(history))
	for i := range history {
		out = append(out, ChatMessage{
			Role:    history[i].Role,
			Content: history[i].Content,
		})
	}
	return out
}
