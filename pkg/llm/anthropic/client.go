// Package anthropic provides the Anthropic Claude gateway client.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"botchat/pkg/chat"
	"botchat/pkg/chaterrors"
	"botchat/pkg/config"
	"botchat/pkg/llm"
	"botchat/pkg/tools"
)

// Client wraps the Anthropic API client to implement llm.Client.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// New creates a Claude client targeting the default model.
func New(apiKey string) *Client {
	return NewWithModel(apiKey, config.ModelClaudeSonnetLatest)
}

// NewWithModel creates a Claude client targeting a specific model.
func NewWithModel(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// normalize prepares messages for the Anthropic API:
// system messages move to the top-level system parameter, consecutive user
// messages merge, and the sequence must end with a user message.
func normalize(messages []llm.ChatMessage) (systemPrompt string, out []llm.ChatMessage, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var rest []llm.ChatMessage
	for i := range messages {
		if messages[i].Role == chat.RoleSystem {
			systemParts = append(systemParts, messages[i].Content)
		} else {
			rest = append(rest, messages[i])
		}
	}
	systemPrompt = strings.Join(systemParts, "\n\n")

	if len(rest) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}

	// Merge consecutive user messages; the API requires strict alternation.
	var merged []llm.ChatMessage
	var userParts []string
	for i := range rest {
		msg := &rest[i]
		if msg.Role == chat.RoleAssistant {
			if len(userParts) > 0 {
				merged = append(merged, llm.ChatMessage{Role: chat.RoleUser, Content: strings.Join(userParts, "\n\n")})
				userParts = nil
			}
			merged = append(merged, *msg)
		} else {
			userParts = append(userParts, msg.Content)
		}
	}
	if len(userParts) > 0 {
		merged = append(merged, llm.ChatMessage{Role: chat.RoleUser, Content: strings.Join(userParts, "\n\n")})
	}

	if merged[0].Role != chat.RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	if merged[len(merged)-1].Role != chat.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", merged[len(merged)-1].Role)
	}
	return systemPrompt, merged, nil
}

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, in llm.ChatRequest) (llm.ChatResponse, error) {
	systemPrompt, normalized, err := normalize(in.Messages)
	if err != nil {
		return llm.ChatResponse{}, chaterrors.Wrap(chaterrors.KindLLMCall, err, "message normalization failed")
	}

	messages := make([]anthropic.MessageParam, 0, len(normalized))
	for i := range normalized {
		msg := &normalized[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt, Type: "text"}}
	}
	if len(in.Tools) > 0 {
		params.Tools = convertTools(in.Tools)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfAuto: &anthropic.ToolChoiceAutoParam{},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.ChatResponse{}, chaterrors.Wrap(chaterrors.KindLLMCall, err, "anthropic API call failed")
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.ChatResponse{}, chaterrors.New(chaterrors.KindLLMCall, "received empty response from Claude API")
	}

	var responseText string
	var toolCalls []llm.ToolCall
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			responseText += block.AsText().Text
		case "tool_use":
			toolUse := block.AsToolUse()
			call := llm.ToolCall{ID: toolUse.ID, Name: toolUse.Name}

			// Undecodable input is preserved raw; tool resolution substitutes
			// an empty parameter set rather than failing the turn.
			var params map[string]any
			if err := json.Unmarshal(toolUse.Input, &params); err != nil {
				call.RawArguments = string(toolUse.Input)
			} else {
				call.Parameters = params
			}
			toolCalls = append(toolCalls, call)
		}
	}

	return llm.ChatResponse{
		Content:    responseText,
		ToolCalls:  toolCalls,
		StopReason: string(resp.StopReason),
	}, nil
}

func convertTools(defs []tools.Definition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for i := range defs {
		def := &defs[i]

		var properties any
		if len(def.InputSchema.Properties) > 0 {
			props := make(map[string]any, len(def.InputSchema.Properties))
			for name := range def.InputSchema.Properties {
				prop := def.InputSchema.Properties[name]
				propMap := map[string]any{"type": prop.Type}
				if prop.Description != "" {
					propMap["description"] = prop.Description
				}
				if len(prop.Enum) > 0 {
					propMap["enum"] = prop.Enum
				}
				props[name] = propMap
			}
			properties = props
		}

		out = append(out, anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
			Type:       "object",
			Properties: properties,
			Required:   def.InputSchema.Required,
		}, def.Name))
	}
	return out
}

// ModelName implements llm.Client.
func (c *Client) ModelName() string {
	return string(c.model)
}
