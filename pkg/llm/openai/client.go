// Package openai provides the OpenAI gateway client using the official Go SDK.
package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"botchat/pkg/chat"
	"botchat/pkg/chaterrors"
	"botchat/pkg/config"
	"botchat/pkg/llm"
	"botchat/pkg/tools"
)

// Client wraps the official OpenAI client to implement llm.Client.
type Client struct {
	client openai.Client
	model  string
}

// New creates an OpenAI client targeting the default model.
func New(apiKey string) *Client {
	return NewWithModel(apiKey, config.ModelGPT4o)
}

// NewWithModel creates an OpenAI client targeting a specific model.
func NewWithModel(apiKey, model string) *Client {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Chat implements llm.Client using the chat completions API.
func (c *Client) Chat(ctx context.Context, in llm.ChatRequest) (llm.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(c.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(in.MaxTokens)),
		Temperature:         openai.Float(float64(in.Temperature)),
	}
	if len(in.Tools) > 0 {
		params.Tools = convertTools(in.Tools)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.ChatResponse{}, chaterrors.Wrap(chaterrors.KindLLMCall, err, "openai chat completion failed")
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.ChatResponse{}, chaterrors.New(chaterrors.KindLLMCall, "empty response from OpenAI")
	}

	choice := &resp.Choices[0]
	out := llm.ChatResponse{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}

	for i := range choice.Message.ToolCalls {
		tc := &choice.Message.ToolCalls[i]
		call := llm.ToolCall{ID: tc.ID, Name: tc.Function.Name}

		// Argument blobs come back as JSON strings; keep undecodable ones raw
		// so tool resolution can substitute an empty parameter set.
		var parameters map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &parameters); err != nil {
			call.RawArguments = tc.Function.Arguments
		} else {
			call.Parameters = parameters
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

func convertTools(defs []tools.Definition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(defs))
	for i := range defs {
		def := &defs[i]

		properties := make(map[string]any, len(def.InputSchema.Properties))
		for name := range def.InputSchema.Properties {
			prop := def.InputSchema.Properties[name]
			propMap := map[string]any{"type": prop.Type}
			if prop.Description != "" {
				propMap["description"] = prop.Description
			}
			if len(prop.Enum) > 0 {
				propMap["enum"] = prop.Enum
			}
			properties[name] = propMap
		}

		out[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters: openai.FunctionParameters{
					"type":       "object",
					"properties": properties,
					"required":   def.InputSchema.Required,
				},
			},
		}
	}
	return out
}

// ModelName implements llm.Client.
func (c *Client) ModelName() string {
	return c.model
}
