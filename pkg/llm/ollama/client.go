// Package ollama provides the gateway client for a local Ollama runtime.
package ollama

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"botchat/pkg/chaterrors"
	"botchat/pkg/llm"
	"botchat/pkg/tools"
)

// DefaultHost is the conventional local Ollama server address.
const DefaultHost = "http://localhost:11434"

// Client wraps the Ollama API client to implement llm.Client.
type Client struct {
	client *api.Client
	model  string
}

// NewWithModel creates an Ollama client for the given server URL and model.
func NewWithModel(hostURL, model string) *Client {
	parsed, err := url.Parse(hostURL)
	if err != nil {
		parsed, _ = url.Parse(DefaultHost)
	}
	return &Client{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}
}

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, in llm.ChatRequest) (llm.ChatResponse, error) {
	if len(in.Messages) == 0 {
		return llm.ChatResponse{}, chaterrors.New(chaterrors.KindLLMCall, "message list cannot be empty")
	}

	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}
	if len(in.Tools) > 0 {
		req.Tools = convertTools(in.Tools)
	}

	var response api.ChatResponse
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.ChatResponse{}, chaterrors.Wrap(chaterrors.KindLLMCall, err, "ollama chat failed")
	}

	out := llm.ChatResponse{
		Content:    response.Message.Content,
		StopReason: response.DoneReason,
	}
	for i := range response.Message.ToolCalls {
		tc := &response.Message.ToolCalls[i]
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:         tc.ID,
			Name:       tc.Function.Name,
			Parameters: tc.Function.Arguments.ToMap(),
		})
	}
	return out, nil
}

func convertTools(defs []tools.Definition) api.Tools {
	out := make(api.Tools, len(defs))
	for i := range defs {
		def := &defs[i]

		properties := api.NewToolPropertiesMap()
		for name := range def.InputSchema.Properties {
			prop := def.InputSchema.Properties[name]
			tp := api.ToolProperty{
				Type:        api.PropertyType{prop.Type},
				Description: prop.Description,
			}
			if len(prop.Enum) > 0 {
				enumVals := make([]any, len(prop.Enum))
				for j, v := range prop.Enum {
					enumVals[j] = v
				}
				tp.Enum = enumVals
			}
			properties.Set(name, tp)
		}

		out[i] = api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters: api.ToolFunctionParameters{
					Type:       def.InputSchema.Type,
					Properties: properties,
					Required:   def.InputSchema.Required,
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
