// Package google provides the Google Gemini gateway client.
package google

import (
	"context"

	"google.golang.org/genai"

	"botchat/pkg/chat"
	"botchat/pkg/chaterrors"
	"botchat/pkg/llm"
	"botchat/pkg/tools"
)

// Client wraps the Google GenAI client to implement llm.Client.
type Client struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewWithModel creates a Gemini client targeting a specific model. The
// underlying SDK client is created lazily on first use because its
// constructor needs a context.
func NewWithModel(apiKey, model string) *Client {
	return &Client{apiKey: apiKey, model: model}
}

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, in llm.ChatRequest) (llm.ChatResponse, error) {
	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.ChatResponse{}, chaterrors.Wrap(chaterrors.KindLLMCall, err, "failed to create Gemini client")
		}
		c.client = client
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return llm.ChatResponse{}, chaterrors.Wrap(chaterrors.KindLLMCall, err, "message conversion failed")
	}

	temperature := in.Temperature
	//nolint:gosec // MaxTokens validated at config load; overflow not reachable
	maxTokens := int32(in.MaxTokens)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}
	if len(in.Tools) > 0 {
		cfg.Tools = []*genai.Tool{
			{FunctionDeclarations: convertTools(in.Tools)},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return llm.ChatResponse{}, chaterrors.Wrap(chaterrors.KindLLMCall, err, "gemini API call failed")
	}
	if result == nil {
		return llm.ChatResponse{}, chaterrors.New(chaterrors.KindLLMCall, "empty response from Gemini API")
	}

	out := llm.ChatResponse{Content: result.Text()}
	if len(result.Candidates) > 0 {
		out.StopReason = string(result.Candidates[0].FinishReason)
	}
	for _, fc := range result.FunctionCalls() {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:         fc.ID,
			Name:       fc.Name,
			Parameters: fc.Args,
		})
	}
	return out, nil
}

// convertMessages maps chat messages to Gemini contents. System messages
// collapse into the system instruction; Gemini names the assistant role
// "model".
func convertMessages(messages []llm.ChatMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", chaterrors.New(chaterrors.KindLLMCall, "message list cannot be empty")
	}

	var systemInstruction string
	var contents []*genai.Content
	for i := range messages {
		msg := &messages[i]

		if msg.Role == chat.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		role := genai.RoleUser
		if msg.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	return contents, systemInstruction, nil
}

func convertTools(defs []tools.Definition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, len(defs))
	for i := range defs {
		def := &defs[i]

		properties := make(map[string]*genai.Schema, len(def.InputSchema.Properties))
		for name := range def.InputSchema.Properties {
			prop := def.InputSchema.Properties[name]
			schema := &genai.Schema{
				Type:        genaiType(prop.Type),
				Description: prop.Description,
			}
			if len(prop.Enum) > 0 {
				schema.Enum = prop.Enum
			}
			properties[name] = schema
		}

		out[i] = &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   def.InputSchema.Required,
			},
		}
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// ModelName implements llm.Client.
func (c *Client) ModelName() string {
	return c.model
}
