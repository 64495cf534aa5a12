package ollama

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botchat/pkg/chaterrors"
	"botchat/pkg/llm"
	"botchat/pkg/testkit"
	"botchat/pkg/tools"
)

func TestNewWithModel(t *testing.T) {
	tests := []struct {
		name    string
		hostURL string
		model   string
	}{
		{"default host", DefaultHost, "llama3.1"},
		{"custom host", "http://192.168.1.50:11434", "phi4:latest"},
		{"invalid URL falls back to default", "://broken", "mistral:7b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewWithModel(tt.hostURL, tt.model)
			require.NotNil(t, client)
			assert.Equal(t, tt.model, client.ModelName())
		})
	}
}

func TestChatRoundTrip(t *testing.T) {
	server := testkit.NewChatServer("hello from the model")
	defer server.Close()

	client := NewWithModel(server.URL, "test-model")
	resp, err := client.Chat(context.Background(), llm.NewChatRequest([]llm.ChatMessage{
		llm.NewSystemMessage("be brief"),
		llm.NewUserMessage("hi"),
	}))
	require.NoError(t, err)

	assert.Equal(t, "hello from the model", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, 1, server.Requests())
}

func TestChatServerError(t *testing.T) {
	server := testkit.NewChatServer("unused")
	defer server.Close()
	server.FailWith(http.StatusInternalServerError)

	client := NewWithModel(server.URL, "test-model")
	_, err := client.Chat(context.Background(), llm.NewChatRequest([]llm.ChatMessage{
		llm.NewUserMessage("hi"),
	}))
	require.Error(t, err)
	assert.True(t, chaterrors.Is(err, chaterrors.KindLLMCall))
}

func TestChatEmptyMessages(t *testing.T) {
	client := NewWithModel(DefaultHost, "test-model")
	_, err := client.Chat(context.Background(), llm.ChatRequest{})
	require.Error(t, err)
	assert.True(t, chaterrors.Is(err, chaterrors.KindLLMCall))
}

func TestConvertTools(t *testing.T) {
	defs := []tools.Definition{{
		Name:        "current_time",
		Description: "Returns the current time.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"timezone": {Type: "string", Description: "IANA timezone name"},
				"format":   {Type: "string", Enum: []string{"rfc1123", "unix"}},
			},
			Required: []string{"timezone"},
		},
	}}

	converted := convertTools(defs)
	require.Len(t, converted, 1)

	fn := converted[0].Function
	assert.Equal(t, "current_time", fn.Name)
	assert.Equal(t, "object", fn.Parameters.Type)
	assert.Equal(t, []string{"timezone"}, fn.Parameters.Required)
	formatProp, ok := fn.Parameters.Properties.Get("format")
	require.True(t, ok)
	assert.Len(t, formatProp.Enum, 2)
}
