package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taggingMiddleware(tag string, order *[]string) Middleware {
	return func(next Client) Client {
		return WrapClient(
			func(ctx context.Context, req ChatRequest) (ChatResponse, error) {
				*order = append(*order, tag)
				return next.Chat(ctx, req)
			},
			next.ModelName,
		)
	}
}

func baseClient(order *[]string) Client {
	return WrapClient(
		func(_ context.Context, _ ChatRequest) (ChatResponse, error) {
			*order = append(*order, "base")
			return ChatResponse{Content: "ok", StopReason: "end_turn"}, nil
		},
		func() string { return "test-model" },
	)
}

func TestChainOrdering(t *testing.T) {
	var order []string
	client := Chain(baseClient(&order), taggingMiddleware("outer", &order), taggingMiddleware("inner", &order))

	resp, err := client.Chat(context.Background(), NewChatRequest([]ChatMessage{NewUserMessage("hi")}))
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Content)
	// First middleware in the list is the outermost wrapper.
	assert.Equal(t, []string{"outer", "inner", "base"}, order)
	assert.Equal(t, "test-model", client.ModelName())
}

func TestChainNoMiddleware(t *testing.T) {
	var order []string
	client := Chain(baseClient(&order))

	_, err := client.Chat(context.Background(), NewChatRequest([]ChatMessage{NewUserMessage("hi")}))
	require.NoError(t, err)
	assert.Equal(t, []string{"base"}, order)
}

func TestNewChatRequestDefaults(t *testing.T) {
	req := NewChatRequest([]ChatMessage{NewSystemMessage("sys"), NewUserMessage("hi")})

	assert.Len(t, req.Messages, 2)
	assert.Equal(t, 4096, req.MaxTokens)
	assert.InDelta(t, TemperatureDefault, req.Temperature, 0.001)
}
