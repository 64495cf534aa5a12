package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botchat/pkg/llm"
)

func fastConfig(maxAttempts int) Config {
	return Config{
		MaxAttempts:   maxAttempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
	}
}

func flakyClient(failures int, calls *int) llm.Client {
	return llm.WrapClient(
		func(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
			*calls++
			if *calls <= failures {
				return llm.ChatResponse{}, errors.New("connection reset")
			}
			return llm.ChatResponse{Content: "recovered", StopReason: "end_turn"}, nil
		},
		func() string { return "flaky" },
	)
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var calls int
	client := llm.Chain(flakyClient(2, &calls), Middleware(NewPolicy(fastConfig(3), nil)))

	resp, err := client.Chat(context.Background(), llm.NewChatRequest([]llm.ChatMessage{llm.NewUserMessage("hi")}))
	require.NoError(t, err)

	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	var calls int
	client := llm.Chain(flakyClient(10, &calls), Middleware(NewPolicy(fastConfig(3), nil)))

	_, err := client.Chat(context.Background(), llm.NewChatRequest([]llm.ChatMessage{llm.NewUserMessage("hi")}))
	require.Error(t, err)

	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 3, calls)
}

func TestRetrySkipsNonRetryableErrors(t *testing.T) {
	var calls int
	base := llm.WrapClient(
		func(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
			calls++
			return llm.ChatResponse{}, errors.New("401 unauthorized")
		},
		func() string { return "strict" },
	)
	client := llm.Chain(base, Middleware(NewPolicy(fastConfig(5), nil)))

	_, err := client.Chat(context.Background(), llm.NewChatRequest([]llm.ChatMessage{llm.NewUserMessage("hi")}))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryHonorsCancellation(t *testing.T) {
	var calls int
	client := llm.Chain(flakyClient(10, &calls), Middleware(NewPolicy(Config{
		MaxAttempts:   3,
		InitialDelay:  time.Hour,
		MaxDelay:      time.Hour,
		BackoffFactor: 1.0,
		Jitter:        false,
	}, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.Chat(ctx, llm.NewChatRequest([]llm.ChatMessage{llm.NewUserMessage("hi")}))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestMiddlewarePreservesModelName(t *testing.T) {
	var calls int
	client := llm.Chain(flakyClient(0, &calls), Middleware(NewPolicy(DefaultConfig, nil)))
	assert.Equal(t, "flaky", client.ModelName())
}
