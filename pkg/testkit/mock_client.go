// Package testkit provides test doubles for the gateway boundary: a scripted
// in-process mock client and an httptest-backed provider server.
package testkit

import (
	"context"
	"strings"
	"sync"

	"botchat/pkg/llm"
)

// MockClient implements llm.Client for testing with configurable behavior and
// call recording.
//
//nolint:govet // fieldalignment: mock struct layout optimized for readability
type MockClient struct {
	// ChatFunc is called when Chat is invoked. Override to customize behavior.
	ChatFunc func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)

	// ChatCalls tracks all calls to Chat for verification.
	ChatCalls []llm.ChatRequest

	modelName string

	mu sync.Mutex
}

// NewMockClient creates a mock client that returns a fixed response.
func NewMockClient() *MockClient {
	m := &MockClient{modelName: "mock-model"}
	m.ChatFunc = func(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{Content: "Mock response", StopReason: "end_turn"}, nil
	}
	return m
}

// Chat implements llm.Client.
func (m *MockClient) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, req)
	m.mu.Unlock()
	return m.ChatFunc(ctx, req)
}

// ModelName implements llm.Client.
func (m *MockClient) ModelName() string {
	return m.modelName
}

// SetModelName sets the model name returned by ModelName.
func (m *MockClient) SetModelName(name string) {
	m.modelName = name
}

// OnChat sets a custom handler for Chat calls.
func (m *MockClient) OnChat(fn func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)) {
	m.ChatFunc = fn
}

// FailWith configures Chat to return the specified error.
func (m *MockClient) FailWith(err error) {
	m.ChatFunc = func(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{}, err
	}
}

// RespondWith configures Chat to return the specified content.
func (m *MockClient) RespondWith(content string) {
	m.ChatFunc = func(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{Content: content, StopReason: "end_turn"}, nil
	}
}

// RespondWithToolCalls configures Chat to return tool call directives.
func (m *MockClient) RespondWithToolCalls(calls ...llm.ToolCall) {
	m.ChatFunc = func(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{ToolCalls: calls, StopReason: "tool_use"}, nil
	}
}

// RespondWithSequence configures Chat to return responses in order, repeating
// the last one for any additional calls.
func (m *MockClient) RespondWithSequence(responses ...llm.ChatResponse) {
	callIndex := 0
	m.ChatFunc = func(_ context.Context, _ llm.ChatRequest) (llm.ChatResponse, error) {
		if callIndex < len(responses) {
			resp := responses[callIndex]
			callIndex++
			return resp, nil
		}
		return responses[len(responses)-1], nil
	}
}

// Reset clears all recorded calls.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatCalls = nil
}

// CallCount returns the number of times Chat was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ChatCalls)
}

// LastCall returns the most recent Chat request, or nil if none.
func (m *MockClient) LastCall() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ChatCalls) == 0 {
		return nil
	}
	return &m.ChatCalls[len(m.ChatCalls)-1]
}

// CalledWith reports whether any Chat call contained the substring in one of
// its messages.
func (m *MockClient) CalledWith(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.ChatCalls {
		for _, msg := range m.ChatCalls[i].Messages {
			if strings.Contains(msg.Content, substr) {
				return true
			}
		}
	}
	return false
}
