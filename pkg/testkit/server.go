package testkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
)

// ChatServer is an httptest server that speaks the Ollama /api/chat protocol,
// for exercising a real provider client without the network.
type ChatServer struct {
	*httptest.Server
	requests atomic.Int64
	reply    atomic.Value // string
	status   atomic.Int64
}

// NewChatServer starts a server that answers every chat request with reply.
// Callers must Close it.
func NewChatServer(reply string) *ChatServer {
	s := &ChatServer{}
	s.reply.Store(reply)
	s.status.Store(http.StatusOK)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		s.requests.Add(1)

		if code := int(s.status.Load()); code != http.StatusOK {
			http.Error(w, `{"error":"server unavailable"}`, code)
			return
		}

		resp := map[string]any{
			"model": "test-model",
			"message": map[string]any{
				"role":    "assistant",
				"content": s.reply.Load().(string),
			},
			"done":        true,
			"done_reason": "stop",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	return s
}

// SetReply changes the content returned to subsequent requests.
func (s *ChatServer) SetReply(reply string) {
	s.reply.Store(reply)
}

// FailWith makes the server answer subsequent requests with the given HTTP
// status code.
func (s *ChatServer) FailWith(code int) {
	s.status.Store(int64(code))
}

// Requests returns how many chat requests the server has received.
func (s *ChatServer) Requests() int {
	return int(s.requests.Load())
}
