// Package store provides conversation persistence behind a narrow interface.
// The pipeline reads history and dedup state through Store and never touches
// storage directly.
package store

import (
	"context"
	"sync"

	"botchat/pkg/chat"
)

// Store supplies conversation history, persists final bot replies, and
// records which message ids have already been processed (dedup).
type Store interface {
	// SaveMessage appends a message to the conversation history.
	SaveMessage(ctx context.Context, msg *chat.Message) error

	// History returns up to limit most recent messages in chronological order.
	// limit <= 0 returns everything.
	History(ctx context.Context, limit int) ([]chat.Message, error)

	// MarkProcessed records that a message id was handled for a bot, along
	// with the content that was produced for it.
	MarkProcessed(ctx context.Context, botID, messageID, content string) error

	// Processed reports whether the bot already handled the message id and
	// returns the previously produced content.
	Processed(ctx context.Context, botID, messageID string) (string, bool, error)

	// Close releases any underlying resources.
	Close() error
}

// MemoryStore is an in-process Store used in tests and when no store path is
// configured.
type MemoryStore struct {
	processed map[string]string
	messages  []chat.Message
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{processed: make(map[string]string)}
}

func processedKey(botID, messageID string) string {
	return botID + "\x00" + messageID
}

// SaveMessage appends a message to the in-memory history.
func (m *MemoryStore) SaveMessage(_ context.Context, msg *chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

// History returns up to limit most recent messages in chronological order.
func (m *MemoryStore) History(_ context.Context, limit int) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && len(m.messages) > limit {
		start = len(m.messages) - limit
	}
	out := make([]chat.Message, len(m.messages)-start)
	copy(out, m.messages[start:])
	return out, nil
}

// MarkProcessed records a handled message id.
func (m *MemoryStore) MarkProcessed(_ context.Context, botID, messageID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[processedKey(botID, messageID)] = content
	return nil
}

// Processed reports prior handling of a message id.
func (m *MemoryStore) Processed(_ context.Context, botID, messageID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.processed[processedKey(botID, messageID)]
	return content, ok, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
