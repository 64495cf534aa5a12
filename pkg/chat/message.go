// Package chat provides the conversation domain types consumed by the processing pipeline.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role of a message in a conversation.
type Role string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem Role = "system"
	// RoleUser indicates a message from the human user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from a bot.
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation history.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"` // user name or bot id
}

// NewUserMessage creates a user message with a fresh id.
func NewUserMessage(sender, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

// NewBotMessage creates an assistant message attributed to the given bot.
func NewBotMessage(botID, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Sender:    botID,
		Timestamp: time.Now(),
	}
}

// Settings carries the resolved runtime knobs for one pipeline invocation.
// Reloaded per invocation from the settings source; read-only to the pipeline.
type Settings struct {
	EnabledTools          []string `yaml:"enabled_tools"`
	MaxReprocessingDepth  int      `yaml:"max_reprocessing_depth"`
	PreprocessingEnabled  bool     `yaml:"preprocessing_enabled"`
	PostprocessingEnabled bool     `yaml:"postprocessing_enabled"`
}

// DefaultMaxReprocessingDepth bounds regeneration cycles when settings leave it unset.
const DefaultMaxReprocessingDepth = 3

// MaxDepth returns the configured reprocessing depth budget, applying the default.
func (s *Settings) MaxDepth() int {
	if s.MaxReprocessingDepth <= 0 {
		return DefaultMaxReprocessingDepth
	}
	return s.MaxReprocessingDepth
}

// Context is the per-invocation snapshot handed to the pipeline: the prior
// conversation, resolved settings, and the voice-mode flag. Constructed fresh
// by the caller and never mutated by the pipeline.
type Context struct {
	Messages  []Message
	Settings  Settings
	VoiceMode bool
}

// History returns a defensive copy of the conversation history.
func (c *Context) History() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// ToolEnabled reports whether a tool name is in the enabled set.
func (c *Context) ToolEnabled(name string) bool {
	for _, t := range c.Settings.EnabledTools {
		if t == name {
			return true
		}
	}
	return false
}
