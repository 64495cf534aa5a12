package pipeline

import (
	"context"

	"botchat/pkg/chat"
	"botchat/pkg/config"
)

// Invocation is the read-only input of one pipeline run: the triggering
// message, the target bot, and the conversation snapshot.
type Invocation struct {
	Msg *chat.Message
	Bot *config.Bot
	Ctx *chat.Context
}

// StageFunc runs one stage. content is the current candidate reply (the user
// message text until the gateway call produces one); md is the stage's own
// clone of the chain metadata.
type StageFunc func(ctx context.Context, content string, inv Invocation, md Metadata) Result

// StageDef describes one stage of the chain. The driver consumes an immutable
// ordered slice of these; Enabled is consulted per run so a disabled stage is
// tagged "skipped-<name>" instead of executed.
type StageDef struct {
	Name    string
	Enabled func(inv Invocation, md Metadata) bool
	Run     StageFunc
}

func alwaysEnabled(Invocation, Metadata) bool { return true }
