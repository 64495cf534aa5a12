package reprocess

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"botchat/pkg/chat"
	"botchat/pkg/chaterrors"
	"botchat/pkg/config"
	"botchat/pkg/events"
	"botchat/pkg/llm"
	"botchat/pkg/logx"
	"botchat/pkg/track"
)

// Orchestrator owns the depth-bounded regeneration loop for every bot in a
// conversation. It tracks attempt counts, enforces the depth budget, and
// emits lifecycle events. Construct one per conversation session and inject
// it; session state never leaks across conversations.
type Orchestrator struct {
	gateway   llm.Client
	evaluator *Evaluator
	tracker   *track.Tracker
	bus       *events.Bus
	logger    *logx.Logger

	mu              sync.Mutex
	depths          map[string]int
	maxDepthEmitted map[string]bool
}

// NewOrchestrator creates an orchestrator. tracker and bus may be nil; all
// tracking and event emission become no-ops, so the loop runs headless in
// tests.
func NewOrchestrator(gateway llm.Client, evaluator *Evaluator, tracker *track.Tracker, bus *events.Bus, logger *logx.Logger) *Orchestrator {
	if logger == nil {
		logger = logx.NewLogger("reprocess")
	}
	return &Orchestrator{
		gateway:         gateway,
		evaluator:       evaluator,
		tracker:         tracker,
		bus:             bus,
		logger:          logger,
		depths:          make(map[string]int),
		maxDepthEmitted: make(map[string]bool),
	}
}

// Depth returns the number of reprocessing cycles the bot has completed this
// session.
func (o *Orchestrator) Depth(botID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.depths[botID]
}

// ResetSession clears all reprocessing state for a bot. Called when the
// bot's turn completes or errors; the explicit lifecycle keeps counters from
// leaking into the next turn.
func (o *Orchestrator) ResetSession(botID string) {
	o.mu.Lock()
	delete(o.depths, botID)
	delete(o.maxDepthEmitted, botID)
	o.mu.Unlock()

	if o.tracker != nil {
		o.tracker.ResetReprocessing(botID)
	}
}

// Check evaluates whether the candidate content needs regeneration, enforcing
// the depth budget before the criterion is consulted. When the budget is hit
// it emits reprocessing:maxDepthReached exactly once per session.
func (o *Orchestrator) Check(ctx context.Context, content string, bot *config.Bot, cc *chat.Context) Decision {
	maxDepth := cc.Settings.MaxDepth()
	depth := o.Depth(bot.ID)

	decision := o.evaluator.Evaluate(ctx, content, bot, depth, maxDepth)

	if decision.Reason == ReasonDepthExhausted {
		o.emitMaxDepthOnce(bot.ID, depth, maxDepth)
		return decision
	}

	if decision.Needed {
		count := 0
		if o.tracker != nil {
			count = o.tracker.IncrementReprocessing(bot.ID)
		}
		o.logger.Info("🔁 Reprocessing needed for bot %s (reason: %s, attempt %d)", bot.ID, decision.Reason, count)
		o.emit(events.ReprocessingStarted, bot.ID, map[string]any{
			"reason":  string(decision.Reason),
			"attempt": count,
			"depth":   depth,
		})
	}
	return decision
}

// Reprocess runs one regeneration cycle and returns the new candidate
// content. The depth budget is enforced again here (defense in depth) so a
// caller cannot bypass the limit by invoking the stage directly. On gateway
// failure the previous content is returned with the error; the caller keeps
// the last good content and the failure is visible only through the
// reprocessing:failed event.
func (o *Orchestrator) Reprocess(ctx context.Context, previous string, bot *config.Bot, cc *chat.Context, decision Decision) (string, int, error) {
	maxDepth := cc.Settings.MaxDepth()

	o.mu.Lock()
	depth := o.depths[bot.ID]
	if depth >= maxDepth {
		o.mu.Unlock()
		o.emitMaxDepthOnce(bot.ID, depth, maxDepth)
		return previous, depth, chaterrors.New(chaterrors.KindReprocessing,
			fmt.Sprintf("depth budget exhausted (%d/%d)", depth, maxDepth))
	}
	o.depths[bot.ID] = depth + 1
	newDepth := depth + 1
	o.mu.Unlock()

	start := time.Now()

	// Canned rule short-circuit: fixed regeneration output, no gateway call.
	if decision.Canned != nil {
		o.emit(events.ReprocessingCompleted, bot.ID, map[string]any{
			"depth":      newDepth,
			"elapsed_ms": time.Since(start).Milliseconds(),
			"canned":     true,
		})
		return decision.Canned.Response, newDepth, nil
	}

	req := llm.ChatRequest{
		Messages:    buildRegenerationMessages(previous, bot),
		MaxTokens:   bot.MaxTokens,
		Temperature: bot.Temperature,
	}

	resp, err := o.gateway.Chat(ctx, req)
	if err != nil {
		o.logger.Error("❌ Reprocessing cycle failed for bot %s at depth %d: %v", bot.ID, newDepth, err)
		o.emit(events.ReprocessingFailed, bot.ID, map[string]any{
			"depth":      newDepth,
			"elapsed_ms": time.Since(start).Milliseconds(),
			"error":      err.Error(),
		})
		return previous, newDepth, chaterrors.Wrap(chaterrors.KindReprocessing, err, "regeneration call failed")
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		// An empty regeneration is a failure; keep what we had.
		o.emit(events.ReprocessingFailed, bot.ID, map[string]any{
			"depth":      newDepth,
			"elapsed_ms": time.Since(start).Milliseconds(),
			"error":      "empty regeneration",
		})
		return previous, newDepth, chaterrors.New(chaterrors.KindReprocessing, "regeneration returned empty content")
	}

	o.logger.Info("✅ Reprocessing cycle completed for bot %s (depth %d, %.3fs)", bot.ID, newDepth, time.Since(start).Seconds())
	o.emit(events.ReprocessingCompleted, bot.ID, map[string]any{
		"depth":      newDepth,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return content, newDepth, nil
}

// buildRegenerationMessages embeds the bot's system prompt, the previous
// response, and any reprocessing instructions into the regeneration request.
func buildRegenerationMessages(previous string, bot *config.Bot) []llm.ChatMessage {
	var prompt strings.Builder
	prompt.WriteString("Your previous response did not meet the required quality criteria. ")
	prompt.WriteString("Produce a new response that addresses the same request.\n\n")
	prompt.WriteString("Previous response:\n")
	prompt.WriteString(previous)
	if instructions := strings.TrimSpace(bot.ReprocessingInstructions); instructions != "" {
		prompt.WriteString("\n\nAdditional guidance:\n")
		prompt.WriteString(instructions)
	}

	messages := make([]llm.ChatMessage, 0, 2)
	if bot.SystemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(bot.SystemPrompt))
	}
	messages = append(messages, llm.NewUserMessage(prompt.String()))
	return messages
}

func (o *Orchestrator) emitMaxDepthOnce(botID string, depth, maxDepth int) {
	o.mu.Lock()
	already := o.maxDepthEmitted[botID]
	o.maxDepthEmitted[botID] = true
	o.mu.Unlock()

	if already {
		return
	}
	o.logger.Warn("⚠️  Reprocessing depth budget reached for bot %s (%d/%d)", botID, depth, maxDepth)
	o.emit(events.ReprocessingMaxDepth, botID, map[string]any{
		"depth":     depth,
		"max_depth": maxDepth,
	})
}

func (o *Orchestrator) emit(t events.Type, botID string, data map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.EmitFor(t, botID, data)
}
