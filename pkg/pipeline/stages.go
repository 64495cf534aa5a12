package pipeline

import (
	"context"
	"fmt"
	"strings"

	"botchat/pkg/chaterrors"
	"botchat/pkg/llm"
	"botchat/pkg/tools"
)

// Fallback replies for gateway failures. The voice variant reads naturally
// when spoken aloud.
const (
	fallbackText  = "I'm sorry, I'm having trouble responding right now. Please try again in a moment."
	fallbackVoice = "Sorry, I'm having trouble responding right now. Please try again."
)

const preprocessTemplate = `Rewrite the following user message so it is clear and unambiguous. Preserve the meaning and intent exactly. Reply with the rewritten message only, no commentary.

%s`

const postprocessTemplate = `Rewrite the following draft reply according to your instructions. Reply with the final text only, no commentary.

%s`

// runDedup short-circuits the chain when this bot already processed the
// message, replaying the stored reply. Store errors are absorbed; a broken
// store must not block a fresh turn.
func (p *Pipeline) runDedup(ctx context.Context, content string, inv Invocation, md Metadata) Result {
	prev, done, err := p.store.Processed(ctx, inv.Bot.ID, inv.Msg.ID)
	if err != nil {
		p.logger.Warn("dedup lookup failed for message %s: %v", inv.Msg.ID, err)
		return Result{Content: content, Meta: md.WithStage(StageDedup)}
	}
	if done {
		p.logger.Debug("pipeline", "message %s already processed by bot %s, replaying stored reply", inv.Msg.ID, inv.Bot.ID)
		out := md.WithStage(StageDedup)
		out.Deduplicated = true
		return Result{Content: prev, Meta: out, StopChain: true}
	}
	return Result{Content: content, Meta: md.WithStage(StageDedup)}
}

// runPreprocess rewrites the user's input for clarity before the main model
// call. Failures are absorbed and the original content flows on.
func (p *Pipeline) runPreprocess(ctx context.Context, content string, inv Invocation, md Metadata) Result {
	req := llm.ChatRequest{
		Messages: []llm.ChatMessage{
			llm.NewSystemMessage(inv.Bot.PreprocessingPrompt),
			llm.NewUserMessage(fmt.Sprintf(preprocessTemplate, content)),
		},
		MaxTokens:   inv.Bot.MaxTokens,
		Temperature: inv.Bot.Temperature,
	}

	out := md.WithStage(StagePreprocess)

	resp, err := p.gateway.Chat(ctx, req)
	if err != nil {
		return Result{
			Content: content,
			Meta:    out,
			Err:     chaterrors.Wrap(chaterrors.KindPreprocessing, err, "preprocessing call failed"),
		}
	}

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return Result{Content: content, Meta: out}
	}

	out.PreprocessChanged = rewritten != content
	return Result{Content: rewritten, Meta: out}
}

// runLLMCall issues the main gateway call. On failure the chain stops with a
// safe fallback reply instead of surfacing the error to the caller.
func (p *Pipeline) runLLMCall(ctx context.Context, content string, inv Invocation, md Metadata) Result {
	messages := make([]llm.ChatMessage, 0, len(inv.Ctx.Messages)+2)
	if inv.Bot.SystemPrompt != "" {
		messages = append(messages, llm.NewSystemMessage(inv.Bot.SystemPrompt))
	}
	messages = append(messages, llm.MessagesFromHistory(inv.Ctx.History())...)
	messages = append(messages, llm.NewUserMessage(content))

	req := llm.ChatRequest{
		Messages:    messages,
		Tools:       p.toolDefinitions(inv),
		MaxTokens:   inv.Bot.MaxTokens,
		Temperature: inv.Bot.Temperature,
	}

	resp, err := p.gateway.Chat(ctx, req)
	if err != nil {
		p.logger.Error("❌ Gateway call failed for bot %s: %v", inv.Bot.ID, err)
		out := md.WithStage(StageLLMError)
		out.Error = chaterrors.Wrap(chaterrors.KindLLMCall, err, "gateway call failed").Error()
		return Result{Content: p.fallbackReply(inv), Meta: out, StopChain: true}
	}

	out := md.WithStage(StageLLMCall)
	out.Raw = &resp
	out.HasToolCalls = resp.HasToolCalls() || tools.HasInlineCalls(resp.Content)

	reply := strings.TrimSpace(resp.Content)
	if reply == "" && !out.HasToolCalls {
		out = md.WithStage(StageLLMError)
		out.Error = "gateway returned empty content"
		return Result{Content: p.fallbackReply(inv), Meta: out, StopChain: true}
	}
	return Result{Content: reply, Meta: out}
}

func (p *Pipeline) fallbackReply(inv Invocation) string {
	if inv.Ctx.VoiceMode || inv.Bot.VoiceGhost {
		return fallbackVoice
	}
	return fallbackText
}

// toolDefinitions returns the tool schemas to advertise to the model, filtered
// by the conversation's enabled set. Voice turns never advertise tools.
func (p *Pipeline) toolDefinitions(inv Invocation) []tools.Definition {
	if p.provider == nil || !inv.Bot.UseTools || inv.Bot.VoiceGhost || inv.Ctx.VoiceMode {
		return nil
	}

	defs := p.provider.Definitions()
	if len(inv.Ctx.Settings.EnabledTools) == 0 {
		return defs
	}

	filtered := make([]tools.Definition, 0, len(defs))
	for _, def := range defs {
		if inv.Ctx.ToolEnabled(def.Name) {
			filtered = append(filtered, def)
		}
	}
	return filtered
}

// runToolResolution normalizes the model's tool-call directives, falling back
// to inline tool_use blocks embedded in the response text.
func (p *Pipeline) runToolResolution(_ context.Context, content string, _ Invocation, md Metadata) Result {
	out := md.WithStage(StageToolResolution)

	var calls []tools.Call
	if md.Raw != nil && len(md.Raw.ToolCalls) > 0 {
		raw := make([]tools.RawCall, 0, len(md.Raw.ToolCalls))
		for i := range md.Raw.ToolCalls {
			tc := &md.Raw.ToolCalls[i]
			raw = append(raw, tools.RawCall{
				ID:           tc.ID,
				Name:         tc.Name,
				Parameters:   tc.Parameters,
				RawArguments: tc.RawArguments,
			})
		}
		calls = tools.ResolveCalls(raw)
	} else if tools.HasInlineCalls(content) {
		calls = tools.ParseInlineCalls(content)
	}

	p.logger.Debug("pipeline", "resolved %d tool call(s)", len(calls))
	out.ToolCalls = calls
	return Result{Content: content, Meta: out}
}

// runToolExecution executes the resolved calls. Per-call failures are captured
// in the results and never abort the batch or the chain.
func (p *Pipeline) runToolExecution(ctx context.Context, content string, _ Invocation, md Metadata) Result {
	results := p.executor.ExecuteAll(ctx, md.ToolCalls)
	out := md.WithStage(StageToolExecution)
	out.ToolCalls = nil
	return Result{Content: content, Meta: out, ToolResults: results}
}

// runPostprocess rewrites the candidate reply per the bot's postprocessing
// prompt. Failures are absorbed and the candidate flows on unchanged.
func (p *Pipeline) runPostprocess(ctx context.Context, content string, inv Invocation, md Metadata) Result {
	req := llm.ChatRequest{
		Messages: []llm.ChatMessage{
			llm.NewSystemMessage(inv.Bot.PostprocessingPrompt),
			llm.NewUserMessage(fmt.Sprintf(postprocessTemplate, content)),
		},
		MaxTokens:   inv.Bot.MaxTokens,
		Temperature: inv.Bot.Temperature,
	}

	out := md.WithStage(StagePostprocess)

	resp, err := p.gateway.Chat(ctx, req)
	if err != nil {
		return Result{
			Content: content,
			Meta:    out,
			Err:     chaterrors.Wrap(chaterrors.KindPostprocessing, err, "postprocessing call failed"),
		}
	}

	rewritten := strings.TrimSpace(resp.Content)
	if rewritten == "" {
		return Result{Content: content, Meta: out}
	}

	out.PostprocessChanged = rewritten != content
	return Result{Content: rewritten, Meta: out}
}

// runReprocessCheck asks the orchestrator whether the candidate needs another
// regeneration cycle.
func (p *Pipeline) runReprocessCheck(ctx context.Context, content string, inv Invocation, md Metadata) Result {
	decision := p.orch.Check(ctx, content, inv.Bot, inv.Ctx)

	out := md.WithStage(StageReprocessCheck)
	out.NeedsReprocessing = decision.Needed
	out.decision = decision
	return Result{Content: content, Meta: out}
}

// runReprocess performs one regeneration cycle. It always ends the current
// cycle; the driver re-enters evaluation when a new candidate was produced.
func (p *Pipeline) runReprocess(ctx context.Context, content string, inv Invocation, md Metadata) Result {
	out := md.WithStage(StageReprocess)
	out.NeedsReprocessing = false

	regenerated, depth, err := p.orch.Reprocess(ctx, content, inv.Bot, inv.Ctx, md.decision)
	out.ReprocessingDepth = depth
	if err != nil {
		// Keep the pre-reprocessing content; the failure is visible only
		// through the reprocessing:failed event.
		return Result{
			Content:   content,
			Meta:      out,
			Err:       err,
			StopChain: true,
		}
	}
	return Result{Content: regenerated, Meta: out, StopChain: true}
}
