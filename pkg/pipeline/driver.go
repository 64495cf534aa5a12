package pipeline

import (
	"context"
	"errors"
	"time"

	"botchat/pkg/chat"
	"botchat/pkg/chaterrors"
	"botchat/pkg/config"
	"botchat/pkg/events"
	"botchat/pkg/llm"
	"botchat/pkg/logx"
	"botchat/pkg/reprocess"
	"botchat/pkg/store"
	"botchat/pkg/tools"
	"botchat/pkg/track"
)

// Deps are the injected collaborators of a Pipeline. Gateway and Orchestrator
// are required; everything else may be nil and the corresponding stages are
// skipped or become no-ops.
type Deps struct {
	Gateway      llm.Client
	Orchestrator *reprocess.Orchestrator
	Store        store.Store
	Tools        *tools.Provider
	Tracker      *track.Tracker
	Bus          *events.Bus
	Logger       *logx.Logger
}

// Pipeline drives a message through the ordered stage chain. Construct once
// per conversation session and reuse across turns; concurrent Run calls for
// different bots are safe.
type Pipeline struct {
	gateway  llm.Client
	orch     *reprocess.Orchestrator
	store    store.Store
	provider *tools.Provider
	executor tools.Executor
	tracker  *track.Tracker
	bus      *events.Bus
	logger   *logx.Logger

	stages   []StageDef
	checkIdx int
}

// New builds a pipeline with the canonical stage order.
func New(deps Deps) (*Pipeline, error) {
	if deps.Gateway == nil {
		return nil, chaterrors.New(chaterrors.KindPipelineConfig, "pipeline requires a gateway client")
	}
	if deps.Orchestrator == nil {
		return nil, chaterrors.New(chaterrors.KindPipelineConfig, "pipeline requires a reprocessing orchestrator")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logx.NewLogger("pipeline")
	}

	p := &Pipeline{
		gateway:  deps.Gateway,
		orch:     deps.Orchestrator,
		store:    deps.Store,
		provider: deps.Tools,
		tracker:  deps.Tracker,
		bus:      deps.Bus,
		logger:   logger,
	}
	if deps.Tools != nil {
		p.executor = tools.NewProviderExecutor(deps.Tools, logger)
	}

	p.stages = []StageDef{
		{
			Name:    StageDedup,
			Enabled: func(Invocation, Metadata) bool { return p.store != nil },
			Run:     p.runDedup,
		},
		{
			Name: StagePreprocess,
			Enabled: func(inv Invocation, _ Metadata) bool {
				return inv.Bot.PreprocessingPrompt != "" &&
					inv.Ctx.Settings.PreprocessingEnabled &&
					!inv.Bot.VoiceGhost
			},
			Run: p.runPreprocess,
		},
		{
			Name:    StageLLMCall,
			Enabled: alwaysEnabled,
			Run:     p.runLLMCall,
		},
		{
			Name: StageToolResolution,
			Enabled: func(inv Invocation, md Metadata) bool {
				return md.HasToolCalls && inv.Bot.UseTools &&
					!inv.Bot.VoiceGhost && !inv.Ctx.VoiceMode
			},
			Run: p.runToolResolution,
		},
		{
			Name: StageToolExecution,
			Enabled: func(_ Invocation, md Metadata) bool {
				return len(md.ToolCalls) > 0 && p.executor != nil
			},
			Run: p.runToolExecution,
		},
		{
			Name: StagePostprocess,
			Enabled: func(inv Invocation, _ Metadata) bool {
				return inv.Bot.PostprocessingPrompt != "" &&
					inv.Ctx.Settings.PostprocessingEnabled
			},
			Run: p.runPostprocess,
		},
		{
			Name: StageReprocessCheck,
			Enabled: func(inv Invocation, _ Metadata) bool {
				return inv.Bot.EnableReprocessing
			},
			Run: p.runReprocessCheck,
		},
		{
			Name: StageReprocess,
			Enabled: func(_ Invocation, md Metadata) bool {
				return md.NeedsReprocessing
			},
			Run: p.runReprocess,
		},
	}

	p.checkIdx = -1
	for i := range p.stages {
		if p.stages[i].Name == StageReprocessCheck {
			p.checkIdx = i
		}
	}
	return p, nil
}

// Stages returns the stage names in chain order. Debug and test helper.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i := range p.stages {
		names[i] = p.stages[i].Name
	}
	return names
}

// Run drives one message through the chain for one bot and returns the final
// reply. The reprocessing tail loops: after a successful regeneration the
// driver re-enters evaluation, so cycles repeat until the candidate passes or
// the depth budget is spent. Run never returns an error; every failure mode
// resolves to safe content with the detail recorded in metadata and events.
func (p *Pipeline) Run(ctx context.Context, msg chat.Message, bot *config.Bot, cc *chat.Context) Result {
	inv := Invocation{Msg: &msg, Bot: bot, Ctx: cc}
	md := NewMetadata(msg.Content)
	content := msg.Content

	var toolResults []tools.ExecResult
	var lastErr error

	i := 0
	for i < len(p.stages) {
		st := &p.stages[i]

		if st.Enabled != nil && !st.Enabled(inv, md) {
			md = md.WithStage(SkippedTag(st.Name))
			i++
			continue
		}

		p.emitStageStarted(bot.ID, st.Name)
		if p.tracker != nil {
			p.tracker.StartStage(bot.ID, st.Name)
		}

		start := time.Now()
		res := st.Run(ctx, content, inv, md.Clone())
		elapsed := time.Since(start)

		res.Meta = res.Meta.WithStageTime(st.Name, elapsed)
		p.emitStageCompleted(bot.ID, st.Name, elapsed, res.Err)
		if p.tracker != nil {
			if res.Err != nil {
				p.tracker.ErrorStage(bot.ID, st.Name)
			} else {
				p.tracker.EndStage(bot.ID, st.Name)
			}
		}

		depthBefore := md.ReprocessingDepth
		content = res.Content
		md = res.Meta
		if len(res.ToolResults) > 0 {
			toolResults = append(toolResults, res.ToolResults...)
		}

		if res.Err != nil {
			md.Error = res.Err.Error()
			lastErr = res.Err

			// Terminal kinds end the chain even if the stage forgot to set
			// StopChain; everything else is absorbed with safe content.
			var perr *chaterrors.Error
			if errors.As(res.Err, &perr) && perr.Terminal() {
				p.logger.Warn("⚠️  Stage %s failed terminally for bot %s: %v", st.Name, bot.ID, res.Err)
				break
			}
			p.logger.Warn("⚠️  Stage %s failed for bot %s (continuing): %v", st.Name, bot.ID, res.Err)
		}

		// A successful regeneration re-enters evaluation for the next cycle.
		if st.Name == StageReprocess && res.Err == nil && md.ReprocessingDepth > depthBefore {
			i = p.checkIdx
			continue
		}

		if res.StopChain {
			break
		}
		i++
	}

	p.finish(ctx, &msg, bot, content, md.Deduplicated)

	return Result{Content: content, Meta: md, ToolResults: toolResults, Err: lastErr}
}

// finish persists the turn outcome and releases per-turn session state.
func (p *Pipeline) finish(ctx context.Context, msg *chat.Message, bot *config.Bot, content string, deduplicated bool) {
	if p.store != nil && !deduplicated {
		reply := chat.NewBotMessage(bot.ID, content)
		if err := p.store.SaveMessage(ctx, &reply); err != nil {
			p.logger.Warn("failed to save reply for bot %s: %v", bot.ID, err)
		}
		if err := p.store.MarkProcessed(ctx, bot.ID, msg.ID, content); err != nil {
			p.logger.Warn("failed to mark message %s processed: %v", msg.ID, err)
		}
	}

	p.orch.ResetSession(bot.ID)
	if p.tracker != nil {
		p.tracker.Clear(bot.ID)
	}
}

func (p *Pipeline) emitStageStarted(botID, stage string) {
	if p.bus == nil {
		return
	}
	p.bus.EmitFor(events.StageStarted, botID, map[string]any{"stage": stage})
}

func (p *Pipeline) emitStageCompleted(botID, stage string, elapsed time.Duration, err error) {
	if p.bus == nil {
		return
	}
	data := map[string]any{
		"stage":      stage,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	p.bus.EmitFor(events.StageCompleted, botID, data)
}
