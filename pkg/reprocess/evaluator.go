package reprocess

import (
	"context"
	"fmt"
	"strings"

	"botchat/pkg/config"
	"botchat/pkg/llm"
	"botchat/pkg/logx"
)

// Reason explains an evaluation outcome.
type Reason string

const (
	// ReasonDisabled means the bot has reprocessing turned off.
	ReasonDisabled Reason = "disabled"
	// ReasonDepthExhausted means the depth budget is spent.
	ReasonDepthExhausted Reason = "depth-exhausted"
	// ReasonBlankCriterion means the bot has no criterion configured.
	ReasonBlankCriterion Reason = "blank-criterion"
	// ReasonAlwaysTrue means the criterion is in the always-true vocabulary.
	ReasonAlwaysTrue Reason = "always-true"
	// ReasonCannedRule means a canned-response rule matched.
	ReasonCannedRule Reason = "canned-rule"
	// ReasonJudgeYes means the LLM judge failed the candidate.
	ReasonJudgeYes Reason = "judge-yes"
	// ReasonJudgeNo means the LLM judge passed the candidate.
	ReasonJudgeNo Reason = "judge-no"
	// ReasonJudgeError means the judge call failed; evaluation fails safe.
	ReasonJudgeError Reason = "judge-error"
)

// Decision is the evaluator's verdict on a candidate response.
type Decision struct {
	Canned *CannedRule // non-nil when the next regeneration should emit a fixed string
	Reason Reason
	Needed bool
}

// Evaluator decides whether a candidate response must be regenerated.
// Shortcut rules run first; everything else delegates to an LLM judge.
type Evaluator struct {
	judge  llm.Client
	logger *logx.Logger
	rules  []CannedRule
}

// NewEvaluator creates an evaluator. judge may be nil, in which case the
// criterion path that would consult it decides "no reprocessing".
// rules is the injected canned-response table; pass nil for none.
func NewEvaluator(judge llm.Client, rules []CannedRule, logger *logx.Logger) *Evaluator {
	if logger == nil {
		logger = logx.NewLogger("reprocess-evaluator")
	}
	return &Evaluator{judge: judge, rules: rules, logger: logger}
}

// Evaluate applies the decision table, first match wins:
//  1. reprocessing not enabled -> no
//  2. depth budget exhausted   -> no
//  3. blank criterion          -> no
//  4. always-true vocabulary   -> yes, no judge call
//  5. canned rule match        -> yes, regeneration short-circuits to the canned string
//  6. LLM judge, permissive affirmative parsing; judge failure -> no (fail safe)
func (e *Evaluator) Evaluate(ctx context.Context, content string, bot *config.Bot, depth, maxDepth int) Decision {
	if !bot.EnableReprocessing {
		return Decision{Reason: ReasonDisabled}
	}
	if depth >= maxDepth {
		return Decision{Reason: ReasonDepthExhausted}
	}

	criteria := strings.TrimSpace(bot.ReprocessingCriteria)
	if criteria == "" {
		return Decision{Reason: ReasonBlankCriterion}
	}

	if isAlwaysTrue(criteria) {
		e.logger.Debug("reprocess", "criterion %q is always-true, skipping judge", criteria)
		return Decision{Needed: true, Reason: ReasonAlwaysTrue}
	}

	if rule, ok := matchCanned(e.rules, criteria, bot.ReprocessingInstructions); ok {
		e.logger.Debug("reprocess", "canned rule %q matched for bot %s", rule.Trigger, bot.ID)
		return Decision{Needed: true, Reason: ReasonCannedRule, Canned: rule}
	}

	return e.askJudge(ctx, content, criteria, bot)
}

// judgePrompt constrains the model to a yes/no verdict.
const judgePrompt = `You are a strict quality judge. Given a criterion and a candidate response, answer with exactly "yes" if the response FAILS the criterion and must be regenerated, or exactly "no" if it passes.

Criterion: %s

Candidate response:
%s

Answer yes or no only.`

func (e *Evaluator) askJudge(ctx context.Context, content, criteria string, bot *config.Bot) Decision {
	if e.judge == nil {
		return Decision{Reason: ReasonJudgeError}
	}

	req := llm.ChatRequest{
		Messages: []llm.ChatMessage{
			llm.NewUserMessage(fmt.Sprintf(judgePrompt, criteria, content)),
		},
		MaxTokens:   16,
		Temperature: llm.TemperatureJudge,
	}

	resp, err := e.judge.Chat(ctx, req)
	if err != nil {
		// Fail safe: never loop on a flaky judge.
		e.logger.Warn("judge call failed for bot %s, defaulting to no reprocessing: %v", bot.ID, err)
		return Decision{Reason: ReasonJudgeError}
	}

	// Permissive parsing: any affirmative token anywhere means reprocess.
	answer := strings.ToLower(resp.Content)
	if strings.Contains(answer, "yes") {
		return Decision{Needed: true, Reason: ReasonJudgeYes}
	}
	return Decision{Reason: ReasonJudgeNo}
}
