package reprocess

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botchat/pkg/config"
	"botchat/pkg/llm"
	"botchat/pkg/testkit"
)

func evalBot(criteria string) *config.Bot {
	return &config.Bot{
		ID:                   "bot-1",
		EnableReprocessing:   true,
		ReprocessingCriteria: criteria,
	}
}

func TestEvaluateDisabled(t *testing.T) {
	judge := testkit.NewMockClient()
	e := NewEvaluator(judge, nil, nil)

	bot := evalBot("always")
	bot.EnableReprocessing = false

	d := e.Evaluate(context.Background(), "content", bot, 0, 3)
	assert.False(t, d.Needed)
	assert.Equal(t, ReasonDisabled, d.Reason)
	assert.Zero(t, judge.CallCount())
}

func TestEvaluateDepthExhausted(t *testing.T) {
	judge := testkit.NewMockClient()
	e := NewEvaluator(judge, nil, nil)

	d := e.Evaluate(context.Background(), "content", evalBot("always"), 3, 3)
	assert.False(t, d.Needed)
	assert.Equal(t, ReasonDepthExhausted, d.Reason)
	assert.Zero(t, judge.CallCount())
}

func TestEvaluateBlankCriterion(t *testing.T) {
	judge := testkit.NewMockClient()
	e := NewEvaluator(judge, nil, nil)

	for _, criteria := range []string{"", "   ", "\n\t"} {
		d := e.Evaluate(context.Background(), "content", evalBot(criteria), 0, 3)
		assert.False(t, d.Needed, "criteria %q", criteria)
		assert.Equal(t, ReasonBlankCriterion, d.Reason)
	}
	assert.Zero(t, judge.CallCount())
}

func TestEvaluateAlwaysTrueFastPath(t *testing.T) {
	judge := testkit.NewMockClient()
	e := NewEvaluator(judge, nil, nil)

	cases := []string{"yes", "true", "always", "any input", "retry", "test", " Always ", "YES"}
	for _, criteria := range cases {
		d := e.Evaluate(context.Background(), "content", evalBot(criteria), 0, 3)
		assert.True(t, d.Needed, "criteria %q", criteria)
		assert.Equal(t, ReasonAlwaysTrue, d.Reason)
	}

	// Deterministic fast path: the judge is never consulted.
	assert.Zero(t, judge.CallCount())
}

func TestEvaluateCannedRule(t *testing.T) {
	judge := testkit.NewMockClient()
	rules := []CannedRule{
		{Trigger: "pirate voice", Response: "Arr, here be a better answer."},
	}
	e := NewEvaluator(judge, rules, nil)

	d := e.Evaluate(context.Background(), "content", evalBot("response must use a Pirate Voice"), 0, 3)
	assert.True(t, d.Needed)
	assert.Equal(t, ReasonCannedRule, d.Reason)
	require.NotNil(t, d.Canned)
	assert.Equal(t, "Arr, here be a better answer.", d.Canned.Response)
	assert.Zero(t, judge.CallCount())
}

func TestEvaluateJudgePermissiveParsing(t *testing.T) {
	cases := []struct {
		answer string
		needed bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"yes, the response fails the criterion", true},
		{"  YES  ", true},
		{"no", false},
		{"No, it passes.", false},
		{"the response is fine", false},
	}

	for _, tc := range cases {
		judge := testkit.NewMockClient()
		judge.RespondWith(tc.answer)
		e := NewEvaluator(judge, nil, nil)

		d := e.Evaluate(context.Background(), "content", evalBot("must be polite"), 0, 3)
		assert.Equal(t, tc.needed, d.Needed, "answer %q", tc.answer)
	}
}

func TestEvaluateJudgeUsesLowTemperature(t *testing.T) {
	judge := testkit.NewMockClient()
	judge.RespondWith("no")
	e := NewEvaluator(judge, nil, nil)

	e.Evaluate(context.Background(), "content", evalBot("must be polite"), 0, 3)

	req := judge.LastCall()
	require.NotNil(t, req)
	assert.InDelta(t, llm.TemperatureJudge, req.Temperature, 0.001)
}

func TestEvaluateJudgeErrorFailsSafe(t *testing.T) {
	judge := testkit.NewMockClient()
	judge.FailWith(errors.New("judge down"))
	e := NewEvaluator(judge, nil, nil)

	d := e.Evaluate(context.Background(), "content", evalBot("must be polite"), 0, 3)
	assert.False(t, d.Needed)
	assert.Equal(t, ReasonJudgeError, d.Reason)
}

func TestEvaluateNilJudgeFailsSafe(t *testing.T) {
	e := NewEvaluator(nil, nil, nil)

	d := e.Evaluate(context.Background(), "content", evalBot("must be polite"), 0, 3)
	assert.False(t, d.Needed)
	assert.Equal(t, ReasonJudgeError, d.Reason)
}

func TestMatchCannedCaseInsensitive(t *testing.T) {
	rules := []CannedRule{
		{Trigger: "Formal Tone", Response: "Certainly."},
		{Trigger: "", Response: "never matches"},
	}

	rule, ok := matchCanned(rules, "use a FORMAL TONE at all times", "")
	require.True(t, ok)
	assert.Equal(t, "Certainly.", rule.Response)

	rule, ok = matchCanned(rules, "", "please keep a formal tone")
	require.True(t, ok)
	assert.Equal(t, "Certainly.", rule.Response)

	_, ok = matchCanned(rules, "be casual", "")
	assert.False(t, ok)
}
