package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnknownBotOperationsAreNoOps(t *testing.T) {
	tr := NewTracker()

	assert.Empty(t, tr.CurrentStage("ghost"))
	assert.Zero(t, tr.ReprocessingCount("ghost"))
	assert.Zero(t, tr.EndStage("ghost", "llm-call"))
	tr.ErrorStage("ghost", "llm-call")
	tr.ResetReprocessing("ghost")
	tr.Clear("ghost")
}

func TestStageLifecycle(t *testing.T) {
	tr := NewTracker()

	tr.StartStage("bot-1", "llm-call")
	assert.Equal(t, "llm-call", tr.CurrentStage("bot-1"))

	elapsed := tr.EndStage("bot-1", "llm-call")
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	assert.Empty(t, tr.CurrentStage("bot-1"))
}

func TestEndStageIgnoresMismatch(t *testing.T) {
	tr := NewTracker()

	tr.StartStage("bot-1", "llm-call")
	assert.Zero(t, tr.EndStage("bot-1", "postprocessing"))
	assert.Equal(t, "llm-call", tr.CurrentStage("bot-1"))
}

func TestErrorStageClearsCurrent(t *testing.T) {
	tr := NewTracker()

	tr.StartStage("bot-1", "llm-call")
	tr.ErrorStage("bot-1", "llm-call")
	assert.Empty(t, tr.CurrentStage("bot-1"))
}

func TestReprocessingCounters(t *testing.T) {
	tr := NewTracker()

	assert.Equal(t, 1, tr.IncrementReprocessing("bot-1"))
	assert.Equal(t, 2, tr.IncrementReprocessing("bot-1"))
	assert.Equal(t, 2, tr.ReprocessingCount("bot-1"))

	// Counters are per bot.
	assert.Equal(t, 1, tr.IncrementReprocessing("bot-2"))
	assert.Equal(t, 2, tr.ReprocessingCount("bot-1"))

	tr.ResetReprocessing("bot-1")
	assert.Zero(t, tr.ReprocessingCount("bot-1"))
	assert.Equal(t, 1, tr.ReprocessingCount("bot-2"))
}

func TestClearDropsAllState(t *testing.T) {
	tr := NewTracker()

	tr.StartStage("bot-1", "llm-call")
	tr.IncrementReprocessing("bot-1")
	tr.Clear("bot-1")

	assert.Empty(t, tr.CurrentStage("bot-1"))
	assert.Zero(t, tr.ReprocessingCount("bot-1"))
}
