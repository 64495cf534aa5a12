package reprocess

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botchat/pkg/chat"
	"botchat/pkg/chaterrors"
	"botchat/pkg/events"
	"botchat/pkg/testkit"
	"botchat/pkg/track"
)

type collector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collector) record(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) count(t events.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func orchRig(gateway *testkit.MockClient, rules []CannedRule) (*Orchestrator, *collector) {
	bus := events.NewBus()
	col := &collector{}
	for _, et := range []events.Type{
		events.ReprocessingStarted, events.ReprocessingCompleted,
		events.ReprocessingFailed, events.ReprocessingMaxDepth,
	} {
		bus.Subscribe(et, col.record)
	}

	evaluator := NewEvaluator(gateway, rules, nil)
	return NewOrchestrator(gateway, evaluator, track.NewTracker(), bus, nil), col
}

func orchContext(maxDepth int) *chat.Context {
	return &chat.Context{Settings: chat.Settings{MaxReprocessingDepth: maxDepth}}
}

func TestCheckEmitsStartedWhenNeeded(t *testing.T) {
	gateway := testkit.NewMockClient()
	orch, col := orchRig(gateway, nil)

	bot := evalBot("always")
	d := orch.Check(context.Background(), "content", bot, orchContext(3))

	assert.True(t, d.Needed)
	assert.Equal(t, 1, col.count(events.ReprocessingStarted))
}

func TestReprocessIncrementsDepth(t *testing.T) {
	gateway := testkit.NewMockClient()
	gateway.RespondWith("regenerated")
	orch, col := orchRig(gateway, nil)

	bot := evalBot("always")
	cc := orchContext(3)

	content, depth, err := orch.Reprocess(context.Background(), "previous", bot, cc, Decision{Needed: true})
	require.NoError(t, err)
	assert.Equal(t, "regenerated", content)
	assert.Equal(t, 1, depth)
	assert.Equal(t, 1, orch.Depth(bot.ID))
	assert.Equal(t, 1, col.count(events.ReprocessingCompleted))

	// The regeneration prompt embeds the previous response.
	assert.True(t, gateway.CalledWith("previous"))
}

func TestReprocessEnforcesDepthDirectly(t *testing.T) {
	gateway := testkit.NewMockClient()
	gateway.RespondWith("regenerated")
	orch, col := orchRig(gateway, nil)

	bot := evalBot("always")
	cc := orchContext(1)

	_, _, err := orch.Reprocess(context.Background(), "previous", bot, cc, Decision{Needed: true})
	require.NoError(t, err)

	// Invoking the stage again past the budget fails even without a Check.
	content, depth, err := orch.Reprocess(context.Background(), "latest", bot, cc, Decision{Needed: true})
	require.Error(t, err)
	assert.True(t, chaterrors.Is(err, chaterrors.KindReprocessing))
	assert.Equal(t, "latest", content)
	assert.Equal(t, 1, depth)
	assert.Equal(t, 1, gateway.CallCount())
	assert.Equal(t, 1, col.count(events.ReprocessingMaxDepth))
}

func TestReprocessCannedShortCircuit(t *testing.T) {
	gateway := testkit.NewMockClient()
	rules := []CannedRule{{Trigger: "pirate", Response: "Arr."}}
	orch, col := orchRig(gateway, rules)

	bot := evalBot("pirate voice required")
	cc := orchContext(3)

	d := orch.Check(context.Background(), "content", bot, cc)
	require.True(t, d.Needed)
	require.NotNil(t, d.Canned)

	content, depth, err := orch.Reprocess(context.Background(), "previous", bot, cc, d)
	require.NoError(t, err)
	assert.Equal(t, "Arr.", content)
	assert.Equal(t, 1, depth)
	// No gateway traffic at all: the decision matched a rule and the
	// regeneration was canned.
	assert.Zero(t, gateway.CallCount())
	assert.Equal(t, 1, col.count(events.ReprocessingCompleted))
}

func TestReprocessFailureReturnsPrevious(t *testing.T) {
	gateway := testkit.NewMockClient()
	gateway.FailWith(errors.New("gateway down"))
	orch, col := orchRig(gateway, nil)

	bot := evalBot("always")
	content, _, err := orch.Reprocess(context.Background(), "previous", bot, orchContext(3), Decision{Needed: true})

	require.Error(t, err)
	assert.Equal(t, "previous", content)
	assert.Equal(t, 1, col.count(events.ReprocessingFailed))
}

func TestReprocessEmptyRegenerationFails(t *testing.T) {
	gateway := testkit.NewMockClient()
	gateway.RespondWith("   ")
	orch, col := orchRig(gateway, nil)

	bot := evalBot("always")
	content, _, err := orch.Reprocess(context.Background(), "previous", bot, orchContext(3), Decision{Needed: true})

	require.Error(t, err)
	assert.Equal(t, "previous", content)
	assert.Equal(t, 1, col.count(events.ReprocessingFailed))
}

func TestMaxDepthEmittedOncePerSession(t *testing.T) {
	gateway := testkit.NewMockClient()
	orch, col := orchRig(gateway, nil)

	bot := evalBot("always")
	cc := orchContext(1)
	gateway.RespondWith("regenerated")
	_, _, err := orch.Reprocess(context.Background(), "previous", bot, cc, Decision{Needed: true})
	require.NoError(t, err)

	for range 3 {
		orch.Check(context.Background(), "content", bot, cc)
	}
	assert.Equal(t, 1, col.count(events.ReprocessingMaxDepth))

	// A new session resets the once-guard.
	orch.ResetSession(bot.ID)
	assert.Zero(t, orch.Depth(bot.ID))
}

func TestSessionsAreIndependent(t *testing.T) {
	gateway := testkit.NewMockClient()
	gateway.RespondWith("regenerated")
	orch, _ := orchRig(gateway, nil)

	botA := evalBot("always")
	botA.ID = "bot-a"
	botB := evalBot("always")
	botB.ID = "bot-b"

	cc := orchContext(3)
	_, _, err := orch.Reprocess(context.Background(), "previous", botA, cc, Decision{Needed: true})
	require.NoError(t, err)

	assert.Equal(t, 1, orch.Depth("bot-a"))
	assert.Zero(t, orch.Depth("bot-b"))

	orch.ResetSession("bot-a")
	assert.Zero(t, orch.Depth("bot-a"))
}
