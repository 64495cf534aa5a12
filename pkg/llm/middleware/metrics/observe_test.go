package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"botchat/pkg/events"
)

type countingReprocessing struct {
	counts map[string]int
}

func (c *countingReprocessing) IncReprocessing(botID, outcome string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[botID+"/"+outcome]++
}

func TestObserveReprocessingCountsOutcomes(t *testing.T) {
	bus := events.NewBus()
	rec := &countingReprocessing{}
	ObserveReprocessing(bus, rec)

	bus.EmitFor(events.ReprocessingCompleted, "bot-1", map[string]any{"depth": 1})
	bus.EmitFor(events.ReprocessingCompleted, "bot-1", map[string]any{"depth": 2})
	bus.EmitFor(events.ReprocessingFailed, "bot-1", map[string]any{"error": "boom"})
	bus.EmitFor(events.ReprocessingCompleted, "bot-2", map[string]any{"depth": 1})

	// Lifecycle events that are not cycle outcomes are not counted.
	bus.EmitFor(events.ReprocessingStarted, "bot-1", nil)
	bus.EmitFor(events.ReprocessingMaxDepth, "bot-1", nil)

	assert.Equal(t, 2, rec.counts["bot-1/completed"])
	assert.Equal(t, 1, rec.counts["bot-1/failed"])
	assert.Equal(t, 1, rec.counts["bot-2/completed"])
	assert.Len(t, rec.counts, 3)
}

func TestObserveReprocessingUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	rec := &countingReprocessing{}
	off := ObserveReprocessing(bus, rec)

	bus.EmitFor(events.ReprocessingCompleted, "bot-1", nil)
	off()
	bus.EmitFor(events.ReprocessingCompleted, "bot-1", nil)
	bus.EmitFor(events.ReprocessingFailed, "bot-1", nil)

	assert.Equal(t, 1, rec.counts["bot-1/completed"])
	assert.Zero(t, rec.counts["bot-1/failed"])
}
