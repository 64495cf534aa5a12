package metrics

import "botchat/pkg/events"

// Reprocessing cycle outcome labels.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// ReprocessingRecorder counts reprocessing cycle outcomes.
type ReprocessingRecorder interface {
	IncReprocessing(botID, outcome string)
}

// ObserveReprocessing subscribes the recorder to the reprocessing lifecycle
// events so every completed or failed cycle is counted per bot. Returns an
// unsubscribe function.
func ObserveReprocessing(bus *events.Bus, rec ReprocessingRecorder) func() {
	offCompleted := bus.Subscribe(events.ReprocessingCompleted, func(e events.Event) {
		rec.IncReprocessing(e.BotID, OutcomeCompleted)
	})
	offFailed := bus.Subscribe(events.ReprocessingFailed, func(e events.Event) {
		rec.IncReprocessing(e.BotID, OutcomeFailed)
	})
	return func() {
		offCompleted()
		offFailed()
	}
}
