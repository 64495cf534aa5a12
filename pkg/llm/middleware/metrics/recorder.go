// Package metrics provides metrics middleware for gateway clients.
package metrics

import "time"

// Recorder receives observations for completed gateway requests.
type Recorder interface {
	// ObserveRequest records one gateway call: which model and bot, how many
	// tokens each way, whether it succeeded, and how long it took.
	ObserveRequest(model, botID string, promptTokens, completionTokens int, success bool, errorType string, duration time.Duration)
}

// NopRecorder discards all observations. Useful in tests.
type NopRecorder struct{}

// ObserveRequest implements Recorder.
func (NopRecorder) ObserveRequest(string, string, int, int, bool, string, time.Duration) {}
