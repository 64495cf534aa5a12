// Package track maintains per-bot processing state: the stage currently
// running and how many reprocessing cycles the bot has performed this turn.
package track

import (
	"sync"
	"time"
)

// session is the tracked state for one bot's current message turn.
type session struct {
	currentStage   string
	stageStarted   time.Time
	reprocessCount int
}

// Tracker is an explicitly constructed, injectable per-conversation tracker.
// All operations are safe no-ops for bots it has never seen, so the pipeline
// runs headless in tests without an observer attached. Concurrent bots keep
// independent counters keyed by bot id.
type Tracker struct {
	sessions map[string]*session
	mu       sync.Mutex
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*session)}
}

func (t *Tracker) get(botID string) *session {
	s, ok := t.sessions[botID]
	if !ok {
		s = &session{}
		t.sessions[botID] = s
	}
	return s
}

// StartStage records that a bot entered the named stage.
func (t *Tracker) StartStage(botID, stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(botID)
	s.currentStage = stage
	s.stageStarted = time.Now()
}

// EndStage clears the bot's current stage and returns the elapsed time, or
// zero if the stage was never started.
func (t *Tracker) EndStage(botID, stage string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sessions[botID]
	if !ok || s.currentStage != stage {
		return 0
	}
	elapsed := time.Since(s.stageStarted)
	s.currentStage = ""
	return elapsed
}

// ErrorStage clears the bot's current stage after a stage failure.
func (t *Tracker) ErrorStage(botID, stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[botID]; ok && s.currentStage == stage {
		s.currentStage = ""
	}
}

// CurrentStage returns the stage the bot is in, or "" when idle or unknown.
func (t *Tracker) CurrentStage(botID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[botID]; ok {
		return s.currentStage
	}
	return ""
}

// IncrementReprocessing bumps the bot's reprocessing counter and returns the
// new count.
func (t *Tracker) IncrementReprocessing(botID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.get(botID)
	s.reprocessCount++
	return s.reprocessCount
}

// ReprocessingCount returns the bot's reprocessing counter.
func (t *Tracker) ReprocessingCount(botID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[botID]; ok {
		return s.reprocessCount
	}
	return 0
}

// ResetReprocessing zeroes the bot's reprocessing counter.
func (t *Tracker) ResetReprocessing(botID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sessions[botID]; ok {
		s.reprocessCount = 0
	}
}

// Clear drops all tracked state for a bot. Called when the bot's turn
// completes or errors.
func (t *Tracker) Clear(botID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, botID)
}
