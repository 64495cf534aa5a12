// Package events provides a typed, synchronous, in-process publish/subscribe
// bus used to decouple pipeline internals from UI observers.
package events

import (
	"sync"
	"time"

	"botchat/pkg/logx"
)

// Type names an event category on the bus.
type Type string

// Lifecycle events emitted by the pipeline and the reprocessing orchestrator.
const (
	StageStarted            Type = "processing:stage-started"
	StageCompleted          Type = "processing:stage-completed"
	ReprocessingStarted     Type = "reprocessing:started"
	ReprocessingCompleted   Type = "reprocessing:completed"
	ReprocessingFailed      Type = "reprocessing:failed"
	ReprocessingMaxDepth    Type = "reprocessing:maxDepthReached"
)

// Event is the payload delivered to handlers.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
	Type      Type           `json:"type"`
	BotID     string         `json:"bot_id"`
}

// Handler receives events. Handlers must tolerate interleaved events from
// different bot ids; delivery is synchronous and best-effort.
type Handler func(Event)

type subscription struct {
	handler Handler
	id      int
	once    bool
}

// Bus is a typed pub/sub registry. Construct with NewBus and inject where
// needed; instances are independent so tests and tenants don't share state.
type Bus struct {
	handlers map[Type][]subscription
	logger   *logx.Logger
	mu       sync.Mutex
	nextID   int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscription),
		logger:   logx.NewLogger("events"),
	}
}

// Subscribe registers a handler for an event type and returns an unsubscribe
// function.
func (b *Bus) Subscribe(t Type, handler Handler) func() {
	return b.subscribe(t, handler, false)
}

// Once registers a handler that is removed after its first delivery.
func (b *Bus) Once(t Type, handler Handler) func() {
	return b.subscribe(t, handler, true)
}

func (b *Bus) subscribe(t Type, handler Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{handler: handler, id: id, once: once})

	return func() {
		b.remove(t, id)
	}
}

func (b *Bus) remove(t Type, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[t]
	for i := range subs {
		if subs[i].id == id {
			b.handlers[t] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers an event synchronously to all handlers registered for its
// type. A panicking handler is recovered and logged; it never aborts emission
// to other handlers or the pipeline.
func (b *Bus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	subs := make([]subscription, len(b.handlers[event.Type]))
	copy(subs, b.handlers[event.Type])

	// Remove once-handlers before delivery so re-entrant emits don't double-fire.
	kept := b.handlers[event.Type][:0]
	for _, sub := range b.handlers[event.Type] {
		if !sub.once {
			kept = append(kept, sub)
		}
	}
	b.handlers[event.Type] = kept
	b.mu.Unlock()

	for i := range subs {
		b.deliver(subs[i].handler, event)
	}
}

func (b *Bus) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked for %s (bot %s): %v", event.Type, event.BotID, r)
		}
	}()
	handler(event)
}

// EmitFor is a convenience for emitting a bot-scoped event with data fields.
func (b *Bus) EmitFor(t Type, botID string, data map[string]any) {
	b.Emit(Event{Type: t, BotID: botID, Timestamp: time.Now(), Data: data})
}

// HandlerCount returns the number of handlers registered for a type.
// Used by tests and debug panels.
func (b *Bus) HandlerCount(t Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[t])
}
