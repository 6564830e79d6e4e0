// Package events provides the pipeline-progress event bus. Progress
// telemetry is layered on top of the optimization pipeline and never
// influences its results: emitting to a bus with no subscribers is a no-op.
package events

import (
	"sync"
	"time"
)

// EventType identifies a pipeline event.
type EventType string

const (
	OptimizationStarted   EventType = "optimization_started"
	StageStarted          EventType = "stage_started"
	StageCompleted        EventType = "stage_completed"
	OptimizationCompleted EventType = "optimization_completed"
	OptimizationFailed    EventType = "optimization_failed"
)

// Pipeline stage names used in stage events.
const (
	StageGridSearch = "grid_search"
	StageMonteCarlo = "monte_carlo"
	StageEnsemble   = "ensemble"
	StageValidation = "validation"
)

// Event is a single progress notification.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"runId,omitempty"`
	Stage     string                 `json:"stage,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Handler receives published events. Handlers must be fast or hand off to
// their own goroutine; the bus calls them synchronously.
type Handler func(*Event)

// Bus is a small in-process pub/sub fan-out.
type Bus struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler for all events and returns an unsubscribe
// function.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Emit publishes an event to every subscriber.
func (b *Bus) Emit(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(event)
	}
}

// EmitStage is a convenience for stage progress events.
func (b *Bus) EmitStage(eventType EventType, runID, stage string, data map[string]interface{}) {
	b.Emit(&Event{
		Type:  eventType,
		RunID: runID,
		Stage: stage,
		Data:  data,
	})
}
