package service

import (
	"context"
	"sync"

	"redcapprep/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter decouples services from the terminal
// ─────────────────────────────────────────────────────────────

// EventBatchCompleted is emitted after every batch run with a BatchCompleted
// payload.
const EventBatchCompleted = "batch:completed"

// BatchCompleted is the payload of EventBatchCompleted.
type BatchCompleted struct {
	Kind    domain.BatchKind
	Trigger string
	Count   int // files processed
}

// EventEmitter receives service notifications. The CLI prints them; tests
// record them with MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// It is safe for use from watcher goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}
