package reactivetest

import (
	"context"
	"sync"

	"github.com/kbukum/reactor/reactive"
)

// EventRecorder is a reactive.Observer that records events.
//
// EventRecorder is safe under concurrent Observe calls.
type EventRecorder struct {
	events []reactive.Event
	mu     sync.Mutex
}

// NewEventRecorder constructs an EventRecorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Observe appends the event to the recorder.
func (r *EventRecorder) Observe(_ context.Context, e reactive.Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a snapshot copy of recorded events.
func (r *EventRecorder) Events() []reactive.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]reactive.Event, len(r.events))
	copy(cp, r.events)
	return cp
}

// Types returns the recorded signal types, in order.
func (r *EventRecorder) Types() []reactive.SignalType {
	evs := r.Events()
	out := make([]reactive.SignalType, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Type)
	}
	return out
}

// Reset clears the recorder.
func (r *EventRecorder) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
