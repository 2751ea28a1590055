package activity

import (
	"context"
	"sync"
)

// CaptureHook records events for assertions in tests.
type CaptureHook struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, NormalizeEvent(event))
	return h.Err
}

// Events returns a copy of the captured events.
func (h *CaptureHook) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

// Verbs returns the captured event verbs in order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, event := range h.events {
		out[i] = event.Verb
	}
	return out
}

// Count returns how many captured events carry verb.
func (h *CaptureHook) Count(verb string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, event := range h.events {
		if event.Verb == verb {
			n++
		}
	}
	return n
}
