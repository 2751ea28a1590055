package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event describes something the cache did to a record: a commit, a refresh,
// a version regression that was resolved in favour of stored data.
type Event struct {
	Verb       string
	ActorID    string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	PassID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards a normalized copy of event to every hook and joins their
// errors. Events without a verb or object are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clone drops nil entries and returns a detached slice, or nil when empty.
func (h Hooks) Clone() Hooks {
	if len(h) == 0 {
		return nil
	}
	out := make(Hooks, 0, len(h))
	for _, hook := range h {
		if hook != nil {
			out = append(out, hook)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NormalizeEvent trims identifiers, clones metadata and stamps OccurredAt.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.TenantID = strings.TrimSpace(event.TenantID)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.PassID = strings.TrimSpace(event.PassID)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
