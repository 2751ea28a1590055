package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without one.
const DefaultChannel = "graphcache"

// Config controls emission defaults.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter fans events out to hooks, filling in the channel.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	cloned := hooks.Clone()
	return &Emitter{
		hooks:   cloned,
		enabled: cfg.Enabled && len(cloned) > 0,
		channel: channel,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
