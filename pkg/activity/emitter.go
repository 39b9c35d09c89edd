package activity

import "context"

// Config toggles activity emission.
type Config struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Channel string `json:"channel" yaml:"channel"`
}

// Emitter stamps events with the configured channel and forwards them to hooks.
type Emitter struct {
	hooks   Hooks
	channel string
	enabled bool
}

// NewEmitter builds an emitter. It is disabled when no hooks are given.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := cfg.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &Emitter{
		hooks:   hooks,
		channel: channel,
		enabled: cfg.Enabled && len(hooks) > 0,
	}
}

// Enabled reports whether Emit delivers anything.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit delivers evt, defaulting its channel.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if !e.Enabled() {
		return nil
	}
	if evt.Channel == "" {
		evt.Channel = e.channel
	}
	return e.hooks.Notify(ctx, evt)
}
