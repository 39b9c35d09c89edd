package activity

import (
	"context"
	"errors"
)

// Hook receives activity events.
type Hook interface {
	Notify(ctx context.Context, evt Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, evt Event) error

// Notify calls f.
func (f HookFunc) Notify(ctx context.Context, evt Event) error {
	return f(ctx, evt)
}

// Hooks fans an event out to several hooks.
type Hooks []Hook

// Notify normalizes evt and delivers it to every hook. Invalid events are
// dropped. Hook failures do not stop delivery; they are joined.
func (h Hooks) Notify(ctx context.Context, evt Event) error {
	if len(h) == 0 {
		return nil
	}
	evt = NormalizeEvent(evt)
	if !evt.Valid() {
		return nil
	}
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CaptureHook stores events in memory. Useful in tests.
type CaptureHook struct {
	Events []Event
}

// Notify appends evt.
func (c *CaptureHook) Notify(_ context.Context, evt Event) error {
	c.Events = append(c.Events, evt)
	return nil
}
