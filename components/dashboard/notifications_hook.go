package dashboard

import (
	"context"
	"errors"
)

// NotificationsClient defines the minimal interface needed from go-notifications (or similar).
type NotificationsClient interface {
	PublishInsightEvent(ctx context.Context, channel string, event ViewEvent) error
}

// NotificationsHook forwards view events to an external notifications client.
// Reasons filters the forwarded events; empty forwards everything.
type NotificationsHook struct {
	Client  NotificationsClient
	Channel string
	Reasons []string
}

var _ RefreshHook = (*NotificationsHook)(nil)

// ViewUpdated publishes events to the configured notifications client.
func (h *NotificationsHook) ViewUpdated(ctx context.Context, event ViewEvent) error {
	if h == nil || h.Client == nil {
		return nil
	}
	if len(h.Reasons) > 0 && !containsString(h.Reasons, event.Reason) {
		return nil
	}
	return h.Client.PublishInsightEvent(ctx, h.Channel, event)
}

// RefreshHooks fans a view event out to several hooks.
type RefreshHooks []RefreshHook

// ViewUpdated notifies every hook and joins their errors.
func (hooks RefreshHooks) ViewUpdated(ctx context.Context, event ViewEvent) error {
	var errs []error
	for _, h := range hooks {
		if h == nil {
			continue
		}
		if err := h.ViewUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
