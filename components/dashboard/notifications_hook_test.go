package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingNotifications struct {
	channels []string
	events   []ViewEvent
	err      error
}

func (r *recordingNotifications) PublishInsightEvent(_ context.Context, channel string, event ViewEvent) error {
	r.channels = append(r.channels, channel)
	r.events = append(r.events, event)
	return r.err
}

func TestNotificationsHookFiltersReasons(t *testing.T) {
	client := &recordingNotifications{}
	hook := &NotificationsHook{Client: client, Channel: "ops", Reasons: []string{"action"}}

	require.NoError(t, hook.ViewUpdated(context.Background(), ViewEvent{Reason: "live"}))
	require.NoError(t, hook.ViewUpdated(context.Background(), ViewEvent{Reason: "action", Domain: DomainTechDebt}))

	require.Len(t, client.events, 1)
	require.Equal(t, DomainTechDebt, client.events[0].Domain)
	require.Equal(t, []string{"ops"}, client.channels)
}

func TestNotificationsHookWithoutClient(t *testing.T) {
	var hook *NotificationsHook
	require.NoError(t, hook.ViewUpdated(context.Background(), ViewEvent{}))
}

func TestRefreshHooksJoinErrors(t *testing.T) {
	ok := &recordingNotifications{}
	failing := &recordingNotifications{err: errors.New("smtp down")}
	hooks := RefreshHooks{
		&NotificationsHook{Client: ok},
		nil,
		&NotificationsHook{Client: failing},
	}
	err := hooks.ViewUpdated(context.Background(), ViewEvent{Reason: "mount"})
	require.ErrorContains(t, err, "smtp down")
	require.Len(t, ok.events, 1)
	require.Len(t, failing.events, 1)
}
