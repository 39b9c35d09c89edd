package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-insights/pkg/activity"
)

func TestServicePerformEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	svc, hook := newTestService(t, func(o *Options) {
		o.ActivityHooks = activity.Hooks{capture}
		o.ActivityConfig = activity.Config{Enabled: true, Channel: "insights"}
	})
	ctx := context.Background()
	sess, err := svc.Mount(ctx, MountRequest{Domain: DomainConversationFlow, Viewer: analyst})
	require.NoError(t, err)

	actx := ContextWithActivity(ctx, ActivityContext{ActorID: "support-bot"})
	_, err = svc.Perform(actx, ActionRequest{
		SessionID: sess.ID,
		Action:    "feedback",
		TargetID:  "cf-2",
		Payload:   map[string]any{"helpful": false, "action": "spoofed"},
	})
	require.NoError(t, err)

	require.Len(t, capture.Events, 1)
	evt := capture.Events[0]
	assert.Equal(t, "insights.feedback.record", evt.Verb)
	assert.Equal(t, "support-bot", evt.ActorID)
	assert.Equal(t, "user-1", evt.UserID)
	assert.Equal(t, "acme", evt.TenantID)
	assert.Equal(t, "conversation_intent", evt.ObjectType)
	assert.Equal(t, "cf-2", evt.ObjectID)
	assert.Equal(t, "insights", evt.Channel)
	assert.Equal(t, DomainConversationFlow, evt.DefinitionCode)
	assert.Equal(t, "feedback", evt.Metadata["action"], "payload cannot overwrite reserved metadata")
	assert.Equal(t, false, evt.Metadata["helpful"])
	assert.Equal(t, sess.ID, evt.Metadata["session"])

	assert.Equal(t, []string{"mount", "action"}, hook.reasons())
}

func TestServicePerformDefaultsActorToViewer(t *testing.T) {
	capture := &activity.CaptureHook{}
	svc, _ := newTestService(t, func(o *Options) {
		o.ActivityHooks = activity.Hooks{capture}
		o.ActivityConfig = activity.Config{Enabled: true}
	})
	ctx := context.Background()
	sess, err := svc.Mount(ctx, MountRequest{Domain: DomainCodeQuality, Viewer: analyst})
	require.NoError(t, err)

	_, err = svc.Perform(ctx, ActionRequest{SessionID: sess.ID, Action: "analyze"})
	require.NoError(t, err)

	require.Len(t, capture.Events, 1)
	assert.Equal(t, "user-1", capture.Events[0].ActorID)
	assert.Equal(t, activity.DefaultChannel, capture.Events[0].Channel)
	assert.Equal(t, "code_quality", capture.Events[0].ObjectType)
}

func TestServicePerformFailureEmitsNothing(t *testing.T) {
	capture := &activity.CaptureHook{}
	svc, hook := newTestService(t, func(o *Options) {
		o.ActivityHooks = activity.Hooks{capture}
		o.ActivityConfig = activity.Config{Enabled: true}
	})
	ctx := context.Background()
	sess, err := svc.Mount(ctx, MountRequest{Domain: DomainTechDebt, Viewer: analyst})
	require.NoError(t, err)

	_, err = svc.Perform(ctx, ActionRequest{SessionID: sess.ID, Action: "archive", TargetID: "td-1"})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Empty(t, capture.Events)
	assert.Equal(t, []string{"mount"}, hook.reasons())
}

func TestServicePerformWithActivityDisabled(t *testing.T) {
	capture := &activity.CaptureHook{}
	svc, _ := newTestService(t, func(o *Options) {
		o.ActivityHooks = activity.Hooks{capture}
	})
	ctx := context.Background()
	sess, err := svc.Mount(ctx, MountRequest{Domain: DomainTechDebt, Viewer: analyst})
	require.NoError(t, err)

	_, err = svc.Perform(ctx, ActionRequest{SessionID: sess.ID, Action: "resolve", TargetID: "td-2"})
	require.NoError(t, err)
	assert.Empty(t, capture.Events)
}
