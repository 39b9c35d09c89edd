package dashboard

import "context"

// ActivityContext captures actor/user/tenant identifiers for activity events.
type ActivityContext struct {
	ActorID  string
	UserID   string
	TenantID string
}

type activityContextKey struct{}

// ContextWithActivity stores activity context on the provided context.
func ContextWithActivity(ctx context.Context, meta ActivityContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, activityContextKey{}, meta)
}

// activityContextFrom extracts the activity context from the context, if present.
func activityContextFrom(ctx context.Context) ActivityContext {
	if ctx == nil {
		return ActivityContext{}
	}
	if meta, ok := ctx.Value(activityContextKey{}).(ActivityContext); ok {
		return meta
	}
	return ActivityContext{}
}

// activityFor merges the context identifiers over the mounting viewer. The
// actor defaults to the user when the caller does not name one.
func activityFor(ctx context.Context, viewer ViewerContext) ActivityContext {
	meta := activityContextFrom(ctx)
	if meta.UserID == "" {
		meta.UserID = viewer.UserID
	}
	if meta.TenantID == "" {
		meta.TenantID = viewer.TenantID
	}
	if meta.ActorID == "" {
		meta.ActorID = meta.UserID
	}
	return meta
}
