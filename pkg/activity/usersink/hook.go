// Package usersink forwards dashboard activity into a go-users activity sink.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-insights/pkg/activity"
)

// Sink is the subset of the go-users activity sink used here.
type Sink interface {
	Log(ctx context.Context, record types.ActivityRecord) error
}

// Hook adapts a Sink to activity.Hook.
type Hook struct {
	Sink Sink
}

var _ activity.Hook = Hook{}

// Notify maps evt onto an ActivityRecord. Identifiers that are not UUIDs are
// stored as uuid.Nil.
func (h Hook) Notify(ctx context.Context, evt activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	evt = activity.NormalizeEvent(evt)
	if evt.Verb == "" {
		return nil
	}
	data := make(map[string]any, len(evt.Metadata)+2)
	for k, v := range evt.Metadata {
		data[k] = v
	}
	if evt.DefinitionCode != "" {
		data["definition_code"] = evt.DefinitionCode
	}
	if len(evt.Recipients) > 0 {
		data["recipients"] = evt.Recipients
	}
	return h.Sink.Log(ctx, types.ActivityRecord{
		ActorID:    parseID(evt.ActorID),
		UserID:     parseID(evt.UserID),
		TenantID:   parseID(evt.TenantID),
		Verb:       evt.Verb,
		ObjectType: evt.ObjectType,
		ObjectID:   evt.ObjectID,
		Channel:    evt.Channel,
		Data:       data,
		OccurredAt: evt.OccurredAt,
	})
}

func parseID(value string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return id
}
