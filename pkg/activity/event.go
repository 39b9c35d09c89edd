package activity

import (
	"strings"
	"time"
)

// DefaultChannel tags events emitted by dashboards.
const DefaultChannel = "insights"

// Event describes a user action taken on an insight dashboard, such as
// feedback on a log pattern or toggling a quality rule.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Valid reports whether the event carries the minimum fields sinks need.
func (e Event) Valid() bool {
	return e.Verb != "" && e.ObjectType != ""
}

// NormalizeEvent trims identifiers and returns a copy that shares no maps or
// slices with evt. A zero OccurredAt is set to now.
func NormalizeEvent(evt Event) Event {
	out := Event{
		Verb:           strings.TrimSpace(evt.Verb),
		ActorID:        strings.TrimSpace(evt.ActorID),
		UserID:         strings.TrimSpace(evt.UserID),
		TenantID:       strings.TrimSpace(evt.TenantID),
		ObjectType:     strings.TrimSpace(evt.ObjectType),
		ObjectID:       strings.TrimSpace(evt.ObjectID),
		Channel:        strings.TrimSpace(evt.Channel),
		DefinitionCode: strings.TrimSpace(evt.DefinitionCode),
		OccurredAt:     evt.OccurredAt,
	}
	if len(evt.Recipients) > 0 {
		out.Recipients = make([]string, 0, len(evt.Recipients))
		for _, r := range evt.Recipients {
			if r = strings.TrimSpace(r); r != "" {
				out.Recipients = append(out.Recipients, r)
			}
		}
	}
	if evt.Metadata != nil {
		out.Metadata = make(map[string]any, len(evt.Metadata))
		for k, v := range evt.Metadata {
			out.Metadata[k] = v
		}
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}
	return out
}
