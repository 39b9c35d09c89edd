package dashboard

import (
	"context"

	"go.uber.org/zap"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// LoggerTelemetry writes telemetry events as debug log entries.
type LoggerTelemetry struct {
	Logger *zap.Logger
}

// Record logs the event with its payload fields.
func (t LoggerTelemetry) Record(ctx context.Context, event string, payload map[string]any) {
	if t.Logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(payload)+1)
	fields = append(fields, zap.String("event", event))
	for k, v := range payload {
		fields = append(fields, zap.Any(k, v))
	}
	if meta := activityContextFrom(ctx); meta.ActorID != "" {
		fields = append(fields, zap.String("actor_id", meta.ActorID))
	}
	t.Logger.Debug("telemetry", fields...)
}
