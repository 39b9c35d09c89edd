package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insights/components/dashboard"
)

// FeedbackAction is the action name domains use for feedback endpoints.
const FeedbackAction = "feedback"

// RecordFeedbackInput rates a prediction, pattern or intent.
type RecordFeedbackInput struct {
	SessionID string `json:"session_id"`
	TargetID  string `json:"target_id"`
	Helpful   bool   `json:"helpful"`
	// Label optionally corrects the classification, e.g. "false_positive".
	Label   string `json:"label,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// RecordFeedbackCommand posts feedback through the session's domain.
type RecordFeedbackCommand struct {
	runner actionRunner
}

// NewRecordFeedbackCommand creates the command.
func NewRecordFeedbackCommand(service actionService, telemetry Telemetry) *RecordFeedbackCommand {
	return &RecordFeedbackCommand{runner: actionRunner{service: service, telemetry: normalizeTelemetry(telemetry)}}
}

var _ gocommand.Commander[RecordFeedbackInput] = (*RecordFeedbackCommand)(nil)

// Execute sends the feedback.
func (c *RecordFeedbackCommand) Execute(ctx context.Context, msg RecordFeedbackInput) error {
	if msg.TargetID == "" {
		return errMissingTarget
	}
	payload := map[string]any{"helpful": msg.Helpful}
	if msg.Label != "" {
		payload["label"] = msg.Label
	}
	if msg.Comment != "" {
		payload["comment"] = msg.Comment
	}
	return c.runner.run(ctx, "insights.feedback.record", dashboard.ActionRequest{
		SessionID: msg.SessionID,
		Action:    FeedbackAction,
		TargetID:  msg.TargetID,
		Payload:   payload,
	})
}
