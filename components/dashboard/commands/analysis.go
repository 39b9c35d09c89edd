package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insights/components/dashboard"
)

// AnalyzeAction is the action name domains use to start an analysis run.
const AnalyzeAction = "analyze"

// TriggerAnalysisInput starts an analysis run for the session's domain.
type TriggerAnalysisInput struct {
	SessionID string   `json:"session_id"`
	Paths     []string `json:"paths,omitempty"`
	Full      bool     `json:"full,omitempty"`
}

// TriggerAnalysisCommand asks the backend engine to re-analyze.
type TriggerAnalysisCommand struct {
	runner actionRunner
}

// NewTriggerAnalysisCommand creates the command.
func NewTriggerAnalysisCommand(service actionService, telemetry Telemetry) *TriggerAnalysisCommand {
	return &TriggerAnalysisCommand{runner: actionRunner{service: service, telemetry: normalizeTelemetry(telemetry)}}
}

var _ gocommand.Commander[TriggerAnalysisInput] = (*TriggerAnalysisCommand)(nil)

// Execute posts the analysis request.
func (c *TriggerAnalysisCommand) Execute(ctx context.Context, msg TriggerAnalysisInput) error {
	payload := map[string]any{"full": msg.Full}
	if len(msg.Paths) > 0 {
		payload["paths"] = append([]string(nil), msg.Paths...)
	}
	return c.runner.run(ctx, "insights.analysis.trigger", dashboard.ActionRequest{
		SessionID: msg.SessionID,
		Action:    AnalyzeAction,
		Payload:   payload,
	})
}
