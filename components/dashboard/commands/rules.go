package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insights/components/dashboard"
)

// Action names used by the code quality domain.
const (
	ToggleRuleAction     = "toggle_rule"
	InstallCheckAction   = "install_check"
	UninstallCheckAction = "uninstall_check"
)

// ToggleRuleInput enables or disables a quality rule. A nil Enabled lets the
// backend flip the current state.
type ToggleRuleInput struct {
	SessionID string `json:"session_id"`
	RuleID    string `json:"rule_id"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

// ToggleRuleCommand toggles a rule and lets the controller re-fetch rules,
// priorities and summary.
type ToggleRuleCommand struct {
	runner actionRunner
}

// NewToggleRuleCommand creates the command.
func NewToggleRuleCommand(service actionService, telemetry Telemetry) *ToggleRuleCommand {
	return &ToggleRuleCommand{runner: actionRunner{service: service, telemetry: normalizeTelemetry(telemetry)}}
}

var _ gocommand.Commander[ToggleRuleInput] = (*ToggleRuleCommand)(nil)

// Execute toggles the rule.
func (c *ToggleRuleCommand) Execute(ctx context.Context, msg ToggleRuleInput) error {
	if msg.RuleID == "" {
		return errMissingTarget
	}
	payload := map[string]any{}
	if msg.Enabled != nil {
		payload["enabled"] = *msg.Enabled
	}
	return c.runner.run(ctx, "insights.rule.toggle", dashboard.ActionRequest{
		SessionID: msg.SessionID,
		Action:    ToggleRuleAction,
		TargetID:  msg.RuleID,
		Payload:   payload,
	})
}

// InstallCheckInput installs or removes a check from the analyzer.
type InstallCheckInput struct {
	SessionID string         `json:"session_id"`
	CheckID   string         `json:"check_id"`
	Uninstall bool           `json:"uninstall,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// InstallCheckCommand installs or uninstalls a quality check.
type InstallCheckCommand struct {
	runner actionRunner
}

// NewInstallCheckCommand creates the command.
func NewInstallCheckCommand(service actionService, telemetry Telemetry) *InstallCheckCommand {
	return &InstallCheckCommand{runner: actionRunner{service: service, telemetry: normalizeTelemetry(telemetry)}}
}

var _ gocommand.Commander[InstallCheckInput] = (*InstallCheckCommand)(nil)

// Execute installs or uninstalls the check.
func (c *InstallCheckCommand) Execute(ctx context.Context, msg InstallCheckInput) error {
	if msg.CheckID == "" {
		return errMissingTarget
	}
	action, event := InstallCheckAction, "insights.check.install"
	if msg.Uninstall {
		action, event = UninstallCheckAction, "insights.check.uninstall"
	}
	return c.runner.run(ctx, event, dashboard.ActionRequest{
		SessionID: msg.SessionID,
		Action:    action,
		TargetID:  msg.CheckID,
		Payload:   msg.Options,
	})
}
