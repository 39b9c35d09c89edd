package httpapi

import (
	"context"
	"errors"
	"io"

	gocommand "github.com/goliatone/go-command"

	dashboard "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/components/dashboard/commands"
	"github.com/goliatone/go-insights/components/dashboard/queries"
	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/records"
)

// ErrNotConfigured is returned when an executor lacks the collaborator an
// operation needs.
var ErrNotConfigured = errors.New("httpapi: operation not configured")

// Executor is the transport-neutral surface behind the HTTP handlers and the
// go-router routes.
type Executor interface {
	Mount(ctx context.Context, req dashboard.MountRequest) (*dashboard.Session, error)
	Unmount(ctx context.Context, sessionID string) error
	Session(sessionID string) (*dashboard.Session, error)
	View(ctx context.Context, input queries.DashboardViewInput) (dashboard.ViewModel, error)
	Domains(ctx context.Context, viewer dashboard.ViewerContext) ([]queries.DomainSummary, error)
	Feedback(ctx context.Context, input commands.RecordFeedbackInput) error
	ToggleRule(ctx context.Context, input commands.ToggleRuleInput) error
	InstallCheck(ctx context.Context, input commands.InstallCheckInput) error
	Analyze(ctx context.Context, input commands.TriggerAnalysisInput) error
	Refresh(ctx context.Context, input commands.RefreshDashboardInput) error
	Preferences(ctx context.Context, input commands.SavePreferencesInput) error
	Perform(ctx context.Context, req dashboard.ActionRequest) (any, error)
	DrillDown(ctx context.Context, sessionID, recordID string) (records.Record, error)
	Export(ctx context.Context, sessionID string, w io.Writer, format export.Format) error
}

// SessionService covers the session operations that are not modelled as
// commands or queries.
type SessionService interface {
	Mount(ctx context.Context, req dashboard.MountRequest) (*dashboard.Session, error)
	Unmount(ctx context.Context, id string) error
	Session(id string) (*dashboard.Session, error)
	Perform(ctx context.Context, req dashboard.ActionRequest) (any, error)
	DrillDown(ctx context.Context, id, recordID string) (records.Record, error)
	Export(ctx context.Context, id string, w io.Writer, format export.Format) error
}

// CommandExecutor adapts go-command commanders and queriers to Executor.
type CommandExecutor struct {
	Sessions            SessionService
	ViewQuerier         gocommand.Querier[queries.DashboardViewInput, dashboard.ViewModel]
	DomainQuerier       gocommand.Querier[dashboard.ViewerContext, []queries.DomainSummary]
	FeedbackCommander   gocommand.Commander[commands.RecordFeedbackInput]
	ToggleRuleCommander gocommand.Commander[commands.ToggleRuleInput]
	InstallCommander    gocommand.Commander[commands.InstallCheckInput]
	AnalyzeCommander    gocommand.Commander[commands.TriggerAnalysisInput]
	RefreshCommander    gocommand.Commander[commands.RefreshDashboardInput]
	PrefsCommander      gocommand.Commander[commands.SavePreferencesInput]
}

var _ Executor = (*CommandExecutor)(nil)

// NewCommandExecutor wires every command and query against service.
func NewCommandExecutor(service *dashboard.Service, telemetry commands.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		Sessions:            service,
		ViewQuerier:         queries.NewDashboardViewQuery(service),
		DomainQuerier:       queries.NewDomainListQuery(service),
		FeedbackCommander:   commands.NewRecordFeedbackCommand(service, telemetry),
		ToggleRuleCommander: commands.NewToggleRuleCommand(service, telemetry),
		InstallCommander:    commands.NewInstallCheckCommand(service, telemetry),
		AnalyzeCommander:    commands.NewTriggerAnalysisCommand(service, telemetry),
		RefreshCommander:    commands.NewRefreshDashboardCommand(service, telemetry),
		PrefsCommander:      commands.NewSavePreferencesCommand(service, telemetry),
	}
}

func (e *CommandExecutor) Mount(ctx context.Context, req dashboard.MountRequest) (*dashboard.Session, error) {
	if e.Sessions == nil {
		return nil, ErrNotConfigured
	}
	return e.Sessions.Mount(ctx, req)
}

func (e *CommandExecutor) Unmount(ctx context.Context, sessionID string) error {
	if e.Sessions == nil {
		return ErrNotConfigured
	}
	return e.Sessions.Unmount(ctx, sessionID)
}

func (e *CommandExecutor) Session(sessionID string) (*dashboard.Session, error) {
	if e.Sessions == nil {
		return nil, ErrNotConfigured
	}
	return e.Sessions.Session(sessionID)
}

func (e *CommandExecutor) View(ctx context.Context, input queries.DashboardViewInput) (dashboard.ViewModel, error) {
	if e.ViewQuerier == nil {
		return dashboard.ViewModel{}, ErrNotConfigured
	}
	return e.ViewQuerier.Query(ctx, input)
}

func (e *CommandExecutor) Domains(ctx context.Context, viewer dashboard.ViewerContext) ([]queries.DomainSummary, error) {
	if e.DomainQuerier == nil {
		return nil, ErrNotConfigured
	}
	return e.DomainQuerier.Query(ctx, viewer)
}

func (e *CommandExecutor) Feedback(ctx context.Context, input commands.RecordFeedbackInput) error {
	return execute(ctx, e.FeedbackCommander, input)
}

func (e *CommandExecutor) ToggleRule(ctx context.Context, input commands.ToggleRuleInput) error {
	return execute(ctx, e.ToggleRuleCommander, input)
}

func (e *CommandExecutor) InstallCheck(ctx context.Context, input commands.InstallCheckInput) error {
	return execute(ctx, e.InstallCommander, input)
}

func (e *CommandExecutor) Analyze(ctx context.Context, input commands.TriggerAnalysisInput) error {
	return execute(ctx, e.AnalyzeCommander, input)
}

func (e *CommandExecutor) Refresh(ctx context.Context, input commands.RefreshDashboardInput) error {
	return execute(ctx, e.RefreshCommander, input)
}

func (e *CommandExecutor) Preferences(ctx context.Context, input commands.SavePreferencesInput) error {
	return execute(ctx, e.PrefsCommander, input)
}

func (e *CommandExecutor) Perform(ctx context.Context, req dashboard.ActionRequest) (any, error) {
	if e.Sessions == nil {
		return nil, ErrNotConfigured
	}
	return e.Sessions.Perform(ctx, req)
}

func (e *CommandExecutor) DrillDown(ctx context.Context, sessionID, recordID string) (records.Record, error) {
	if e.Sessions == nil {
		return nil, ErrNotConfigured
	}
	return e.Sessions.DrillDown(ctx, sessionID, recordID)
}

func (e *CommandExecutor) Export(ctx context.Context, sessionID string, w io.Writer, format export.Format) error {
	if e.Sessions == nil {
		return ErrNotConfigured
	}
	return e.Sessions.Export(ctx, sessionID, w, format)
}

func execute[T any](ctx context.Context, cmd gocommand.Commander[T], msg T) error {
	if cmd == nil {
		return ErrNotConfigured
	}
	return cmd.Execute(ctx, msg)
}
