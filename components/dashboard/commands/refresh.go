package commands

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
)

// RefreshDashboardInput re-fetches one session, or every session of a domain.
type RefreshDashboardInput struct {
	SessionID string   `json:"session_id,omitempty"`
	Domain    string   `json:"domain,omitempty"`
	Slices    []string `json:"slices,omitempty"`
}

type refreshService interface {
	Refresh(ctx context.Context, id string, slices ...string) error
	RefreshDomain(ctx context.Context, domain string) (int, error)
}

// RefreshDashboardCommand triggers a re-fetch; the service broadcasts the
// resulting view events.
type RefreshDashboardCommand struct {
	service   refreshService
	telemetry Telemetry
}

// NewRefreshDashboardCommand creates the command.
func NewRefreshDashboardCommand(service refreshService, telemetry Telemetry) *RefreshDashboardCommand {
	return &RefreshDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshDashboardInput] = (*RefreshDashboardCommand)(nil)

// Execute refreshes the session when given, otherwise the whole domain.
func (c *RefreshDashboardCommand) Execute(ctx context.Context, msg RefreshDashboardInput) error {
	if c.service == nil {
		return errMissingService
	}
	switch {
	case msg.SessionID != "":
		if err := c.service.Refresh(ctx, msg.SessionID, msg.Slices...); err != nil {
			return err
		}
		c.telemetry.Record(ctx, "insights.dashboard.refresh", map[string]any{
			"session_id": msg.SessionID,
			"slices":     len(msg.Slices),
		})
	case msg.Domain != "":
		count, err := c.service.RefreshDomain(ctx, msg.Domain)
		if err != nil {
			return err
		}
		c.telemetry.Record(ctx, "insights.dashboard.refresh", map[string]any{
			"domain":   msg.Domain,
			"sessions": count,
		})
	default:
		return fmt.Errorf("%w: refresh requires a session id or domain", ErrInvalidInput)
	}
	return nil
}
