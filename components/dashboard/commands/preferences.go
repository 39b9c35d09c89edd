package commands

import (
	"context"
	"fmt"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insights/components/dashboard"
)

// SavePreferencesInput stores a viewer's query preferences for a domain. When
// SessionID is set the session's current query is saved instead.
type SavePreferencesInput struct {
	SessionID   string                  `json:"session_id,omitempty"`
	Viewer      dashboard.ViewerContext `json:"viewer"`
	Domain      string                  `json:"domain"`
	Preferences dashboard.Preferences   `json:"preferences"`
}

type preferenceService interface {
	SavePreferences(ctx context.Context, viewer dashboard.ViewerContext, domain string, prefs dashboard.Preferences) error
	SaveSessionPreferences(ctx context.Context, id string) (dashboard.Preferences, error)
}

// SavePreferencesCommand persists per-viewer sort, page size and filters.
type SavePreferencesCommand struct {
	service   preferenceService
	telemetry Telemetry
}

// NewSavePreferencesCommand creates the command.
func NewSavePreferencesCommand(service preferenceService, telemetry Telemetry) *SavePreferencesCommand {
	return &SavePreferencesCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SavePreferencesInput] = (*SavePreferencesCommand)(nil)

// Execute stores the preferences.
func (c *SavePreferencesCommand) Execute(ctx context.Context, msg SavePreferencesInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.SessionID != "" {
		prefs, err := c.service.SaveSessionPreferences(ctx, msg.SessionID)
		if err != nil {
			return err
		}
		c.telemetry.Record(ctx, "insights.preferences.save", map[string]any{
			"session_id": msg.SessionID,
			"filters":    len(prefs.Filters),
		})
		return nil
	}
	if msg.Viewer.UserID == "" {
		return fmt.Errorf("%w: preferences require viewer user id", ErrInvalidInput)
	}
	if err := c.service.SavePreferences(ctx, msg.Viewer, msg.Domain, msg.Preferences); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "insights.preferences.save", map[string]any{
		"user_id": msg.Viewer.UserID,
		"domain":  msg.Domain,
		"filters": len(msg.Preferences.Filters),
	})
	return nil
}
