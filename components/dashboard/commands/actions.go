package commands

import (
	"context"
	"errors"
	"fmt"

	dashboard "github.com/goliatone/go-insights/components/dashboard"
)

// ErrInvalidInput marks command input rejected before reaching the service.
var ErrInvalidInput = errors.New("commands: invalid input")

var (
	errMissingService = errors.New("commands: service is required")
	errMissingSession = fmt.Errorf("%w: session id is required", ErrInvalidInput)
	errMissingTarget  = fmt.Errorf("%w: target id is required", ErrInvalidInput)
)

// actionService performs domain actions on mounted sessions.
type actionService interface {
	Perform(ctx context.Context, req dashboard.ActionRequest) (any, error)
}

// actionRunner is shared by the commands that map onto domain actions.
type actionRunner struct {
	service   actionService
	telemetry Telemetry
}

func (r actionRunner) run(ctx context.Context, event string, req dashboard.ActionRequest) error {
	if r.service == nil {
		return errMissingService
	}
	if req.SessionID == "" {
		return errMissingSession
	}
	if _, err := r.service.Perform(ctx, req); err != nil {
		return err
	}
	r.telemetry.Record(ctx, event, sessionEvent(req.SessionID, req.Action, req.TargetID))
	return nil
}
