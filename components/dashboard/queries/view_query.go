package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insights/components/dashboard"
)

// DashboardViewInput identifies a mounted session.
type DashboardViewInput struct {
	SessionID string
	// Query, when set, is applied before the view is derived.
	Query *dashboard.QueryRequest
}

type viewService interface {
	View(ctx context.Context, id string) (dashboard.ViewModel, error)
	ApplyQuery(ctx context.Context, id string, req dashboard.QueryRequest) (dashboard.ViewModel, error)
}

// DashboardViewQuery derives the view model of a session.
type DashboardViewQuery struct {
	service viewService
}

// NewDashboardViewQuery builds the query.
func NewDashboardViewQuery(service viewService) *DashboardViewQuery {
	return &DashboardViewQuery{service: service}
}

var _ gocommand.Querier[DashboardViewInput, dashboard.ViewModel] = (*DashboardViewQuery)(nil)

// Query returns the session's view, applying the optional query first.
func (q *DashboardViewQuery) Query(ctx context.Context, input DashboardViewInput) (dashboard.ViewModel, error) {
	if input.Query != nil {
		return q.service.ApplyQuery(ctx, input.SessionID, *input.Query)
	}
	return q.service.View(ctx, input.SessionID)
}
