package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-insights/components/dashboard"
)

type domainService interface {
	Domains(ctx context.Context, viewer dashboard.ViewerContext) []dashboard.DomainDefinition
}

// DomainSummary is the navigation entry for one insight domain.
type DomainSummary struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Live        bool     `json:"live"`
	Actions     []string `json:"actions,omitempty"`
}

// DomainListQuery lists the domains a viewer may open, localized to the
// viewer's locale.
type DomainListQuery struct {
	service domainService
}

// NewDomainListQuery builds the query.
func NewDomainListQuery(service domainService) *DomainListQuery {
	return &DomainListQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, []DomainSummary] = (*DomainListQuery)(nil)

// Query lists the viewer's domains.
func (q *DomainListQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) ([]DomainSummary, error) {
	defs := q.service.Domains(ctx, viewer)
	out := make([]DomainSummary, 0, len(defs))
	for _, def := range defs {
		summary := DomainSummary{
			Code:        def.Code,
			Name:        def.NameForLocale(viewer.Locale),
			Description: def.DescriptionForLocale(viewer.Locale),
			Category:    def.Category,
			Live:        def.Stream != "",
		}
		for _, a := range def.Actions {
			summary.Actions = append(summary.Actions, a.Name)
		}
		out = append(out, summary)
	}
	return out, nil
}
