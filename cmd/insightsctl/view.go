package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	core "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/components/dashboard/queries"
	dashboardpkg "github.com/goliatone/go-insights/pkg/dashboard"
	"github.com/goliatone/go-insights/pkg/export"
)

// queryFlags are the query options shared by view and export.
type queryFlags struct {
	Domain   string   `short:"d" required:"" help:"Domain code (e.g. insights.log_patterns)."`
	User     string   `default:"insightsctl" help:"Viewer user id."`
	Locale   string   `help:"Viewer locale."`
	Filter   []string `short:"f" help:"Filter as field:value (repeatable)."`
	Search   string   `short:"s" help:"Free-text search."`
	Sort     string   `help:"Sort field."`
	Dir      string   `help:"Sort direction (asc or desc)."`
	Period   string   `short:"p" help:"Time period (e.g. 24h, 7d)."`
	Group    string   `help:"Group rows by field."`
	Page     int      `help:"Page number."`
	PageSize int      `name:"page-size" help:"Rows per page."`
}

func (q queryFlags) viewer() core.ViewerContext {
	return core.ViewerContext{UserID: q.User, Locale: q.Locale}
}

func (q queryFlags) request() (*core.QueryRequest, error) {
	filters, err := parseFilters(q.Filter)
	if err != nil {
		return nil, err
	}
	req := &core.QueryRequest{
		Filters:  filters,
		Sort:     q.Sort,
		SortDir:  q.Dir,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.Search != "" {
		req.Search = &q.Search
	}
	if q.Period != "" {
		req.Period = &q.Period
	}
	if q.Group != "" {
		req.GroupBy = &q.Group
	}
	return req, nil
}

// mount opens a session and applies the query flags.
func mount(ctx context.Context, rt *dashboardpkg.Runtime, q queryFlags, live bool) (*core.Session, core.ViewModel, error) {
	req, err := q.request()
	if err != nil {
		return nil, core.ViewModel{}, err
	}
	sess, err := rt.Executor.Mount(ctx, core.MountRequest{Domain: q.Domain, Viewer: q.viewer(), Live: live})
	if err != nil {
		return nil, core.ViewModel{}, err
	}
	vm, err := rt.Executor.View(ctx, queries.DashboardViewInput{SessionID: sess.ID, Query: req})
	if err != nil {
		return nil, core.ViewModel{}, err
	}
	return sess, vm, nil
}

type domainsCmd struct {
	Locale string `help:"Locale for names and descriptions."`
}

func (c *domainsCmd) Run(ctx context.Context, g *Globals) error {
	rt, err := g.runtime()
	if err != nil {
		return err
	}
	defer rt.Close()
	domains, err := rt.Executor.Domains(ctx, core.ViewerContext{UserID: "insightsctl", Locale: c.Locale})
	if err != nil {
		return err
	}
	return g.encode(domains)
}

type viewCmd struct {
	queryFlags
}

func (c *viewCmd) Run(ctx context.Context, g *Globals) error {
	rt, err := g.runtime()
	if err != nil {
		return err
	}
	defer rt.Close()
	_, vm, err := mount(ctx, rt, c.queryFlags, false)
	if err != nil {
		return err
	}
	return g.encode(vm)
}

type exportCmd struct {
	queryFlags
	Format string `short:"F" default:"csv" help:"Export format (json, csv, markdown, yaml)."`
	Out    string `type:"path" help:"Write to this file instead of stdout."`
}

func (c *exportCmd) Run(ctx context.Context, g *Globals) error {
	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	rt, err := g.runtime()
	if err != nil {
		return err
	}
	defer rt.Close()
	sess, _, err := mount(ctx, rt, c.queryFlags, false)
	if err != nil {
		return err
	}
	if c.Out == "" {
		return rt.Executor.Export(ctx, sess.ID, g.out(), format)
	}
	file, err := os.Create(c.Out) //nolint:gosec
	if err != nil {
		return fmt.Errorf("insightsctl: create %s: %w", c.Out, err)
	}
	if err := rt.Executor.Export(ctx, sess.ID, file, format); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

type watchCmd struct {
	queryFlags
	Duration time.Duration `default:"0s" help:"Stop after this long (0 waits for Ctrl-C)."`
	Count    int           `help:"Stop after this many live events (0 is unlimited)."`
}

func (c *watchCmd) Run(ctx context.Context, g *Globals) error {
	rt, err := g.runtime()
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.Config.StreamURL == "" {
		return errors.New("insightsctl: watch requires stream_url or --stream-url")
	}
	if c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Duration)
		defer cancel()
	}

	events, cancel := rt.Broadcast.Subscribe(c.Domain)
	defer cancel()
	sess, _, err := mount(ctx, rt, c.queryFlags, true)
	if err != nil {
		return err
	}
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.SessionID != sess.ID {
				continue
			}
			if err := g.encode(event); err != nil {
				return err
			}
			if event.Reason != "live" {
				continue
			}
			seen++
			if c.Count > 0 && seen >= c.Count {
				return nil
			}
		}
	}
}
