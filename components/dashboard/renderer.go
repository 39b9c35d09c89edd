package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/records"
)

const (
	// DefaultPageTemplate renders a full dashboard page.
	DefaultPageTemplate = "dashboard.html"
	// DefaultTableTemplate renders only the table fragment for partial refreshes.
	DefaultTableTemplate = "partials/table.html"
)

var errMissingRenderer = errors.New("dashboard: renderer is required")

// Renderer describes the template renderer contract needed by the page renderer.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// PageRendererOptions configures a PageRenderer.
type PageRendererOptions struct {
	Renderer      Renderer
	Charts        *ChartRenderer
	Template      string
	TableTemplate string
}

// PageRenderer turns view models into HTML through a template renderer.
type PageRenderer struct {
	renderer Renderer
	charts   *ChartRenderer
	page     string
	table    string
}

// NewPageRenderer wires a template renderer. Charts is optional; without it
// pages carry only the inline SVG charts.
func NewPageRenderer(opts PageRendererOptions) (*PageRenderer, error) {
	if opts.Renderer == nil {
		return nil, errMissingRenderer
	}
	if opts.Template == "" {
		opts.Template = DefaultPageTemplate
	}
	if opts.TableTemplate == "" {
		opts.TableTemplate = DefaultTableTemplate
	}
	return &PageRenderer{
		renderer: opts.Renderer,
		charts:   opts.Charts,
		page:     opts.Template,
		table:    opts.TableTemplate,
	}, nil
}

// RenderPage renders the full page for vm.
func (p *PageRenderer) RenderPage(vm ViewModel, viewer ViewerContext, out io.Writer) error {
	var charts map[string]string
	if p.charts != nil {
		rendered, err := p.charts.RenderView(vm, viewer)
		if err != nil {
			return err
		}
		charts = rendered
	}
	data, err := PageContext(vm, charts)
	if err != nil {
		return err
	}
	data["viewer"] = map[string]any{"user_id": viewer.UserID, "locale": viewer.Locale}
	if _, err := p.renderer.Render(p.page, data, out); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", p.page, err)
	}
	return nil
}

// RenderTable renders the table fragment for vm.
func (p *PageRenderer) RenderTable(vm ViewModel, out io.Writer) error {
	data, err := PageContext(vm, nil)
	if err != nil {
		return err
	}
	if _, err := p.renderer.Render(p.table, data, out); err != nil {
		return fmt.Errorf("dashboard: render %s: %w", p.table, err)
	}
	return nil
}

// PageContext flattens vm into the template context. Field names follow the
// JSON encoding; "table_rows" holds preformatted cells in column order and
// "chart_html" the optional echarts markup.
func PageContext(vm ViewModel, charts map[string]string) (map[string]any, error) {
	data, err := json.Marshal(vm)
	if err != nil {
		return nil, fmt.Errorf("dashboard: encode view %s: %w", vm.Domain, err)
	}
	var ctx map[string]any
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("dashboard: decode view %s: %w", vm.Domain, err)
	}
	ctx["table_rows"] = tableCells(vm.Columns, vm.Rows)
	summary := make([]map[string]any, 0, len(vm.Summary))
	for _, field := range export.InferFields([]records.Record{vm.Summary}) {
		summary = append(summary, map[string]any{
			"label": export.Label(field),
			"value": export.FormatValue(vm.Summary.Get(field)),
		})
	}
	ctx["summary_cards"] = summary
	if charts == nil {
		charts = map[string]string{}
	}
	ctx["chart_html"] = charts
	return ctx, nil
}

func tableCells(columns []export.Column, rows []records.Record) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = export.FormatValue(row.Get(col.Field))
		}
		out[i] = cells
	}
	return out
}
