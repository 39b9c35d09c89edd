package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/geometry"
)

const (
	defaultChartHeight = "360px"
	defaultChartTTL    = 5 * time.Minute
	// envEChartsCDN overrides the host the ECharts runtime loads from.
	envEChartsCDN = "INSIGHTS_ECHARTS_CDN"
)

// Chart kinds accepted by ChartRenderer.Categories.
const (
	ChartPie = "pie"
	ChartBar = "bar"
)

var errEmptyChart = errors.New("dashboard: chart has no data")

// ThemeResolver selects a chart theme per viewer.
type ThemeResolver func(ViewerContext) string

// ChartRenderer renders interactive go-echarts HTML for trends and category
// breakdowns. The SVG primitives in ViewModel.Charts remain the primary
// rendering; these are the richer variants.
type ChartRenderer struct {
	cache         RenderCache
	theme         string
	themeResolver ThemeResolver
	assetsHost    string
	height        string
}

// ChartOption customizes a ChartRenderer.
type ChartOption func(*ChartRenderer)

// WithChartCache injects a render cache. Nil disables caching.
func WithChartCache(cache RenderCache) ChartOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets a static theme (defaults to Westeros).
func WithChartTheme(theme string) ChartOption {
	return func(r *ChartRenderer) {
		r.theme = theme
	}
}

// WithChartThemeResolver resolves themes dynamically per viewer.
func WithChartThemeResolver(resolver ThemeResolver) ChartOption {
	return func(r *ChartRenderer) {
		r.themeResolver = resolver
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// WithChartHeight sets the CSS height of every chart.
func WithChartHeight(height string) ChartOption {
	return func(r *ChartRenderer) {
		if height != "" {
			r.height = height
		}
	}
}

// NewChartRenderer builds a renderer with a five minute chart cache.
func NewChartRenderer(options ...ChartOption) *ChartRenderer {
	r := &ChartRenderer{
		cache:      NewChartCache(defaultChartTTL),
		theme:      types.ThemeWesteros,
		assetsHost: defaultAssetsHost(),
		height:     defaultChartHeight,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func defaultAssetsHost() string {
	host := strings.TrimSpace(os.Getenv(envEChartsCDN))
	if host == "" || strings.HasSuffix(host, "/") {
		return host
	}
	return host + "/"
}

// RenderView renders every chart of the view model, keyed "trend:<slice>"
// and "categories". Cached renderings are tied to the view's state version.
func (r *ChartRenderer) RenderView(vm ViewModel, viewer ViewerContext) (map[string]string, error) {
	out := map[string]string{}
	for _, trend := range vm.Charts.Trends {
		html, err := r.trend(vm.Domain, trend.Name, export.Label(trend.Name), trend.Points, viewer, vm.Version)
		if err != nil {
			return nil, fmt.Errorf("dashboard: render trend %s: %w", trend.Name, err)
		}
		out["trend:"+trend.Name] = html
	}
	if len(vm.Categories) > 0 {
		kind := ChartPie
		if vm.Charts.Donut == nil {
			kind = ChartBar
		}
		html, err := r.categories(vm.Domain, vm.Title, kind, vm.Categories, viewer, vm.Version)
		if err != nil {
			return nil, fmt.Errorf("dashboard: render categories: %w", err)
		}
		out["categories"] = html
	}
	return out, nil
}

// Trend renders a smoothed line chart of the series.
func (r *ChartRenderer) Trend(domain, title string, points []geometry.SeriesPoint, viewer ViewerContext) (string, error) {
	return r.trend(domain, title, title, points, viewer, 0)
}

func (r *ChartRenderer) trend(domain, name, title string, points []geometry.SeriesPoint, viewer ViewerContext, version uint64) (string, error) {
	if len(points) == 0 {
		return "", errEmptyChart
	}
	theme := r.resolveTheme(viewer)
	key := ChartKey{Domain: domain, Chart: "trend:" + name, Theme: theme, Version: version}
	return r.cached(key, struct {
		Title  string
		Points []geometry.SeriesPoint
	}{title, points}, func() (string, error) {
		axis := make([]string, len(points))
		data := make([]opts.LineData, len(points))
		for i, p := range points {
			axis[i] = p.Timestamp
			data[i] = opts.LineData{Name: p.Timestamp, Value: p.Value}
		}
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalOptions(title, theme)...)
		line.SetXAxis(axis)
		line.AddSeries(title, data)
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	})
}

// Categories renders a category breakdown as a pie or a bar chart.
func (r *ChartRenderer) Categories(domain, title, kind string, totals []geometry.CategoryTotal, viewer ViewerContext) (string, error) {
	return r.categories(domain, title, kind, totals, viewer, 0)
}

func (r *ChartRenderer) categories(domain, title, kind string, totals []geometry.CategoryTotal, viewer ViewerContext, version uint64) (string, error) {
	if len(totals) == 0 {
		return "", errEmptyChart
	}
	kind = strings.ToLower(kind)
	if kind != ChartPie && kind != ChartBar {
		return "", fmt.Errorf("unsupported chart type: %s", kind)
	}
	theme := r.resolveTheme(viewer)
	key := ChartKey{Domain: domain, Chart: "categories:" + kind, Theme: theme, Version: version}
	return r.cached(key, struct {
		Title  string
		Totals []geometry.CategoryTotal
	}{title, totals}, func() (string, error) {
		if kind == ChartBar {
			return r.renderBars(title, theme, totals)
		}
		return r.renderPie(title, theme, totals)
	})
}

func (r *ChartRenderer) renderPie(title, theme string, totals []geometry.CategoryTotal) (string, error) {
	data := make([]opts.PieData, len(totals))
	for i, t := range totals {
		data[i] = opts.PieData{Name: export.Label(t.Category), Value: t.Count}
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(r.globalOptions(title, theme)...)
	pie.AddSeries(title, data)
	pie.SetSeriesOptions(charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}))
	return renderChart(pie)
}

func (r *ChartRenderer) renderBars(title, theme string, totals []geometry.CategoryTotal) (string, error) {
	axis := make([]string, len(totals))
	data := make([]opts.BarData, len(totals))
	for i, t := range totals {
		axis[i] = export.Label(t.Category)
		data[i] = opts.BarData{Name: axis[i], Value: t.Count}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(r.globalOptions(title, theme)...)
	bar.SetXAxis(axis)
	bar.AddSeries(title, data)
	return renderChart(bar)
}

func (r *ChartRenderer) cached(key ChartKey, input any, render func() (string, error)) (string, error) {
	if r.cache == nil {
		return render()
	}
	key.Digest = contentHash(input)
	return r.cache.GetOrRender(key, render)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *ChartRenderer) globalOptions(title, theme string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  theme,
		Width:  "100%",
		Height: r.height,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func (r *ChartRenderer) resolveTheme(viewer ViewerContext) string {
	if r.themeResolver != nil {
		if theme := r.themeResolver(viewer); theme != "" {
			return theme
		}
	}
	if r.theme != "" {
		return r.theme
	}
	return types.ThemeWesteros
}
