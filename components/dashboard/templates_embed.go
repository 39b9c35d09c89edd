package dashboard

import (
	"embed"
	"io/fs"

	template "github.com/goliatone/go-template"
)

//go:embed templates/*.html templates/**/*.html
var embeddedTemplates embed.FS

// NewTemplateRenderer creates a go-template renderer backed by the embedded templates.
// Template names are relative to the templates directory, e.g. "dashboard.html".
func NewTemplateRenderer() (Renderer, error) {
	root, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return template.NewRenderer(
		template.WithFS(root),
		template.WithExtension(".html"),
	)
}

// NewDefaultPageRenderer renders the embedded templates with go-echarts charts.
func NewDefaultPageRenderer(charts *ChartRenderer) (*PageRenderer, error) {
	renderer, err := NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	return NewPageRenderer(PageRendererOptions{Renderer: renderer, Charts: charts})
}
