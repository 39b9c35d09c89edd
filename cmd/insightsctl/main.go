package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	dashboardpkg "github.com/goliatone/go-insights/pkg/dashboard"
)

// Globals are shared by every subcommand.
type Globals struct {
	Config     string `short:"c" type:"path" help:"Path to an insights YAML config file." env:"INSIGHTS_CONFIG"`
	Demo       bool   `help:"Serve built-in demo payloads instead of calling a backend."`
	BackendURL string `name:"backend-url" help:"Analytics backend base URL (overrides config)."`
	StreamURL  string `name:"stream-url" help:"Live stream base URL (overrides config)."`
	LogLevel   string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level."`
	Output     string `short:"o" default:"json" enum:"json,yaml" help:"Output encoding for structured results."`

	stdout io.Writer
}

type cli struct {
	Globals

	Domains  domainsCmd  `cmd:"" help:"List the registered insight domains."`
	View     viewCmd     `cmd:"" help:"Load a dashboard and print its view model."`
	Export   exportCmd   `cmd:"" help:"Export a dashboard's filtered table."`
	Watch    watchCmd    `cmd:"" help:"Subscribe to a domain's live stream and print view events."`
	Scaffold scaffoldCmd `cmd:"" help:"Add a domain definition to a manifest."`
	Validate validateCmd `cmd:"" help:"Validate domain manifests."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app cli
	app.stdout = os.Stdout
	kctx := kong.Parse(&app,
		kong.Name("insightsctl"),
		kong.Description("Inspect, export and scaffold go-insights dashboards."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := kctx.Run(&app.Globals)
	kctx.FatalIfErrorf(err)
}

func (g *Globals) out() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

// runtime loads the config file and applies flag overrides.
func (g *Globals) runtime() (*dashboardpkg.Runtime, error) {
	cfg, err := dashboardpkg.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Demo {
		cfg.Demo = true
	}
	if g.BackendURL != "" {
		cfg.BackendURL = g.BackendURL
	}
	if g.StreamURL != "" {
		cfg.StreamURL = g.StreamURL
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	logger, err := dashboardpkg.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return dashboardpkg.NewRuntime(cfg, dashboardpkg.RuntimeOptions{Logger: logger})
}

func (g *Globals) encode(v any) error {
	if g.Output == "yaml" {
		enc := yaml.NewEncoder(g.out())
		enc.SetIndent(2)
		if err := enc.Encode(toYAML(v)); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(g.out())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// toYAML round-trips v through JSON so YAML output uses the JSON field names.
func toYAML(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// parseFilters turns "field:value" flags into a filter map.
func parseFilters(raw []string) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := map[string][]string{}
	for _, item := range raw {
		field, value, ok := strings.Cut(item, ":")
		field, value = strings.TrimSpace(field), strings.TrimSpace(value)
		if !ok || field == "" || value == "" {
			return nil, fmt.Errorf("insightsctl: filter %q must look like field:value", item)
		}
		out[field] = append(out[field], value)
	}
	return out, nil
}
