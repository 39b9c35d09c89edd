package dashboard

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	core "github.com/goliatone/go-insights/components/dashboard"
	"github.com/goliatone/go-insights/components/dashboard/commands"
	"github.com/goliatone/go-insights/components/dashboard/httpapi"
	"github.com/goliatone/go-insights/pkg/activity"
	"github.com/goliatone/go-insights/pkg/analytics"
)

// Service exposes the underlying components/dashboard.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// Config re-exports the file/env configuration.
type Config = core.Config

// Request and view types used by embedding applications.
type (
	MountRequest  = core.MountRequest
	QueryRequest  = core.QueryRequest
	ActionRequest = core.ActionRequest
	ViewModel     = core.ViewModel
	ViewerContext = core.ViewerContext
	Session       = core.Session
)

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// LoadConfig reads the YAML file at path (optional) and INSIGHTS_* overrides.
func LoadConfig(path string) (Config, error) {
	return core.LoadConfigFile(path)
}

// RuntimeOptions carries collaborators that cannot come from Config.
type RuntimeOptions struct {
	Logger        *zap.Logger
	Client        analytics.Client
	ActivityHooks activity.Hooks
	Authorizer    core.Authorizer
	Translator    core.TranslationService
	// RefreshHooks receive view events next to the runtime's broadcast hook.
	RefreshHooks []core.RefreshHook
}

// Runtime bundles a configured service with its transports.
type Runtime struct {
	Config    Config
	Logger    *zap.Logger
	Registry  *core.Registry
	Service   *Service
	Executor  *httpapi.CommandExecutor
	Broadcast *core.BroadcastHook
	Charts    *core.ChartRenderer
}

// NewRuntime validates cfg, loads manifests and wires the service. Demo mode
// serves built-in payloads through the mock client and fallback.
func NewRuntime(cfg Config, opts RuntimeOptions) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg.LogLevel); err != nil {
			return nil, err
		}
	}

	registry := core.NewRegistry()
	for _, path := range cfg.Manifests {
		if _, err := registry.LoadManifestFile(path); err != nil {
			return nil, fmt.Errorf("dashboard: load manifest %s: %w", path, err)
		}
	}

	client, err := newClient(cfg, opts.Client, registry, logger)
	if err != nil {
		return nil, err
	}
	var fallback core.FallbackPolicy = core.EmptyFallback{}
	if cfg.Demo {
		fallback = core.NewDemoFallback()
	}

	broadcast := core.NewBroadcastHook().WithLogger(logger.Named("broadcast"))
	hooks := core.RefreshHooks{broadcast}
	hooks = append(hooks, opts.RefreshHooks...)

	telemetry := core.LoggerTelemetry{Logger: logger.Named("telemetry")}
	service := core.NewService(core.Options{
		Registry:          registry,
		Client:            client,
		Fallback:          fallback,
		StreamBaseURL:     cfg.StreamURL,
		Authorizer:        opts.Authorizer,
		RefreshHook:       hooks,
		Telemetry:         telemetry,
		Translator:        opts.Translator,
		ActivityHooks:     opts.ActivityHooks,
		ActivityConfig:    cfg.Activity,
		Logger:            logger,
		Locale:            cfg.Locale,
		ReconnectDelay:    cfg.ReconnectDelay,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	charts := core.NewChartRenderer(
		core.WithChartCache(core.NewChartCache(cfg.ChartCacheTTL)),
		core.WithChartTheme(cfg.ChartTheme),
	)

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Service:   service,
		Executor:  httpapi.NewCommandExecutor(service, telemetry),
		Broadcast: broadcast,
		Charts:    charts,
	}, nil
}

func newClient(cfg Config, client analytics.Client, registry *core.Registry, logger *zap.Logger) (analytics.Client, error) {
	switch {
	case client != nil:
		return client, nil
	case cfg.Demo:
		return analytics.NewMockClient(analytics.MockData{
			Responses: core.DemoEndpointPayloads(registry.Domains()),
		}), nil
	default:
		return analytics.NewHTTPClient(analytics.HTTPConfig{
			BaseURL: cfg.BackendURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
			Logger:  logger.Named("analytics"),
		})
	}
}

// Pages builds the embedded template renderer with the runtime's charts.
func (r *Runtime) Pages() (*core.PageRenderer, error) {
	return core.NewDefaultPageRenderer(r.Charts)
}

// Close unmounts every session and flushes the logger.
func (r *Runtime) Close() error {
	err := r.Service.Close()
	_ = r.Logger.Sync()
	return err
}

// NewLogger builds a production zap logger at level ("debug", "info", ...).
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("dashboard: log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

var _ commands.Telemetry = core.LoggerTelemetry{}
