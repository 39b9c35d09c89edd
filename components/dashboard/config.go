package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-insights/pkg/activity"
)

// EnvPrefix prefixes every environment override, e.g. INSIGHTS_BACKEND_URL.
const EnvPrefix = "INSIGHTS_"

var errMissingBackend = errors.New("dashboard: backend_url is required unless demo is enabled")

// Config is the file and environment configuration of an insights deployment.
type Config struct {
	BackendURL        string          `yaml:"backend_url" json:"backend_url"`
	APIKey            string          `yaml:"api_key" json:"-"`
	StreamURL         string          `yaml:"stream_url" json:"stream_url"`
	Timeout           time.Duration   `yaml:"timeout" json:"timeout"`
	ReconnectDelay    time.Duration   `yaml:"reconnect_delay" json:"reconnect_delay"`
	HeartbeatInterval time.Duration   `yaml:"heartbeat_interval" json:"heartbeat_interval"`
	Locale            string          `yaml:"locale" json:"locale"`
	Demo              bool            `yaml:"demo" json:"demo"`
	ChartTheme        string          `yaml:"chart_theme" json:"chart_theme"`
	ChartCacheTTL     time.Duration   `yaml:"chart_cache_ttl" json:"chart_cache_ttl"`
	Manifests         []string        `yaml:"manifests" json:"manifests"`
	LogLevel          string          `yaml:"log_level" json:"log_level"`
	Activity          activity.Config `yaml:"activity" json:"activity"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Timeout:           10 * time.Second,
		ReconnectDelay:    5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		Locale:            "en",
		ChartCacheTTL:     defaultChartTTL,
		LogLevel:          "info",
		Activity:          activity.Config{Channel: activity.DefaultChannel},
	}
}

// LoadConfigFile reads YAML from path over the defaults and applies
// environment overrides. An empty path skips the file.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("dashboard: read config %s: %w", path, err)
		}
		cfg, err = DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Config{}, fmt.Errorf("dashboard: parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeConfig decodes YAML over the defaults. Unknown keys are rejected.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from INSIGHTS_* variables resolved by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	var errs []error
	if v, ok := get("BACKEND_URL"); ok {
		c.BackendURL = v
	}
	if v, ok := get("API_KEY"); ok {
		c.APIKey = v
	}
	if v, ok := get("STREAM_URL"); ok {
		c.StreamURL = v
	}
	if v, ok := get("LOCALE"); ok {
		c.Locale = v
	}
	if v, ok := get("CHART_THEME"); ok {
		c.ChartTheme = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("MANIFESTS"); ok {
		c.Manifests = splitList(v)
	}
	if v, ok := get("ACTIVITY_CHANNEL"); ok {
		c.Activity.Channel = v
	}
	for name, dst := range map[string]*time.Duration{
		"TIMEOUT":            &c.Timeout,
		"RECONNECT_DELAY":    &c.ReconnectDelay,
		"HEARTBEAT_INTERVAL": &c.HeartbeatInterval,
		"CHART_CACHE_TTL":    &c.ChartCacheTTL,
	} {
		if v, ok := get(name); ok {
			d, err := cast.ToDurationE(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("dashboard: %s%s: %w", EnvPrefix, name, err))
				continue
			}
			*dst = d
		}
	}
	for name, dst := range map[string]*bool{
		"DEMO":             &c.Demo,
		"ACTIVITY_ENABLED": &c.Activity.Enabled,
	} {
		if v, ok := get(name); ok {
			b, err := cast.ToBoolE(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("dashboard: %s%s: %w", EnvPrefix, name, err))
				continue
			}
			*dst = b
		}
	}
	return errors.Join(errs...)
}

// Validate checks that the configuration can build a service.
func (c Config) Validate() error {
	if c.BackendURL == "" && !c.Demo {
		return errMissingBackend
	}
	if c.Timeout < 0 || c.ReconnectDelay < 0 {
		return fmt.Errorf("dashboard: durations must not be negative")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
