package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ratewatch/ratewatch/internal/stats"
)

// Default values for the panel configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultRetentionCap      = 1000
	DefaultBroadcastInterval = time.Second
)

// Config is the root of the YAML file. Everything lives under the `panel:` key.
type Config struct {
	Panel PanelConfig `yaml:"panel"`
}

// PanelConfig holds all panel settings.
type PanelConfig struct {
	// HTTPPort is the port the JSON API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// Auth configures API-key checking on the HTTP surface.
	Auth AuthConfig `yaml:"auth"`

	// Feed configures the host data feed connection.
	Feed FeedConfig `yaml:"feed"`

	// Stats configures the frequency statistics engine.
	Stats StatsConfig `yaml:"stats"`

	// Broadcast controls how often summaries are pushed to UI clients and
	// alert rules are evaluated.
	Broadcast BroadcastConfig `yaml:"broadcast"`

	// Export configures the optional periodic CSV snapshot.
	Export ExportConfig `yaml:"export"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// AuthConfig controls client authentication on the HTTP surface.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the environment variable holding the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header the key is read from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// FeedConfig configures the host feed adapter.
type FeedConfig struct {
	// URL is the host's WebSocket endpoint, e.g. ws://127.0.0.1:8765/ws.
	URL string `yaml:"url"`

	// Channels is the initial subscription set. Empty means subscribe to
	// every channel the host advertises.
	Channels []string `yaml:"channels"`
}

// StatsConfig configures the statistics engine.
type StatsConfig struct {
	// OutlierSigma is the outlier threshold multiplier, within
	// [stats.MinSigma, stats.MaxSigma].
	OutlierSigma float64 `yaml:"outlier_sigma"`

	// RetentionCap is the per-channel timestamp retention cap.
	RetentionCap int `yaml:"retention_cap"`
}

// BroadcastConfig controls the UI broadcast tick.
type BroadcastConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// ExportConfig configures the periodic CSV snapshot. An empty path or a zero
// interval disables it.
type ExportConfig struct {
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition evaluated against
// every channel summary.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression over summary fields:
	// "mean_hz < 0.5", "outliers > 10", "stddev_hz > 5", "messages == 0".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires per (rule, channel) for this duration.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Panel: PanelConfig{
			HTTPPort: DefaultHTTPPort,
			Stats: StatsConfig{
				OutlierSigma: stats.DefaultSigma,
				RetentionCap: DefaultRetentionCap,
			},
			Broadcast: BroadcastConfig{
				Interval: DefaultBroadcastInterval,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	p := cfg.Panel
	if p.HTTPPort <= 0 || p.HTTPPort > 65535 {
		return fmt.Errorf("panel.http_port %d is out of range [1, 65535]", p.HTTPPort)
	}
	switch p.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("panel.auth.mode %q unknown: want apikey|none", p.Auth.Mode)
	}
	if p.Feed.URL == "" {
		return fmt.Errorf("panel.feed.url must be set")
	}
	if s := p.Stats.OutlierSigma; s < stats.MinSigma || s > stats.MaxSigma {
		return fmt.Errorf("panel.stats.outlier_sigma %.2f is out of range [%.1f, %.1f]",
			s, stats.MinSigma, stats.MaxSigma)
	}
	if p.Stats.RetentionCap <= 0 {
		return fmt.Errorf("panel.stats.retention_cap must be positive")
	}
	if p.Broadcast.Interval <= 0 {
		return fmt.Errorf("panel.broadcast.interval must be positive")
	}
	if p.Export.Interval < 0 {
		return fmt.Errorf("panel.export.interval must not be negative")
	}
	if p.Export.Interval > 0 && p.Export.Path == "" {
		return fmt.Errorf("panel.export.path must be set when an export interval is configured")
	}
	for _, r := range p.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("panel.alerts.rules: every rule needs a name")
		}
		if r.Condition == "" {
			return fmt.Errorf("panel.alerts.rules: rule %q needs a condition", r.Name)
		}
	}
	return nil
}
