// Package config loads the heliobio YAML configuration, applies environment
// overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/resonance"
	"github.com/sawpanic/heliobio/internal/infrastructure/db"
	httpapi "github.com/sawpanic/heliobio/internal/interfaces/http"
	"github.com/sawpanic/heliobio/internal/monitor"
)

// Config is the complete service configuration
type Config struct {
	Server      httpapi.ServerConfig `yaml:"server"`
	Poll        PollConfig           `yaml:"poll"`
	Alerts      alerts.Config        `yaml:"alerts"`
	Sources     SourcesConfig        `yaml:"sources"`
	Cache       CacheConfig          `yaml:"cache"`
	Persistence db.Config            `yaml:"persistence"`
	Notify      NotifyConfig         `yaml:"notify"`
	Log         LogConfig            `yaml:"log"`
}

// PollConfig controls the poll loop
type PollConfig struct {
	Interval     time.Duration     `yaml:"interval"`
	RetryBackoff time.Duration     `yaml:"retry_backoff"`
	HistoryCap   int               `yaml:"history_cap"`
	Weights      resonance.Weights `yaml:"weights"`
}

// Monitor converts the section to poller settings
func (p PollConfig) Monitor() monitor.Config {
	return monitor.Config{
		Interval:     p.Interval,
		RetryBackoff: p.RetryBackoff,
		HistoryCap:   p.HistoryCap,
		Weights:      p.Weights,
	}
}

// CacheConfig configures the last-known-good cache. An empty RedisAddr selects
// the in-process cache.
type CacheConfig struct {
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	Prefix          string        `yaml:"prefix"`
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Redis reports whether the Redis backend is configured
func (c CacheConfig) Redis() bool {
	return c.RedisAddr != ""
}

// LogConfig selects the log level and writer
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // auto, console or json
}

// ValidationError reports an invalid configuration section
type ValidationError struct {
	Section string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s config: %v", e.Section, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Default returns the built-in configuration
func Default() Config {
	m := monitor.DefaultConfig()
	return Config{
		Server: httpapi.DefaultServerConfig(),
		Poll: PollConfig{
			Interval:     m.Interval,
			RetryBackoff: m.RetryBackoff,
			HistoryCap:   m.HistoryCap,
			Weights:      m.Weights,
		},
		Alerts:  alerts.DefaultConfig(),
		Sources: DefaultSourcesConfig(),
		Cache: CacheConfig{
			Prefix:          "heliobio:",
			MaxAge:          datasources.DefaultMaxAge,
			CleanupInterval: 5 * time.Minute,
		},
		Persistence: db.DefaultConfig(),
		Notify:      DefaultNotifyConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates. An empty path uses the defaults.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an injectable environment lookup
func LoadWithEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Alert rules apply per field so a file may
// override a single threshold, including setting it to zero.
func (c *Config) decode(data []byte) error {
	base := c.Alerts
	c.Alerts = alerts.Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	var overlay struct {
		Alerts alerts.Override `yaml:"alerts"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse alert rules: %w", err)
	}
	c.Alerts = base.Apply(overlay.Alerts)
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("HELIOBIO_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Section: "server", Err: fmt.Errorf("HELIOBIO_HTTP_PORT %q: %w", v, err)}
		}
		c.Server.Port = port
	}
	if v := getenv("HELIOBIO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("NASA_API_KEY"); v != "" {
		c.Sources.DONKI.APIKey = v
		c.Sources.DONKI.Enabled = true
	}
	if v := getenv("GRAPH_ACCESS_TOKEN"); v != "" {
		c.Sources.Graph.AccessToken = v
		c.Sources.Graph.Enabled = true
	}
	if v := getenv("GRAPH_PAGE_ID"); v != "" {
		c.Sources.Graph.PageID = v
	}
	if v := getenv("GRAPH_APP_ID"); v != "" {
		c.Sources.Graph.AppID = v
	}
	if v := getenv("GRAPH_APP_SECRET"); v != "" {
		c.Sources.Graph.AppSecret = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := getenv("PG_DSN"); v != "" {
		c.Persistence.DSN = v
		c.Persistence.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.Kafka.Brokers = splitList(v)
		c.Notify.Kafka.Enabled = true
	}
	if v := getenv("MQTT_BROKER"); v != "" {
		c.Notify.MQTT.Broker = v
		c.Notify.MQTT.Enabled = true
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks every section, returning the first failure as a *ValidationError
func (c *Config) Validate() error {
	checks := []struct {
		section string
		fn      func() error
	}{
		{"server", c.Server.Validate},
		{"poll", c.Poll.Validate},
		{"alerts", c.Alerts.Validate},
		{"sources", c.Sources.Validate},
		{"cache", c.Cache.Validate},
		{"persistence", c.Persistence.Validate},
		{"notify", c.Notify.Validate},
		{"log", c.Log.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return &ValidationError{Section: check.section, Err: err}
		}
	}
	return nil
}

// Validate checks intervals, history capacity and weights
func (p PollConfig) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", p.Interval)
	}
	if p.RetryBackoff <= 0 {
		return fmt.Errorf("retry_backoff must be positive, got %s", p.RetryBackoff)
	}
	if p.HistoryCap <= 0 {
		return fmt.Errorf("history_cap must be positive, got %d", p.HistoryCap)
	}
	w := p.Weights
	for _, v := range []float64{w.Solar, w.Social, w.Flare, w.Geomagnetic} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("weights must be finite and non-negative")
		}
	}
	if math.Abs(w.Sum()-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %g", w.Sum())
	}
	return nil
}

// Validate checks cache timing
func (c CacheConfig) Validate() error {
	if c.MaxAge <= 0 {
		return fmt.Errorf("max_age must be positive, got %s", c.MaxAge)
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis_db cannot be negative")
	}
	return nil
}

// Validate checks the level and format names
func (l LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(l.Level)); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	switch l.Format {
	case "", "auto", "console", "json":
		return nil
	default:
		return fmt.Errorf("format must be auto, console or json, got %q", l.Format)
	}
}

// YAML renders the configuration with credentials redacted
func (c Config) YAML() ([]byte, error) {
	redacted := c
	redacted.Sources.DONKI.APIKey = redact(c.Sources.DONKI.APIKey)
	redacted.Sources.Graph.AccessToken = redact(c.Sources.Graph.AccessToken)
	redacted.Sources.Graph.AppSecret = redact(c.Sources.Graph.AppSecret)
	redacted.Cache.RedisPassword = redact(c.Cache.RedisPassword)
	redacted.Persistence.DSN = redact(c.Persistence.DSN)
	if len(c.Server.AdminKeys) > 0 {
		keys := make([]string, len(c.Server.AdminKeys))
		for i := range keys {
			keys[i] = redact(c.Server.AdminKeys[i])
		}
		redacted.Server.AdminKeys = keys
	}
	return yaml.Marshal(redacted)
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
