package config

import (
	"fmt"
	"time"

	"github.com/sawpanic/heliobio/internal/datasources/donki"
	"github.com/sawpanic/heliobio/internal/datasources/graph"
	"github.com/sawpanic/heliobio/internal/net/breaker"
)

// SourcesConfig represents the live metric source settings
type SourcesConfig struct {
	DONKI DONKIConfig `yaml:"donki"`
	Graph GraphConfig `yaml:"graph"`
}

// ProviderConfig is the transport shared by every live source
type ProviderConfig struct {
	Enabled bool             `yaml:"enabled"`  // Provider enabled flag
	BaseURL string           `yaml:"base_url"` // Base URL for API calls
	RPS     float64          `yaml:"rps"`      // Requests per second
	Burst   int              `yaml:"burst"`    // Burst capacity
	Timeout time.Duration    `yaml:"timeout"`  // Per-request timeout
	Circuit breaker.Settings `yaml:"circuit"`  // Circuit breaker config
}

// DONKIConfig configures the live solar source
type DONKIConfig struct {
	ProviderConfig `yaml:",inline"`
	APIKey         string        `yaml:"api_key"`
	FlareWindow    time.Duration `yaml:"flare_window"`
	StormWindow    time.Duration `yaml:"storm_window"`
	CMEWindow      time.Duration `yaml:"cme_window"`
}

// GraphConfig configures the live social source
type GraphConfig struct {
	ProviderConfig     `yaml:",inline"`
	PageID             string        `yaml:"page_id"`
	AccessToken        string        `yaml:"access_token"`
	AppID              string        `yaml:"app_id"`
	AppSecret          string        `yaml:"app_secret"`
	TokenCheckInterval time.Duration `yaml:"token_check_interval"`
}

func defaultProvider(baseURL string, rps float64, burst int) ProviderConfig {
	return ProviderConfig{
		BaseURL: baseURL,
		RPS:     rps,
		Burst:   burst,
		Timeout: 10 * time.Second,
		Circuit: breaker.DefaultSettings(),
	}
}

// DefaultSourcesConfig leaves both live sources disabled until credentials are supplied
func DefaultSourcesConfig() SourcesConfig {
	d := donki.DefaultConfig()
	return SourcesConfig{
		DONKI: DONKIConfig{
			ProviderConfig: defaultProvider(d.BaseURL, 1, 3),
			FlareWindow:    d.FlareWindow,
			StormWindow:    d.StormWindow,
			CMEWindow:      d.CMEWindow,
		},
		Graph: GraphConfig{
			ProviderConfig:     defaultProvider(graph.DefaultBaseURL, 2, 4),
			TokenCheckInterval: time.Hour,
		},
	}
}

// Validate ensures a provider configuration is valid
func (p *ProviderConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}
	if p.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %g", p.RPS)
	}
	if p.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", p.Burst)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", p.Timeout)
	}
	if p.Circuit.OpenTimeout <= 0 {
		return fmt.Errorf("circuit.open_timeout must be positive")
	}
	if p.Circuit.FailureRatio < 0 || p.Circuit.FailureRatio > 1 {
		return fmt.Errorf("circuit.failure_ratio must be between 0 and 1, got %g", p.Circuit.FailureRatio)
	}
	return nil
}

// Live reports whether the DONKI source should be queried
func (d DONKIConfig) Live() bool {
	return d.Enabled && d.APIKey != ""
}

// Client returns the DONKI client settings
func (d DONKIConfig) Client() donki.Config {
	return donki.Config{
		BaseURL:     d.BaseURL,
		APIKey:      d.APIKey,
		FlareWindow: d.FlareWindow,
		StormWindow: d.StormWindow,
		CMEWindow:   d.CMEWindow,
	}
}

// Live reports whether the Graph source should be queried
func (g GraphConfig) Live() bool {
	return g.Enabled && g.AccessToken != "" && g.PageID != ""
}

// Client returns the Graph client settings
func (g GraphConfig) Client() graph.Config {
	return graph.Config{
		BaseURL:            g.BaseURL,
		PageID:             g.PageID,
		AccessToken:        g.AccessToken,
		AppID:              g.AppID,
		AppSecret:          g.AppSecret,
		TokenCheckInterval: g.TokenCheckInterval,
	}
}

// Validate checks both sources
func (s *SourcesConfig) Validate() error {
	if err := s.DONKI.ProviderConfig.Validate(); err != nil {
		return fmt.Errorf("donki: %w", err)
	}
	if s.DONKI.Enabled && (s.DONKI.FlareWindow <= 0 || s.DONKI.StormWindow <= 0 || s.DONKI.CMEWindow <= 0) {
		return fmt.Errorf("donki: query windows must be positive")
	}
	if err := s.Graph.ProviderConfig.Validate(); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	return nil
}
