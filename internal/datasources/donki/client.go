// Package donki is the live solar source backed by the NASA DONKI event API.
package donki

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// DefaultBaseURL is the public DONKI endpoint
const DefaultBaseURL = "https://api.nasa.gov/DONKI"

// Config holds the query windows and credentials
type Config struct {
	BaseURL     string
	APIKey      string
	FlareWindow time.Duration
	StormWindow time.Duration
	CMEWindow   time.Duration
}

// DefaultConfig queries 7 days of flares and CMEs and 30 days of storms
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		FlareWindow: 7 * 24 * time.Hour,
		StormWindow: 30 * 24 * time.Hour,
		CMEWindow:   7 * 24 * time.Hour,
	}
}

// Baseline supplies the solar fields DONKI does not report
type Baseline func(now time.Time) metrics.SolarMetrics

// Client implements datasources.SolarSource against DONKI
type Client struct {
	cfg      Config
	fetch    *datasources.Fetcher
	baseline Baseline
	now      func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithBaseline sets the provider of sunspot, wind and flux values
func WithBaseline(b Baseline) Option {
	return func(c *Client) {
		c.baseline = b
	}
}

// WithClock overrides the client clock
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// New creates a DONKI client
func New(cfg Config, fetch *datasources.Fetcher, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.FlareWindow <= 0 {
		cfg.FlareWindow = def.FlareWindow
	}
	if cfg.StormWindow <= 0 {
		cfg.StormWindow = def.StormWindow
	}
	if cfg.CMEWindow <= 0 {
		cfg.CMEWindow = def.CMEWindow
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		cfg:      cfg,
		fetch:    fetch,
		baseline: func(time.Time) metrics.SolarMetrics { return metrics.SolarMetrics{} },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the source
func (c *Client) Name() string {
	return "donki"
}

// FetchSolar queries flares, storms and CMEs and folds them into one record
func (c *Client) FetchSolar(ctx context.Context) (metrics.SolarMetrics, error) {
	now := c.now().UTC()

	flares, err := c.Flares(ctx, now.Add(-c.cfg.FlareWindow), now)
	if err != nil {
		return metrics.SolarMetrics{}, err
	}
	storms, err := c.Storms(ctx, now.Add(-c.cfg.StormWindow), now)
	if err != nil {
		return metrics.SolarMetrics{}, err
	}
	cmes, err := c.CMEs(ctx, now.Add(-c.cfg.CMEWindow), now)
	if err != nil {
		return metrics.SolarMetrics{}, err
	}

	rec := Summarize(now, c.baseline(now), flares, storms, cmes)

	log.Debug().
		Str("component", "donki").
		Int("flares", len(flares)).
		Int("storms", len(storms)).
		Int("cmes", len(cmes)).
		Int("flare_activity", rec.FlareActivity).
		Int("geomagnetic_storm", rec.GeomagneticStorm).
		Msg("DONKI activity summarized")

	return rec, nil
}

// Flares returns FLR events between start and end
func (c *Client) Flares(ctx context.Context, start, end time.Time) ([]Flare, error) {
	var out []Flare
	if err := c.fetch.GetJSON(ctx, "fetch flares", c.endpoint("FLR", start, end), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Storms returns GST events between start and end
func (c *Client) Storms(ctx context.Context, start, end time.Time) ([]Storm, error) {
	var out []Storm
	if err := c.fetch.GetJSON(ctx, "fetch storms", c.endpoint("GST", start, end), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CMEs returns CME events between start and end
func (c *Client) CMEs(ctx context.Context, start, end time.Time) ([]CME, error) {
	var out []CME
	if err := c.fetch.GetJSON(ctx, "fetch cme", c.endpoint("CME", start, end), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) endpoint(kind string, start, end time.Time) string {
	q := url.Values{}
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	if c.cfg.APIKey != "" {
		q.Set("api_key", c.cfg.APIKey)
	}
	return fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, kind, q.Encode())
}
