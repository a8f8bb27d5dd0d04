// Package graph is the live social source backed by a social-graph page API.
package graph

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// DefaultBaseURL is the versioned Graph API root
const DefaultBaseURL = "https://graph.facebook.com/v19.0"

const pageFields = "id,name,fan_count,posts.limit(5){message,created_time,likes.limit(1).summary(true),comments.limit(1).summary(true),shares}"

// ErrInvalidToken is returned when token introspection reports the access token as invalid
var ErrInvalidToken = errors.New("access token is not valid")

// Config holds page and credential settings. AppID and AppSecret are only
// needed for token introspection.
type Config struct {
	BaseURL            string
	PageID             string
	AccessToken        string
	AppID              string
	AppSecret          string
	TokenCheckInterval time.Duration
}

// Client implements datasources.SocialSource for one page
type Client struct {
	cfg   Config
	fetch *datasources.Fetcher
	now   func() time.Time

	mu           sync.Mutex
	tokenChecked time.Time
}

// New creates a client
func New(cfg Config, fetch *datasources.Fetcher) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenCheckInterval <= 0 {
		cfg.TokenCheckInterval = time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.PageID = strings.Trim(cfg.PageID, `"`)
	return &Client{cfg: cfg, fetch: fetch, now: time.Now}
}

// Configured reports whether page and token are set
func (c *Client) Configured() bool {
	return c.cfg.PageID != "" && c.cfg.AccessToken != ""
}

// Name identifies the source
func (c *Client) Name() string {
	return "graph"
}

// FetchSocial reads the page and its recent posts. The solar record is not used by the live source.
func (c *Client) FetchSocial(ctx context.Context, _ metrics.SolarMetrics) (metrics.SocialMetrics, error) {
	if !c.Configured() {
		return metrics.SocialMetrics{}, datasources.NewSourceError(c.Name(), "fetch page", 0, errors.New("page id or access token missing"))
	}
	if err := c.ensureToken(ctx); err != nil {
		return metrics.SocialMetrics{}, err
	}

	page, err := c.Page(ctx)
	if err != nil {
		return metrics.SocialMetrics{}, err
	}

	rec := Analyze(c.now().UTC(), page)
	log.Debug().
		Str("component", "graph").
		Str("page", page.Name).
		Int("posts", len(page.Posts.Data)).
		Float64("engagement_intensity", rec.EngagementIntensity).
		Msg("Page analysed")
	return rec, nil
}

// Page fetches the configured page with its recent posts
func (c *Client) Page(ctx context.Context) (Page, error) {
	q := url.Values{}
	q.Set("fields", pageFields)
	q.Set("access_token", c.cfg.AccessToken)

	var page Page
	endpoint := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, url.PathEscape(c.cfg.PageID), q.Encode())
	if err := c.fetch.GetJSON(ctx, "fetch page", endpoint, &page); err != nil {
		return Page{}, err
	}
	return page, nil
}

type debugTokenResponse struct {
	Data struct {
		IsValid   bool  `json:"is_valid"`
		ExpiresAt int64 `json:"expires_at"`
	} `json:"data"`
}

// ensureToken introspects the access token at most once per TokenCheckInterval.
// Skipped when no app credentials are configured.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.cfg.AppID == "" || c.cfg.AppSecret == "" {
		return nil
	}

	c.mu.Lock()
	fresh := !c.tokenChecked.IsZero() && c.now().Sub(c.tokenChecked) < c.cfg.TokenCheckInterval
	c.mu.Unlock()
	if fresh {
		return nil
	}

	q := url.Values{}
	q.Set("input_token", c.cfg.AccessToken)
	q.Set("access_token", c.cfg.AppID+"|"+c.cfg.AppSecret)

	var resp debugTokenResponse
	if err := c.fetch.GetJSON(ctx, "debug token", c.cfg.BaseURL+"/debug_token?"+q.Encode(), &resp); err != nil {
		return err
	}
	if !resp.Data.IsValid {
		return datasources.NewSourceError(c.Name(), "debug token", 0, ErrInvalidToken)
	}

	c.mu.Lock()
	c.tokenChecked = c.now()
	c.mu.Unlock()
	return nil
}
