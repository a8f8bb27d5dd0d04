package datasources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/net/breaker"
	"github.com/sawpanic/heliobio/internal/net/ratelimit"
)

const userAgent = "heliobio/1.0"

// Fetcher performs rate-limited, breaker-guarded JSON GETs for one live source
type Fetcher struct {
	source  string
	client  *http.Client
	limiter *ratelimit.Limiter
	breaker *breaker.Breaker
	timeout time.Duration
}

// NewFetcher builds a fetcher. limiter and br may be nil.
func NewFetcher(source string, timeout time.Duration, limiter *ratelimit.Limiter, br *breaker.Breaker) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		source:  source,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		breaker: br,
		timeout: timeout,
	}
}

// Source returns the name errors are attributed to
func (f *Fetcher) Source() string {
	return f.source
}

// GetJSON fetches rawURL and decodes the body into dst. Failures are *SourceError.
func (f *Fetcher) GetJSON(ctx context.Context, op, rawURL string, dst interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
			return NewSourceError(f.source, op, 0, err)
		}
	}

	call := func() (interface{}, error) {
		return nil, f.do(ctx, op, rawURL, dst)
	}

	var err error
	if f.breaker != nil {
		_, err = f.breaker.Execute(call)
	} else {
		_, err = call()
	}
	if err == nil {
		return nil
	}
	if _, ok := err.(*SourceError); ok {
		return err
	}
	return NewSourceError(f.source, op, 0, err)
}

func (f *Fetcher) do(ctx context.Context, op, rawURL string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return NewSourceError(f.source, op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return NewSourceError(f.source, op, 0, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("component", "datasources").
		Str("source", f.source).
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Source request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewSourceError(f.source, op, resp.StatusCode, fmt.Errorf("unexpected response: %s", string(body)))
	}

	// an empty 200 body means no results
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil && err != io.EOF {
		return NewSourceError(f.source, op, resp.StatusCode, fmt.Errorf("decode: %w", err))
	}
	return nil
}
