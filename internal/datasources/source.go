// Package datasources supplies solar and social metrics from live clients with
// cached and synthetic fallbacks.
package datasources

import (
	"context"
	"errors"
	"fmt"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// SolarSource produces one solar observation per call
type SolarSource interface {
	Name() string
	FetchSolar(ctx context.Context) (metrics.SolarMetrics, error)
}

// SocialSource produces one social observation per call. The current solar
// observation is passed so generators can model solar influence.
type SocialSource interface {
	Name() string
	FetchSocial(ctx context.Context, solar metrics.SolarMetrics) (metrics.SocialMetrics, error)
}

// ErrSourceUnavailable matches every SourceError
var ErrSourceUnavailable = errors.New("metric source unavailable")

// SourceError reports a failed fetch from a metric source
type SourceError struct {
	Source     string
	Op         string
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Source, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSourceUnavailable) match any SourceError
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceError wraps err for source and op
func NewSourceError(source, op string, status int, err error) *SourceError {
	return &SourceError{
		Source:     source,
		Op:         op,
		StatusCode: status,
		Temporary:  status == 0 || status == 429 || status >= 500,
		Err:        err,
	}
}
