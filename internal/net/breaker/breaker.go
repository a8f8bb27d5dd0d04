// Package breaker wraps sony/gobreaker for metric source clients.
package breaker

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	cb "github.com/sony/gobreaker"
)

// ErrOpen is returned when the breaker rejects a call
var ErrOpen = errors.New("circuit open")

// Settings tunes trip and recovery behaviour
type Settings struct {
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	MinRequests         uint32        `yaml:"min_requests"`
	FailureRatio        float64       `yaml:"failure_ratio"`
	Interval            time.Duration `yaml:"interval"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// DefaultSettings trips after 3 consecutive failures or a 50% failure ratio over 20 calls
func DefaultSettings() Settings {
	return Settings{
		ConsecutiveFailures: 3,
		MinRequests:         20,
		FailureRatio:        0.5,
		Interval:            60 * time.Second,
		OpenTimeout:         60 * time.Second,
	}
}

// Breaker guards calls to one upstream
type Breaker struct {
	name string
	cb   *cb.CircuitBreaker
}

// New creates a breaker named after the upstream it guards
func New(name string, s Settings) *Breaker {
	st := cb.Settings{
		Name:     name,
		Interval: s.Interval,
		Timeout:  s.OpenTimeout,
	}
	st.ReadyToTrip = func(counts cb.Counts) bool {
		if s.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= s.ConsecutiveFailures {
			return true
		}
		if counts.Requests < s.MinRequests || s.FailureRatio <= 0 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		log.Warn().
			Str("component", "breaker").
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit state changed")
	}
	return &Breaker{name: name, cb: cb.NewCircuitBreaker(st)}
}

// Execute runs fn through the breaker. Rejections are reported as ErrOpen.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
		return nil, ErrOpen
	}
	return res, err
}

// Name returns the guarded upstream name
func (b *Breaker) Name() string {
	return b.name
}

// State returns "closed", "half-open" or "open"
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Counts returns the failure counters of the current interval
func (b *Breaker) Counts() cb.Counts {
	return b.cb.Counts()
}
