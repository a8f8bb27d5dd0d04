// Package monitor runs the periodic poll cycle: fetch solar and social
// metrics, score resonance, evaluate alerts and record a snapshot.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/domain/resonance"
)

// Config controls the poll loop
type Config struct {
	Interval     time.Duration
	RetryBackoff time.Duration
	HistoryCap   int
	Weights      resonance.Weights
}

// DefaultConfig polls every minute and retries failed cycles after 90s
func DefaultConfig() Config {
	return Config{
		Interval:     60 * time.Second,
		RetryBackoff: 90 * time.Second,
		HistoryCap:   history.DefaultSnapshotCap,
		Weights:      resonance.DefaultWeights(),
	}
}

// Status reports the poll loop state
type Status struct {
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at,omitempty"`
	LastCycle time.Time `json:"last_cycle,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Cycles    int64     `json:"cycles"`
	Failures  int64     `json:"failures"`
}

// Option configures a Poller
type Option func(*Poller)

// WithObserver adds a cycle observer
func WithObserver(o CycleObserver) Option {
	return func(p *Poller) {
		p.observers = append(p.observers, o)
	}
}

// WithClock overrides the poller clock
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

// Poller owns the evaluator and snapshot history for one process
type Poller struct {
	cfg       Config
	solar     datasources.SolarSource
	social    datasources.SocialSource
	evaluator *alerts.Evaluator
	history   *history.Buffer[history.ResonanceSnapshot]
	observers []CycleObserver
	now       func() time.Time

	cycleMu sync.Mutex

	mu     sync.RWMutex
	status Status
	latest *CycleResult
	wake   chan struct{}
}

// NewPoller wires sources and the evaluator into a poll loop
func NewPoller(cfg Config, solar datasources.SolarSource, social datasources.SocialSource, evaluator *alerts.Evaluator, opts ...Option) (*Poller, error) {
	if solar == nil || social == nil {
		return nil, fmt.Errorf("poller requires solar and social sources")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("poller requires an alert evaluator")
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = def.HistoryCap
	}
	if cfg.Weights == (resonance.Weights{}) {
		cfg.Weights = def.Weights
	}

	p := &Poller{
		cfg:       cfg,
		solar:     solar,
		social:    social,
		evaluator: evaluator,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.history = history.NewSnapshotBuffer(cfg.HistoryCap, history.WithClock[history.ResonanceSnapshot](p.now))
	return p, nil
}

// AddObserver registers an observer after construction
func (p *Poller) AddObserver(o CycleObserver) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()
	p.observers = append(p.observers, o)
}

// RunCycle performs one fetch, score, evaluate and record pass
func (p *Poller) RunCycle(ctx context.Context) (CycleResult, error) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := p.now()
	result, err := p.cycle(ctx, start)

	p.mu.Lock()
	p.status.LastCycle = start
	if err != nil {
		p.status.Failures++
		p.status.LastError = err.Error()
	} else {
		p.status.Cycles++
		p.status.LastError = ""
		latest := result
		p.latest = &latest
	}
	p.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("component", "monitor").Msg("Poll cycle failed")
		return CycleResult{}, err
	}

	for _, o := range p.observers {
		if oerr := o.OnCycle(ctx, copyResult(result)); oerr != nil {
			log.Warn().Err(oerr).Str("component", "monitor").Msg("Cycle observer failed")
		}
	}
	return copyResult(result), nil
}

func (p *Poller) cycle(ctx context.Context, start time.Time) (CycleResult, error) {
	solar, err := p.solar.FetchSolar(ctx)
	if err != nil {
		return CycleResult{}, fmt.Errorf("fetch solar: %w", err)
	}
	social, err := p.social.FetchSocial(ctx, solar)
	if err != nil {
		return CycleResult{}, fmt.Errorf("fetch social: %w", err)
	}

	breakdown := resonance.Explain(solar, social, p.cfg.Weights)
	fired := p.evaluator.Evaluate(solar, social, breakdown.Score)

	snap := history.ResonanceSnapshot{
		Timestamp:       start,
		Solar:           solar,
		Social:          social.Copy(),
		Resonance:       breakdown.Score,
		AlertsTriggered: len(fired),
	}
	p.history.Append(snap)

	duration := p.now().Sub(start)
	log.Info().
		Str("component", "monitor").
		Float64("resonance", resonance.Round(breakdown.Score)).
		Str("solar_source", string(solar.DataSource)).
		Str("social_source", string(social.DataSource)).
		Int("alerts", len(fired)).
		Dur("duration", duration).
		Msg("Poll cycle completed")

	return CycleResult{
		Snapshot:  snap,
		Breakdown: breakdown,
		Alerts:    fired,
		StartedAt: start,
		Duration:  duration,
	}, nil
}

// Run polls immediately and then every interval until ctx is done or Stop is
// called. A failed cycle waits RetryBackoff instead of Interval.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.status.Running {
		p.mu.Unlock()
		return fmt.Errorf("poller already running")
	}
	p.status.Running = true
	p.status.StartedAt = p.now()
	p.mu.Unlock()

	select {
	case <-p.wake:
	default:
	}

	log.Info().
		Str("component", "monitor").
		Dur("interval", p.cfg.Interval).
		Dur("retry_backoff", p.cfg.RetryBackoff).
		Msg("Poller starting")

	defer func() {
		p.mu.Lock()
		p.status.Running = false
		p.status.NextRun = time.Time{}
		p.mu.Unlock()
		log.Info().Str("component", "monitor").Msg("Poller stopped")
	}()

	for {
		if !p.Status().Running {
			return nil
		}

		wait := p.cfg.Interval
		if _, err := p.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			wait = p.cfg.RetryBackoff
		}

		p.mu.Lock()
		p.status.NextRun = p.now().Add(wait)
		p.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-p.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Stop flips the running flag. An in-flight cycle completes; no new one starts.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.status.Running = false
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Status returns a copy of the loop state
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Latest returns the most recent successful cycle
func (p *Poller) Latest() (CycleResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return CycleResult{}, false
	}
	return copyResult(*p.latest), true
}

// History is the snapshot buffer
func (p *Poller) History() *history.Buffer[history.ResonanceSnapshot] {
	return p.history
}

// Evaluator is the alert evaluator owned by this poller
func (p *Poller) Evaluator() *alerts.Evaluator {
	return p.evaluator
}

// Config returns the effective poll configuration
func (p *Poller) Config() Config {
	return p.cfg
}
