// Package notify fans newly fired alerts out to external message sinks.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/monitor"
)

// Event is the wire payload published for one alert
type Event struct {
	Alert     alerts.Alert `json:"alert"`
	Resonance float64      `json:"resonance"`
	EmittedAt time.Time    `json:"emitted_at"`
	Origin    string       `json:"origin"`
}

// Encode renders the event as JSON
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Sink publishes alert events to one destination
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Dispatcher publishes each fired alert to every sink
type Dispatcher struct {
	sinks   []Sink
	origin  string
	timeout time.Duration
	now     func() time.Time
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithOrigin sets the origin field stamped on every event
func WithOrigin(origin string) DispatcherOption {
	return func(d *Dispatcher) {
		d.origin = origin
	}
}

// WithPublishTimeout bounds each sink publish
func WithPublishTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewDispatcher creates a dispatcher over sinks
func NewDispatcher(sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sinks:   sinks,
		origin:  "heliobio",
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enabled reports whether any sink is configured
func (d *Dispatcher) Enabled() bool {
	return len(d.sinks) > 0
}

// Dispatch publishes alerts to every sink and joins the failures
func (d *Dispatcher) Dispatch(ctx context.Context, fired []alerts.Alert, resonance float64) error {
	var errs []error
	for _, a := range fired {
		ev := Event{Alert: a, Resonance: resonance, EmittedAt: d.now().UTC(), Origin: d.origin}
		for _, s := range d.sinks {
			pctx, cancel := context.WithTimeout(ctx, d.timeout)
			err := s.Publish(pctx, ev)
			cancel()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: publish %s: %w", s.Name(), a.Kind, err))
				continue
			}
			log.Debug().
				Str("component", "notify").
				Str("sink", s.Name()).
				Str("alert_kind", string(a.Kind)).
				Str("alert_id", a.ID).
				Msg("Alert published")
		}
	}
	return errors.Join(errs...)
}

// OnCycle implements monitor.CycleObserver
func (d *Dispatcher) OnCycle(ctx context.Context, result monitor.CycleResult) error {
	if len(result.Alerts) == 0 {
		return nil
	}
	return d.Dispatch(ctx, result.Alerts, result.Snapshot.Resonance)
}

// Close closes every sink
func (d *Dispatcher) Close() error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
