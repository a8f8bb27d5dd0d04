package monitor

import (
	"context"
	"time"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/domain/resonance"
)

// CycleResult is everything one poll cycle produced
type CycleResult struct {
	Snapshot  history.ResonanceSnapshot `json:"snapshot"`
	Breakdown resonance.Breakdown       `json:"breakdown"`
	Alerts    []alerts.Alert            `json:"alerts"`
	StartedAt time.Time                 `json:"started_at"`
	Duration  time.Duration             `json:"duration"`
}

// CycleObserver is notified after every successful cycle. Errors are logged
// and never abort the cycle.
type CycleObserver interface {
	OnCycle(ctx context.Context, result CycleResult) error
}

// ObserverFunc adapts a function to CycleObserver
type ObserverFunc func(ctx context.Context, result CycleResult) error

// OnCycle calls f
func (f ObserverFunc) OnCycle(ctx context.Context, result CycleResult) error {
	return f(ctx, result)
}

// copyResult detaches a result from buffers shared with the poller
func copyResult(r CycleResult) CycleResult {
	r.Snapshot = r.Snapshot.Copy()
	if r.Alerts != nil {
		out := make([]alerts.Alert, len(r.Alerts))
		for i, a := range r.Alerts {
			out[i] = a.Copy()
		}
		r.Alerts = out
	}
	return r
}
