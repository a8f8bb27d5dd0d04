package history

import (
	"time"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// ResonanceSnapshot records one poll cycle. Immutable once appended.
type ResonanceSnapshot struct {
	Timestamp       time.Time             `json:"timestamp"`
	Solar           metrics.SolarMetrics  `json:"solar"`
	Social          metrics.SocialMetrics `json:"social"`
	Resonance       float64               `json:"resonance"`
	AlertsTriggered int                   `json:"alerts_triggered"`
}

// NewSnapshotBuffer creates the snapshot history with the given cap
func NewSnapshotBuffer(capacity int, opts ...BufferOption[ResonanceSnapshot]) *Buffer[ResonanceSnapshot] {
	return NewBuffer(capacity, func(s ResonanceSnapshot) time.Time { return s.Timestamp }, opts...)
}

// Copy returns a snapshot that shares no mutable state with s
func (s ResonanceSnapshot) Copy() ResonanceSnapshot {
	s.Social = s.Social.Copy()
	return s
}
