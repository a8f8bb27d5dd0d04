package datasources

import (
	"sort"
	"sync"
	"time"

	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// Source status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const latencySamples = 500

// LatencyMetrics summarizes fetch latency for one source
type LatencyMetrics struct {
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
	Max time.Duration `json:"max"`
	Avg time.Duration `json:"avg"`
}

// SourceHealth is the health view of one live source
type SourceHealth struct {
	Name                string         `json:"name"`
	Status              string         `json:"status"`
	Successes           int64          `json:"successes"`
	Failures            int64          `json:"failures"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	LastSuccess         time.Time      `json:"last_success,omitempty"`
	LastFailure         time.Time      `json:"last_failure,omitempty"`
	LastError           string         `json:"last_error,omitempty"`
	Latency             LatencyMetrics `json:"latency"`
}

// HealthSnapshot is the health of every source plus the tag of the latest record per domain
type HealthSnapshot struct {
	Timestamp     time.Time                     `json:"timestamp"`
	OverallHealth string                        `json:"overall_health"`
	Sources       map[string]SourceHealth       `json:"sources"`
	DataSources   map[string]metrics.DataSource `json:"data_sources"`
}

type sourceState struct {
	latency             *history.Buffer[time.Duration]
	successes           int64
	failures            int64
	consecutiveFailures int
	lastSuccess         time.Time
	lastFailure         time.Time
	lastError           string
}

// Health tracks fetch outcomes and latency per source
type Health struct {
	mu      sync.RWMutex
	sources map[string]*sourceState
	tags    map[string]metrics.DataSource
	now     func() time.Time
}

// NewHealth creates an empty tracker
func NewHealth() *Health {
	return &Health{
		sources: make(map[string]*sourceState),
		tags:    make(map[string]metrics.DataSource),
		now:     time.Now,
	}
}

// RecordFetch records the outcome of one live fetch
func (h *Health) RecordFetch(source string, latency time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st, ok := h.sources[source]
	if !ok {
		st = &sourceState{
			latency: history.NewBuffer(latencySamples, func(time.Duration) time.Time { return time.Time{} }),
		}
		h.sources[source] = st
	}

	st.latency.Append(latency)
	now := h.now()
	if err != nil {
		st.failures++
		st.consecutiveFailures++
		st.lastFailure = now
		st.lastError = err.Error()
		return
	}
	st.successes++
	st.consecutiveFailures = 0
	st.lastSuccess = now
}

// RecordTag records the provenance of the latest record for a domain ("solar" or "social")
func (h *Health) RecordTag(domain string, tag metrics.DataSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tags[domain] = tag
}

// Tag returns the provenance of the latest record for domain
func (h *Health) Tag(domain string) (metrics.DataSource, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	tag, ok := h.tags[domain]
	return tag, ok
}

// Snapshot returns the current health of all sources
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	snap := HealthSnapshot{
		Timestamp:   h.now(),
		Sources:     make(map[string]SourceHealth, len(h.sources)),
		DataSources: make(map[string]metrics.DataSource, len(h.tags)),
	}
	for domain, tag := range h.tags {
		snap.DataSources[domain] = tag
	}

	worst := StatusHealthy
	for name, st := range h.sources {
		sh := SourceHealth{
			Name:                name,
			Status:              sourceStatus(st.consecutiveFailures),
			Successes:           st.successes,
			Failures:            st.failures,
			ConsecutiveFailures: st.consecutiveFailures,
			LastSuccess:         st.lastSuccess,
			LastFailure:         st.lastFailure,
			LastError:           st.lastError,
			Latency:             summarize(st.latency.Snapshot()),
		}
		snap.Sources[name] = sh
		worst = worseStatus(worst, sh.Status)
	}
	for _, tag := range h.tags {
		if tag == metrics.DataSourceErrorFallback || tag == metrics.DataSourceCached {
			worst = worseStatus(worst, StatusDegraded)
		}
	}
	snap.OverallHealth = worst
	return snap
}

func sourceStatus(consecutiveFailures int) string {
	switch {
	case consecutiveFailures == 0:
		return StatusHealthy
	case consecutiveFailures < 3:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

func worseStatus(a, b string) string {
	rank := map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func summarize(samples []time.Duration) LatencyMetrics {
	n := len(samples)
	if n == 0 {
		return LatencyMetrics{}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	var total time.Duration
	for _, s := range samples {
		total += s
	}
	return LatencyMetrics{
		P50: samples[n*50/100],
		P95: samples[n*95/100],
		P99: samples[n*99/100],
		Max: samples[n-1],
		Avg: total / time.Duration(n),
	}
}
