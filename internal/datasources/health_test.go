package datasources

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

func TestHealth_StatusProgression(t *testing.T) {
	h := NewHealth()

	h.RecordFetch("donki", 100*time.Millisecond, nil)
	assert.Equal(t, StatusHealthy, h.Snapshot().Sources["donki"].Status)

	h.RecordFetch("donki", 200*time.Millisecond, errors.New("503"))
	assert.Equal(t, StatusDegraded, h.Snapshot().Sources["donki"].Status)

	h.RecordFetch("donki", 200*time.Millisecond, errors.New("503"))
	h.RecordFetch("donki", 200*time.Millisecond, errors.New("503"))

	snap := h.Snapshot()
	src := snap.Sources["donki"]
	assert.Equal(t, StatusUnhealthy, src.Status)
	assert.Equal(t, 3, src.ConsecutiveFailures)
	assert.Equal(t, "503", src.LastError)
	assert.Equal(t, StatusUnhealthy, snap.OverallHealth)

	h.RecordFetch("donki", 50*time.Millisecond, nil)
	assert.Equal(t, StatusHealthy, h.Snapshot().Sources["donki"].Status)
}

func TestHealth_LatencyPercentiles(t *testing.T) {
	h := NewHealth()
	for i := 1; i <= 100; i++ {
		h.RecordFetch("graph", time.Duration(i)*time.Millisecond, nil)
	}

	lat := h.Snapshot().Sources["graph"].Latency
	assert.Equal(t, 51*time.Millisecond, lat.P50)
	assert.Equal(t, 96*time.Millisecond, lat.P95)
	assert.Equal(t, 100*time.Millisecond, lat.P99)
	assert.Equal(t, 100*time.Millisecond, lat.Max)
	assert.Equal(t, 50500*time.Microsecond, lat.Avg)
}

func TestHealth_DegradedTagsLowerOverall(t *testing.T) {
	h := NewHealth()
	h.RecordTag(DomainSolar, metrics.DataSourceSimulated)
	assert.Equal(t, StatusHealthy, h.Snapshot().OverallHealth)

	h.RecordTag(DomainSocial, metrics.DataSourceCached)
	snap := h.Snapshot()
	assert.Equal(t, StatusDegraded, snap.OverallHealth)
	require.Len(t, snap.DataSources, 2)
	assert.Equal(t, metrics.DataSourceCached, snap.DataSources[DomainSocial])
}
