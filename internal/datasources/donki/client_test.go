package donki

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/domain/metrics"
	"github.com/sawpanic/heliobio/internal/net/breaker"
	"github.com/sawpanic/heliobio/internal/net/ratelimit"
)

const flaresJSON = `[
  {"flrID":"2025-05-01T08:00:00-FLR-001","classType":"M2.4","beginTime":"2025-05-01T08:00Z","peakTime":"2025-05-01T08:20Z","endTime":null,"activeRegionNum":14079},
  {"flrID":"2025-04-28T10:00:00-FLR-001","classType":"X1.1","beginTime":"2025-04-28T10:00Z","peakTime":"2025-04-28T10:10Z"},
  {"flrID":"2025-05-01T02:00:00-FLR-001","classType":"C5.0","beginTime":"2025-05-01T02:00Z"}
]`

const stormsJSON = `[
  {"gstID":"2025-04-20T00:00:00-GST-001","startTime":"2025-04-20T00:00Z","allKpIndex":[{"observedTime":"2025-04-20T03:00Z","kpIndex":6.33,"source":"NOAA"},{"observedTime":"2025-04-20T06:00Z","kpIndex":7.67,"source":"NOAA"}]}
]`

const cmesJSON = `[{"activityID":"2025-04-30T12:00:00-CME-001","startTime":"2025-04-30T12:00Z","cmeAnalyses":[{"speed":820,"latitude":-12,"halfAngle":35,"isMostAccurate":true}]}]`

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	fetch := datasources.NewFetcher("donki", 2*time.Second, ratelimit.NewLimiter(100, 10), breaker.New("donki", breaker.DefaultSettings()))
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(Config{BaseURL: srv.URL + "/DONKI", APIKey: "DEMO_KEY"}, fetch,
		WithClock(func() time.Time { return now }),
		WithBaseline(func(time.Time) metrics.SolarMetrics {
			return metrics.SolarMetrics{SunspotNumber: 133, SolarWindSpeed: 410, CyclePhase: "maximum"}
		}),
	)
	return c, srv
}

func TestClient_FetchSolar(t *testing.T) {
	var queries []string
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Path+"?"+r.URL.RawQuery)
		assert.Equal(t, "DEMO_KEY", r.URL.Query().Get("api_key"))
		assert.Equal(t, "2025-05-01", r.URL.Query().Get("endDate"))

		switch {
		case strings.HasSuffix(r.URL.Path, "/FLR"):
			assert.Equal(t, "2025-04-24", r.URL.Query().Get("startDate"))
			_, _ = w.Write([]byte(flaresJSON))
		case strings.HasSuffix(r.URL.Path, "/GST"):
			assert.Equal(t, "2025-04-01", r.URL.Query().Get("startDate"))
			_, _ = w.Write([]byte(stormsJSON))
		case strings.HasSuffix(r.URL.Path, "/CME"):
			_, _ = w.Write([]byte(cmesJSON))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	rec, err := c.FetchSolar(context.Background())
	require.NoError(t, err)
	require.Len(t, queries, 3)

	assert.Equal(t, 4, rec.FlareActivity)
	assert.Equal(t, 3, rec.GeomagneticStorm)
	assert.Equal(t, 2, rec.RecentFlaresCount)
	assert.True(t, rec.ActiveCME)
	assert.Equal(t, 133, rec.SunspotNumber)
	assert.Equal(t, 410, rec.SolarWindSpeed)
	assert.Equal(t, "maximum", rec.CyclePhase)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), rec.Timestamp)
}

func TestClient_EmptyBodiesMeanNoEvents(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec, err := c.FetchSolar(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rec.FlareActivity)
	assert.Zero(t, rec.GeomagneticStorm)
	assert.False(t, rec.ActiveCME)
}

func TestClient_ServerErrorIsSourceError(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "over rate limit", http.StatusTooManyRequests)
	})

	_, err := c.FetchSolar(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, datasources.ErrSourceUnavailable)

	var srcErr *datasources.SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, http.StatusTooManyRequests, srcErr.StatusCode)
	assert.True(t, srcErr.Temporary)
	assert.Equal(t, "fetch flares", srcErr.Op)
}

func TestClient_MalformedJSON(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"`))
	})

	_, err := c.FetchSolar(context.Background())
	assert.ErrorIs(t, err, datasources.ErrSourceUnavailable)
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	hits := 0
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := c.FetchSolar(context.Background())
		require.Error(t, err)
	}

	assert.Equal(t, 3, hits, "breaker should stop calls after three consecutive failures")
}
