package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/monitor"
)

func startHub(t *testing.T, opts ...Option) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sampleResult() monitor.CycleResult {
	return monitor.CycleResult{
		Snapshot: history.ResonanceSnapshot{Resonance: 0.7983, AlertsTriggered: 1},
		Alerts: []alerts.Alert{{
			ID:    "a-1",
			Kind:  alerts.KindSolarExtreme,
			Level: alerts.LevelCritical,
		}},
	}
}

func TestHub_BroadcastsCycleAndAlerts(t *testing.T) {
	var clients atomic.Int64
	hub, srv := startHub(t, WithClientGauge(func(n int) { clients.Store(int64(n)) }))
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return clients.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.OnCycle(context.Background(), sampleResult()))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeCycle, msg.Type)
	var cycle CyclePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &cycle))
	assert.Equal(t, 0.798, cycle.Resonance)
	assert.Equal(t, "HIGH", string(cycle.Band))
	assert.Equal(t, 1, cycle.Alerts)

	msg = readMessage(t, conn)
	assert.Equal(t, TypeAlert, msg.Type)
	var alert alerts.Alert
	require.NoError(t, json.Unmarshal(msg.Payload, &alert))
	assert.Equal(t, "a-1", alert.ID)
	assert.Equal(t, alerts.KindSolarExtreme, alert.Kind)
}

func TestHub_SendsLatestOnConnect(t *testing.T) {
	_, srv := startHub(t, WithLatest(func() (monitor.CycleResult, bool) {
		return sampleResult(), true
	}))
	conn := dial(t, srv)

	msg := readMessage(t, conn)
	assert.Equal(t, TypeCycle, msg.Type)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	_, srv := startHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	header := http.Header{"Origin": []string{"https://elsewhere.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestHub_OriginHostMustMatchExactly(t *testing.T) {
	_, srv := startHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	for _, origin := range []string{
		"http://localhost.attacker.example",
		"http://evil-127.0.0.1.example",
		"https://example.com/localhost",
		"null",
	} {
		_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{origin}})
		require.Error(t, err, origin)
		require.NotNil(t, resp, origin)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, origin)
	}

	for _, origin := range []string{"http://127.0.0.1:8080", "https://LOCALHOST"} {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{origin}})
		require.NoError(t, err, origin)
		conn.Close()
	}
}

func TestHub_CustomOrigins(t *testing.T) {
	_, srv := startHub(t, WithAllowedOrigins("dash.example.org"))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://dash.example.org"}})
	require.NoError(t, err)
	conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://localhost:3000"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHub_BroadcastWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			_ = hub.Broadcast(TypeAlert, map[string]int{"i": i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked")
	}
}

func TestHub_EncodeRejectsUnmarshalable(t *testing.T) {
	hub := NewHub()
	assert.Error(t, hub.Broadcast(TypeCycle, make(chan int)))
}
