// Package ws pushes poll cycle results and fired alerts to websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/domain/resonance"
	"github.com/sawpanic/heliobio/internal/monitor"
)

// Message types sent to clients
const (
	TypeCycle = "cycle"
	TypeAlert = "alert"
)

const broadcastBuffer = 64

// Message is the envelope of every frame
type Message struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// CyclePayload summarizes one poll cycle for display
type CyclePayload struct {
	Resonance float64                   `json:"resonance"`
	Band      resonance.Band            `json:"band"`
	Message   string                    `json:"message"`
	Breakdown resonance.Breakdown       `json:"breakdown"`
	Snapshot  history.ResonanceSnapshot `json:"snapshot"`
	Alerts    int                       `json:"alerts_triggered"`
}

// Option configures a Hub
type Option func(*Hub)

// WithClientGauge reports the connected client count after every change
func WithClientGauge(fn func(int)) Option {
	return func(h *Hub) {
		h.gauge = fn
	}
}

// WithLatest sends the most recent cycle to each client on connect
func WithLatest(fn func() (monitor.CycleResult, bool)) Option {
	return func(h *Hub) {
		h.latest = fn
	}
}

// WithAllowedOrigins replaces the default localhost origin check. Entries are
// host names matched exactly against the Origin host; "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		h.origins = origins
	}
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	origins  []string
	gauge    func(int)
	latest   func() (monitor.CycleResult, bool)
	now      func() time.Time
}

// NewHub creates a hub; call Run to start delivering messages
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		origins:    []string{"localhost", "127.0.0.1"},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	host := ""
	if err == nil {
		host = u.Hostname()
	}
	for _, allowed := range h.origins {
		if allowed == "*" {
			return true
		}
		if host != "" && strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

// Run delivers registrations and broadcasts until ctx is done, then closes
// every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.reportCount()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Str("component", "ws").Str("remote", client.remote).Msg("Client registered")
			h.sendLatest(client)
			h.reportCount()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Debug().Str("component", "ws").Str("remote", client.remote).Msg("Client unregistered")
			}
			h.mu.Unlock()
			h.reportCount()

		case message := <-h.broadcast:
			dropped := 0
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
					dropped++
				}
			}
			h.mu.Unlock()
			if dropped > 0 {
				log.Warn().Str("component", "ws").Int("dropped", dropped).Msg("Removed slow websocket clients")
				h.reportCount()
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) reportCount() {
	if h.gauge != nil {
		h.gauge(h.ClientCount())
	}
}

func (h *Hub) sendLatest(c *Client) {
	if h.latest == nil {
		return
	}
	res, ok := h.latest()
	if !ok {
		return
	}
	msg, err := h.encode(TypeCycle, cyclePayload(res))
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// OnCycle broadcasts the cycle summary followed by each fired alert
func (h *Hub) OnCycle(_ context.Context, result monitor.CycleResult) error {
	if err := h.Broadcast(TypeCycle, cyclePayload(result)); err != nil {
		return err
	}
	for _, a := range result.Alerts {
		if err := h.BroadcastAlert(a); err != nil {
			return err
		}
	}
	return nil
}

// BroadcastAlert sends one alert to all clients
func (h *Hub) BroadcastAlert(a alerts.Alert) error {
	return h.Broadcast(TypeAlert, a)
}

// Broadcast encodes payload and queues it for every client. A full queue drops
// the message rather than blocking the caller.
func (h *Hub) Broadcast(kind string, payload interface{}) error {
	msg, err := h.encode(kind, payload)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
	default:
		log.Warn().Str("component", "ws").Str("type", kind).Msg("Broadcast queue full, message dropped")
	}
	return nil
}

func (h *Hub) encode(kind string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: kind, Timestamp: h.now().UTC(), Payload: raw})
}

func cyclePayload(res monitor.CycleResult) CyclePayload {
	score := res.Snapshot.Resonance
	return CyclePayload{
		Resonance: resonance.Round(score),
		Band:      resonance.Classify(score),
		Message:   resonance.Message(score),
		Breakdown: res.Breakdown,
		Snapshot:  res.Snapshot,
		Alerts:    len(res.Alerts),
	}
}

// ServeHTTP upgrades the connection and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Debug().Str("component", "ws").Err(err).Msg("Websocket upgrade failed")
		return
	}
	client := newClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
