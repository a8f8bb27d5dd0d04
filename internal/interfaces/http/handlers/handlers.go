package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/monitor"
	"github.com/sawpanic/heliobio/internal/persistence"
)

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores the request id on the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the id set by WithRequestID, or "unknown"
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// Deps are the components the handlers read from
type Deps struct {
	Poller        *monitor.Poller
	SourceHealth  *datasources.Health
	Archive       *persistence.Repository // nil when the archive is disabled
	ArchiveHealth persistence.RepositoryHealth
	Version       string
	Now           func() time.Time
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Deps) *Handlers {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handlers{deps: deps}
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn().Str("component", "http").Err(err).Msg("Response encoding failed")
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: h.deps.Now().UTC(),
	})
}

// latest returns the most recent cycle or writes a 503
func (h *Handlers) latest(w http.ResponseWriter, r *http.Request) (monitor.CycleResult, bool) {
	res, ok := h.deps.Poller.Latest()
	if !ok {
		h.writeError(w, r, http.StatusServiceUnavailable, "no_data",
			"No poll cycle has completed yet")
	}
	return res, ok
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}
