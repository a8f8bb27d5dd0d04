package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/persistence"
)

const (
	maxHours         = 168
	alertHistoryPage = 100
)

// ActiveAlerts handles GET /api/alerts/active
func (h *Handlers) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	active := h.deps.Poller.Evaluator().Active()
	out := make([]ActiveAlert, len(active))
	for i, a := range active {
		out[i] = ActiveAlert{Index: i, Alert: a}
	}
	h.writeJSON(w, http.StatusOK, ActiveAlertsResponse{
		Alerts:    out,
		Count:     len(out),
		Timestamp: h.deps.Now().UTC(),
	})
}

// AlertStats handles GET /api/alerts/stats?window=24h
func (h *Handlers) AlertStats(w http.ResponseWriter, r *http.Request) {
	window := statsWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			h.writeError(w, r, http.StatusBadRequest, "invalid_window",
				"window must be a positive duration such as 24h")
			return
		}
		window = d
	}
	h.writeJSON(w, http.StatusOK, h.deps.Poller.Evaluator().Stats(window))
}

// AcknowledgeAlert handles POST /api/alerts/{id}/acknowledge. The id is either
// a position in the active list or an alert id.
func (h *Handlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["id"]
	a, err := h.deps.Poller.Evaluator().Acknowledge(ref)
	if err != nil {
		if errors.Is(err, alerts.ErrAlertNotFound) {
			h.writeError(w, r, http.StatusNotFound, "alert_not_found", err.Error())
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "acknowledge_failed", err.Error())
		return
	}

	now := h.deps.Now().UTC()
	archived := false
	if h.deps.Archive != nil && h.deps.Archive.Alerts != nil {
		switch err := h.deps.Archive.Alerts.Acknowledge(r.Context(), a.ID, now); {
		case err == nil:
			archived = true
		case errors.Is(err, persistence.ErrNotFound):
		default:
			log.Warn().Str("component", "http").Str("id", a.ID).Err(err).Msg("Archive acknowledge failed")
		}
	}

	h.writeJSON(w, http.StatusOK, AcknowledgeResponse{
		Acknowledged: a,
		Archived:     archived,
		Timestamp:    now,
	})
}

// AlertHistory handles GET /api/alerts/history?hours=24, reading from the
// archive when it is enabled and from the in-memory history otherwise
func (h *Handlers) AlertHistory(w http.ResponseWriter, r *http.Request) {
	hours, ok := h.hoursParam(w, r, 24)
	if !ok {
		return
	}
	now := h.deps.Now()

	if h.deps.Archive != nil && h.deps.Archive.Alerts != nil {
		tr := persistence.LastHours(now, hours)
		list, err := h.deps.Archive.Alerts.ListRange(r.Context(), tr, alertHistoryPage)
		if err != nil {
			h.writeError(w, r, http.StatusBadGateway, "archive_unavailable", err.Error())
			return
		}
		counts, err := h.deps.Archive.Alerts.CountByKind(r.Context(), tr)
		if err != nil {
			h.writeError(w, r, http.StatusBadGateway, "archive_unavailable", err.Error())
			return
		}
		if list == nil {
			list = []alerts.Alert{}
		}
		h.writeJSON(w, http.StatusOK, AlertHistoryResponse{Alerts: list, Counts: counts, Hours: hours, Source: "archive"})
		return
	}

	cutoff := now.Add(-time.Duration(hours) * time.Hour)
	all := h.deps.Poller.Evaluator().History()
	list := []alerts.Alert{}
	counts := make(map[alerts.Kind]int64)
	// newest first, matching the archive ordering
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].CreatedAt.Before(cutoff) {
			continue
		}
		counts[all[i].Kind]++
		if len(list) < alertHistoryPage {
			list = append(list, all[i])
		}
	}
	h.writeJSON(w, http.StatusOK, AlertHistoryResponse{Alerts: list, Counts: counts, Hours: hours, Source: "memory"})
}

// hoursParam parses ?hours= in [1, maxHours], writing a 400 on bad input
func (h *Handlers) hoursParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return def, true
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 || hours > maxHours {
		h.writeError(w, r, http.StatusBadRequest, "invalid_hours",
			"hours must be an integer between 1 and 168")
		return 0, false
	}
	return hours, true
}
