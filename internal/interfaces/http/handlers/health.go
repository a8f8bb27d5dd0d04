package handlers

import (
	"net/http"
	"time"

	"github.com/sawpanic/heliobio/internal/datasources"
)

const statsWindow = 24 * time.Hour

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	p := h.deps.Poller
	response := HealthResponse{
		Status:      datasources.StatusHealthy,
		Version:     h.deps.Version,
		Timestamp:   h.deps.Now().UTC(),
		Poller:      p.Status(),
		AlertStats:  p.Evaluator().Stats(statsWindow),
		HistorySize: p.History().Len(),
	}

	if h.deps.SourceHealth != nil {
		snap := h.deps.SourceHealth.Snapshot()
		response.DataSources = snap.DataSources
		response.Sources = snap.Sources
		if snap.OverallHealth != datasources.StatusHealthy {
			response.Status = datasources.StatusDegraded
		}
	}

	if h.deps.ArchiveHealth != nil {
		check := h.deps.ArchiveHealth.Health(r.Context())
		response.Archive = &check
		if !check.Healthy {
			response.Status = datasources.StatusDegraded
		}
	}

	if _, ok := p.Latest(); !ok && response.Poller.Failures > 0 {
		response.Status = datasources.StatusUnhealthy
	}

	h.writeJSON(w, http.StatusOK, response)
}
