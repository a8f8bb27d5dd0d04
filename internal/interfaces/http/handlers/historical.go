package handlers

import (
	"net/http"
	"time"

	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/domain/resonance"
)

// maxHistoricalPoints caps the points returned for one window
const maxHistoricalPoints = 50

// HistoricalData handles GET /api/historical/data?hours=6
func (h *Handlers) HistoricalData(w http.ResponseWriter, r *http.Request) {
	hours, ok := h.hoursParam(w, r, 6)
	if !ok {
		return
	}

	window := h.deps.Poller.History().Window(time.Duration(hours) * time.Hour)
	if len(window) > maxHistoricalPoints {
		window = window[len(window)-maxHistoricalPoints:]
	}

	resp := HistoricalResponse{
		Hours:  hours,
		Points: make([]HistoricalPoint, len(window)),
		Count:  len(window),
	}
	var sum float64
	peak := -1
	for i, s := range window {
		resp.Points[i] = toPoint(s)
		sum += s.Resonance
		if peak < 0 || s.Resonance > window[peak].Resonance {
			peak = i
		}
	}
	if len(window) > 0 {
		resp.AverageResonance = resonance.Round(sum / float64(len(window)))
		p := resp.Points[peak]
		resp.Peak = &p
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func toPoint(s history.ResonanceSnapshot) HistoricalPoint {
	return HistoricalPoint{
		Timestamp:           s.Timestamp,
		Resonance:           resonance.Round(s.Resonance),
		SunspotNumber:       s.Solar.SunspotNumber,
		FlareActivity:       s.Solar.FlareActivity,
		GeomagneticStorm:    s.Solar.GeomagneticStorm,
		EngagementIntensity: s.Social.EngagementIntensity,
		ConflictMetric:      s.Social.ConflictMetric,
		AlertsTriggered:     s.AlertsTriggered,
		SolarSource:         s.Solar.DataSource,
		SocialSource:        s.Social.DataSource,
	}
}
