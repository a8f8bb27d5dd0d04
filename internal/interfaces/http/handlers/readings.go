package handlers

import (
	"net/http"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
	"github.com/sawpanic/heliobio/internal/domain/resonance"
)

// SolarCurrent handles GET /api/solar/current
func (h *Handlers) SolarCurrent(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w, r)
	if !ok {
		return
	}
	solar := res.Snapshot.Solar
	h.writeJSON(w, http.StatusOK, SolarResponse{
		Solar:          solar,
		Interpretation: resonance.SolarInterpretation(solar),
		DataSource:     solar.DataSource,
		Timestamp:      res.Snapshot.Timestamp,
	})
}

// SocialAnalysis handles GET /api/social/analysis
func (h *Handlers) SocialAnalysis(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w, r)
	if !ok {
		return
	}
	social := res.Snapshot.Social
	h.writeJSON(w, http.StatusOK, SocialResponse{
		Social:         social,
		CollectiveMood: resonance.CollectiveMood(social),
		Mood:           resonance.SocialMood(social),
		DataSource:     social.DataSource,
		Timestamp:      res.Snapshot.Timestamp,
	})
}

// SocialTrending handles GET /api/social/trending
func (h *Handlers) SocialTrending(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w, r)
	if !ok {
		return
	}
	topics := res.Snapshot.Social.TrendingTopics
	if topics == nil {
		topics = []metrics.TrendingTopic{}
	}
	h.writeJSON(w, http.StatusOK, TrendingResponse{
		Topics:     topics,
		DataSource: res.Snapshot.Social.DataSource,
		Timestamp:  res.Snapshot.Timestamp,
	})
}

// CorrelationRealtime handles GET /api/correlation/realtime
func (h *Handlers) CorrelationRealtime(w http.ResponseWriter, r *http.Request) {
	res, ok := h.latest(w, r)
	if !ok {
		return
	}
	score := res.Snapshot.Resonance
	h.writeJSON(w, http.StatusOK, CorrelationResponse{
		Resonance:      resonance.Round(score),
		Band:           resonance.Classify(score),
		CrispationRisk: resonance.CrispationRisk(score),
		Message:        resonance.Message(score),
		Breakdown:      res.Breakdown,
		Solar:          res.Snapshot.Solar,
		Social:         res.Snapshot.Social,
		Timestamp:      res.Snapshot.Timestamp,
	})
}
