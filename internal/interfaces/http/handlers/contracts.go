package handlers

import (
	"time"

	"github.com/sawpanic/heliobio/internal/datasources"
	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/metrics"
	"github.com/sawpanic/heliobio/internal/domain/resonance"
	"github.com/sawpanic/heliobio/internal/monitor"
	"github.com/sawpanic/heliobio/internal/persistence"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse describes the service and its collaborators
type HealthResponse struct {
	Status      string                              `json:"status"`
	Version     string                              `json:"version,omitempty"`
	Timestamp   time.Time                           `json:"timestamp"`
	DataSources map[string]metrics.DataSource       `json:"data_sources"`
	Sources     map[string]datasources.SourceHealth `json:"sources"`
	Poller      monitor.Status                      `json:"poller"`
	AlertStats  alerts.Stats                        `json:"alert_stats"`
	HistorySize int                                 `json:"history_size"`
	Archive     *persistence.HealthCheck            `json:"archive,omitempty"`
}

// SolarResponse is the latest solar record with its interpretation
type SolarResponse struct {
	Solar          metrics.SolarMetrics `json:"solar"`
	Interpretation string               `json:"interpretation"`
	DataSource     metrics.DataSource   `json:"data_source"`
	Timestamp      time.Time            `json:"timestamp"`
}

// SocialResponse is the latest social record with mood classifications
type SocialResponse struct {
	Social         metrics.SocialMetrics `json:"social"`
	CollectiveMood string                `json:"collective_mood"`
	Mood           string                `json:"mood"`
	DataSource     metrics.DataSource    `json:"data_source"`
	Timestamp      time.Time             `json:"timestamp"`
}

// TrendingResponse lists the current trending topics
type TrendingResponse struct {
	Topics     []metrics.TrendingTopic `json:"topics"`
	DataSource metrics.DataSource      `json:"data_source"`
	Timestamp  time.Time               `json:"timestamp"`
}

// CorrelationResponse is the realtime resonance reading
type CorrelationResponse struct {
	Resonance      float64               `json:"resonance"`
	Band           resonance.Band        `json:"band"`
	CrispationRisk resonance.Band        `json:"crispation_risk"`
	Message        string                `json:"message"`
	Breakdown      resonance.Breakdown   `json:"breakdown"`
	Solar          metrics.SolarMetrics  `json:"solar"`
	Social         metrics.SocialMetrics `json:"social"`
	Timestamp      time.Time             `json:"timestamp"`
}

// ActiveAlert is an active alert with its position in the active list
type ActiveAlert struct {
	Index int `json:"index"`
	alerts.Alert
}

// ActiveAlertsResponse lists the active alerts
type ActiveAlertsResponse struct {
	Alerts    []ActiveAlert `json:"alerts"`
	Count     int           `json:"count"`
	Timestamp time.Time     `json:"timestamp"`
}

// AcknowledgeResponse confirms an acknowledgement
type AcknowledgeResponse struct {
	Acknowledged alerts.Alert `json:"acknowledged"`
	Archived     bool         `json:"archived"`
	Timestamp    time.Time    `json:"timestamp"`
}

// AlertHistoryResponse lists fired alerts within a window
type AlertHistoryResponse struct {
	Alerts []alerts.Alert        `json:"alerts"`
	Counts map[alerts.Kind]int64 `json:"counts"`
	Hours  int                   `json:"hours"`
	Source string                `json:"source"` // memory or archive
}

// HistoricalPoint is one resonance observation
type HistoricalPoint struct {
	Timestamp           time.Time          `json:"timestamp"`
	Resonance           float64            `json:"resonance"`
	SunspotNumber       int                `json:"sunspot_number"`
	FlareActivity       int                `json:"flare_activity"`
	GeomagneticStorm    int                `json:"geomagnetic_storm"`
	EngagementIntensity float64            `json:"engagement_intensity"`
	ConflictMetric      float64            `json:"conflict_metric"`
	AlertsTriggered     int                `json:"alerts_triggered"`
	SolarSource         metrics.DataSource `json:"solar_source"`
	SocialSource        metrics.DataSource `json:"social_source"`
}

// HistoricalResponse is a window of the history buffer
type HistoricalResponse struct {
	Hours            int               `json:"hours"`
	Points           []HistoricalPoint `json:"points"`
	Count            int               `json:"count"`
	AverageResonance float64           `json:"average_resonance"`
	Peak             *HistoricalPoint  `json:"peak,omitempty"`
}
