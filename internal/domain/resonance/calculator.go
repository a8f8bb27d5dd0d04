// Package resonance maps a solar and a social observation onto a bounded [0,1] score.
package resonance

import (
	"math"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// Normalization scales for each input component
const (
	SunspotScale    = 150.0
	EngagementScale = 100.0
	FlareScale      = float64(metrics.MaxFlareActivity)
	StormScale      = float64(metrics.MaxGeomagneticStorm)
)

// Weights holds the component coefficients. They must sum to 1.0.
type Weights struct {
	Solar       float64 `json:"solar" yaml:"solar"`
	Social      float64 `json:"social" yaml:"social"`
	Flare       float64 `json:"flare" yaml:"flare"`
	Geomagnetic float64 `json:"geomagnetic" yaml:"geomagnetic"`
}

// DefaultWeights returns the canonical weighted-sum coefficients
func DefaultWeights() Weights {
	return Weights{
		Solar:       0.20,
		Social:      0.25,
		Flare:       0.25,
		Geomagnetic: 0.30,
	}
}

// Sum returns the total of all coefficients
func (w Weights) Sum() float64 {
	return w.Solar + w.Social + w.Flare + w.Geomagnetic
}

// Breakdown explains how a score was assembled
type Breakdown struct {
	SolarIntensity    float64 `json:"solar_intensity"`
	SocialTension     float64 `json:"social_tension"`
	FlareImpact       float64 `json:"flare_impact"`
	GeomagneticImpact float64 `json:"geomagnetic_impact"`
	Raw               float64 `json:"raw"`
	Score             float64 `json:"score"`
}

// Compute returns the canonical resonance score for the pair of observations.
// It is pure and total: NaN or negative inputs contribute zero and the result is clamped to [0,1].
func Compute(solar metrics.SolarMetrics, social metrics.SocialMetrics) float64 {
	return Explain(solar, social, DefaultWeights()).Score
}

// Explain computes the score with explicit weights and returns every intermediate component
func Explain(solar metrics.SolarMetrics, social metrics.SocialMetrics, w Weights) Breakdown {
	b := Breakdown{
		SolarIntensity:    component(float64(solar.SunspotNumber), SunspotScale),
		SocialTension:     component(social.EngagementIntensity, EngagementScale),
		FlareImpact:       component(float64(solar.FlareActivity), FlareScale),
		GeomagneticImpact: component(float64(solar.GeomagneticStorm), StormScale),
	}

	b.Raw = b.SolarIntensity*w.Solar +
		b.SocialTension*w.Social +
		b.FlareImpact*w.Flare +
		b.GeomagneticImpact*w.Geomagnetic
	b.Score = Clamp(b.Raw)

	return b
}

// Clamp bounds v to the closed interval [0,1]; NaN maps to 0
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Round reports a score at three decimals, the precision used in API responses
func Round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// component floors the normalized value at zero. No upper clamp: out-of-range
// inputs still raise the raw sum and the final clamp bounds the score.
func component(v, scale float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, -1) || v <= 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return 1
	}
	return v / scale
}
