package resonance

import "github.com/sawpanic/heliobio/internal/domain/metrics"

// Band is a coarse classification of a resonance score
type Band string

const (
	BandHigh     Band = "HIGH"
	BandModerate Band = "MODERATE"
	BandLow      Band = "LOW"
)

// Classify buckets the score: >0.7 high, >0.4 moderate, otherwise low
func Classify(score float64) Band {
	switch {
	case score > 0.7:
		return BandHigh
	case score > 0.4:
		return BandModerate
	default:
		return BandLow
	}
}

// CrispationRisk buckets the score for the crispation indicator: >0.7 high, >0.5 moderate
func CrispationRisk(score float64) Band {
	switch {
	case score > 0.7:
		return BandHigh
	case score > 0.5:
		return BandModerate
	default:
		return BandLow
	}
}

// Message returns the operator-facing summary for a score
func Message(score float64) string {
	switch {
	case score > 0.7:
		return "High resonance: significant social events likely"
	case score > 0.5:
		return "Moderate resonance: monitor trends"
	default:
		return "Stable conditions: normal resonance"
	}
}

// SolarInterpretation describes the current solar activity level
func SolarInterpretation(s metrics.SolarMetrics) string {
	switch {
	case s.SunspotNumber > 100 && s.FlareActivity > 3:
		return "Elevated solar activity: maximum expected influence"
	case s.SunspotNumber > 60:
		return "Moderate-high activity: significant influence"
	case s.SunspotNumber > 30:
		return "Moderate activity: influence on emotional tone"
	default:
		return "Low activity: minimal solar influence"
	}
}

// SocialMood describes the collective mood from emotion and engagement
func SocialMood(s metrics.SocialMetrics) string {
	switch {
	case s.DominantEmotion == metrics.EmotionPositive && s.EngagementIntensity > 70:
		return "Collective harmony: positive states dominate"
	case s.DominantEmotion == metrics.EmotionNegative && s.EngagementIntensity > 70:
		return "Detectable crispation: elevated social tension"
	case s.EngagementIntensity > 80:
		return "High activity: intense participation"
	case s.DominantEmotion == metrics.EmotionPositive:
		return "Positive energy: optimistic states"
	default:
		return "Neutral: stable baseline conditions"
	}
}

// CollectiveMood classifies sentiment and conflict together
func CollectiveMood(s metrics.SocialMetrics) string {
	switch {
	case s.SentimentPolarity > 0.3 && s.ConflictMetric < 0.3:
		return "POSITIVE"
	case s.SentimentPolarity < -0.3 && s.ConflictMetric > 0.6:
		return "NEGATIVE"
	case s.ConflictMetric > 0.7:
		return "CONFLICTIVE"
	default:
		return "NEUTRAL"
	}
}
