package metrics

import (
	"math"
	"time"
)

// DataSource tags where a metrics record came from
type DataSource string

const (
	DataSourceLive          DataSource = "live"
	DataSourceSimulated     DataSource = "simulated"
	DataSourceErrorFallback DataSource = "error-fallback"
	DataSourceCached        DataSource = "cached"
)

// Degraded reports whether the record is anything other than a fresh live fetch
func (d DataSource) Degraded() bool {
	return d != DataSourceLive
}

// Ordinal ranges for the solar intensity classes
const (
	MaxFlareActivity    = 5
	MaxGeomagneticStorm = 4
)

// SolarMetrics represents one solar activity observation
type SolarMetrics struct {
	SunspotNumber     int        `json:"sunspot_number"`
	FlareActivity     int        `json:"flare_activity"`    // 0-5 ordinal intensity class
	GeomagneticStorm  int        `json:"geomagnetic_storm"` // 0-4 ordinal storm class
	SolarWindSpeed    int        `json:"solar_wind_speed"`  // km/s
	SolarFlux         float64    `json:"solar_flux,omitempty"`
	CoronalHoles      int        `json:"coronal_holes"`
	RecentFlaresCount int        `json:"recent_flares_count"` // trailing 24h
	ActiveCME         bool       `json:"active_cme"`
	CyclePhase        string     `json:"solar_cycle_phase,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
	DataSource        DataSource `json:"data_source"`
}

// Normalize clamps the ordinal classes into their valid ranges and floors counts at zero
func (s SolarMetrics) Normalize() SolarMetrics {
	s.FlareActivity = clampInt(s.FlareActivity, 0, MaxFlareActivity)
	s.GeomagneticStorm = clampInt(s.GeomagneticStorm, 0, MaxGeomagneticStorm)
	if s.SunspotNumber < 0 {
		s.SunspotNumber = 0
	}
	if s.CoronalHoles < 0 {
		s.CoronalHoles = 0
	}
	if s.RecentFlaresCount < 0 {
		s.RecentFlaresCount = 0
	}
	return s
}

// Emotion is the dominant collective emotion tag
type Emotion string

const (
	EmotionNeutral    Emotion = "neutral"
	EmotionPositive   Emotion = "positive"
	EmotionNegative   Emotion = "negative"
	EmotionDiscussion Emotion = "discussion"
	EmotionExcited    Emotion = "excited"
	EmotionPolarized  Emotion = "polarized"
	EmotionIntense    Emotion = "intense"
	EmotionUrgent     Emotion = "urgent"
	EmotionEngaged    Emotion = "engaged"
	EmotionCurious    Emotion = "curious"
	EmotionCalm       Emotion = "calm"
	EmotionReflective Emotion = "reflective"
	EmotionStable     Emotion = "stable"
)

// TrendingTopic is a topic with its mention count
type TrendingTopic struct {
	Topic        string `json:"topic"`
	MentionCount int    `json:"mentions"`
}

// SocialMetrics represents one social sentiment observation
type SocialMetrics struct {
	EngagementIntensity float64         `json:"engagement_intensity"` // 0-100
	SentimentPolarity   float64         `json:"sentiment_polarity"`   // -1..1
	ConflictMetric      float64         `json:"conflict_metric"`      // 0..1
	TrendingTopics      []TrendingTopic `json:"trending_topics,omitempty"`
	DominantEmotion     Emotion         `json:"dominant_emotion"`
	FanCount            int             `json:"fan_count,omitempty"`
	RecentEngagement    int             `json:"recent_engagement,omitempty"`
	Timestamp           time.Time       `json:"timestamp"`
	DataSource          DataSource      `json:"data_source"`
}

// Normalize clamps polarity into [-1,1], conflict into [0,1] and engagement into [0,100].
// Non-finite values become zero.
func (s SocialMetrics) Normalize() SocialMetrics {
	s.EngagementIntensity = clampFloat(finiteOrZero(s.EngagementIntensity), 0, 100)
	s.SentimentPolarity = clampFloat(finiteOrZero(s.SentimentPolarity), -1, 1)
	s.ConflictMetric = clampFloat(finiteOrZero(s.ConflictMetric), 0, 1)
	if s.DominantEmotion == "" {
		s.DominantEmotion = EmotionNeutral
	}
	return s
}

// Copy returns a deep copy so callers cannot mutate shared topic slices
func (s SocialMetrics) Copy() SocialMetrics {
	if s.TrendingTopics != nil {
		topics := make([]TrendingTopic, len(s.TrendingTopics))
		copy(topics, s.TrendingTopics)
		s.TrendingTopics = topics
	}
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
