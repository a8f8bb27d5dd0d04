package alerts

import "time"

// Level is the alert severity
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Kind identifies an alert rule
type Kind string

const (
	KindSolarExtreme      Kind = "SOLAR_EXTREME"
	KindFlareCritical     Kind = "FLARE_CRITICAL"
	KindGeomagneticSevere Kind = "GEOMAGNETIC_SEVERE"
	KindCrispationHigh    Kind = "CRISPATION_HIGH"
	KindEngagementAnomaly Kind = "ENGAGEMENT_ANOMALY"
	KindResonanceCritical Kind = "RESONANCE_CRITICAL"
	KindResonanceHigh     Kind = "RESONANCE_HIGH"
)

// Kinds lists every alert kind in evaluation order: solar, social, resonance
func Kinds() []Kind {
	return []Kind{
		KindSolarExtreme,
		KindFlareCritical,
		KindGeomagneticSevere,
		KindCrispationHigh,
		KindEngagementAnomaly,
		KindResonanceCritical,
		KindResonanceHigh,
	}
}

// Category groups kinds by the input domain that triggers them
type Category string

const (
	CategorySolar     Category = "SOLAR"
	CategorySocial    Category = "SOCIAL"
	CategoryResonance Category = "RESONANCE"
)

// Category returns the domain a kind belongs to
func (k Kind) Category() Category {
	switch k {
	case KindSolarExtreme, KindFlareCritical, KindGeomagneticSevere:
		return CategorySolar
	case KindCrispationHigh, KindEngagementAnomaly:
		return CategorySocial
	default:
		return CategoryResonance
	}
}

// Level returns the fixed severity of a kind
func (k Kind) Level() Level {
	switch k {
	case KindSolarExtreme, KindFlareCritical, KindResonanceCritical:
		return LevelCritical
	case KindEngagementAnomaly:
		return LevelInfo
	default:
		return LevelWarning
	}
}

// Alert represents one fired alert
type Alert struct {
	ID             string                 `json:"id"`
	Level          Level                  `json:"level"`
	Kind           Kind                   `json:"kind"`
	Category       Category               `json:"category"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	CreatedAt      time.Time              `json:"created_at"`
	ActiveDuration time.Duration          `json:"active_duration"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Acknowledged   bool                   `json:"acknowledged"`
}

// ExpiresAt is the instant the alert stops being active
func (a Alert) ExpiresAt() time.Time {
	return a.CreatedAt.Add(a.ActiveDuration)
}

// ActiveAt reports whether the alert is unacknowledged and unexpired at now
func (a Alert) ActiveAt(now time.Time) bool {
	return !a.Acknowledged && now.Sub(a.CreatedAt) < a.ActiveDuration
}

// Copy returns an alert that shares no payload map with a
func (a Alert) Copy() Alert {
	if a.Payload != nil {
		payload := make(map[string]interface{}, len(a.Payload))
		for k, v := range a.Payload {
			payload[k] = v
		}
		a.Payload = payload
	}
	return a
}

// Stats summarizes alert history over a window
type Stats struct {
	Window      time.Duration    `json:"window"`
	ActiveCount int              `json:"active_count"`
	Total       int              `json:"total_in_window"`
	Critical    int              `json:"critical_in_window"`
	Warning     int              `json:"warning_in_window"`
	Info        int              `json:"info_in_window"`
	ByKind      map[Kind]int     `json:"by_kind"`
	ByCategory  map[Category]int `json:"by_category"`
}
