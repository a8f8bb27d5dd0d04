package donki

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

var timeLayouts = []string{
	"2006-01-02T15:04Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000Z",
	time.RFC3339,
	"2006-01-02T15:04",
}

// Time accepts the minute-precision timestamps DONKI emits as well as RFC3339
type Time struct {
	time.Time
}

// UnmarshalJSON parses DONKI timestamps; null and unparseable values become zero
func (t *Time) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("donki time: %w", err)
	}
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return nil
}

// Flare is one FLR event
type Flare struct {
	ID             string `json:"flrID"`
	ClassType      string `json:"classType"`
	BeginTime      Time   `json:"beginTime"`
	PeakTime       Time   `json:"peakTime"`
	EndTime        Time   `json:"endTime"`
	ActiveRegion   *int   `json:"activeRegionNum"`
	SourceLocation string `json:"sourceLocation"`
}

// KpReading is one Kp observation within a storm
type KpReading struct {
	ObservedTime Time    `json:"observedTime"`
	KpIndex      float64 `json:"kpIndex"`
	Source       string  `json:"source"`
}

// Storm is one GST event
type Storm struct {
	ID        string      `json:"gstID"`
	StartTime Time        `json:"startTime"`
	KpIndex   []KpReading `json:"allKpIndex"`
}

// MaxKp returns the highest Kp reading of the storm
func (s Storm) MaxKp() float64 {
	max := 0.0
	for _, r := range s.KpIndex {
		if r.KpIndex > max {
			max = r.KpIndex
		}
	}
	return max
}

// CMEAnalysis is one analysis of a CME
type CMEAnalysis struct {
	Speed          float64 `json:"speed"`
	Latitude       float64 `json:"latitude"`
	HalfAngle      float64 `json:"halfAngle"`
	IsMostAccurate bool    `json:"isMostAccurate"`
}

// CME is one coronal mass ejection event
type CME struct {
	ID        string        `json:"activityID"`
	StartTime Time          `json:"startTime"`
	Analyses  []CMEAnalysis `json:"cmeAnalyses"`
}

// FlareIntensity maps a GOES class to the 1-5 flare scale: A/B 1, C 2, M 3, X 4, X10+ 5.
// Missing or unknown classes count as C.
func FlareIntensity(class string) int {
	class = strings.TrimSpace(strings.ToUpper(class))
	if class == "" {
		return 2
	}
	switch class[0] {
	case 'A', 'B':
		return 1
	case 'C':
		return 2
	case 'M':
		return 3
	case 'X':
		if mag, err := strconv.ParseFloat(class[1:], 64); err == nil && mag >= 10 {
			return 5
		}
		return 4
	default:
		return 2
	}
}

// KpIntensity maps a Kp index to the 0-4 storm scale
func KpIntensity(kp float64) int {
	switch {
	case kp >= 8:
		return 4
	case kp >= 7:
		return 3
	case kp >= 6:
		return 2
	case kp >= 5:
		return 1
	default:
		return 0
	}
}

// Summarize folds DONKI events into a solar record. base supplies the fields
// DONKI does not publish (sunspots, wind speed, flux, coronal holes, cycle phase).
func Summarize(now time.Time, base metrics.SolarMetrics, flares []Flare, storms []Storm, cmes []CME) metrics.SolarMetrics {
	out := base
	out.Timestamp = now
	out.FlareActivity = 0
	out.GeomagneticStorm = 0
	out.RecentFlaresCount = 0

	dayAgo := now.Add(-24 * time.Hour)
	for _, f := range flares {
		if i := FlareIntensity(f.ClassType); i > out.FlareActivity {
			out.FlareActivity = i
		}
		if !f.BeginTime.IsZero() && f.BeginTime.After(dayAgo) {
			out.RecentFlaresCount++
		}
	}

	for _, s := range storms {
		if i := KpIntensity(s.MaxKp()); i > out.GeomagneticStorm {
			out.GeomagneticStorm = i
		}
	}

	out.ActiveCME = len(cmes) > 0

	return out.Normalize()
}
