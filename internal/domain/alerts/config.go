package alerts

import (
	"math"
	"time"

	"github.com/sawpanic/heliobio/internal/domain/history"
)

// Rule holds the trigger threshold and timing for one alert kind
type Rule struct {
	Threshold      float64       `yaml:"threshold" json:"threshold"`
	Cooldown       time.Duration `yaml:"cooldown" json:"cooldown"`
	ActiveDuration time.Duration `yaml:"active_duration" json:"active_duration"`
}

// Config is the overridable rule table
type Config struct {
	HistoryCap int           `yaml:"history_cap" json:"history_cap"`
	Rules      map[Kind]Rule `yaml:"rules" json:"rules"`
}

// DefaultConfig returns the standard thresholds, cooldowns and active durations
func DefaultConfig() Config {
	return Config{
		HistoryCap: history.DefaultAlertCap,
		Rules: map[Kind]Rule{
			KindSolarExtreme:      {Threshold: 120, Cooldown: 6 * time.Hour, ActiveDuration: 24 * time.Hour},
			KindFlareCritical:     {Threshold: 4, Cooldown: 3 * time.Hour, ActiveDuration: 12 * time.Hour},
			KindGeomagneticSevere: {Threshold: 3, Cooldown: 2 * time.Hour, ActiveDuration: 6 * time.Hour},
			KindCrispationHigh:    {Threshold: 0.6, Cooldown: 4 * time.Hour, ActiveDuration: 6 * time.Hour},
			KindEngagementAnomaly: {Threshold: 0.3, Cooldown: 30 * time.Minute, ActiveDuration: 2 * time.Hour},
			KindResonanceCritical: {Threshold: 0.8, Cooldown: 12 * time.Hour, ActiveDuration: 48 * time.Hour},
			KindResonanceHigh:     {Threshold: 0.7, Cooldown: 6 * time.Hour, ActiveDuration: 12 * time.Hour},
		},
	}
}

// RuleOverride is a partial Rule. Nil fields keep the base value, so an
// explicit zero is honoured.
type RuleOverride struct {
	Threshold      *float64       `yaml:"threshold" json:"threshold,omitempty"`
	Cooldown       *time.Duration `yaml:"cooldown" json:"cooldown,omitempty"`
	ActiveDuration *time.Duration `yaml:"active_duration" json:"active_duration,omitempty"`
}

// Override is a partial Config as read from a file
type Override struct {
	HistoryCap *int                  `yaml:"history_cap" json:"history_cap,omitempty"`
	Rules      map[Kind]RuleOverride `yaml:"rules" json:"rules,omitempty"`
}

// Apply returns a copy of c with every field set in o replaced
func (c Config) Apply(o Override) Config {
	out := Config{HistoryCap: c.HistoryCap, Rules: make(map[Kind]Rule, len(c.Rules))}
	for k, r := range c.Rules {
		out.Rules[k] = r
	}
	if o.HistoryCap != nil {
		out.HistoryCap = *o.HistoryCap
	}
	for k, ro := range o.Rules {
		r := out.Rules[k]
		if ro.Threshold != nil {
			r.Threshold = *ro.Threshold
		}
		if ro.Cooldown != nil {
			r.Cooldown = *ro.Cooldown
		}
		if ro.ActiveDuration != nil {
			r.ActiveDuration = *ro.ActiveDuration
		}
		out.Rules[k] = r
	}
	return out
}

// Validate checks that every kind has a usable rule
func (c Config) Validate() error {
	if c.HistoryCap <= 0 {
		return &ConfigError{Field: "history_cap", Reason: "must be positive"}
	}
	for k := range c.Rules {
		if !knownKind(k) {
			return &ConfigError{Kind: k, Field: "kind", Reason: "unknown alert kind"}
		}
	}
	for _, k := range Kinds() {
		r, ok := c.Rules[k]
		if !ok {
			return &ConfigError{Kind: k, Field: "rule", Reason: "missing"}
		}
		if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
			return &ConfigError{Kind: k, Field: "threshold", Reason: "must be finite"}
		}
		if r.Cooldown <= 0 {
			return &ConfigError{Kind: k, Field: "cooldown", Reason: "must be positive"}
		}
		if r.ActiveDuration <= 0 {
			return &ConfigError{Kind: k, Field: "active_duration", Reason: "must be positive"}
		}
	}
	if c.Rules[KindResonanceHigh].Threshold >= c.Rules[KindResonanceCritical].Threshold {
		return &ConfigError{Kind: KindResonanceHigh, Field: "threshold", Reason: "must be below RESONANCE_CRITICAL threshold"}
	}
	return nil
}

func knownKind(k Kind) bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}
