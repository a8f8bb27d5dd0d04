package alerts

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Rules, len(Kinds()))
	assert.Equal(t, 100, cfg.HistoryCap)
}

func TestConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing kind", func(c *Config) { delete(c.Rules, KindFlareCritical) }, "rule"},
		{"zero cooldown", func(c *Config) {
			r := c.Rules[KindSolarExtreme]
			r.Cooldown = 0
			c.Rules[KindSolarExtreme] = r
		}, "cooldown"},
		{"negative duration", func(c *Config) {
			r := c.Rules[KindCrispationHigh]
			r.ActiveDuration = -time.Minute
			c.Rules[KindCrispationHigh] = r
		}, "active_duration"},
		{"nan threshold", func(c *Config) {
			r := c.Rules[KindResonanceHigh]
			r.Threshold = math.NaN()
			c.Rules[KindResonanceHigh] = r
		}, "threshold"},
		{"inverted resonance tiers", func(c *Config) {
			r := c.Rules[KindResonanceHigh]
			r.Threshold = 0.9
			c.Rules[KindResonanceHigh] = r
		}, "threshold"},
		{"unknown kind", func(c *Config) { c.Rules["SUNBURN"] = Rule{Threshold: 1, Cooldown: 1, ActiveDuration: 1} }, "kind"},
		{"zero history cap", func(c *Config) { c.HistoryCap = 0 }, "history_cap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestNewEvaluator_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	delete(cfg.Rules, KindSolarExtreme)

	_, err := NewEvaluator(cfg)
	assert.Error(t, err)
}

func TestConfig_Apply(t *testing.T) {
	threshold := 150.0
	hour := time.Hour
	applied := DefaultConfig().Apply(Override{
		Rules: map[Kind]RuleOverride{
			KindSolarExtreme:  {Threshold: &threshold},
			KindFlareCritical: {Cooldown: &hour},
		},
	})

	require.NoError(t, applied.Validate())
	assert.Equal(t, 150.0, applied.Rules[KindSolarExtreme].Threshold)
	assert.Equal(t, 6*time.Hour, applied.Rules[KindSolarExtreme].Cooldown)
	assert.Equal(t, time.Hour, applied.Rules[KindFlareCritical].Cooldown)
	assert.Equal(t, 100, applied.HistoryCap)
}

func TestConfig_ApplyExplicitZero(t *testing.T) {
	zero := 0.0
	base := DefaultConfig()
	applied := base.Apply(Override{
		Rules: map[Kind]RuleOverride{KindEngagementAnomaly: {Threshold: &zero}},
	})

	require.NoError(t, applied.Validate())
	assert.Equal(t, 0.0, applied.Rules[KindEngagementAnomaly].Threshold)
	assert.Equal(t, 30*time.Minute, applied.Rules[KindEngagementAnomaly].Cooldown)
	assert.Equal(t, 0.3, base.Rules[KindEngagementAnomaly].Threshold, "base is not mutated")

	historyCap := 0
	assert.Error(t, base.Apply(Override{HistoryCap: &historyCap}).Validate())
}

func TestKind_Classification(t *testing.T) {
	assert.Equal(t, CategorySolar, KindGeomagneticSevere.Category())
	assert.Equal(t, CategorySocial, KindEngagementAnomaly.Category())
	assert.Equal(t, CategoryResonance, KindResonanceHigh.Category())
	assert.Equal(t, LevelWarning, KindCrispationHigh.Level())
	assert.Equal(t, LevelCritical, KindResonanceCritical.Level())
}

func TestCooldownTable(t *testing.T) {
	c := NewCooldownTable()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, c.Ready(KindFlareCritical, now, 3*time.Hour))
	c.Mark(KindFlareCritical, now)
	assert.False(t, c.Ready(KindFlareCritical, now.Add(2*time.Hour), 3*time.Hour))
	assert.True(t, c.Ready(KindFlareCritical, now.Add(3*time.Hour), 3*time.Hour))

	last, ok := c.LastFired(KindFlareCritical)
	assert.True(t, ok)
	assert.Equal(t, now, last)
}
