package resonance

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

func TestDefaultWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-12)
}

func TestCompute_Scenario(t *testing.T) {
	solar := metrics.SolarMetrics{SunspotNumber: 130, FlareActivity: 4, GeomagneticStorm: 3}
	social := metrics.SocialMetrics{EngagementIntensity: 80, ConflictMetric: 0.7}

	score := Compute(solar, social)

	assert.InDelta(t, 0.79833, score, 1e-4)
	assert.Equal(t, 0.798, Round(score))
}

func TestCompute_ZeroInputs(t *testing.T) {
	assert.Equal(t, 0.0, Compute(metrics.SolarMetrics{}, metrics.SocialMetrics{}))
}

func TestCompute_MaximumClasses(t *testing.T) {
	solar := metrics.SolarMetrics{SunspotNumber: 150, FlareActivity: 5, GeomagneticStorm: 4}
	social := metrics.SocialMetrics{EngagementIntensity: 100}

	assert.InDelta(t, 1.0, Compute(solar, social), 1e-12)
}

func TestCompute_OutOfRangeInputsAreBounded(t *testing.T) {
	solar := metrics.SolarMetrics{SunspotNumber: 300, FlareActivity: 5, GeomagneticStorm: 4}
	social := metrics.SocialMetrics{EngagementIntensity: 100}
	assert.Equal(t, 1.0, Compute(solar, social))

	negative := metrics.SolarMetrics{SunspotNumber: -50, FlareActivity: -3, GeomagneticStorm: -1}
	assert.Equal(t, 0.0, Compute(negative, metrics.SocialMetrics{EngagementIntensity: -20}))

	nan := metrics.SocialMetrics{EngagementIntensity: math.NaN()}
	assert.Equal(t, 0.0, Compute(metrics.SolarMetrics{}, nan))

	inf := metrics.SocialMetrics{EngagementIntensity: math.Inf(1)}
	assert.InDelta(t, 0.25, Compute(metrics.SolarMetrics{}, inf), 1e-12)
}

func TestCompute_AlwaysBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5000; i++ {
		solar := metrics.SolarMetrics{
			SunspotNumber:    rng.Intn(301),
			FlareActivity:    rng.Intn(metrics.MaxFlareActivity + 1),
			GeomagneticStorm: rng.Intn(metrics.MaxGeomagneticStorm + 1),
		}
		social := metrics.SocialMetrics{
			EngagementIntensity: rng.Float64() * 100,
			SentimentPolarity:   rng.Float64()*2 - 1,
			ConflictMetric:      rng.Float64(),
		}

		score := Compute(solar, social)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	solar := metrics.SolarMetrics{SunspotNumber: 87, FlareActivity: 2, GeomagneticStorm: 1}
	social := metrics.SocialMetrics{EngagementIntensity: 43.5, ConflictMetric: 0.2}

	first := Compute(solar, social)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Compute(solar, social))
	}
}

func TestCompute_MonotonicInSolarInputs(t *testing.T) {
	social := metrics.SocialMetrics{EngagementIntensity: 55}

	t.Run("sunspots", func(t *testing.T) {
		prev := -1.0
		for ss := 0; ss <= 300; ss += 5 {
			score := Compute(metrics.SolarMetrics{SunspotNumber: ss, FlareActivity: 2, GeomagneticStorm: 2}, social)
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})

	t.Run("flare", func(t *testing.T) {
		prev := -1.0
		for f := 0; f <= metrics.MaxFlareActivity; f++ {
			score := Compute(metrics.SolarMetrics{SunspotNumber: 90, FlareActivity: f, GeomagneticStorm: 2}, social)
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})

	t.Run("storm", func(t *testing.T) {
		prev := -1.0
		for g := 0; g <= metrics.MaxGeomagneticStorm; g++ {
			score := Compute(metrics.SolarMetrics{SunspotNumber: 90, FlareActivity: 2, GeomagneticStorm: g}, social)
			assert.GreaterOrEqual(t, score, prev)
			prev = score
		}
	})
}

func TestExplain_Components(t *testing.T) {
	b := Explain(
		metrics.SolarMetrics{SunspotNumber: 75, FlareActivity: 1, GeomagneticStorm: 2},
		metrics.SocialMetrics{EngagementIntensity: 50},
		DefaultWeights(),
	)

	assert.InDelta(t, 0.5, b.SolarIntensity, 1e-12)
	assert.InDelta(t, 0.5, b.SocialTension, 1e-12)
	assert.InDelta(t, 0.2, b.FlareImpact, 1e-12)
	assert.InDelta(t, 0.5, b.GeomagneticImpact, 1e-12)
	assert.InDelta(t, 0.1+0.125+0.05+0.15, b.Score, 1e-12)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, BandHigh, Classify(0.71))
	assert.Equal(t, BandModerate, Classify(0.7))
	assert.Equal(t, BandLow, Classify(0.4))
	assert.Equal(t, BandModerate, CrispationRisk(0.6))
	assert.Equal(t, BandLow, CrispationRisk(0.5))
}

func TestInterpretations(t *testing.T) {
	assert.Contains(t, SolarInterpretation(metrics.SolarMetrics{SunspotNumber: 130, FlareActivity: 4}), "Elevated")
	assert.Contains(t, SolarInterpretation(metrics.SolarMetrics{SunspotNumber: 10}), "Low activity")
	assert.Contains(t, SocialMood(metrics.SocialMetrics{DominantEmotion: metrics.EmotionNegative, EngagementIntensity: 90}), "crispation")
	assert.Equal(t, "CONFLICTIVE", CollectiveMood(metrics.SocialMetrics{ConflictMetric: 0.8}))
	assert.Equal(t, "POSITIVE", CollectiveMood(metrics.SocialMetrics{SentimentPolarity: 0.5, ConflictMetric: 0.1}))
}
