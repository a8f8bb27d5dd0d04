// Package alerts implements the cooldown-gated alert classifier over metrics and resonance.
package alerts

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/domain/metrics"
)

// Evaluator decides which alert kinds fire, and tracks the active set and bounded history.
// Safe for concurrent use; reads return copies.
type Evaluator struct {
	mu        sync.Mutex
	cfg       Config
	cooldowns *CooldownTable
	active    []*Alert
	history   *history.Buffer[*Alert]

	prevEngagement float64
	hasPrev        bool

	now   func() time.Time
	newID func() string
}

// EvaluatorOption configures an Evaluator
type EvaluatorOption func(*Evaluator)

// WithClock overrides the evaluator clock
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

// WithIDGenerator overrides alert id generation
func WithIDGenerator(fn func() string) EvaluatorOption {
	return func(e *Evaluator) {
		e.newID = fn
	}
}

// NewEvaluator validates cfg and builds an evaluator with empty state
func NewEvaluator(cfg Config, opts ...EvaluatorOption) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Evaluator{
		cfg:       cfg,
		cooldowns: NewCooldownTable(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = history.NewBuffer(cfg.HistoryCap,
		func(a *Alert) time.Time { return a.CreatedAt },
		history.WithClock[*Alert](e.now),
	)
	return e, nil
}

// predicate is one row of the rule table bound to the current inputs
type predicate struct {
	kind  Kind
	value float64
	holds func(value float64, rule Rule) bool
	build func(value float64) (title, message string, payload map[string]interface{})
}

// Evaluate checks every rule in solar, social, resonance order and returns the alerts that fired
func (e *Evaluator) Evaluate(solar metrics.SolarMetrics, social metrics.SocialMetrics, resonance float64) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	fired := make([]Alert, 0)

	for _, p := range e.predicates(solar, social, resonance) {
		alert, ok := e.check(p, now)
		if !ok {
			continue
		}
		e.record(alert)
		fired = append(fired, alert.Copy())
	}

	if !math.IsNaN(social.EngagementIntensity) && !math.IsInf(social.EngagementIntensity, 0) {
		e.prevEngagement = social.EngagementIntensity
		e.hasPrev = true
	}

	return fired
}

func (e *Evaluator) predicates(solar metrics.SolarMetrics, social metrics.SocialMetrics, resonance float64) []predicate {
	above := func(v float64, r Rule) bool { return v > r.Threshold }
	atLeast := func(v float64, r Rule) bool { return v >= r.Threshold }

	preds := []predicate{
		{
			kind:  KindSolarExtreme,
			value: float64(solar.SunspotNumber),
			holds: above,
			build: func(v float64) (string, string, map[string]interface{}) {
				return "Extreme solar activity detected",
					fmt.Sprintf("Sunspot number at critical level (%d). Maximum influence on collective mood expected.", solar.SunspotNumber),
					map[string]interface{}{"sunspots": solar.SunspotNumber, "impact": "high"}
			},
		},
		{
			kind:  KindFlareCritical,
			value: float64(solar.FlareActivity),
			holds: atLeast,
			build: func(v float64) (string, string, map[string]interface{}) {
				return "Intense solar flares",
					fmt.Sprintf("Flare activity level %d/%d. Possible impact on communication systems and social behaviour.", solar.FlareActivity, metrics.MaxFlareActivity),
					map[string]interface{}{"flare_level": solar.FlareActivity, "impact": "medium"}
			},
		},
		{
			kind:  KindGeomagneticSevere,
			value: float64(solar.GeomagneticStorm),
			holds: atLeast,
			build: func(v float64) (string, string, map[string]interface{}) {
				return "Geomagnetic storm in progress",
					fmt.Sprintf("Geomagnetic storm level %d/%d. Potential effect on biological systems and mood.", solar.GeomagneticStorm, metrics.MaxGeomagneticStorm),
					map[string]interface{}{"storm_level": solar.GeomagneticStorm, "impact": "medium"}
			},
		},
		{
			kind:  KindCrispationHigh,
			value: social.ConflictMetric,
			holds: above,
			build: func(v float64) (string, string, map[string]interface{}) {
				return "High social crispation detected",
					fmt.Sprintf("Conflict level at %.1f%%. Conditions favour significant social events.", v*100),
					map[string]interface{}{"conflict_level": v, "sentiment": social.SentimentPolarity}
			},
		},
	}

	if e.hasPrev {
		prev := e.prevEngagement
		preds = append(preds, predicate{
			kind:  KindEngagementAnomaly,
			value: engagementChange(prev, social.EngagementIntensity),
			holds: func(v float64, r Rule) bool { return math.Abs(v) > r.Threshold },
			build: func(v float64) (string, string, map[string]interface{}) {
				trend := "increase"
				if v < 0 {
					trend = "decrease"
				}
				return "Social engagement anomaly",
					fmt.Sprintf("Sudden %s in engagement (%+.1f%%). Possible viral event or trend shift.", trend, v*100),
					map[string]interface{}{
						"engagement_change":   v,
						"current_engagement":  social.EngagementIntensity,
						"previous_engagement": prev,
					}
			},
		})
	}

	critical := e.cfg.Rules[KindResonanceCritical].Threshold
	preds = append(preds,
		predicate{
			kind:  KindResonanceCritical,
			value: resonance,
			holds: above,
			build: func(v float64) (string, string, map[string]interface{}) {
				return "Critical solar-social resonance",
					"Conditions resemble historical solar maxima. High likelihood of significant social events.",
					map[string]interface{}{"resonance": v, "cycle_phase": "maximum"}
			},
		},
		predicate{
			kind:  KindResonanceHigh,
			value: resonance,
			// only the highest matching resonance tier fires
			holds: func(v float64, r Rule) bool { return v > r.Threshold && v <= critical },
			build: func(v float64) (string, string, map[string]interface{}) {
				return "Elevated solar-social resonance",
					"High correlation detected. Significant solar influence on social behaviour expected.",
					map[string]interface{}{"resonance": v, "cycle_phase": "ascending"}
			},
		},
	)

	return preds
}

// engagementChange is the relative change from prev to cur. Any rise from
// zero counts as +100%; zero to zero is no change.
func engagementChange(prev, cur float64) float64 {
	if prev == 0 {
		if cur > 0 {
			return 1
		}
		return 0
	}
	return (cur - prev) / prev
}

// check evaluates a single predicate. A panic or non-finite input skips only this predicate.
func (e *Evaluator) check(p predicate, now time.Time) (alert Alert, fired bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("component", "alerts").
				Str("kind", string(p.kind)).
				Interface("panic", r).
				Msg("Alert predicate failed, skipping")
			alert, fired = Alert{}, false
		}
	}()

	if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
		log.Warn().
			Str("component", "alerts").
			Str("kind", string(p.kind)).
			Msg("Non-finite input, skipping alert predicate")
		return Alert{}, false
	}

	rule := e.cfg.Rules[p.kind]
	if !p.holds(p.value, rule) {
		return Alert{}, false
	}
	if !e.cooldowns.Ready(p.kind, now, rule.Cooldown) {
		log.Debug().
			Str("component", "alerts").
			Str("kind", string(p.kind)).
			Msg("Alert suppressed by cooldown")
		return Alert{}, false
	}

	title, message, payload := p.build(p.value)
	alert = Alert{
		ID:             e.newID(),
		Level:          p.kind.Level(),
		Kind:           p.kind,
		Category:       p.kind.Category(),
		Title:          title,
		Message:        message,
		CreatedAt:      now,
		ActiveDuration: rule.ActiveDuration,
		Payload:        payload,
	}
	e.cooldowns.Mark(p.kind, now)
	return alert, true
}

func (e *Evaluator) record(alert Alert) {
	a := alert
	e.active = append(e.active, &a)
	e.history.Append(&a)

	var evt = log.Info()
	if alert.Level == LevelCritical {
		evt = log.Warn()
	}
	evt.Str("component", "alerts").
		Str("kind", string(alert.Kind)).
		Str("level", string(alert.Level)).
		Str("id", alert.ID).
		Msg(alert.Title)
}

// expire drops every alert that is acknowledged or past its active duration,
// marking the expired ones acknowledged. Caller holds e.mu.
func (e *Evaluator) expire(now time.Time) {
	kept := e.active[:0]
	for _, a := range e.active {
		if a.ActiveAt(now) {
			kept = append(kept, a)
			continue
		}
		a.Acknowledged = true
	}
	for i := len(kept); i < len(e.active); i++ {
		e.active[i] = nil
	}
	e.active = kept
}

// Active returns the unexpired, unacknowledged alerts in firing order
func (e *Evaluator) Active() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expire(e.now())
	out := make([]Alert, len(e.active))
	for i, a := range e.active {
		out[i] = a.Copy()
	}
	return out
}

// Acknowledge accepts either a position in the active list or an alert id
func (e *Evaluator) Acknowledge(ref string) (Alert, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		return e.AcknowledgeIndex(idx)
	}
	return e.AcknowledgeID(ref)
}

// AcknowledgeIndex acknowledges the alert at position idx of the active list
func (e *Evaluator) AcknowledgeIndex(idx int) (Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expire(e.now())
	if idx < 0 || idx >= len(e.active) {
		return Alert{}, fmt.Errorf("%w: index %d", ErrAlertNotFound, idx)
	}
	return e.acknowledgeAt(idx), nil
}

// AcknowledgeID acknowledges the active alert with the given id
func (e *Evaluator) AcknowledgeID(id string) (Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expire(e.now())
	for i, a := range e.active {
		if a.ID == id {
			return e.acknowledgeAt(i), nil
		}
	}
	return Alert{}, fmt.Errorf("%w: id %q", ErrAlertNotFound, id)
}

func (e *Evaluator) acknowledgeAt(idx int) Alert {
	a := e.active[idx]
	a.Acknowledged = true
	e.active = append(e.active[:idx], e.active[idx+1:]...)

	log.Info().
		Str("component", "alerts").
		Str("kind", string(a.Kind)).
		Str("id", a.ID).
		Msg("Alert acknowledged")
	return a.Copy()
}

// Stats summarizes the alert history within window of now
func (e *Evaluator) Stats(window time.Duration) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.expire(e.now())
	stats := Stats{
		Window:      window,
		ActiveCount: len(e.active),
		ByKind:      make(map[Kind]int),
		ByCategory:  make(map[Category]int),
	}
	for _, a := range e.history.Window(window) {
		stats.Total++
		switch a.Level {
		case LevelCritical:
			stats.Critical++
		case LevelWarning:
			stats.Warning++
		case LevelInfo:
			stats.Info++
		}
		stats.ByKind[a.Kind]++
		stats.ByCategory[a.Category]++
	}
	return stats
}

// History returns the retained alerts, oldest first
func (e *Evaluator) History() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := e.history.Snapshot()
	out := make([]Alert, len(items))
	for i, a := range items {
		out[i] = a.Copy()
	}
	return out
}

// Cooldowns returns the last firing time per kind
func (e *Evaluator) Cooldowns() map[Kind]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cooldowns.Snapshot()
}

// Config returns the rule table in use
func (e *Evaluator) Config() Config {
	return e.cfg
}
