// Package synthetic generates plausible solar and social records when no live
// source is configured or reachable.
package synthetic

import (
	"math/rand"
	"sync"
	"time"
)

// Option configures a generator
type Option func(*base)

// WithRand sets the random source. Tests pass a seeded generator.
func WithRand(r *rand.Rand) Option {
	return func(b *base) {
		if r != nil {
			b.rng = r
		}
	}
}

// WithClock overrides the generator clock
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

// base guards the shared *rand.Rand, which is not safe for concurrent use
type base struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func newBase(opts []Option) *base {
	b := &base{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// intn returns a uniform int in [lo, hi]
func (b *base) intn(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + b.rng.Intn(hi-lo+1)
}

// uniform returns a uniform float in [lo, hi)
func (b *base) uniform(lo, hi float64) float64 {
	return lo + b.rng.Float64()*(hi-lo)
}

type weighted struct {
	value  int
	weight float64
}

// choose draws one value with probability proportional to its weight
func (b *base) choose(options ...weighted) int {
	total := 0.0
	for _, o := range options {
		total += o.weight
	}
	r := b.rng.Float64() * total
	for _, o := range options {
		if r < o.weight {
			return o.value
		}
		r -= o.weight
	}
	return options[len(options)-1].value
}
