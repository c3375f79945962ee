package systems

import "github.com/pthm-cable/sparks/particle"

// SpawnPolicy decides how many children a sub-emitter spawns for each
// live parent particle.
type SpawnPolicy interface {
	// Begin is called once per tick before any parent is visited.
	Begin()
	// Count returns the number of children for parent this tick.
	Count(parent particle.Particle, dt float32) int
}

// OnePerParent spawns one child per parent per tick.
type OnePerParent struct{}

func (OnePerParent) Begin() {}

func (OnePerParent) Count(particle.Particle, float32) int { return 1 }

// PerParent spawns N children per parent per tick.
type PerParent struct {
	N int
}

func (PerParent) Begin() {}

func (p PerParent) Count(particle.Particle, float32) int {
	if p.N < 0 {
		return 0
	}
	return p.N
}

// RatePerParent spawns Rate children per second for every parent,
// carrying the fractional remainder per parent. Parents are keyed by id
// and seed, since a freed id can be handed to a new parent within a tick.
type RatePerParent struct {
	Rate float32

	gen uint64
	acc map[rateKey]rateAcc
}

type rateKey struct {
	id   uint32
	seed float32
}

type rateAcc struct {
	value float32
	gen   uint64
}

// NewRatePerParent creates a rate policy.
func NewRatePerParent(rate float32) *RatePerParent {
	return &RatePerParent{Rate: rate, acc: make(map[rateKey]rateAcc)}
}

// Begin drops accumulators of parents not seen during the previous tick.
func (r *RatePerParent) Begin() {
	if r.acc == nil {
		r.acc = make(map[rateKey]rateAcc)
	}
	for key, a := range r.acc {
		if a.gen < r.gen {
			delete(r.acc, key)
		}
	}
	r.gen++
}

func (r *RatePerParent) Count(parent particle.Particle, dt float32) int {
	if r.Rate <= 0 || dt <= 0 {
		return 0
	}
	core := parent.Core()
	key := rateKey{id: core.ID, seed: core.Seed}
	a := r.acc[key]
	a.value += r.Rate * dt
	n := int(a.value)
	a.value -= float32(n)
	a.gen = r.gen
	r.acc[key] = a
	return n
}

// EventRule decides how many children an event-emitter spawns per event.
type EventRule interface {
	Count(ev particle.Event) int
}

// BurstRule maps event kinds to a fixed burst size. Unlisted kinds spawn
// nothing.
type BurstRule map[particle.EventKind]int

func (r BurstRule) Count(ev particle.Event) int { return r[ev.Kind] }

// EventRuleFunc adapts a function to EventRule.
type EventRuleFunc func(ev particle.Event) int

func (f EventRuleFunc) Count(ev particle.Event) int { return f(ev) }

// EventPolicy controls which removals are logged to the node's events.
// Explosions are always logged.
type EventPolicy struct {
	RecordExpired bool
}

func (p EventPolicy) records(s particle.ExpirationState) bool {
	switch s {
	case particle.Explode:
		return true
	case particle.Expire:
		return p.RecordExpired
	}
	return false
}
