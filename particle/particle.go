// Package particle defines the particle contract, the dense per-kind
// particle buffer and the per-frame event log.
//
// A particle is a small value owned by exactly one Buffer slot. Its
// Update mutates only its own state; Transform, ExpirationState, Fac and
// Color are pure functions of that state. Anything a particle wants to
// signal to the outside (death, explosion, collision) goes through
// ExpirationState or the optional Collider capability, never an error.
package particle

import "github.com/pthm-cable/sparks/components"

// ExpirationState reports if and how a particle has ended.
type ExpirationState uint8

const (
	Alive   ExpirationState = iota // keep simulating
	Expire                         // natural death
	Explode                        // death that downstream emitters may react to
)

// IsExpired reports whether the particle should be removed.
func (s ExpirationState) IsExpired() bool {
	return s != Alive
}

// ExpireIf returns Expire when cond holds, Alive otherwise.
func ExpireIf(cond bool) ExpirationState {
	if cond {
		return Expire
	}
	return Alive
}

// ExplodeIf returns Explode when cond holds, Alive otherwise.
func ExplodeIf(cond bool) ExpirationState {
	if cond {
		return Explode
	}
	return Alive
}

func (s ExpirationState) String() string {
	switch s {
	case Alive:
		return "alive"
	case Expire:
		return "expire"
	case Explode:
		return "explode"
	}
	return "unknown"
}

// Particle is one simulated unit.
type Particle interface {
	// Core exposes the attributes every particle carries.
	Core() *Base
	// Update advances the particle by dt seconds.
	Update(dt float32)
	// Transform returns the current transform.
	Transform() components.Transform
	// ExpirationState reports if and how the particle has ended.
	ExpirationState() ExpirationState
	// Fac is a kind-defined progress value, usually lifetime normalized to [0, 1].
	Fac() float32
	// Color returns the instance color.
	Color() components.Color
}

// Base carries the attributes shared by all particles. Concrete kinds
// embed it to pick up the Core, Fac and Color defaults.
type Base struct {
	ID       uint32  // assigned by the buffer, unique among live particles
	Lifetime float32 // seconds since spawn
	Seed     float32 // fixed at spawn, in [0, 1)
}

// Core returns b.
func (b *Base) Core() *Base { return b }

// Fac defaults to the raw lifetime.
func (b *Base) Fac() float32 { return b.Lifetime }

// Color defaults to white.
func (b *Base) Color() components.Color { return components.White }

// Advance adds dt to the lifetime. Negative steps are ignored so the
// lifetime never decreases.
func (b *Base) Advance(dt float32) {
	if dt > 0 {
		b.Lifetime += dt
	}
}

// Trailed is implemented by particles that control trail recording.
type Trailed interface {
	Particle
	// TrailBearing reports whether this instance should be recorded.
	TrailBearing() bool
	// DetachSlice selects the part of the recorded history that outlives
	// the particle. The returned slice may alias history.
	DetachSlice(history []components.Transform) []components.Transform
}

// Collider is implemented by particles that report interactions.
type Collider interface {
	Particle
	// Collided reports a collision that happened during the last Update.
	Collided() bool
}

// Ptr constrains a type parameter to a pointer to T implementing Particle.
// Buffers store T by value and address elements through P.
type Ptr[T any] interface {
	*T
	Particle
}
