package kinds

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// Rocket flies a ballistic arc away from its origin and explodes when its
// fuse burns out.
type Rocket struct {
	particle.Base
	Origin mgl32.Vec3
	Fuse   float32
	Lift   float32
}

// Arc returns the offset from the origin after t seconds. The heading is
// chosen by the seed.
func (r *Rocket) Arc(t float32) mgl32.Vec3 {
	s, c := math.Sincos(float64(r.Seed) * 2 * tau)
	y := t*r.Lift - t*t
	return mgl32.Vec3{float32(c) * t, y, float32(s) * t}
}

func (r *Rocket) Update(dt float32) { r.Advance(dt) }

func (r *Rocket) Transform() components.Transform {
	tr := FromDerivative(r.Arc, r.Lifetime)
	tr.Translation = tr.Translation.Add(r.Origin)
	return tr
}

func (r *Rocket) ExpirationState() particle.ExpirationState {
	return particle.ExplodeIf(r.Lifetime > r.Fuse)
}

// Fac is the burnt fraction of the fuse.
func (r *Rocket) Fac() float32 {
	if r.Fuse <= 0 {
		return 1
	}
	return clamp01(r.Lifetime / r.Fuse)
}

func (r *Rocket) Color() components.Color {
	return components.RGBA(1, 0.9, 0.6, 1).Lerp(components.RGBA(1, 0.3, 0.1, 1), r.Fac())
}

// RocketKind launches Rate rockets per second from its origin.
type RocketKind struct {
	Rate float32
	Fuse float32
	Lift float32

	origin mgl32.Vec3
	acc    float32
}

func (k *RocketKind) Name() string { return "rocket" }

func (k *RocketKind) SpawnStep(dt float32) int {
	if dt <= 0 || k.Rate <= 0 {
		return 0
	}
	k.acc += dt * k.Rate
	n := int(k.acc)
	k.acc -= float32(n)
	return n
}

func (k *RocketKind) Build(seed float32) Rocket {
	return Rocket{
		Base:   particle.Base{Seed: seed},
		Origin: k.origin,
		Fuse:   k.Fuse,
		Lift:   k.Lift,
	}
}

func (k *RocketKind) SetOrigin(t components.Transform) { k.origin = t.Translation }
