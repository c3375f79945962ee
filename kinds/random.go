// Package kinds provides the concrete particle kinds used by the host:
// rockets, sparks, shards, motes and grass blades.
package kinds

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
)

const tau = 2 * math.Pi

// SeedRNG derives a deterministic generator from a particle seed.
func SeedRNG(seed float32) *rand.Rand {
	return rand.New(rand.NewSource(int64(float64(seed) * math.MaxInt64)))
}

// RandomCircle returns a unit vector at angle seed*2π.
func RandomCircle(seed float32) mgl32.Vec2 {
	s, c := math.Sincos(float64(seed) * tau)
	return mgl32.Vec2{float32(c), float32(s)}
}

// RandomSolidCircle returns a point uniformly inside the unit disc.
func RandomSolidCircle(seed float32) mgl32.Vec2 {
	rng := SeedRNG(seed)
	r := math.Sqrt(rng.Float64())
	s, c := math.Sincos(rng.Float64() * tau)
	return mgl32.Vec2{float32(r * c), float32(r * s)}
}

// RandomSphere returns a unit vector on the sphere.
func RandomSphere(seed float32) mgl32.Vec3 {
	rng := SeedRNG(seed)
	theta := float64(seed) * tau
	phi := math.Acos(rng.Float64()*2 - 1)
	ps, pc := math.Sincos(phi)
	ts, tc := math.Sincos(theta)
	return mgl32.Vec3{float32(ps * tc), float32(ps * ts), float32(pc)}
}

// RandomCone returns a unit vector within angle radians of dir.
func RandomCone(dir mgl32.Vec3, angle float32, seed float32) mgl32.Vec3 {
	rng := SeedRNG(seed)
	theta := rng.Float64() * tau
	cosMax := math.Cos(float64(angle))
	f := rng.Float64()
	phi := math.Acos(1*(1-f) + cosMax*f)
	ps, pc := math.Sincos(phi)
	ts, tc := math.Sincos(theta)
	local := mgl32.Vec3{float32(ps * tc), float32(ps * ts), float32(pc)}
	if dir.Len() < 1e-6 {
		return local
	}
	return mgl32.QuatBetweenVectors(mgl32.Vec3{0, 0, 1}, dir.Normalize()).Rotate(local)
}

// RandomQuat returns a uniformly distributed rotation.
func RandomQuat(seed float32) mgl32.Quat {
	rng := SeedRNG(seed)
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	return mgl32.Quat{
		W: float32(b * math.Cos(tau*u3)),
		V: mgl32.Vec3{
			float32(a * math.Sin(tau*u2)),
			float32(a * math.Cos(tau*u2)),
			float32(b * math.Sin(tau*u3)),
		},
	}
}

// FromDerivative places a transform on the curve f at t, facing along
// the curve.
func FromDerivative(f func(t float32) mgl32.Vec3, t float32) components.Transform {
	const step = 0.001
	at := f(t)
	next := f(t + step)
	return components.FromTranslation(at).LookingTo(next.Sub(at), mgl32.Vec3{0, 1, 0})
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
