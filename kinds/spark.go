package kinds

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// Spark is shed by a moving parent. It flies backwards out of the
// parent's frame in a seeded ring and fizzles after Life seconds.
type Spark struct {
	particle.Base
	Origin components.Transform
	Life   float32
	Speed  float32
	Trail  bool
	Keep   int
}

func (s *Spark) Update(dt float32) { s.Advance(dt) }

func (s *Spark) Transform() components.Transform {
	c := RandomCircle(s.Seed)
	local := mgl32.Vec3{c.X(), c.Y(), s.Speed}.Mul(s.Lifetime)
	return s.Origin.WithTranslation(s.Origin.TransformPoint(local))
}

func (s *Spark) ExpirationState() particle.ExpirationState {
	return particle.ExpireIf(s.Lifetime > s.Life)
}

func (s *Spark) Fac() float32 {
	if s.Life <= 0 {
		return 1
	}
	return clamp01(s.Lifetime / s.Life)
}

func (s *Spark) Color() components.Color {
	return components.RGBA(1, 0.8, 0.3, 1).WithAlpha(1 - s.Fac())
}

// TrailBearing reports whether this spark leaves a trail.
func (s *Spark) TrailBearing() bool { return s.Trail }

// DetachSlice keeps at most the last Keep samples.
func (s *Spark) DetachSlice(history []components.Transform) []components.Transform {
	if s.Keep > 0 && len(history) > s.Keep {
		return history[len(history)-s.Keep:]
	}
	return history
}

// SparkKind spawns sparks from parent particles only.
type SparkKind struct {
	Life  float32
	Speed float32
	// TrailFraction is the share of sparks that record a trail.
	TrailFraction float32
	// TrailKeep bounds the detached part of a trail; zero keeps it all.
	TrailKeep int
}

func (k *SparkKind) Name() string { return "spark" }

func (k *SparkKind) SpawnStep(float32) int { return 0 }

func (k *SparkKind) Build(seed float32) Spark {
	return Spark{
		Base:   particle.Base{Seed: seed},
		Origin: components.Identity(),
		Life:   k.Life,
		Speed:  k.Speed,
		Trail:  seed < k.TrailFraction,
		Keep:   k.TrailKeep,
	}
}

// BuildFromParent starts the spark at the parent, oriented along its
// direction of travel.
func (k *SparkKind) BuildFromParent(parent particle.Particle, seed float32) Spark {
	s := k.Build(seed)
	pt := parent.Transform()
	s.Origin = pt.LookingTo(pt.Forward(), mgl32.Vec3{0, 1, 0})
	return s
}
