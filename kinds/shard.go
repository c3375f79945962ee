package kinds

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// Shard is debris thrown outwards from an event position. It reports a
// collision when it falls through the ground plane and ends after Life
// seconds.
type Shard struct {
	particle.Base
	Origin  mgl32.Vec3
	Life    float32
	Spread  float32
	Ground  float32
	hit     bool
	landing bool
}

func (s *Shard) offset(t float32) mgl32.Vec3 {
	p := RandomCircle(s.Seed)
	y := (t - t*t) * s.Spread
	return mgl32.Vec3{p.X() * t * s.Spread, y, p.Y() * t * s.Spread}
}

func (s *Shard) Update(dt float32) {
	before := s.Origin.Add(s.offset(s.Lifetime)).Y()
	s.Advance(dt)
	after := s.Origin.Add(s.offset(s.Lifetime)).Y()
	s.landing = !s.hit && before >= s.Ground && after < s.Ground
	if s.landing {
		s.hit = true
	}
}

func (s *Shard) Transform() components.Transform {
	tr := components.FromTranslation(s.Origin.Add(s.offset(s.Lifetime)))
	tr.Rotation = RandomQuat(s.Seed)
	tr.Scale = mgl32.Vec3{1, 1, 1}.Mul(1 - 0.5*s.Fac())
	return tr
}

func (s *Shard) ExpirationState() particle.ExpirationState {
	return particle.ExpireIf(s.Lifetime > s.Life)
}

func (s *Shard) Fac() float32 {
	if s.Life <= 0 {
		return 1
	}
	return clamp01(s.Lifetime / s.Life)
}

func (s *Shard) Color() components.Color {
	return components.RGBA(1, 0.2, 0.1, 1).Lerp(components.RGBA(0.2, 0.2, 0.2, 1), s.Fac())
}

// Collided reports the update in which the shard crossed the ground.
func (s *Shard) Collided() bool { return s.landing }

// ShardKind spawns shards from parent events only.
type ShardKind struct {
	Life   float32
	Spread float32
	Ground float32
}

func (k *ShardKind) Name() string { return "shard" }

func (k *ShardKind) SpawnStep(float32) int { return 0 }

func (k *ShardKind) Build(seed float32) Shard {
	return Shard{
		Base:   particle.Base{Seed: seed},
		Life:   k.Life,
		Spread: k.Spread,
		Ground: k.Ground,
	}
}

func (k *ShardKind) BuildFromEvent(ev particle.Event, seed float32) Shard {
	s := k.Build(seed)
	s.Origin = ev.Transform.Translation
	return s
}
