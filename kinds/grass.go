package kinds

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// Blade is a grass blade. It never moves or expires, so populations of
// blades are baked once instead of simulated.
type Blade struct {
	particle.Base
	Field float32
}

func (b *Blade) Update(float32) {}

func (b *Blade) Transform() components.Transform {
	rng := SeedRNG(b.Seed)
	half := b.Field / 2
	x := rng.Float32()*b.Field - half
	z := rng.Float32()*b.Field - half
	angle := rng.Float32() * tau
	tr := components.FromTranslation(mgl32.Vec3{x, 0, z})
	tr.Rotation = mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
	return tr
}

func (b *Blade) ExpirationState() particle.ExpirationState { return particle.Alive }

func (b *Blade) Color() components.Color {
	return components.RGBA(0.2, 0.6, 0.15, 1).Lerp(components.RGBA(0.5, 0.7, 0.2, 1), b.Seed)
}

// GrassKind builds blades scattered over a square field.
type GrassKind struct {
	Field float32
}

func (k *GrassKind) Name() string { return "grass" }

func (k *GrassKind) SpawnStep(float32) int { return 0 }

func (k *GrassKind) Build(seed float32) Blade {
	return Blade{Base: particle.Base{Seed: seed}, Field: k.Field}
}
