package kinds

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// Mote is a dust speck drifting through a turbulent flow field.
type Mote struct {
	particle.Base
	Pos  mgl32.Vec3
	Life float32

	flow *Flow
}

func (m *Mote) Update(dt float32) {
	if dt <= 0 {
		return
	}
	m.Advance(dt)
	if m.flow != nil {
		m.Pos = m.Pos.Add(m.flow.At(m.Pos, m.Lifetime).Mul(dt))
	}
}

func (m *Mote) Transform() components.Transform {
	tr := components.FromTranslation(m.Pos)
	tr.Scale = mgl32.Vec3{1, 1, 1}.Mul(0.5 + 0.5*m.Seed)
	return tr
}

func (m *Mote) ExpirationState() particle.ExpirationState {
	return particle.ExpireIf(m.Lifetime > m.Life)
}

func (m *Mote) Fac() float32 {
	if m.Life <= 0 {
		return 1
	}
	return clamp01(m.Lifetime / m.Life)
}

func (m *Mote) Color() components.Color {
	// fade in and out
	f := m.Fac()
	a := 4 * f * (1 - f)
	return components.RGBA(0.8, 0.85, 1, a)
}

// Flow is a velocity field built from three simplex noise channels.
type Flow struct {
	noise    opensimplex.Noise32
	Scale    float32 // spatial frequency
	Strength float32 // speed in units per second
	Rise     float32 // constant upward drift
}

// NewFlow creates a flow field from seed.
func NewFlow(seed int64, scale, strength, rise float32) *Flow {
	return &Flow{
		noise:    opensimplex.New32(seed),
		Scale:    scale,
		Strength: strength,
		Rise:     rise,
	}
}

// At samples the velocity at p and time t.
func (f *Flow) At(p mgl32.Vec3, t float32) mgl32.Vec3 {
	q := p.Mul(f.Scale)
	vx := f.noise.Eval3(q.X(), q.Y(), q.Z()+t)
	vy := f.noise.Eval3(q.X()+31.4, q.Y(), q.Z()+t)
	vz := f.noise.Eval3(q.X(), q.Y()+47.2, q.Z()+t)
	return mgl32.Vec3{vx, vy, vz}.Mul(f.Strength).Add(mgl32.Vec3{0, f.Rise, 0})
}

// MoteKind emits Rate motes per second inside a box of half-size Extent
// around its origin.
type MoteKind struct {
	Rate   float32
	Life   float32
	Extent mgl32.Vec3
	Flow   *Flow

	origin mgl32.Vec3
	acc    float32
}

func (k *MoteKind) Name() string { return "mote" }

func (k *MoteKind) SpawnStep(dt float32) int {
	if dt <= 0 || k.Rate <= 0 {
		return 0
	}
	k.acc += dt * k.Rate
	n := int(k.acc)
	k.acc -= float32(n)
	return n
}

func (k *MoteKind) Build(seed float32) Mote {
	rng := SeedRNG(seed)
	off := mgl32.Vec3{
		(rng.Float32()*2 - 1) * k.Extent.X(),
		(rng.Float32()*2 - 1) * k.Extent.Y(),
		(rng.Float32()*2 - 1) * k.Extent.Z(),
	}
	return Mote{
		Base: particle.Base{Seed: seed},
		Pos:  k.origin.Add(off),
		Life: k.Life,
		flow: k.Flow,
	}
}

func (k *MoteKind) SetOrigin(t components.Transform) { k.origin = t.Translation }
