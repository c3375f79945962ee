package systems

import (
	"io"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// dot moves at a constant velocity until its lifetime passes maxLife.
type dot struct {
	particle.Base
	pos     mgl32.Vec3
	vel     mgl32.Vec3
	maxLife float32
	explode bool
}

func (d *dot) Update(dt float32) {
	d.Advance(dt)
	d.pos = d.pos.Add(d.vel.Mul(dt))
}

func (d *dot) Transform() components.Transform {
	return components.FromTranslation(d.pos)
}

func (d *dot) ExpirationState() particle.ExpirationState {
	if d.Lifetime <= d.maxLife {
		return particle.Alive
	}
	if d.explode {
		return particle.Explode
	}
	return particle.Expire
}

// bumper reports a collision on every update once its lifetime passes 1.
type bumper struct {
	dot
}

func (b *bumper) Collided() bool { return b.Lifetime > 1 }

// streak records a trail only when bearing is set and hands over all but
// its first sample.
type streak struct {
	dot
	bearing bool
}

func (s *streak) TrailBearing() bool { return s.bearing }

func (s *streak) DetachSlice(history []components.Transform) []components.Transform {
	if len(history) == 0 {
		return history
	}
	return history[1:]
}

// dotKind emits burst particles on its next step, then perStep per step.
type dotKind struct {
	burst   int
	perStep int
	life    float32
	explode bool
	vel     mgl32.Vec3
	origin  mgl32.Vec3
}

func (k *dotKind) Name() string { return "dot" }

func (k *dotKind) SpawnStep(float32) int {
	n := k.burst + k.perStep
	k.burst = 0
	return n
}

func (k *dotKind) Build(seed float32) dot {
	return dot{pos: k.origin, vel: k.vel, maxLife: k.life, explode: k.explode}
}

func (k *dotKind) SetOrigin(t components.Transform) { k.origin = t.Translation }

// childKind can spawn from parent particles and from parent events.
type childKind struct {
	dotKind
}

func (k *childKind) BuildFromParent(parent particle.Particle, seed float32) dot {
	d := k.Build(seed)
	d.pos = parent.Transform().Translation
	return d
}

func (k *childKind) BuildFromEvent(ev particle.Event, seed float32) dot {
	d := k.Build(seed)
	d.pos = ev.Transform.Translation
	return d
}

// watchKind observes its buffer after every update, and optionally the
// state of another node at that moment.
type watchKind struct {
	dotKind
	calls   int
	lastLen int
	lastDt  float32
	watch   *Node
	seen    []NodeState
}

func (k *watchKind) OnUpdate(dt float32, v particle.View) {
	k.calls++
	k.lastLen = v.Len()
	k.lastDt = dt
	if k.watch != nil {
		k.seen = append(k.seen, k.watch.State())
	}
}

type bumperKind struct{ burst int }

func (k *bumperKind) Name() string { return "bumper" }

func (k *bumperKind) SpawnStep(float32) int {
	n := k.burst
	k.burst = 0
	return n
}

func (k *bumperKind) Build(seed float32) bumper {
	return bumper{dot{maxLife: 10}}
}

type streakKind struct {
	burst   int
	life    float32
	bearing bool
}

func (k *streakKind) Name() string { return "streak" }

func (k *streakKind) SpawnStep(float32) int {
	n := k.burst
	k.burst = 0
	return n
}

func (k *streakKind) Build(seed float32) streak {
	return streak{dot: dot{vel: mgl32.Vec3{1, 0, 0}, maxLife: k.life}, bearing: k.bearing}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSim(t *testing.T, opts ...Option) *Simulation {
	t.Helper()
	sim := NewSimulation(append([]Option{WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(sim.Close)
	return sim
}

func mustNode[T any, P particle.Ptr[T]](t *testing.T, kind particle.Kind[T], cfg NodeConfig) *Node {
	t.Helper()
	n, err := NewNode[T, P](kind, cfg)
	if err != nil {
		t.Fatalf("NewNode(%s): %v", cfg.Name, err)
	}
	return n
}

func mustTick(t *testing.T, sim *Simulation, dt float32) {
	t.Helper()
	if err := sim.Tick(dt); err != nil {
		t.Fatalf("Tick: %v", err)
	}
}
