package kinds

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
	"github.com/pthm-cable/sparks/systems"
)

func TestRocketExplodesAfterFuse(t *testing.T) {
	k := &RocketKind{Rate: 1, Fuse: 2, Lift: 8}
	r := k.Build(0.3)

	for _, step := range []struct {
		dt   float32
		want particle.ExpirationState
	}{
		{1, particle.Alive},
		{1, particle.Alive},
		{0.5, particle.Explode},
	} {
		r.Update(step.dt)
		if got := r.ExpirationState(); got != step.want {
			t.Errorf("lifetime %.1f: state = %v, want %v", r.Lifetime, got, step.want)
		}
	}
	if r.Fac() != 1 {
		t.Errorf("Fac = %f, want 1", r.Fac())
	}
}

func TestRocketFacesAlongArc(t *testing.T) {
	r := (&RocketKind{Fuse: 8, Lift: 8}).Build(0.1)
	r.Lifetime = 2

	tr := r.Transform()
	want := r.Arc(2.001).Sub(r.Arc(2)).Normalize()
	if !components.Vec3Near(tr.Forward(), want, 1e-2) {
		t.Errorf("Forward = %v, want %v", tr.Forward(), want)
	}
	if !components.Vec3Near(tr.Translation, r.Arc(2), 1e-4) {
		t.Errorf("Translation = %v, want %v", tr.Translation, r.Arc(2))
	}
}

func TestRocketKindRate(t *testing.T) {
	k := &RocketKind{Rate: 4}
	total := 0
	for i := 0; i < 8; i++ {
		total += k.SpawnStep(0.125)
	}
	if total != 4 {
		t.Errorf("spawned %d in 1s at rate 4, want 4", total)
	}
	if k.SpawnStep(-1) != 0 {
		t.Error("negative step spawned rockets")
	}
}

func TestSparkStartsAtParent(t *testing.T) {
	rocket := (&RocketKind{Fuse: 8, Lift: 8}).Build(0.7)
	rocket.Lifetime = 1.5
	parentPos := rocket.Transform().Translation

	k := &SparkKind{Life: 1, Speed: 2, TrailFraction: 0.5, TrailKeep: 2}
	s := k.BuildFromParent(&rocket, 0.25)
	if !components.Vec3Near(s.Transform().Translation, parentPos, 1e-4) {
		t.Errorf("spark at %v, want parent position %v", s.Transform().Translation, parentPos)
	}
	if !s.TrailBearing() {
		t.Error("seed below TrailFraction should bear a trail")
	}

	s.Update(0.5)
	moved := s.Transform().Translation.Sub(parentPos)
	// sparks fly backwards out of the parent's frame
	if moved.Dot(rocket.Transform().Forward()) >= 0 {
		t.Errorf("spark moved %v, not against parent heading", moved)
	}

	s.Update(0.6)
	if s.ExpirationState() != particle.Expire {
		t.Errorf("state = %v, want expire", s.ExpirationState())
	}
}

func TestSparkDetachSlice(t *testing.T) {
	s := Spark{Keep: 2}
	hist := make([]components.Transform, 5)
	if got := len(s.DetachSlice(hist)); got != 2 {
		t.Errorf("kept %d, want 2", got)
	}
	s.Keep = 0
	if got := len(s.DetachSlice(hist)); got != 5 {
		t.Errorf("kept %d, want 5", got)
	}
}

func TestShardCollidesOnce(t *testing.T) {
	k := &ShardKind{Life: 2, Spread: 4, Ground: 0}
	s := k.BuildFromEvent(particle.Event{}, 0.4)

	hits := 0
	for i := 0; i < 20; i++ {
		s.Update(0.1)
		if s.Collided() {
			hits++
			if s.Lifetime < 1 {
				t.Errorf("collided at lifetime %f while still above ground", s.Lifetime)
			}
		}
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestMoteFlowIsDeterministic(t *testing.T) {
	run := func() mgl32.Vec3 {
		k := &MoteKind{Rate: 1, Life: 10, Extent: mgl32.Vec3{1, 1, 1}, Flow: NewFlow(7, 0.5, 1, 0.2)}
		m := k.Build(0.42)
		for i := 0; i < 50; i++ {
			m.Update(0.05)
		}
		return m.Pos
	}
	a, b := run(), run()
	if a != b {
		t.Errorf("same seed gave %v and %v", a, b)
	}
	if math.IsNaN(float64(a.X())) {
		t.Error("position is NaN")
	}
}

func TestMoteColorFades(t *testing.T) {
	m := Mote{Life: 2}
	if a := m.Color().A; a != 0 {
		t.Errorf("alpha at birth = %f, want 0", a)
	}
	m.Lifetime = 1
	if a := m.Color().A; a != 1 {
		t.Errorf("alpha at half life = %f, want 1", a)
	}
}

func TestRandomHelpers(t *testing.T) {
	for _, seed := range []float32{0, 0.1, 0.5, 0.9, 0.999} {
		if l := RandomCircle(seed).Len(); math.Abs(float64(l-1)) > 1e-5 {
			t.Errorf("RandomCircle(%f) len = %f", seed, l)
		}
		if l := RandomSolidCircle(seed).Len(); l > 1+1e-5 {
			t.Errorf("RandomSolidCircle(%f) len = %f", seed, l)
		}
		if l := RandomSphere(seed).Len(); math.Abs(float64(l-1)) > 1e-4 {
			t.Errorf("RandomSphere(%f) len = %f", seed, l)
		}
		if l := RandomQuat(seed).Len(); math.Abs(float64(l-1)) > 1e-4 {
			t.Errorf("RandomQuat(%f) len = %f", seed, l)
		}
		dir := mgl32.Vec3{0, 1, 0}
		v := RandomCone(dir, 0.3, seed)
		if angle := math.Acos(float64(v.Dot(dir))); angle > 0.3+1e-3 {
			t.Errorf("RandomCone(%f) angle = %f, want <= 0.3", seed, angle)
		}
	}
	if SeedRNG(0.3).Int63() != SeedRNG(0.3).Int63() {
		t.Error("SeedRNG is not deterministic")
	}
}

func TestGrassIsStatic(t *testing.T) {
	b := (&GrassKind{Field: 50}).Build(0.6)
	before := b.Transform()
	b.Update(10)
	if !b.Transform().ApproxEqual(before, 0) || b.ExpirationState() != particle.Alive {
		t.Error("blade changed after update")
	}
	p := before.Translation
	if p.X() < -25 || p.X() > 25 || p.Z() < -25 || p.Z() > 25 {
		t.Errorf("blade at %v outside field", p)
	}
}

func TestFireworkHierarchy(t *testing.T) {
	sim := systems.NewSimulation(systems.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer sim.Close()

	rockets, err := systems.NewNode[Rocket](&RocketKind{Rate: 4, Fuse: 1, Lift: 4},
		systems.NodeConfig{Name: "rockets", Capacity: 16, WorldSpace: true, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	sparks, err := systems.NewNode[Spark](&SparkKind{Life: 0.5, Speed: 2, TrailFraction: 0.2},
		systems.NodeConfig{Name: "sparks", Capacity: 2048, WorldSpace: true, Seed: 2,
			Capabilities: systems.CapSubEmitter | systems.CapTrail,
			SubPolicy:    systems.NewRatePerParent(60)})
	if err != nil {
		t.Fatal(err)
	}
	shards, err := systems.NewNode[Shard](&ShardKind{Life: 1.5, Spread: 4},
		systems.NodeConfig{Name: "shards", Capacity: 1024, WorldSpace: true, Seed: 3,
			Capabilities: systems.CapEventEmitter,
			EventRule:    systems.BurstRule{particle.EventExploded: 12}})
	if err != nil {
		t.Fatal(err)
	}

	re := sim.Add(rockets)
	if err := sim.SetParent(sim.Add(sparks), re); err != nil {
		t.Fatal(err)
	}
	if err := sim.SetParent(sim.Add(shards), re); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 120; i++ {
		if err := sim.Tick(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}

	rs, ss, hs := rockets.Stats(), sparks.Stats(), shards.Stats()
	if rs.Exploded == 0 {
		t.Fatal("no rocket exploded in two seconds")
	}
	if ss.Spawned == 0 {
		t.Error("no sparks spawned")
	}
	if hs.Spawned != 12*rs.Exploded {
		t.Errorf("shards spawned = %d, want %d", hs.Spawned, 12*rs.Exploded)
	}
	if sparks.Trails().Len() == 0 && len(sparks.Trails().Detached()) == 0 {
		t.Error("no spark trails recorded")
	}
}
