package systems

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

func TestExplosionFeedsEventEmitter(t *testing.T) {
	sim := newTestSim(t)
	rocket := mustNode[dot](t, &dotKind{burst: 1, life: 1, explode: true, vel: mgl32.Vec3{0, 2, 0}},
		NodeConfig{Name: "rocket", Capacity: 4, WorldSpace: true})
	shards := mustNode[dot](t, &childKind{dotKind{life: 5}},
		NodeConfig{Name: "shards", Capacity: 16, Capabilities: CapEventEmitter,
			EventRule: BurstRule{particle.EventExploded: 3}})

	re := sim.Add(rocket)
	se := sim.Add(shards)
	if err := sim.SetParent(se, re); err != nil {
		t.Fatal(err)
	}

	mustTick(t, sim, 0.6) // spawn
	mustTick(t, sim, 0.6) // lifetime 0.6
	if rocket.Len() != 1 || len(rocket.Events()) != 0 {
		t.Fatalf("before explosion: len=%d events=%d", rocket.Len(), len(rocket.Events()))
	}

	mustTick(t, sim, 0.6) // lifetime 1.2, explodes
	events := rocket.Events()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Kind != particle.EventExploded {
		t.Errorf("event kind = %v, want exploded", events[0].Kind)
	}
	if rocket.Len() != 0 {
		t.Errorf("rocket len = %d, want 0", rocket.Len())
	}
	if shards.Len() != 3 {
		t.Fatalf("shards len = %d, want 3", shards.Len())
	}
	want := events[0].Transform.Translation
	view := shards.View()
	for i := 0; i < view.Len(); i++ {
		if got := view.At(i).Transform().Translation; !components.Vec3Near(got, want, 1e-5) {
			t.Errorf("shard %d at %v, want %v", i, got, want)
		}
	}

	st := rocket.Stats()
	if st.Exploded != 1 || st.Removed != 1 {
		t.Errorf("rocket stats = %+v", st)
	}
}

func TestSubEmitterSpawnsPerParent(t *testing.T) {
	tests := []struct {
		name         string
		capacity     int
		policy       SpawnPolicy
		wantLen      int
		wantOverflow uint64
	}{
		{"one per parent", 100, OnePerParent{}, 5, 0},
		{"three per parent", 100, PerParent{N: 3}, 15, 0},
		{"capacity limited", 3, OnePerParent{}, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSim(t)
			parent := mustNode[dot](t, &dotKind{burst: 5, life: 100},
				NodeConfig{Name: "parent", Capacity: 8})
			child := mustNode[dot](t, &childKind{dotKind{life: 100}},
				NodeConfig{Name: "child", Capacity: tt.capacity, Capabilities: CapSubEmitter, SubPolicy: tt.policy})
			pe := sim.Add(parent)
			ce := sim.Add(child)
			if err := sim.SetParent(ce, pe); err != nil {
				t.Fatal(err)
			}

			mustTick(t, sim, 0.1)
			if parent.Len() != 5 {
				t.Fatalf("parent len = %d, want 5", parent.Len())
			}
			if child.Len() != tt.wantLen {
				t.Errorf("child len = %d, want %d", child.Len(), tt.wantLen)
			}
			if got := child.Stats().Overflow; got != tt.wantOverflow {
				t.Errorf("overflow = %d, want %d", got, tt.wantOverflow)
			}
		})
	}
}

func TestSubEmitterKeepsSpawningEachTick(t *testing.T) {
	sim := newTestSim(t)
	parent := mustNode[dot](t, &dotKind{burst: 5, life: 100}, NodeConfig{Name: "parent", Capacity: 8})
	child := mustNode[dot](t, &childKind{dotKind{life: 100}}, NodeConfig{Name: "child", Capacity: 100, Capabilities: CapSubEmitter})
	pe, ce := sim.Add(parent), sim.Add(child)
	sim.SetParent(ce, pe)

	mustTick(t, sim, 0.1)
	before := child.Len()
	mustTick(t, sim, 0.1)
	if got := child.Len() - before; got != 5 {
		t.Errorf("child gained %d, want 5", got)
	}
}

func TestSubEmitterSeesParentInWorldSpace(t *testing.T) {
	at := mgl32.Vec3{10, 0, 0}
	tests := []struct {
		name       string
		worldSpace bool
	}{
		{"local-space parent", false},
		{"world-space parent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSim(t)
			parent := mustNode[dot](t, &dotKind{burst: 1, life: 100},
				NodeConfig{Name: "parent", Capacity: 1, WorldSpace: tt.worldSpace})
			parent.SetTransform(components.FromTranslation(at))
			child := mustNode[dot](t, &childKind{dotKind{life: 100}},
				NodeConfig{Name: "child", Capacity: 4, Capabilities: CapSubEmitter, WorldSpace: true})
			pe, ce := sim.Add(parent), sim.Add(child)
			sim.SetParent(ce, pe)

			mustTick(t, sim, 0.05)
			if child.Len() != 1 {
				t.Fatalf("child len = %d, want 1", child.Len())
			}
			parentWorld := parent.place(parent.View().At(0).Transform()).Translation
			if !components.Vec3Near(parentWorld, at, 1e-5) {
				t.Fatalf("parent drawn at %v, want %v", parentWorld, at)
			}
			if got := child.View().At(0).Transform().Translation; !components.Vec3Near(got, at, 1e-5) {
				t.Errorf("child spawned at %v, want %v", got, at)
			}
		})
	}
}

func TestUpdaterRunsBeforeCompaction(t *testing.T) {
	sim := newTestSim(t)
	k := &watchKind{dotKind: dotKind{burst: 2, life: 0.15}}
	n := mustNode[dot](t, k, NodeConfig{Name: "n", Capacity: 4})
	sim.Add(n)

	wantLens := []int{0, 2, 2}
	for i, want := range wantLens {
		mustTick(t, sim, 0.1)
		if k.lastLen != want {
			t.Errorf("tick %d: OnUpdate saw %d particles, want %d", i, k.lastLen, want)
		}
	}
	if k.calls != 3 || k.lastDt != 0.1 {
		t.Errorf("calls = %d, dt = %f; want 3, 0.1", k.calls, k.lastDt)
	}
	if n.Len() != 0 {
		t.Errorf("len = %d after expiry, want 0", n.Len())
	}
}

func TestBufferStrategies(t *testing.T) {
	tests := []struct {
		name         string
		strategy     BufferStrategy
		wantOverflow uint64
		wantEvicted  uint64
		wantDetached uint64
	}{
		{"retain drops", Retain, 1, 0, 0},
		{"ring evicts oldest", Ring, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSim(t)
			n := mustNode[dot](t, &dotKind{perStep: 1, life: 100, vel: mgl32.Vec3{1, 0, 0}},
				NodeConfig{Name: "n", Capacity: 2, Capabilities: CapBase | CapTrail, Strategy: tt.strategy})
			sim.Add(n)
			if n.Strategy() != tt.strategy {
				t.Errorf("Strategy = %v, want %v", n.Strategy(), tt.strategy)
			}

			// the third spawn finds the buffer full
			for i := 0; i < 3; i++ {
				mustTick(t, sim, 0.1)
			}

			st := n.Stats()
			if n.Len() != 2 {
				t.Errorf("len = %d, want 2", n.Len())
			}
			if st.Overflow != tt.wantOverflow || st.Evicted != tt.wantEvicted || st.Detached != tt.wantDetached {
				t.Errorf("overflow=%d evicted=%d detached=%d, want %d %d %d",
					st.Overflow, st.Evicted, st.Detached, tt.wantOverflow, tt.wantEvicted, tt.wantDetached)
			}
			if len(n.Events()) != 0 {
				t.Errorf("eviction logged %d events", len(n.Events()))
			}
			if tt.strategy == Ring {
				d := n.Trails().Detached()
				if len(d) != 1 || len(d[0].Path) != 2 {
					t.Errorf("detached = %+v, want one trail of 2 samples", d)
				}
			}
		})
	}
}

func TestTrailDetachedOnExpiry(t *testing.T) {
	sim := newTestSim(t)
	n := mustNode[dot](t, &dotKind{burst: 1, life: 2.5, vel: mgl32.Vec3{1, 0, 0}},
		NodeConfig{Name: "trail", Capacity: 4, Capabilities: CapBase | CapTrail, WorldSpace: true})
	sim.Add(n)

	mustTick(t, sim, 1) // spawn
	id := n.View().At(0).Core().ID
	mustTick(t, sim, 1) // x=1
	mustTick(t, sim, 1) // x=2
	if s, ok := n.Trails().State(id); !ok || s.Len() != 2 {
		t.Fatalf("live trail missing or wrong length")
	}
	mustTick(t, sim, 1) // x=3, expires

	if n.Len() != 0 {
		t.Fatalf("len = %d, want 0", n.Len())
	}
	if _, ok := n.Trails().State(id); ok {
		t.Error("trail state still present after detach")
	}
	detached := n.Trails().Detached()
	if len(detached) != 1 {
		t.Fatalf("detached = %d, want 1", len(detached))
	}
	d := detached[0]
	if d.ID != id {
		t.Errorf("detached id = %d, want %d", d.ID, id)
	}
	want := []float32{1, 2, 3}
	if len(d.Path) != len(want) {
		t.Fatalf("path len = %d, want %d", len(d.Path), len(want))
	}
	for i, x := range want {
		if got := d.Path[i].Translation.X(); got != x {
			t.Errorf("path[%d].x = %f, want %f", i, got, x)
		}
	}
	if n.Stats().Detached != 1 {
		t.Errorf("Detached stat = %d, want 1", n.Stats().Detached)
	}
}

func TestTrailBearingAndDetachSlice(t *testing.T) {
	tests := []struct {
		name     string
		bearing  bool
		wantPath int
	}{
		{"bearing", true, 2},
		{"not bearing", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSim(t)
			n := mustNode[streak](t, &streakKind{burst: 1, life: 2.5, bearing: tt.bearing},
				NodeConfig{Name: "streak", Capacity: 2, Capabilities: CapBase | CapTrail})
			sim.Add(n)
			for i := 0; i < 4; i++ {
				mustTick(t, sim, 1)
			}

			detached := n.Trails().Detached()
			if tt.wantPath == 0 {
				if len(detached) != 0 {
					t.Errorf("detached = %d, want 0", len(detached))
				}
				return
			}
			if len(detached) != 1 || len(detached[0].Path) != tt.wantPath {
				t.Fatalf("detached = %+v", detached)
			}
			if x := detached[0].Path[0].Translation.X(); x != 2 {
				t.Errorf("first kept sample x = %f, want 2", x)
			}
		})
	}
}

func TestCapacityZeroNode(t *testing.T) {
	sim := newTestSim(t)
	n := mustNode[dot](t, &dotKind{burst: 3, life: 1}, NodeConfig{Name: "empty", Capacity: 0})
	sim.Add(n)

	mustTick(t, sim, 0.1)
	mustTick(t, sim, 0.1)

	if n.Len() != 0 {
		t.Errorf("len = %d, want 0", n.Len())
	}
	st := n.Stats()
	if st.Overflow != 3 || st.Spawned != 0 {
		t.Errorf("stats = %+v, want overflow 3 spawned 0", st)
	}
	if st.Frames != 2 {
		t.Errorf("frames = %d, want 2", st.Frames)
	}
}

func TestDestroyedParent(t *testing.T) {
	sim := newTestSim(t)
	parent := mustNode[dot](t, &dotKind{burst: 4, life: 100}, NodeConfig{Name: "parent", Capacity: 8})
	child := mustNode[dot](t, &childKind{dotKind{burst: 2, life: 100}},
		NodeConfig{Name: "child", Capacity: 64, Capabilities: CapBase | CapSubEmitter})
	pe, ce := sim.Add(parent), sim.Add(child)
	if err := sim.SetParent(ce, pe); err != nil {
		t.Fatal(err)
	}

	mustTick(t, sim, 0.5)
	spawned := child.Stats().Spawned
	lifetimes := make(map[uint32]float32)
	view := child.View()
	for i := 0; i < view.Len(); i++ {
		c := view.At(i).Core()
		lifetimes[c.ID] = c.Lifetime
	}

	if !sim.Remove(pe) {
		t.Fatal("Remove returned false")
	}
	if err := sim.Tick(0.5); err != nil {
		t.Fatalf("Tick after parent removal: %v", err)
	}

	st := child.Stats()
	if st.ParentMissing != 1 {
		t.Errorf("ParentMissing = %d, want 1", st.ParentMissing)
	}
	if st.Spawned != spawned {
		t.Errorf("spawned %d from a missing parent", st.Spawned-spawned)
	}
	view = child.View()
	for i := 0; i < view.Len(); i++ {
		c := view.At(i).Core()
		if c.Lifetime != lifetimes[c.ID]+0.5 {
			t.Errorf("id %d lifetime = %f, want %f", c.ID, c.Lifetime, lifetimes[c.ID]+0.5)
		}
	}
}

func TestInvalidCapability(t *testing.T) {
	tests := []struct {
		name string
		caps Capability
	}{
		{"sub", CapSubEmitter},
		{"event", CapEventEmitter},
		{"base and event", CapBase | CapEventEmitter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNode[dot](&dotKind{}, NodeConfig{Name: "bad", Capacity: 1, Capabilities: tt.caps})
			if !errors.Is(err, ErrInvalidCapability) {
				t.Errorf("err = %v, want ErrInvalidCapability", err)
			}
		})
	}
}

func TestEventsClearedOncePerFrameAndSharedByChildren(t *testing.T) {
	sim := newTestSim(t)
	parent := mustNode[dot](t, &dotKind{perStep: 2, life: 0.5, explode: true},
		NodeConfig{Name: "parent", Capacity: 64})
	a := mustNode[dot](t, &childKind{dotKind{life: 100}},
		NodeConfig{Name: "a", Capacity: 256, Capabilities: CapEventEmitter})
	b := mustNode[dot](t, &childKind{dotKind{life: 100}},
		NodeConfig{Name: "b", Capacity: 256, Capabilities: CapEventEmitter})
	pe := sim.Add(parent)
	sim.SetParent(sim.Add(a), pe)
	sim.SetParent(sim.Add(b), pe)

	for i := 0; i < 5; i++ {
		mustTick(t, sim, 1)
	}

	if got := parent.EventBuffer().Cleared(); got != 5 {
		t.Errorf("Cleared = %d, want 5", got)
	}
	if a.Len() != b.Len() || a.Len() == 0 {
		t.Errorf("children saw different events: a=%d b=%d", a.Len(), b.Len())
	}
	if uint64(a.Len()) != parent.Stats().Exploded {
		t.Errorf("a len = %d, want %d", a.Len(), parent.Stats().Exploded)
	}
}

func TestRecordExpiredPolicy(t *testing.T) {
	tests := []struct {
		name   string
		record bool
		want   int
	}{
		{"recorded", true, 1},
		{"ignored", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newTestSim(t)
			n := mustNode[dot](t, &dotKind{burst: 1, life: 0.5},
				NodeConfig{Name: "n", Capacity: 1, Events: EventPolicy{RecordExpired: tt.record}})
			sim.Add(n)
			mustTick(t, sim, 1)
			mustTick(t, sim, 1)
			if got := len(n.Events()); got != tt.want {
				t.Errorf("events = %d, want %d", got, tt.want)
			}
			if n.Stats().Expired != 1 {
				t.Errorf("Expired = %d, want 1", n.Stats().Expired)
			}
		})
	}
}

func TestCollisionEventsKeepParticle(t *testing.T) {
	sim := newTestSim(t)
	n := mustNode[bumper](t, &bumperKind{burst: 2}, NodeConfig{Name: "bumpers", Capacity: 2})
	sim.Add(n)

	mustTick(t, sim, 0.6)
	mustTick(t, sim, 0.6)
	if len(n.Events()) != 0 {
		t.Fatalf("events before collision = %d", len(n.Events()))
	}
	mustTick(t, sim, 0.6)

	events := n.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	for _, ev := range events {
		if ev.Kind != particle.EventCollided {
			t.Errorf("event kind = %v, want collided", ev.Kind)
		}
	}
	if n.Len() != 2 {
		t.Errorf("len = %d, want 2", n.Len())
	}
	if n.Stats().Collided != 2 {
		t.Errorf("Collided = %d, want 2", n.Stats().Collided)
	}
}

func TestNegativeDtKeepsLifetime(t *testing.T) {
	sim := newTestSim(t)
	n := mustNode[dot](t, &dotKind{burst: 1, life: 100}, NodeConfig{Name: "n", Capacity: 1})
	sim.Add(n)
	mustTick(t, sim, 0.1)
	mustTick(t, sim, 0.5)
	mustTick(t, sim, -2)

	if got := n.View().At(0).Core().Lifetime; got != 0.5 {
		t.Errorf("lifetime = %f, want 0.5", got)
	}
}

func TestSetTransformMovesOrigin(t *testing.T) {
	k := &dotKind{burst: 1, life: 10}
	n := mustNode[dot](t, k, NodeConfig{Name: "n", Capacity: 1, WorldSpace: true})
	n.SetTransform(n.Transform().WithTranslation(mgl32.Vec3{4, 5, 6}))
	if k.origin != (mgl32.Vec3{4, 5, 6}) {
		t.Errorf("origin = %v, want (4, 5, 6)", k.origin)
	}
}

func TestCapabilityString(t *testing.T) {
	if got := (CapBase | CapTrail).String(); got != "base|trail" {
		t.Errorf("String = %q, want base|trail", got)
	}
	if got := Capability(0).String(); got != "none" {
		t.Errorf("String = %q, want none", got)
	}
}
