package systems

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mlange-42/ark/ecs"
)

func TestCycleRefusesToTick(t *testing.T) {
	sim := newTestSim(t)
	a := mustNode[dot](t, &childKind{dotKind{burst: 1, life: 10}}, NodeConfig{Name: "a", Capacity: 4, Capabilities: CapBase | CapSubEmitter})
	b := mustNode[dot](t, &childKind{dotKind{burst: 1, life: 10}}, NodeConfig{Name: "b", Capacity: 4, Capabilities: CapBase | CapSubEmitter})
	ae, be := sim.Add(a), sim.Add(b)
	sim.SetParent(ae, be)
	sim.SetParent(be, ae)

	err := sim.Tick(0.1)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("Tick err = %v, want ErrCycleDetected", err)
	}
	if a.Stats().Frames != 0 || b.Stats().Frames != 0 {
		t.Error("nodes ticked despite cycle")
	}
	// still refused without topology changes
	if err := sim.Tick(0.1); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("second Tick err = %v, want ErrCycleDetected", err)
	}

	sim.ClearParent(ae)
	mustTick(t, sim, 0.1)
	if a.Stats().Frames != 1 || b.Stats().Frames != 1 {
		t.Errorf("frames after breaking cycle: a=%d b=%d", a.Stats().Frames, b.Stats().Frames)
	}
}

func TestSelfParentIsCycle(t *testing.T) {
	sim := newTestSim(t)
	n := mustNode[dot](t, &childKind{dotKind{life: 1}}, NodeConfig{Name: "self", Capacity: 1, Capabilities: CapSubEmitter})
	e := sim.Add(n)
	if err := sim.SetParent(e, e); err != nil {
		t.Fatal(err)
	}
	if err := sim.Build(); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("Build err = %v, want ErrCycleDetected", err)
	}
}

func TestBuildLevels(t *testing.T) {
	sim := newTestSim(t)
	add := func(name string, caps Capability) ecs.Entity {
		return sim.Add(mustNode[dot](t, &childKind{dotKind{life: 1}}, NodeConfig{Name: name, Capacity: 1, Capabilities: caps}))
	}
	// registered child-first to check that order comes from the graph
	leaf := add("leaf", CapSubEmitter)
	mid := add("mid", CapSubEmitter)
	root := add("root", CapBase)
	add("other", CapBase)
	sim.SetParent(leaf, mid)
	sim.SetParent(mid, root)

	if err := sim.Build(); err != nil {
		t.Fatal(err)
	}
	got := sim.Order()
	want := [][]string{{"root", "other"}, {"mid"}, {"leaf"}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestRegistryHandles(t *testing.T) {
	sim := newTestSim(t)
	n := mustNode[dot](t, &dotKind{}, NodeConfig{Name: "n", Capacity: 1})
	e := sim.Add(n)

	if got, ok := sim.Node(e); !ok || got != n {
		t.Fatal("Node did not resolve a live handle")
	}
	if sim.Len() != 1 {
		t.Errorf("Len = %d, want 1", sim.Len())
	}
	if !sim.Remove(e) {
		t.Fatal("Remove returned false")
	}
	if sim.Remove(e) {
		t.Error("second Remove returned true")
	}
	if _, ok := sim.Node(e); ok {
		t.Error("Node resolved a removed handle")
	}
	if sim.Len() != 0 {
		t.Errorf("Len = %d, want 0", sim.Len())
	}

	other := sim.Add(mustNode[dot](t, &dotKind{}, NodeConfig{Name: "other", Capacity: 1}))
	if err := sim.SetParent(other, e); !errors.Is(err, ErrParentMissing) {
		t.Errorf("SetParent to removed node err = %v, want ErrParentMissing", err)
	}
	if err := sim.SetParent(e, other); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("SetParent on removed node err = %v, want ErrUnknownNode", err)
	}
}

// buildForest registers roots parents, each with a sub-emitter and an
// event-emitter child.
func buildForest(t *testing.T, sim *Simulation, roots int) []*Node {
	var nodes []*Node
	for i := 0; i < roots; i++ {
		p := mustNode[dot](t, &dotKind{perStep: 40, life: 0.35, explode: i%2 == 0},
			NodeConfig{Name: fmt.Sprintf("p%d", i), Capacity: 512, Seed: int64(i)})
		s := mustNode[dot](t, &childKind{dotKind{life: 0.2}},
			NodeConfig{Name: fmt.Sprintf("s%d", i), Capacity: 1024, Capabilities: CapSubEmitter, Seed: int64(100 + i)})
		e := mustNode[dot](t, &childKind{dotKind{life: 0.5}},
			NodeConfig{Name: fmt.Sprintf("e%d", i), Capacity: 1024, Capabilities: CapEventEmitter, Seed: int64(200 + i)})
		pe := sim.Add(p)
		sim.SetParent(sim.Add(s), pe)
		sim.SetParent(sim.Add(e), pe)
		nodes = append(nodes, p, s, e)
	}
	return nodes
}

func TestParallelMatchesSequential(t *testing.T) {
	seq := newTestSim(t, WithWorkers(1))
	par := newTestSim(t, WithWorkers(4), WithParallelThreshold(0))
	seqNodes := buildForest(t, seq, 6)
	parNodes := buildForest(t, par, 6)

	for i := 0; i < 30; i++ {
		mustTick(t, seq, 0.05)
		mustTick(t, par, 0.05)
	}

	for i := range seqNodes {
		s, p := seqNodes[i], parNodes[i]
		if s.Len() != p.Len() {
			t.Errorf("%s: len sequential=%d parallel=%d", s.Name(), s.Len(), p.Len())
		}
		if s.Stats() != p.Stats() {
			t.Errorf("%s: stats sequential=%+v parallel=%+v", s.Name(), s.Stats(), p.Stats())
		}
	}
	if par.Frame() != 30 {
		t.Errorf("Frame = %d, want 30", par.Frame())
	}
}

func TestRemovedHandleIsNotAlive(t *testing.T) {
	sim := newTestSim(t)
	e := sim.Add(mustNode[dot](t, &dotKind{}, NodeConfig{Name: "n", Capacity: 1}))
	if !sim.alive(e) {
		t.Fatal("fresh handle not alive")
	}
	sim.Remove(e)
	if sim.alive(e) {
		t.Error("removed handle still alive")
	}
	if sim.alive(ecs.Entity{}) {
		t.Error("zero handle alive")
	}
}

func TestAllNodesIdleAtFrameStart(t *testing.T) {
	sim := newTestSim(t)
	child := mustNode[dot](t, &childKind{dotKind{life: 100}},
		NodeConfig{Name: "child", Capacity: 4, Capabilities: CapSubEmitter})
	root := &watchKind{dotKind: dotKind{burst: 1, life: 100}, watch: child}
	re := sim.Add(mustNode[dot](t, root, NodeConfig{Name: "root", Capacity: 4}))
	sim.SetParent(sim.Add(child), re)

	mustTick(t, sim, 0.1)
	mustTick(t, sim, 0.1)

	if len(root.seen) != 2 {
		t.Fatalf("observed %d frames, want 2", len(root.seen))
	}
	for i, s := range root.seen {
		if s != Idle {
			t.Errorf("frame %d: child state during root tick = %v, want idle", i, s)
		}
	}
	if child.State() != Compacted {
		t.Errorf("child state after tick = %v, want compacted", child.State())
	}
}

func TestTickLeavesNodesCompacted(t *testing.T) {
	sim := newTestSim(t)
	n := mustNode[dot](t, &dotKind{burst: 1, life: 1}, NodeConfig{Name: "n", Capacity: 1})
	if n.State() != Idle {
		t.Errorf("initial state = %v, want idle", n.State())
	}
	sim.Add(n)
	mustTick(t, sim, 0.1)
	if n.State() != Compacted {
		t.Errorf("state = %v, want compacted", n.State())
	}
}
