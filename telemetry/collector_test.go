package telemetry

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/pthm-cable/sparks/kinds"
	"github.com/pthm-cable/sparks/systems"
)

func rocketNode(t *testing.T) *systems.Node {
	t.Helper()
	n, err := systems.NewNode[kinds.Rocket](&kinds.RocketKind{Rate: 10, Fuse: 100, Lift: 1},
		systems.NodeConfig{Name: "rockets", Capacity: 64, WorldSpace: true, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCollectorWindows(t *testing.T) {
	sim := systems.NewSimulation(systems.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	defer sim.Close()
	n := rocketNode(t)
	sim.Add(n)

	const dt = float32(0.1)
	c := NewCollector(3, dt)
	if got := c.WindowDurationTicks(); got != 30 {
		t.Fatalf("WindowDurationTicks = %d, want 30", got)
	}

	var windows [][]WindowStats
	for tick := int32(1); tick <= 60; tick++ {
		if err := sim.Tick(dt); err != nil {
			t.Fatal(err)
		}
		if c.ShouldFlush(tick) {
			windows = append(windows, c.Flush(tick, []*systems.Node{n}))
		}
	}

	if len(windows) != 2 {
		t.Fatalf("flushed %d windows, want 2", len(windows))
	}
	for i, w := range windows {
		if len(w) != 1 {
			t.Fatalf("window %d has %d nodes, want 1", i, len(w))
		}
		s := w[0]
		if s.Node != "rockets" {
			t.Errorf("window %d node = %q", i, s.Node)
		}
		// counters are per window, not cumulative
		if s.Spawned != 30 {
			t.Errorf("window %d spawned = %d, want 30", i, s.Spawned)
		}
		if math.Abs(s.SpawnRate-10) > 1e-3 {
			t.Errorf("window %d spawn rate = %f, want 10", i, s.SpawnRate)
		}
		if s.LifetimeP90 < s.LifetimeP10 || s.LifetimeMean <= 0 {
			t.Errorf("window %d lifetime distribution %+v looks wrong", i, s)
		}
	}

	last := windows[1][0]
	if last.Live != 60 || last.Capacity != 64 {
		t.Errorf("live/capacity = %d/%d, want 60/64", last.Live, last.Capacity)
	}
	if math.Abs(last.Fill-60.0/64) > 1e-9 {
		t.Errorf("fill = %f, want %f", last.Fill, 60.0/64)
	}
	if last.WindowStartTick != 30 || last.WindowEndTick != 60 {
		t.Errorf("window ticks = [%d, %d], want [30, 60]", last.WindowStartTick, last.WindowEndTick)
	}
}

func TestCollectorDiscardedResetsPerWindow(t *testing.T) {
	n := rocketNode(t)
	c := NewCollector(1, 1)

	c.RecordTrailsDiscarded("rockets", 3)
	c.RecordTrailsDiscarded("rockets", 2)
	if got := c.Flush(1, []*systems.Node{n})[0].TrailsDiscarded; got != 5 {
		t.Errorf("discarded = %d, want 5", got)
	}
	if got := c.Flush(2, []*systems.Node{n})[0].TrailsDiscarded; got != 0 {
		t.Errorf("discarded after flush = %d, want 0", got)
	}
}

func TestNewCollectorMinimumWindow(t *testing.T) {
	if got := NewCollector(0.01, 0.1).WindowDurationTicks(); got != 1 {
		t.Errorf("WindowDurationTicks = %d, want 1", got)
	}
	if got := NewCollector(1, 0).WindowDurationTicks(); got != 1 {
		t.Errorf("WindowDurationTicks with zero dt = %d, want 1", got)
	}
}
