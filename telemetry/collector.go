package telemetry

import (
	"math"

	"github.com/pthm-cable/sparks/systems"
)

// Collector turns the cumulative node counters into per-window deltas and
// samples live populations at window end.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32

	prev      map[string]systems.NodeStats
	discarded map[string]int
	lifetimes []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(1)
	if dt > 0 {
		ticksPerWindow = int32(math.Round(windowDurationSec / float64(dt)))
	}
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		prev:                make(map[string]systems.NodeStats),
		discarded:           make(map[string]int),
	}
}

// RecordTrailsDiscarded records detached trails dropped by the host.
func (c *Collector) RecordTrailsDiscarded(node string, n int) {
	c.discarded[node] += n
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces one WindowStats per node and starts the next window.
func (c *Collector) Flush(currentTick int32, nodes []*systems.Node) []WindowStats {
	windowSec := float64(currentTick-c.windowStartTick) * float64(c.dt)
	out := make([]WindowStats, 0, len(nodes))

	for _, n := range nodes {
		cur := n.Stats()
		prev := c.prev[n.Name()]
		c.prev[n.Name()] = cur

		view := n.View()
		c.lifetimes = c.lifetimes[:0]
		for i := 0; i < view.Len(); i++ {
			c.lifetimes = append(c.lifetimes, float64(view.At(i).Core().Lifetime))
		}
		dist := Summarize(c.lifetimes)

		s := WindowStats{
			WindowStartTick: c.windowStartTick,
			WindowEndTick:   currentTick,
			SimTimeSec:      float64(currentTick) * float64(c.dt),
			Node:            n.Name(),

			Live:     view.Len(),
			Capacity: n.Cap(),

			Spawned:       cur.Spawned - prev.Spawned,
			Overflow:      cur.Overflow - prev.Overflow,
			Evicted:       cur.Evicted - prev.Evicted,
			Removed:       cur.Removed - prev.Removed,
			Expired:       cur.Expired - prev.Expired,
			Exploded:      cur.Exploded - prev.Exploded,
			Collided:      cur.Collided - prev.Collided,
			ParentMissing: cur.ParentMissing - prev.ParentMissing,

			LifetimeMean: dist.Mean,
			LifetimeStd:  dist.Std,
			LifetimeP10:  dist.P10,
			LifetimeP50:  dist.P50,
			LifetimeP90:  dist.P90,

			TrailsDetached:  cur.Detached - prev.Detached,
			TrailsDiscarded: c.discarded[n.Name()],
		}
		if s.Capacity > 0 {
			s.Fill = float64(s.Live) / float64(s.Capacity)
		}
		if windowSec > 0 {
			s.SpawnRate = float64(s.Spawned) / windowSec
		}
		if tr := n.Trails(); tr != nil {
			s.Trails = tr.Len()
			s.DetachedTrails = len(tr.Detached())
		}
		out = append(out, s)
	}

	// Reset for next window
	c.windowStartTick = currentTick
	clear(c.discarded)

	return out
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
