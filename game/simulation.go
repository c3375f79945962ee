package game

import (
	"errors"

	"github.com/pthm-cable/sparks/stream"
	"github.com/pthm-cable/sparks/systems"
	"github.com/pthm-cable/sparks/telemetry"
)

// step advances the simulation by one tick. Rows are encoded when encode
// is set or a stream is open, since stream clients see every tick.
func (g *Game) step(dt float32, encode bool) {
	if g.err != nil {
		return
	}

	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseTick)
	if err := g.sim.Tick(dt); err != nil {
		g.err = err
		g.log.Error("simulation stopped", "tick", g.tick, "error", err)
		g.perfCollector.EndTick()
		return
	}
	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTrails)
	g.discardTrails()

	if encode || g.stream != nil {
		g.perfCollector.StartPhase(telemetry.PhaseEncode)
		g.encodeRefs()
	}

	if g.stream != nil {
		g.perfCollector.StartPhase(telemetry.PhaseStream)
		g.broadcast()
	}

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// discardTrails drops detached trails older than the configured TTL.
func (g *Game) discardTrails() {
	ttl := g.cfg.Trails.DetachedTTL
	if ttl <= 0 {
		return
	}
	for _, n := range g.nodes {
		tr := n.Trails()
		if tr == nil {
			continue
		}
		if dropped := tr.DiscardOlderThan(ttl); dropped > 0 {
			g.collector.RecordTrailsDiscarded(n.Name(), dropped)
		}
	}
}

// encodeRefs re-encodes every ref. A ref whose node is gone yields no rows.
func (g *Game) encodeRefs() {
	rot := g.camera.Billboard()
	for _, r := range g.refs {
		ref := r.ref
		ref.Policy.BillboardRotation = rot
		ref.Policy.Billboard = ref.Policy.Billboard && g.billboard
		rows, err := ref.Resolve(g.sim, r.rows[:0])
		switch {
		case err == nil:
			r.rows = rows
		case errors.Is(err, systems.ErrParentMissing):
			r.rows = r.rows[:0]
		default:
			g.log.Warn("failed to encode ref", "ref", r.ref.Name, "error", err)
			r.rows = r.rows[:0]
		}
	}
}

// broadcast sends the current rows of every ref to stream clients.
func (g *Game) broadcast() {
	if g.stream.Len() == 0 {
		return
	}
	g.frameRefs = g.frameRefs[:0]
	for _, r := range g.refs {
		g.frameRefs = append(g.frameRefs, stream.RefRows{Name: r.ref.Name, Rows: r.rows})
	}
	g.frameBuf = stream.AppendFrame(g.frameBuf[:0], uint64(g.tick), g.frameRefs)
	g.stream.Broadcast(g.frameBuf)
}

// UpdateHeadless advances the simulation without any raylib calls.
func (g *Game) UpdateHeadless() {
	if g.paused {
		return
	}
	dt := g.cfg.Derived.DT32
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.step(dt, g.encodeRows)
	}
}

// Update handles input, then advances the camera and the simulation. Rows
// are encoded on the last step only.
func (g *Game) Update() {
	g.handleInput()
	g.camera.Update(frameTime())

	if g.paused {
		return
	}
	dt := g.cfg.Derived.DT32 * g.timeScale
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.step(dt, i == g.stepsPerUpdate-1)
	}
}
