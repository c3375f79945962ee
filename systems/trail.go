package systems

import (
	"maps"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// TrailConfig bounds trail history. MaxSamples <= 0 keeps every sample.
type TrailConfig struct {
	MaxSamples int
}

// TrailState is the recorded path of one live particle.
type TrailState struct {
	ID   uint32
	Seed float32

	samples []components.Transform
	ring    *particle.Ring[components.Transform]
}

func (s *TrailState) push(t components.Transform) {
	if s.ring != nil {
		s.ring.Push(t)
		return
	}
	s.samples = append(s.samples, t)
}

// Len returns the number of samples.
func (s *TrailState) Len() int {
	if s.ring != nil {
		return s.ring.Len()
	}
	return len(s.samples)
}

// AppendTo appends the samples, oldest first, to dst.
func (s *TrailState) AppendTo(dst []components.Transform) []components.Transform {
	if s.ring != nil {
		return s.ring.AppendTo(dst)
	}
	return append(dst, s.samples...)
}

// DetachedTrail is the path a particle left behind when it was removed.
// It owns its samples and is independent of the freed particle slot.
type DetachedTrail struct {
	ID         uint32
	Seed       float32
	Path       []components.Transform
	DetachedAt float64 // recorder clock, seconds
}

// TrailRecorder keeps per-particle trail history for one node.
// It is driven by the node's tick and must not be mutated concurrently.
type TrailRecorder struct {
	cfg      TrailConfig
	states   map[uint32]*TrailState
	detached []DetachedTrail
	scratch  []components.Transform
	clock    float64
}

// NewTrailRecorder creates an empty recorder.
func NewTrailRecorder(cfg TrailConfig) *TrailRecorder {
	return &TrailRecorder{
		cfg:    cfg,
		states: make(map[uint32]*TrailState),
	}
}

func (r *TrailRecorder) advance(dt float32) {
	r.clock += float64(dt)
}

// Clock returns the accumulated time in seconds.
func (r *TrailRecorder) Clock() float64 { return r.clock }

// Sample appends t to the history of id, creating it if needed.
func (r *TrailRecorder) Sample(id uint32, seed float32, t components.Transform) {
	s, ok := r.states[id]
	if !ok {
		s = &TrailState{ID: id, Seed: seed}
		if r.cfg.MaxSamples > 0 {
			s.ring = particle.NewRing[components.Transform](r.cfg.MaxSamples)
		}
		r.states[id] = s
	}
	s.push(t)
}

// History returns the samples of id, oldest first, or nil if none were
// recorded. The slice is reused by the next call.
func (r *TrailRecorder) History(id uint32) []components.Transform {
	s, ok := r.states[id]
	if !ok {
		return nil
	}
	r.scratch = s.AppendTo(r.scratch[:0])
	return r.scratch
}

// Detach copies path into a DetachedTrail and forgets the state of id.
// It reports false when id had no recorded state.
func (r *TrailRecorder) Detach(id uint32, seed float32, path []components.Transform) bool {
	if _, ok := r.states[id]; !ok {
		return false
	}
	delete(r.states, id)
	if len(path) == 0 {
		return false
	}
	owned := make([]components.Transform, len(path))
	copy(owned, path)
	r.detached = append(r.detached, DetachedTrail{
		ID:         id,
		Seed:       seed,
		Path:       owned,
		DetachedAt: r.clock,
	})
	return true
}

// State returns the live trail of id.
func (r *TrailRecorder) State(id uint32) (*TrailState, bool) {
	s, ok := r.states[id]
	return s, ok
}

// Len returns the number of live trails.
func (r *TrailRecorder) Len() int { return len(r.states) }

// Detached returns the detached trails still held by the recorder.
func (r *TrailRecorder) Detached() []DetachedTrail { return r.detached }

// DrainDetached hands every detached trail to the caller.
func (r *TrailRecorder) DrainDetached() []DetachedTrail {
	out := r.detached
	r.detached = nil
	return out
}

// DiscardDetached drops detached trails for which keep returns false and
// returns how many were dropped.
func (r *TrailRecorder) DiscardDetached(keep func(DetachedTrail) bool) int {
	kept := r.detached[:0]
	for _, d := range r.detached {
		if keep(d) {
			kept = append(kept, d)
		}
	}
	dropped := len(r.detached) - len(kept)
	clear(r.detached[len(kept):])
	r.detached = kept
	return dropped
}

// DiscardOlderThan drops detached trails older than ttl seconds.
func (r *TrailRecorder) DiscardOlderThan(ttl float64) int {
	now := r.clock
	return r.DiscardDetached(func(d DetachedTrail) bool {
		return now-d.DetachedAt <= ttl
	})
}

// TrailMesh is plane-strip geometry for trails. Every sample yields two
// vertices at the same position; the shader pushes them apart along
// Normals, which hold the signed tangent.
type TrailMesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UV0       []mgl32.Vec2 // x along the trail, y across it
	UV1       []mgl32.Vec2 // width
	Indices   []uint32
}

// Reset empties the mesh, keeping its storage.
func (m *TrailMesh) Reset() {
	m.Positions = m.Positions[:0]
	m.Normals = m.Normals[:0]
	m.UV0 = m.UV0[:0]
	m.UV1 = m.UV1[:0]
	m.Indices = m.Indices[:0]
}

// Vertices returns the vertex count.
func (m *TrailMesh) Vertices() int { return len(m.Positions) }

// AppendPath adds one strip. Paths with fewer than two samples are skipped.
func (m *TrailMesh) AppendPath(path []components.Transform, width float32) {
	n := len(path)
	if n < 2 {
		return
	}

	origin := uint32(len(m.Positions))
	for i := 0; i < n-1; i++ {
		v := origin + uint32(i*2)
		m.Indices = append(m.Indices, v, v+1, v+2, v+1, v+3, v+2)
	}

	du := 1 / float32(n-1)
	for i, t := range path {
		p := t.Translation
		m.Positions = append(m.Positions, p, p)

		prev, next := i-1, i+1
		if prev < 0 {
			prev = 0
		}
		if next >= n {
			next = n - 1
		}
		tan := direction(path[prev].Translation, path[next].Translation)
		m.Normals = append(m.Normals, tan.Mul(-1), tan)

		u := float32(i) * du
		m.UV0 = append(m.UV0, mgl32.Vec2{u, 0}, mgl32.Vec2{u, 1})
		m.UV1 = append(m.UV1, mgl32.Vec2{width, width}, mgl32.Vec2{width, width})
	}
}

func direction(from, to mgl32.Vec3) mgl32.Vec3 {
	d := to.Sub(from)
	if d.Len() < 1e-6 {
		return mgl32.Vec3{}
	}
	return d.Normalize()
}

// BuildTrailMesh rebuilds mesh from the live and detached trails of n.
// Nodes without CapTrail produce an empty mesh.
func BuildTrailMesh(n *Node, mesh *TrailMesh, width float32) {
	mesh.Reset()
	rec := n.Trails()
	if rec == nil {
		return
	}
	for _, id := range slices.Sorted(maps.Keys(rec.states)) {
		rec.scratch = rec.states[id].AppendTo(rec.scratch[:0])
		mesh.AppendPath(rec.scratch, width)
	}
	for _, d := range rec.detached {
		mesh.AppendPath(d.Path, width)
	}
}
