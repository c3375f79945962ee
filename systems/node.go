package systems

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/particle"
)

// Capability flags declared when a node is created.
type Capability uint8

const (
	CapBase         Capability = 1 << iota // emits on its own via Kind.SpawnStep
	CapSubEmitter                          // spawns from live parent particles
	CapEventEmitter                        // spawns from parent events
	CapTrail                               // records trail history
)

// Has reports whether all flags in f are set.
func (c Capability) Has(f Capability) bool { return c&f == f }

func (c Capability) String() string {
	var parts []string
	if c.Has(CapBase) {
		parts = append(parts, "base")
	}
	if c.Has(CapSubEmitter) {
		parts = append(parts, "sub")
	}
	if c.Has(CapEventEmitter) {
		parts = append(parts, "event")
	}
	if c.Has(CapTrail) {
		parts = append(parts, "trail")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// NodeState tracks a node through a frame.
type NodeState uint8

const (
	Idle NodeState = iota
	Ticking
	Compacted
)

func (s NodeState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ticking:
		return "ticking"
	case Compacted:
		return "compacted"
	}
	return "unknown"
}

// BufferStrategy decides what happens when a full node spawns.
type BufferStrategy uint8

const (
	// Retain drops spawns that do not fit.
	Retain BufferStrategy = iota
	// Ring evicts the oldest live particle to make room. Suited to kinds
	// with a constant lifetime and a well sized capacity.
	Ring
)

func (s BufferStrategy) String() string {
	switch s {
	case Retain:
		return "retain"
	case Ring:
		return "ring"
	}
	return "unknown"
}

// NodeConfig configures a node at construction.
type NodeConfig struct {
	Name         string
	Capacity     int
	Capabilities Capability // zero means CapBase
	Strategy     BufferStrategy

	SubPolicy SpawnPolicy // default OnePerParent
	EventRule EventRule   // default one child per event
	Events    EventPolicy

	// WorldSpace nodes store particle transforms in world space. Other
	// nodes are placed by the emitter transform when encoded.
	WorldSpace bool
	Trail      TrailConfig
	Seed       int64
}

// NodeStats holds cumulative counters.
type NodeStats struct {
	Spawned       uint64
	Overflow      uint64
	Evicted       uint64
	Removed       uint64
	Expired       uint64
	Exploded      uint64
	Collided      uint64
	ParentMissing uint64
	Detached      uint64
	Frames        uint64
}

// Node owns one particle buffer and its event log. It hides the concrete
// particle type behind a runner so heterogeneous nodes can be driven
// together.
type Node struct {
	name       string
	kindName   string
	caps       Capability
	worldSpace bool
	transform  components.Transform

	events particle.EventBuffer
	trails *TrailRecorder
	run    runner

	state NodeState
	stats NodeStats
	log   *slog.Logger
}

type runner interface {
	tick(n *Node, parent *Node, dt float32)
	view() particle.View
	capacity() int
	setOrigin(t components.Transform)
	ring() bool
}

// NewNode creates a node for kind. Declaring CapSubEmitter or
// CapEventEmitter on a kind that cannot build from a parent fails with
// ErrInvalidCapability.
func NewNode[T any, P particle.Ptr[T]](kind particle.Kind[T], cfg NodeConfig) (*Node, error) {
	caps := cfg.Capabilities
	if caps == 0 {
		caps = CapBase
	}
	name := cfg.Name
	if name == "" {
		name = kind.Name()
	}

	r := &nodeRunner[T, P]{
		kind:        kind,
		buf:         particle.NewBuffer[T, P](cfg.Capacity),
		subPolicy:   cfg.SubPolicy,
		eventRule:   cfg.EventRule,
		eventPolicy: cfg.Events,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		overwrite:   cfg.Strategy == Ring,
	}
	r.updater, _ = any(kind).(particle.Updater)
	if caps.Has(CapSubEmitter) {
		sub, ok := particle.AsSubEmitter(kind)
		if !ok {
			return nil, fmt.Errorf("%w: node %q: kind %q cannot spawn from parent particles", ErrInvalidCapability, name, kind.Name())
		}
		r.sub = sub
		if r.subPolicy == nil {
			r.subPolicy = OnePerParent{}
		}
	}
	if caps.Has(CapEventEmitter) {
		ev, ok := particle.AsEventEmitter(kind)
		if !ok {
			return nil, fmt.Errorf("%w: node %q: kind %q cannot spawn from events", ErrInvalidCapability, name, kind.Name())
		}
		r.ev = ev
		if r.eventRule == nil {
			r.eventRule = EventRuleFunc(func(particle.Event) int { return 1 })
		}
	}

	sample := P(new(T))
	_, r.collides = any(sample).(particle.Collider)
	_, r.trailed = any(sample).(particle.Trailed)

	n := &Node{
		name:       name,
		kindName:   kind.Name(),
		caps:       caps,
		worldSpace: cfg.WorldSpace,
		transform:  components.Identity(),
		run:        r,
		log:        slog.Default().With("node", name),
	}
	if caps.Has(CapTrail) {
		n.trails = NewTrailRecorder(cfg.Trail)
	}
	r.onEvict = func(p P) { r.evict(n, p) }
	return n, nil
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// KindName returns the name of the node's kind.
func (n *Node) KindName() string { return n.kindName }

// Capabilities returns the declared capabilities.
func (n *Node) Capabilities() Capability { return n.caps }

// State returns where the node is in the current frame.
func (n *Node) State() NodeState { return n.state }

// Len returns the number of live particles.
func (n *Node) Len() int { return n.run.view().Len() }

// Cap returns the buffer capacity.
func (n *Node) Cap() int { return n.run.capacity() }

// View gives read access to the live particles. Valid until the next tick.
func (n *Node) View() particle.View { return n.run.view() }

// Events returns the records logged during the node's last tick.
func (n *Node) Events() []particle.Event { return n.events.Events() }

// EventBuffer exposes the event log itself.
func (n *Node) EventBuffer() *particle.EventBuffer { return &n.events }

// Trails returns the trail recorder, or nil without CapTrail.
func (n *Node) Trails() *TrailRecorder { return n.trails }

// Stats returns a copy of the cumulative counters.
func (n *Node) Stats() NodeStats { return n.stats }

// WorldSpace reports whether particle transforms are already in world space.
func (n *Node) WorldSpace() bool { return n.worldSpace }

// Transform returns the emitter transform.
func (n *Node) Transform() components.Transform { return n.transform }

// SetTransform moves the emitter. World-space nodes forward the new
// origin to kinds that track it; other nodes are placed by t when read.
func (n *Node) SetTransform(t components.Transform) {
	n.transform = t
	if n.worldSpace {
		n.run.setOrigin(t)
	}
}

// Strategy returns how the node handles spawns into a full buffer.
func (n *Node) Strategy() BufferStrategy {
	if n.run.ring() {
		return Ring
	}
	return Retain
}

// place maps a particle transform into world space.
func (n *Node) place(t components.Transform) components.Transform {
	if n.worldSpace {
		return t
	}
	return n.transform.Mul(t)
}

func (n *Node) tick(parent *Node, parentMissing bool, dt float32) {
	if dt < 0 {
		dt = 0
	}
	n.state = Ticking
	if parentMissing {
		n.stats.ParentMissing++
		n.log.Debug("parent missing, skipping parent spawns")
	}
	n.run.tick(n, parent, dt)
	n.stats.Frames++
	n.state = Compacted
}

type nodeRunner[T any, P particle.Ptr[T]] struct {
	kind particle.Kind[T]
	buf  *particle.Buffer[T, P]
	sub  particle.SubEmitter[T]
	ev   particle.EventEmitter[T]

	updater   particle.Updater
	overwrite bool
	onEvict   func(p P)
	placed    placedParticle

	subPolicy   SpawnPolicy
	eventRule   EventRule
	eventPolicy EventPolicy

	rng      *rand.Rand
	collides bool
	trailed  bool

	overflowed uint64
}

func (r *nodeRunner[T, P]) view() particle.View { return r.buf }

func (r *nodeRunner[T, P]) capacity() int { return r.buf.Cap() }

func (r *nodeRunner[T, P]) ring() bool { return r.overwrite }

func (r *nodeRunner[T, P]) setOrigin(t components.Transform) {
	if pos, ok := any(r.kind).(particle.Positioned); ok {
		pos.SetOrigin(t)
	}
}

func (r *nodeRunner[T, P]) tick(n *Node, parent *Node, dt float32) {
	n.events.Clear()
	r.overflowed = 0

	r.buf.UpdateAll(dt)
	if r.updater != nil {
		r.updater.OnUpdate(dt, r.buf)
	}
	if r.collides {
		r.emitCollisions(n)
	}
	if n.trails != nil {
		n.trails.advance(dt)
		r.sampleTrails(n)
	}

	removed := r.buf.Compact(func(p P, state particle.ExpirationState) {
		r.remove(n, p, state)
	})
	n.stats.Removed += uint64(removed)

	if n.caps.Has(CapBase) {
		for k := r.kind.SpawnStep(dt); k > 0; k-- {
			seed := r.rng.Float32()
			r.spawn(n, r.kind.Build(seed), seed)
		}
	}
	if parent != nil {
		if r.sub != nil {
			r.spawnFromParticles(n, parent, dt)
		}
		if r.ev != nil {
			r.spawnFromEvents(n, parent.Events())
		}
	}

	if r.overflowed > 0 {
		n.log.Debug("spawn overflow", "dropped", r.overflowed, "capacity", r.buf.Cap())
	}
}

func (r *nodeRunner[T, P]) emitCollisions(n *Node) {
	for i := 0; i < r.buf.Len(); i++ {
		if r.buf.State(i) != particle.Alive {
			continue
		}
		p := r.buf.Ptr(i)
		if !any(p).(particle.Collider).Collided() {
			continue
		}
		ev := particle.NewEvent(p, particle.EventCollided)
		ev.Transform = n.place(ev.Transform)
		n.events.Push(ev)
		n.stats.Collided++
	}
}

func (r *nodeRunner[T, P]) sampleTrails(n *Node) {
	for i := 0; i < r.buf.Len(); i++ {
		p := r.buf.Ptr(i)
		if r.trailed && !any(p).(particle.Trailed).TrailBearing() {
			continue
		}
		core := p.Core()
		n.trails.Sample(core.ID, core.Seed, n.place(p.Transform()))
	}
}

func (r *nodeRunner[T, P]) remove(n *Node, p P, state particle.ExpirationState) {
	switch state {
	case particle.Expire:
		n.stats.Expired++
	case particle.Explode:
		n.stats.Exploded++
	}

	if r.eventPolicy.records(state) {
		kind, _ := particle.EventKindOf(state)
		ev := particle.NewEvent(p, kind)
		ev.Transform = n.place(ev.Transform)
		n.events.Push(ev)
	}

	r.detachTrail(n, p)
}

// evict drops a particle overwritten by the ring strategy. It logs no
// event since the particle did not end on its own.
func (r *nodeRunner[T, P]) evict(n *Node, p P) {
	n.stats.Evicted++
	r.detachTrail(n, p)
}

func (r *nodeRunner[T, P]) detachTrail(n *Node, p P) {
	if n.trails == nil {
		return
	}
	core := p.Core()
	history := n.trails.History(core.ID)
	if history == nil {
		return
	}
	slice := history
	if r.trailed {
		slice = any(p).(particle.Trailed).DetachSlice(history)
	}
	if n.trails.Detach(core.ID, core.Seed, slice) {
		n.stats.Detached++
	}
}

// spawnFromParticles hands each parent particle to the sub-emitter with
// its transform in world space, matching what event records carry.
func (r *nodeRunner[T, P]) spawnFromParticles(n *Node, parent *Node, dt float32) {
	parents := parent.View()
	r.subPolicy.Begin()
	for i := 0; i < parents.Len(); i++ {
		p := parents.At(i)
		k := r.subPolicy.Count(p, dt)
		if k <= 0 {
			continue
		}
		var src particle.Particle = p
		if !parent.worldSpace {
			r.placed = placedParticle{Particle: p, world: parent.place(p.Transform())}
			src = &r.placed
		}
		for ; k > 0; k-- {
			seed := r.rng.Float32()
			r.spawn(n, r.sub.BuildFromParent(src, seed), seed)
		}
	}
}

func (r *nodeRunner[T, P]) spawnFromEvents(n *Node, events []particle.Event) {
	for _, ev := range events {
		for k := r.eventRule.Count(ev); k > 0; k-- {
			seed := r.rng.Float32()
			r.spawn(n, r.ev.BuildFromEvent(ev, seed), seed)
		}
	}
}

func (r *nodeRunner[T, P]) spawn(n *Node, p T, seed float32) {
	P(&p).Core().Seed = seed
	var err error
	if r.overwrite {
		_, err = r.buf.Overwrite(p, r.onEvict)
	} else {
		_, err = r.buf.Spawn(p)
	}
	if err != nil {
		n.stats.Overflow++
		r.overflowed++
		return
	}
	n.stats.Spawned++
}

// placedParticle presents a local-space parent particle at its world
// transform.
type placedParticle struct {
	particle.Particle
	world components.Transform
}

func (p *placedParticle) Transform() components.Transform { return p.world }
