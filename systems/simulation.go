package systems

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// nodeSlot is the registry component attached to each node entity.
// Parent is a non-owning handle; it may outlive the node it names.
type nodeSlot struct {
	Node      *Node
	Parent    ecs.Entity
	HasParent bool
	Seq       int64 // insertion order, also the graph node ID
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger. Nodes log through it with a "node" attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWorkers sets the worker pool size. Zero or less uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Simulation) { s.workers = n }
}

// WithParallelThreshold sets the minimum live particles in a level before
// its nodes are ticked in parallel.
func WithParallelThreshold(n int) Option {
	return func(s *Simulation) { s.threshold = n }
}

// Simulation drives a set of nodes once per frame, parents before
// children. Nodes are entities in an ark world; parent references are
// entity handles checked for liveness on every tick.
type Simulation struct {
	world  *ecs.World
	slots  *ecs.Map1[nodeSlot]
	filter *ecs.Filter1[nodeSlot]

	log       *slog.Logger
	workers   int
	threshold int
	pool      *workerPool

	levels   [][]ecs.Entity
	dirty    bool
	buildErr error
	nextSeq  int64
	count    int
	frame    uint64
}

// NewSimulation creates an empty simulation.
func NewSimulation(opts ...Option) *Simulation {
	world := ecs.NewWorld()
	s := &Simulation{
		world:     world,
		slots:     ecs.NewMap1[nodeSlot](world),
		filter:    ecs.NewFilter1[nodeSlot](world),
		log:       slog.Default(),
		threshold: defaultParallelThreshold,
		dirty:     true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = newWorkerPool(s.workers)
	return s
}

// Add registers n and returns its handle.
func (s *Simulation) Add(n *Node) ecs.Entity {
	n.log = s.log.With("node", n.name)
	s.nextSeq++
	slot := nodeSlot{Node: n, Seq: s.nextSeq}
	e := s.slots.NewEntity(&slot)
	s.count++
	s.dirty = true
	return e
}

// Remove destroys the node behind e. Children keep their handle and see
// a missing parent from then on.
func (s *Simulation) Remove(e ecs.Entity) bool {
	if !s.alive(e) {
		return false
	}
	s.world.RemoveEntity(e)
	s.count--
	s.dirty = true
	return true
}

// Node resolves a handle.
func (s *Simulation) Node(e ecs.Entity) (*Node, bool) {
	if !s.alive(e) {
		return nil, false
	}
	return s.slots.Get(e).Node, true
}

// SetParent makes parent the source of child's parent-driven spawns.
// Cycles are reported by the next Build.
func (s *Simulation) SetParent(child, parent ecs.Entity) error {
	if !s.alive(child) {
		return fmt.Errorf("set parent: child: %w", ErrUnknownNode)
	}
	if !s.alive(parent) {
		return fmt.Errorf("set parent of %q: %w", s.slots.Get(child).Node.name, ErrParentMissing)
	}
	slot := s.slots.Get(child)
	slot.Parent = parent
	slot.HasParent = true
	s.dirty = true
	return nil
}

// ClearParent detaches child from its parent.
func (s *Simulation) ClearParent(child ecs.Entity) {
	if !s.alive(child) {
		return
	}
	slot := s.slots.Get(child)
	slot.Parent = ecs.Entity{}
	slot.HasParent = false
	s.dirty = true
}

// Len returns the number of registered nodes.
func (s *Simulation) Len() int { return s.count }

// Frame returns the number of completed ticks.
func (s *Simulation) Frame() uint64 { return s.frame }

// Each calls fn for every node in tick order. fn must not add or remove
// nodes.
func (s *Simulation) Each(fn func(e ecs.Entity, n *Node)) {
	for _, level := range s.levels {
		for _, e := range level {
			if s.alive(e) {
				fn(e, s.slots.Get(e).Node)
			}
		}
	}
}

// Order returns node names grouped by level, as of the last Build.
func (s *Simulation) Order() [][]string {
	out := make([][]string, len(s.levels))
	for i, level := range s.levels {
		for _, e := range level {
			if s.alive(e) {
				out[i] = append(out[i], s.slots.Get(e).Node.name)
			}
		}
	}
	return out
}

func (s *Simulation) alive(e ecs.Entity) bool {
	return !e.IsZero() && s.world.Alive(e) && s.slots.HasAll(e)
}

type buildEntry struct {
	entity ecs.Entity
	slot   nodeSlot
}

// Build orders the nodes topologically and groups them by depth. A node
// whose parent is gone is treated as a root. Parent references that form
// a cycle fail with ErrCycleDetected, and the simulation refuses to tick
// until the cycle is broken.
func (s *Simulation) Build() error {
	s.dirty = false
	s.levels = s.levels[:0]

	var entries []buildEntry
	query := s.filter.Query()
	for query.Next() {
		entries = append(entries, buildEntry{entity: query.Entity(), slot: *query.Get()})
	}

	bySeq := make(map[int64]buildEntry, len(entries))
	g := simple.NewDirectedGraph()
	for _, en := range entries {
		bySeq[en.slot.Seq] = en
		g.AddNode(simple.Node(en.slot.Seq))
	}

	parentSeq := make(map[int64]int64, len(entries))
	for _, en := range entries {
		if !en.slot.HasParent || !s.alive(en.slot.Parent) {
			continue
		}
		if en.slot.Parent == en.entity {
			return s.fail(fmt.Errorf("%w: %s", ErrCycleDetected, en.slot.Node.name))
		}
		pseq := s.slots.Get(en.slot.Parent).Seq
		parentSeq[en.slot.Seq] = pseq
		g.SetEdge(g.NewEdge(simple.Node(pseq), simple.Node(en.slot.Seq)))
	}

	sorted, err := topo.SortStabilized(g, byID)
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			var names []string
			for _, c := range cycles {
				for _, gn := range c {
					names = append(names, bySeq[gn.ID()].slot.Node.name)
				}
			}
			return s.fail(fmt.Errorf("%w: %s", ErrCycleDetected, strings.Join(names, ", ")))
		}
		return s.fail(fmt.Errorf("ordering nodes: %w", err))
	}

	depth := make(map[int64]int, len(sorted))
	var levelSeqs [][]int64
	for _, gn := range sorted {
		seq := gn.ID()
		d := 0
		if p, ok := parentSeq[seq]; ok {
			d = depth[p] + 1
		}
		depth[seq] = d
		for len(levelSeqs) <= d {
			levelSeqs = append(levelSeqs, nil)
		}
		levelSeqs[d] = append(levelSeqs[d], seq)
	}
	// registration order within a level
	for _, seqs := range levelSeqs {
		slices.Sort(seqs)
		level := make([]ecs.Entity, len(seqs))
		for i, seq := range seqs {
			level[i] = bySeq[seq].entity
		}
		s.levels = append(s.levels, level)
	}

	s.buildErr = nil
	s.log.Info("simulation built", "nodes", len(entries), "levels", len(s.levels))
	return nil
}

func (s *Simulation) fail(err error) error {
	s.levels = s.levels[:0]
	s.buildErr = err
	s.log.Error("simulation build failed", "error", err)
	return err
}

func byID(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
}

// Tick advances every node by dt seconds, parents before children. It
// rebuilds the order first if nodes or parent references changed, and
// ticks nothing if that fails.
func (s *Simulation) Tick(dt float32) error {
	if s.dirty {
		if err := s.Build(); err != nil {
			return err
		}
	}
	if s.buildErr != nil {
		return s.buildErr
	}

	for _, level := range s.levels {
		for _, e := range level {
			s.slots.Get(e).Node.state = Idle
		}
	}

	for _, level := range s.levels {
		// Phase A: snapshot parents (single-threaded)
		s.pool.tasks = s.pool.tasks[:0]
		particles := 0
		for _, e := range level {
			slot := s.slots.Get(e)
			task := levelTask{node: slot.Node}
			if slot.HasParent {
				if s.alive(slot.Parent) {
					task.parent = s.slots.Get(slot.Parent).Node
				} else {
					task.parentMissing = true
				}
			}
			particles += slot.Node.Len()
			s.pool.tasks = append(s.pool.tasks, task)
		}

		// Phase B: tick the level
		s.pool.run(dt, particles >= s.threshold)
	}

	s.frame++
	return nil
}

// Close stops the worker pool.
func (s *Simulation) Close() {
	s.pool.stop()
}
