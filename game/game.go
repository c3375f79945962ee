package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/sparks/camera"
	"github.com/pthm-cable/sparks/components"
	"github.com/pthm-cable/sparks/config"
	"github.com/pthm-cable/sparks/stream"
	"github.com/pthm-cable/sparks/systems"
	"github.com/pthm-cable/sparks/telemetry"
	"github.com/pthm-cable/sparks/ui"
)

// Limits for the steps-per-update control.
const (
	MinStepsPerUpdate = 1
	MaxStepsPerUpdate = 10
)

// Options configures a game instance beyond the loaded config.
type Options struct {
	Seed           int64   // added to every node and bake seed
	LogStats       bool    // log window stats via slog
	StatsWindowSec float64 // 0 = use config
	OutputDir      string  // empty = use config
	StreamAddr     string  // empty = use config
	Headless       bool
	EncodeRows     bool // encode refs every tick in headless mode
	StepsPerUpdate int
	Logger         *slog.Logger
}

// refView is one ParticleRef and the rows it produced on the last encode.
type refView struct {
	ref    systems.ParticleRef
	node   string
	trails bool
	rows   []systems.InstanceRow
}

// bakedView is a static population encoded once at startup.
type bakedView struct {
	name string
	rows []systems.InstanceRow
}

// Game holds the complete host state.
type Game struct {
	cfg *config.Config
	log *slog.Logger
	sim *systems.Simulation

	// Nodes in config order, and their handles by name
	nodes    []*systems.Node
	entities map[string]ecs.Entity

	refs  []*refView
	baked []bakedView

	camera *camera.Camera

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	lastStats     []telemetry.WindowStats

	// Row stream
	stream     *stream.Server
	streamAddr string
	frameBuf   []byte
	frameRefs  []stream.RefRows

	// State
	tick           int32
	paused         bool
	headless       bool
	encodeRows     bool
	stepsPerUpdate int
	timeScale      float32
	billboard      bool
	showTrails     bool
	err            error
	unloaded       bool

	// Rendering
	trailMesh systems.TrailMesh
	hud       *ui.HUD
	nodePanel *ui.NodePanel
	controls  *ui.ControlsPanel
}

// NewGame builds the node graph, refs and bakes described by cfg.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	g := &Game{
		cfg:            cfg,
		log:            log,
		entities:       make(map[string]ecs.Entity, len(cfg.Nodes)),
		logStats:       opts.LogStats,
		headless:       opts.Headless,
		encodeRows:     opts.EncodeRows,
		stepsPerUpdate: clampSteps(opts.StepsPerUpdate),
		timeScale:      1,
		billboard:      true,
		showTrails:     true,
		camera: camera.New(
			float32(cfg.Camera.Distance),
			float32(cfg.Camera.Height),
			float32(cfg.Camera.Speed),
		),
	}

	g.sim = systems.NewSimulation(
		systems.WithLogger(log),
		systems.WithWorkers(cfg.Simulation.Workers),
		systems.WithParallelThreshold(cfg.Simulation.ParallelThreshold),
	)

	if err := g.buildGraph(opts.Seed); err != nil {
		g.sim.Close()
		return nil, err
	}
	if err := g.buildRefs(); err != nil {
		g.sim.Close()
		return nil, err
	}
	for _, bc := range cfg.Bakes {
		rows, err := bake(bc, cfg.Simulation.Seed+opts.Seed)
		if err != nil {
			g.sim.Close()
			return nil, err
		}
		g.baked = append(g.baked, bakedView{name: bc.Name, rows: rows})
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	g.collector = telemetry.NewCollector(statsWindow, cfg.Derived.DT32)
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)

	outputDir := cfg.Telemetry.OutputDir
	if opts.OutputDir != "" {
		outputDir = opts.OutputDir
	}
	om, err := telemetry.NewOutputManager(outputDir)
	if err != nil {
		g.sim.Close()
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		log.Error("failed to write config", "error", err)
	}

	streamAddr := cfg.Stream.Address
	if opts.StreamAddr != "" {
		streamAddr = opts.StreamAddr
	}
	if streamAddr != "" {
		g.stream = stream.NewServer(log)
		bound, err := g.stream.Start(streamAddr, cfg.Stream.Path)
		if err != nil {
			g.Unload()
			return nil, err
		}
		g.streamAddr = bound
		log.Info("streaming rows", "addr", bound, "path", cfg.Stream.Path)
	}

	if !g.headless {
		g.hud = ui.NewHUD()
		g.nodePanel = ui.NewNodePanel()
		g.controls = ui.NewControlsPanel(10, 110, 200)
	}

	log.Info("simulation built",
		"nodes", len(g.nodes),
		"refs", len(g.refs),
		"bakes", len(g.baked),
		"levels", len(g.sim.Order()),
	)
	return g, nil
}

// buildGraph creates every node, then wires parents and orders the graph.
func (g *Game) buildGraph(seed int64) error {
	for _, nc := range g.cfg.Nodes {
		if _, dup := g.entities[nc.Name]; dup {
			return fmt.Errorf("node %q: %w", nc.Name, config.ErrInvalid)
		}
		n, err := buildNode(nc, g.cfg, seed)
		if err != nil {
			return err
		}
		if len(nc.Position) == 3 {
			n.SetTransform(components.FromTranslation(vec3(nc.Position)))
		}
		g.entities[nc.Name] = g.sim.Add(n)
		g.nodes = append(g.nodes, n)
	}

	for _, nc := range g.cfg.Nodes {
		if nc.Parent == "" {
			continue
		}
		parent, ok := g.entities[nc.Parent]
		if !ok {
			return fmt.Errorf("node %q: unknown parent %q: %w", nc.Name, nc.Parent, systems.ErrParentMissing)
		}
		if err := g.sim.SetParent(g.entities[nc.Name], parent); err != nil {
			return err
		}
	}
	return g.sim.Build()
}

func (g *Game) buildRefs() error {
	for _, rc := range g.cfg.Refs {
		target, ok := g.entities[rc.Node]
		if !ok {
			return fmt.Errorf("ref %q: unknown node %q: %w", rc.Name, rc.Node, systems.ErrUnknownNode)
		}
		policy := systems.EncodePolicy{Billboard: rc.Billboard}
		if len(rc.Tint) == 4 {
			tint := components.RGBA(float32(rc.Tint[0]), float32(rc.Tint[1]), float32(rc.Tint[2]), float32(rc.Tint[3]))
			policy.Tint = &tint
		}
		g.refs = append(g.refs, &refView{
			ref:    systems.ParticleRef{Name: rc.Name, Target: target, Policy: policy},
			node:   rc.Node,
			trails: rc.Trails,
		})
	}
	return nil
}

// RemoveNode destroys a node. Its children and refs see a missing target
// from the next tick on.
func (g *Game) RemoveNode(name string) bool {
	e, ok := g.entities[name]
	if !ok || !g.sim.Remove(e) {
		return false
	}
	delete(g.entities, name)
	for i, n := range g.nodes {
		if n.Name() == name {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	g.log.Info("node removed", "node", name, "tick", g.tick)
	return true
}

// Tick returns the number of completed simulation ticks.
func (g *Game) Tick() int32 { return g.tick }

// Err returns the error that stopped the simulation, if any.
func (g *Game) Err() error { return g.err }

// StreamAddr returns the bound address of the row stream, or "".
func (g *Game) StreamAddr() string { return g.streamAddr }

// Order returns node names grouped by tick level.
func (g *Game) Order() [][]string { return g.sim.Order() }

// Nodes returns the live nodes in config order.
func (g *Game) Nodes() []*systems.Node { return g.nodes }

// Node returns a live node by name.
func (g *Game) Node(name string) (*systems.Node, bool) {
	e, ok := g.entities[name]
	if !ok {
		return nil, false
	}
	return g.sim.Node(e)
}

// Rows returns the rows last encoded for a ref or baked at startup.
func (g *Game) Rows(name string) ([]systems.InstanceRow, bool) {
	for _, r := range g.refs {
		if r.ref.Name == name {
			return r.rows, true
		}
	}
	for _, b := range g.baked {
		if b.name == name {
			return b.rows, true
		}
	}
	return nil, false
}

// RefNames returns ref names in config order.
func (g *Game) RefNames() []string {
	names := make([]string, len(g.refs))
	for i, r := range g.refs {
		names[i] = r.ref.Name
	}
	return names
}

// BakeNames returns bake names in config order.
func (g *Game) BakeNames() []string {
	names := make([]string, len(g.baked))
	for i, b := range g.baked {
		names[i] = b.name
	}
	return names
}

// Paused reports whether stepping is suspended.
func (g *Game) Paused() bool { return g.paused }

// SetPaused suspends or resumes stepping.
func (g *Game) SetPaused(p bool) { g.paused = p }

// Unload releases the stream server, output files and worker pool.
func (g *Game) Unload() {
	if g.unloaded {
		return
	}
	g.unloaded = true

	var errs []error
	if g.stream != nil {
		errs = append(errs, g.stream.Close())
	}
	errs = append(errs, g.outputManager.Close())
	if err := errors.Join(errs...); err != nil {
		g.log.Error("failed to unload", "error", err)
	}
	g.sim.Close()
}

func clampSteps(n int) int {
	if n < MinStepsPerUpdate {
		return MinStepsPerUpdate
	}
	if n > MaxStepsPerUpdate {
		return MaxStepsPerUpdate
	}
	return n
}
