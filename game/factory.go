package game

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/sparks/config"
	"github.com/pthm-cable/sparks/kinds"
	"github.com/pthm-cable/sparks/particle"
	"github.com/pthm-cable/sparks/systems"
)

// ErrUnknownKind is returned for a node or bake whose kind has no builder.
var ErrUnknownKind = errors.New("game: unknown kind")

var capabilityNames = map[string]systems.Capability{
	"base":  systems.CapBase,
	"sub":   systems.CapSubEmitter,
	"event": systems.CapEventEmitter,
	"trail": systems.CapTrail,
}

var eventNames = map[string]particle.EventKind{
	"expired":  particle.EventExpired,
	"exploded": particle.EventExploded,
	"collided": particle.EventCollided,
}

// nodeConfig translates the YAML node description.
func nodeConfig(nc config.NodeConfig, cfg *config.Config, seed int64) systems.NodeConfig {
	var caps systems.Capability
	for _, name := range nc.Capabilities {
		caps |= capabilityNames[name]
	}

	out := systems.NodeConfig{
		Name:         nc.Name,
		Capacity:     nc.Capacity,
		Capabilities: caps,
		Events:       systems.EventPolicy{RecordExpired: nc.RecordExpired},
		WorldSpace:   nc.WorldSpace,
		Trail:        systems.TrailConfig{MaxSamples: cfg.Trails.MaxSamples},
		Seed:         nc.Seed + cfg.Simulation.Seed + seed,
	}

	if nc.Strategy == "ring" {
		out.Strategy = systems.Ring
	}

	switch nc.Sub.Mode {
	case "per_parent":
		out.SubPolicy = systems.PerParent{N: nc.Sub.Count}
	case "rate":
		out.SubPolicy = systems.NewRatePerParent(float32(nc.Sub.Rate))
	}

	if len(nc.Burst) > 0 {
		rule := make(systems.BurstRule, len(nc.Burst))
		for name, n := range nc.Burst {
			rule[eventNames[name]] = n
		}
		out.EventRule = rule
	}
	return out
}

// buildNode creates the node for one config entry.
func buildNode(nc config.NodeConfig, cfg *config.Config, seed int64) (*systems.Node, error) {
	sc := nodeConfig(nc, cfg, seed)
	p := func(key string, def float64) float32 { return float32(nc.Param(key, def)) }

	switch nc.Kind {
	case "rocket":
		return systems.NewNode[kinds.Rocket](&kinds.RocketKind{
			Rate: p("rate", 1),
			Fuse: p("fuse", 1.5),
			Lift: p("lift", 8),
		}, sc)
	case "spark":
		return systems.NewNode[kinds.Spark](&kinds.SparkKind{
			Life:          p("life", 0.5),
			Speed:         p("speed", 2),
			TrailFraction: p("trail_fraction", 0),
			TrailKeep:     int(nc.Param("trail_keep", 0)),
		}, sc)
	case "shard":
		return systems.NewNode[kinds.Shard](&kinds.ShardKind{
			Life:   p("life", 2),
			Spread: p("spread", 4),
			Ground: p("ground", 0),
		}, sc)
	case "mote":
		flow := kinds.NewFlow(sc.Seed, p("flow_scale", 0.3), p("flow_strength", 1), p("flow_rise", 0))
		return systems.NewNode[kinds.Mote](&kinds.MoteKind{
			Rate:   p("rate", 10),
			Life:   p("life", 5),
			Extent: mgl32.Vec3{p("extent_x", 1), p("extent_y", 1), p("extent_z", 1)},
			Flow:   flow,
		}, sc)
	case "grass":
		return systems.NewNode[kinds.Blade](&kinds.GrassKind{Field: p("field", 20)}, sc)
	}
	return nil, fmt.Errorf("%w: node %q: unknown kind %q", ErrUnknownKind, nc.Name, nc.Kind)
}

// bake generates the rows of a static population.
func bake(bc config.BakeConfig, seed int64) ([]systems.InstanceRow, error) {
	rng := rand.New(rand.NewSource(bc.Seed + seed))
	switch bc.Kind {
	case "grass":
		kind := &kinds.GrassKind{Field: float32(bc.Param("field", 20))}
		return systems.Bake[kinds.Blade](kind, bc.Count, rng, systems.EncodePolicy{}), nil
	}
	return nil, fmt.Errorf("%w: bake %q: unknown kind %q", ErrUnknownKind, bc.Name, bc.Kind)
}
