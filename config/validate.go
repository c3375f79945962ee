package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

var knownCapabilities = map[string]bool{
	"base":  true,
	"sub":   true,
	"event": true,
	"trail": true,
}

var knownSubModes = map[string]bool{
	"":           true,
	"one":        true,
	"per_parent": true,
	"rate":       true,
}

var knownStrategies = map[string]bool{
	"":       true,
	"retain": true,
	"ring":   true,
}

var knownEvents = map[string]bool{
	"expired":  true,
	"exploded": true,
	"collided": true,
}

// Validate checks cross references between nodes, refs and bakes. Kind
// names are checked by whoever builds the nodes.
func (c *Config) Validate() error {
	if c.Simulation.DT <= 0 {
		return fmt.Errorf("%w: simulation.dt must be positive, got %v", ErrInvalid, c.Simulation.DT)
	}

	seen := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.Name == "" {
			return fmt.Errorf("%w: node %d has no name", ErrInvalid, i)
		}
		if seen[n.Name] {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalid, n.Name)
		}
		seen[n.Name] = true
		if n.Capacity < 0 {
			return fmt.Errorf("%w: node %q: negative capacity", ErrInvalid, n.Name)
		}
		for _, capName := range n.Capabilities {
			if !knownCapabilities[capName] {
				return fmt.Errorf("%w: node %q: unknown capability %q", ErrInvalid, n.Name, capName)
			}
		}
		if !knownStrategies[n.Strategy] {
			return fmt.Errorf("%w: node %q: unknown strategy %q", ErrInvalid, n.Name, n.Strategy)
		}
		if !knownSubModes[n.Sub.Mode] {
			return fmt.Errorf("%w: node %q: unknown sub mode %q", ErrInvalid, n.Name, n.Sub.Mode)
		}
		for ev := range n.Burst {
			if !knownEvents[ev] {
				return fmt.Errorf("%w: node %q: unknown event %q", ErrInvalid, n.Name, ev)
			}
		}
		if len(n.Position) != 0 && len(n.Position) != 3 {
			return fmt.Errorf("%w: node %q: position needs 3 components", ErrInvalid, n.Name)
		}
	}

	for _, n := range c.Nodes {
		if n.Parent == "" {
			continue
		}
		if !seen[n.Parent] {
			return fmt.Errorf("%w: node %q: unknown parent %q", ErrInvalid, n.Name, n.Parent)
		}
	}

	for _, r := range c.Refs {
		if !seen[r.Node] {
			return fmt.Errorf("%w: ref %q: unknown node %q", ErrInvalid, r.Name, r.Node)
		}
		if len(r.Tint) != 0 && len(r.Tint) != 4 {
			return fmt.Errorf("%w: ref %q: tint needs 4 components", ErrInvalid, r.Name)
		}
	}

	for _, b := range c.Bakes {
		if b.Count < 0 {
			return fmt.Errorf("%w: bake %q: negative count", ErrInvalid, b.Name)
		}
	}
	return nil
}
