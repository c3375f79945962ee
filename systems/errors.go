package systems

import "errors"

var (
	// ErrParentMissing means a parent handle no longer resolves to a node.
	// Non-fatal during ticks; returned by ParticleRef.Resolve.
	ErrParentMissing = errors.New("systems: parent missing")

	// ErrCycleDetected means parent references do not form a DAG.
	ErrCycleDetected = errors.New("systems: cycle detected")

	// ErrInvalidCapability means a node declared a capability its kind lacks.
	ErrInvalidCapability = errors.New("systems: invalid capability")

	// ErrUnknownNode means an entity handle does not name a live node.
	ErrUnknownNode = errors.New("systems: unknown node")

	// ErrNodeBusy means a node was read while ticking.
	ErrNodeBusy = errors.New("systems: node busy")
)
