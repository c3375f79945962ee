package particle

import "github.com/pthm-cable/sparks/components"

// Kind defines how particles of one concrete type are created. A Kind
// value belongs to a single simulation node and may keep emission state
// such as fractional spawn accumulators.
type Kind[T any] interface {
	// Name identifies the kind in logs and configuration.
	Name() string
	// SpawnStep returns how many particles to emit for a step of dt
	// seconds. Kinds that only spawn from a parent return 0.
	SpawnStep(dt float32) int
	// Build turns a random seed in [0, 1) into a particle.
	Build(seed float32) T
}

// SubEmitter is implemented by kinds that can spawn from the live
// particles of a parent node.
type SubEmitter[T any] interface {
	BuildFromParent(parent Particle, seed float32) T
}

// EventEmitter is implemented by kinds that can spawn from the events of
// a parent node.
type EventEmitter[T any] interface {
	BuildFromEvent(ev Event, seed float32) T
}

// Updater is implemented by kinds that act on their whole buffer each
// tick. OnUpdate runs after every particle has been updated and before
// expired particles are removed.
type Updater interface {
	OnUpdate(dt float32, v View)
}

// Positioned is implemented by kinds that need the emitter's transform,
// typically world-space kinds spawning at the emitter position.
type Positioned interface {
	SetOrigin(t components.Transform)
}

// AsSubEmitter reports whether k can act as a sub-emitter.
func AsSubEmitter[T any](k Kind[T]) (SubEmitter[T], bool) {
	s, ok := k.(SubEmitter[T])
	return s, ok
}

// AsEventEmitter reports whether k can act as an event-emitter.
func AsEventEmitter[T any](k Kind[T]) (EventEmitter[T], bool) {
	e, ok := k.(EventEmitter[T])
	return e, ok
}
