package particle

import "github.com/pthm-cable/sparks/components"

// EventKind classifies an event record.
type EventKind uint8

const (
	EventExpired EventKind = iota
	EventExploded
	EventCollided
)

func (k EventKind) String() string {
	switch k {
	case EventExpired:
		return "expired"
	case EventExploded:
		return "exploded"
	case EventCollided:
		return "collided"
	}
	return "unknown"
}

// EventKindOf maps an expiration state to the record it produces.
func EventKindOf(s ExpirationState) (EventKind, bool) {
	switch s {
	case Expire:
		return EventExpired, true
	case Explode:
		return EventExploded, true
	}
	return 0, false
}

// Event is a snapshot of a particle taken when something happened to it.
type Event struct {
	ID        uint32
	Kind      EventKind
	Transform components.Transform
	Seed      float32
	Lifetime  float32
}

// NewEvent snapshots p.
func NewEvent(p Particle, kind EventKind) Event {
	core := p.Core()
	return Event{
		ID:        core.ID,
		Kind:      kind,
		Transform: p.Transform(),
		Seed:      core.Seed,
		Lifetime:  core.Lifetime,
	}
}

// EventBuffer is an append-only log for one frame. It has a single
// writer, its owning node, and is cleared by that node at the start of
// each tick.
type EventBuffer struct {
	events  []Event
	cleared uint64
}

// Push appends ev.
func (b *EventBuffer) Push(ev Event) {
	b.events = append(b.events, ev)
}

// Events returns the records of the current frame in insertion order.
// The slice is only valid until the next Clear.
func (b *EventBuffer) Events() []Event { return b.events }

// Len returns the number of records.
func (b *EventBuffer) Len() int { return len(b.events) }

// Clear drops all records, keeping the backing storage.
func (b *EventBuffer) Clear() {
	b.events = b.events[:0]
	b.cleared++
}

// Cleared returns how many times Clear has been called.
func (b *EventBuffer) Cleared() uint64 { return b.cleared }
