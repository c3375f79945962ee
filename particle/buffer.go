package particle

// View is read-only access to the live particles of a buffer.
// Particles returned by At must not be retained past the next compaction.
type View interface {
	Len() int
	At(i int) Particle
}

// Buffer is a dense, capacity-bounded store of particles of one concrete
// type. Slots are kept contiguous; removal swaps the last slot into the
// hole, so index order is not stable across Compact. Use Base.ID to
// follow a particle.
type Buffer[T any, P Ptr[T]] struct {
	items    []T
	states   []ExpirationState
	born     []uint64 // spawn sequence per slot
	capacity int
	seq      uint64

	nextID uint32
	free   []uint32

	overflow uint64
	evicted  uint64
}

// NewBuffer creates a buffer holding at most capacity particles.
// A capacity of zero or less makes every spawn overflow.
func NewBuffer[T any, P Ptr[T]](capacity int) *Buffer[T, P] {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer[T, P]{
		items:    make([]T, 0, capacity),
		states:   make([]ExpirationState, 0, capacity),
		born:     make([]uint64, 0, capacity),
		capacity: capacity,
	}
}

// Spawn stores p and returns its assigned id. A full buffer leaves the
// contents untouched and returns ErrSpawnOverflow.
func (b *Buffer[T, P]) Spawn(p T) (uint32, error) {
	if len(b.items) >= b.capacity {
		b.overflow++
		return 0, ErrSpawnOverflow
	}

	id := b.allocID()
	P(&p).Core().ID = id
	b.items = append(b.items, p)
	b.states = append(b.states, Alive)
	b.seq++
	b.born = append(b.born, b.seq)
	return id, nil
}

// Overwrite stores p like Spawn, but a full buffer evicts its oldest
// particle instead of rejecting p. onEvict, if non-nil, sees the evicted
// particle before its slot is reused. A zero-capacity buffer still
// overflows.
func (b *Buffer[T, P]) Overwrite(p T, onEvict func(old P)) (uint32, error) {
	if len(b.items) < b.capacity {
		return b.Spawn(p)
	}
	if b.capacity == 0 {
		b.overflow++
		return 0, ErrSpawnOverflow
	}

	i := b.oldest()
	old := P(&b.items[i])
	if onEvict != nil {
		onEvict(old)
	}
	b.free = append(b.free, old.Core().ID)

	id := b.allocID()
	P(&p).Core().ID = id
	b.items[i] = p
	b.states[i] = Alive
	b.seq++
	b.born[i] = b.seq
	b.evicted++
	return id, nil
}

func (b *Buffer[T, P]) oldest() int {
	idx := 0
	for i := 1; i < len(b.born); i++ {
		if b.born[i] < b.born[idx] {
			idx = i
		}
	}
	return idx
}

func (b *Buffer[T, P]) allocID() uint32 {
	if n := len(b.free); n > 0 {
		id := b.free[n-1]
		b.free = b.free[:n-1]
		return id
	}
	b.nextID++
	return b.nextID
}

// UpdateAll advances every particle and records its expiration state.
func (b *Buffer[T, P]) UpdateAll(dt float32) {
	for i := range b.items {
		p := P(&b.items[i])
		p.Update(dt)
		b.states[i] = p.ExpirationState()
	}
}

// Compact removes every particle flagged Expire or Explode by the last
// UpdateAll and returns how many were removed. onRemove, if non-nil, sees
// each particle before its slot is reused.
func (b *Buffer[T, P]) Compact(onRemove func(p P, state ExpirationState)) int {
	removed := 0
	var zero T
	i := 0
	for i < len(b.items) {
		state := b.states[i]
		if !state.IsExpired() {
			i++
			continue
		}

		p := P(&b.items[i])
		if onRemove != nil {
			onRemove(p, state)
		}
		b.free = append(b.free, p.Core().ID)

		last := len(b.items) - 1
		b.items[i] = b.items[last]
		b.states[i] = b.states[last]
		b.born[i] = b.born[last]
		b.items[last] = zero
		b.items = b.items[:last]
		b.states = b.states[:last]
		b.born = b.born[:last]
		removed++
	}
	return removed
}

// Len returns the number of live particles.
func (b *Buffer[T, P]) Len() int { return len(b.items) }

// Cap returns the configured capacity.
func (b *Buffer[T, P]) Cap() int { return b.capacity }

// At returns the particle in slot i.
func (b *Buffer[T, P]) At(i int) Particle { return P(&b.items[i]) }

// Ptr returns a typed pointer to slot i.
func (b *Buffer[T, P]) Ptr(i int) P { return P(&b.items[i]) }

// State returns the expiration state recorded for slot i.
func (b *Buffer[T, P]) State(i int) ExpirationState { return b.states[i] }

// Overflow returns the number of rejected spawns.
func (b *Buffer[T, P]) Overflow() uint64 { return b.overflow }

// Evicted returns the number of particles replaced by Overwrite.
func (b *Buffer[T, P]) Evicted() uint64 { return b.evicted }

// Find returns the slot holding id, or -1.
func (b *Buffer[T, P]) Find(id uint32) int {
	for i := range b.items {
		if P(&b.items[i]).Core().ID == id {
			return i
		}
	}
	return -1
}
