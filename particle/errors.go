package particle

import "errors"

// ErrSpawnOverflow is returned when a buffer is at capacity. It is not
// fatal: callers drop the spawn and the buffer counts it.
var ErrSpawnOverflow = errors.New("particle: spawn overflow")
