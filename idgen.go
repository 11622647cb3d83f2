package mcp

import "sync/atomic"

// idGenerator produces fresh, unique-within-session numeric ids. A monotonically increasing
// counter is sufficient to satisfy the "no collisions within a live session" invariant and
// avoids dragging a uuid dependency into the hot path of every outbound request; uuid is
// reserved for longer-lived identifiers (session ids, message ids) per the ambient stack.
type idGenerator struct {
	counter atomic.Int64
}

func (g *idGenerator) next() ID {
	return NewIntID(g.counter.Add(1))
}
