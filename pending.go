package mcp

import (
	"encoding/json"
	"sync"
)

// pendingResult is what a resumer is completed with: the raw result value on success, or the
// peer's protocol error on failure.
type pendingResult struct {
	value json.RawMessage
	err   *ProtocolError
}

// pendingEntry is a type-erased waiter: resume re-decodes value into the static type the
// caller originally asked send() for and delivers it over the buffered single-shot channel
// that caller waits on (the "single-shot completion primitive" of §4.D).
type pendingEntry struct {
	resume func(pendingResult)
}

// pendingTable is a peer's outstanding-request map (the Client uses one for Send, the Server one
// for server-initiated Call), keyed by wire ID via ID.mapKey() (which
// preserves the string/number variant, unlike ID.String()). All mutation is serialized by mu;
// invariants hold across any concurrent Send/complete/drain calls.
type pendingTable struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]pendingEntry)}
}

func (t *pendingTable) register(id ID, entry pendingEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id.mapKey()] = entry
}

func (t *pendingTable) remove(id ID) (pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := id.mapKey()
	e, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	return e, ok
}

// drain removes and returns every remaining entry, used on disconnect to resolve every
// waiter with a synthetic InternalError.
func (t *pendingTable) drain() []pendingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]pendingEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.entries = make(map[string]pendingEntry)
	return out
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// sendTyped registers a pending entry for id typed to R, returning a channel the caller blocks
// on for the single decoded (R, error) outcome.
func sendTyped[R any](t *pendingTable, id ID, method string) <-chan struct {
	result R
	err    error
} {
	ch := make(chan struct {
		result R
		err    error
	}, 1)
	t.register(id, pendingEntry{resume: func(pr pendingResult) {
		if pr.err != nil {
			ch <- struct {
				result R
				err    error
			}{err: pr.err}
			return
		}
		var r R
		if len(pr.value) > 0 {
			if err := json.Unmarshal(pr.value, &r); err != nil {
				ch <- struct {
					result R
					err    error
				}{err: NewTypeMismatch(method, err)}
				return
			}
		}
		ch <- struct {
			result R
			err    error
		}{result: r}
	}})
	return ch
}
