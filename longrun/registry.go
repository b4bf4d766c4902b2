package longrun

import (
	"fmt"
	"sync"
)

// Liveness reports whether the client behind a request still counts as
// connected.
type Liveness interface {
	IsConnected(id RequestID) bool
}

// Stats is a snapshot of registry activity. Counters are cumulative.
type Stats struct {
	InFlight  int    `json:"in_flight"`
	Created   uint64 `json:"created"`
	Removed   uint64 `json:"removed"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
}

// Registry maps in-flight requests to their single-slot result channels.
// One mutex guards the whole map; operations on different ids never block
// each other for longer than a map access.
//
// An entry exists exactly as long as its client is considered connected, so
// the registry also implements Liveness.
type Registry struct {
	mu      sync.Mutex
	entries map[RequestID]chan Result
	stats   Stats
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[RequestID]chan Result)}
}

// Create registers id and returns the channel its result will be delivered on.
// The channel has capacity 1 and is never closed.
func (r *Registry) Create(id RequestID) (<-chan Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	ch := make(chan Result, 1)
	r.entries[id] = ch
	r.stats.Created++
	return ch, nil
}

// Publish delivers res for id without blocking. It reports false, and drops
// res, when id is no longer registered or a result was already delivered.
func (r *Registry) Publish(id RequestID, res Result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.entries[id]
	if !ok {
		r.stats.Dropped++
		return false
	}
	select {
	case ch <- res:
		r.stats.Published++
		return true
	default:
		r.stats.Dropped++
		return false
	}
}

// Remove deletes id. It is idempotent and reports whether this call removed
// the entry.
func (r *Registry) Remove(id RequestID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	r.stats.Removed++
	return true
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id RequestID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// IsConnected implements Liveness: a request is connected while registered.
// This is a proxy for the client socket, not a check of it.
func (r *Registry) IsConnected(id RequestID) bool { return r.Contains(id) }

// Len returns the number of registered requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.InFlight = len(r.entries)
	return s
}
