package masterkey

import "sync"

// Registry shares CachedKeys by ID so that every purse opened from the same
// serialized master key uses one cache. Entries are reference counted.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	key  *CachedKey
	refs int
}

// DefaultRegistry is used by purses that are not given their own registry.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire registers k, or returns the instance already registered under its
// ID, and takes a reference. Keys that are not generated are returned as-is
// and not tracked.
func (r *Registry) Acquire(k *CachedKey) *CachedKey {
	id := k.ID()
	if id == "" {
		return k
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.refs++
		return e.key
	}
	r.entries[id] = &entry{key: k, refs: 1}
	return k
}

// Release drops one reference to the key with the given ID and returns the
// number of references left. The entry is forgotten, and its cached password
// dropped, when the count reaches zero.
func (r *Registry) Release(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return 0
	}
	e.refs--
	if e.refs > 0 {
		return e.refs
	}
	delete(r.entries, id)
	e.key.Reset()
	return 0
}

// Lookup returns the shared instance for id without taking a reference.
func (r *Registry) Lookup(id string) (*CachedKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.key, true
}

// Refs returns the reference count for id.
func (r *Registry) Refs(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of tracked keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
