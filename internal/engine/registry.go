package engine

import "sync"

// registry is a map keyed by run ID with its own lock.
//
// The engine keeps three of these (running, cancelled, paused). None of the
// engine's operations needs two of them to change atomically, so each has an
// independent lock.
type registry[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func newRegistry[V any]() *registry[V] {
	return &registry[V]{m: make(map[string]V)}
}

// put stores v under id, replacing any existing value.
func (r *registry[V]) put(id string, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[id] = v
}

// get returns the value stored under id.
func (r *registry[V]) get(id string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[id]
	return v, ok
}

// has reports whether id is present.
func (r *registry[V]) has(id string) bool {
	_, ok := r.get(id)
	return ok
}

// take removes id and returns its value. Exactly one concurrent caller
// observes ok == true for a given insertion.
func (r *registry[V]) take(id string) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[id]
	if ok {
		delete(r.m, id)
	}
	return v, ok
}

// remove deletes id if present.
func (r *registry[V]) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
}

// whilePresent runs fn under the read lock if id is present, and reports
// whether it ran. A concurrent remove of id waits until fn returns.
func (r *registry[V]) whilePresent(id string, fn func(V)) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[id]
	if ok {
		fn(v)
	}
	return ok
}

// keys returns a snapshot of the IDs currently present, in no particular order.
func (r *registry[V]) keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for id := range r.m {
		out = append(out, id)
	}
	return out
}

// values returns a snapshot of the stored values, in no particular order.
func (r *registry[V]) values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]V, 0, len(r.m))
	for _, v := range r.m {
		out = append(out, v)
	}
	return out
}

// len returns the number of entries.
func (r *registry[V]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
