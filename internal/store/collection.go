// Package store holds the client-side snapshots of server collections.
//
// Every store follows the same contract: Read returns a copy, Subscribe
// registers an observer that is called synchronously after each mutation
// with the new snapshot, and mutations are serialized so observers see
// snapshots in the order they were produced. Observers must not mutate the
// store they observe from inside the callback.
package store

import "sync"

// Collection is an ordered list of entities with a string identity.
type Collection[T any] struct {
	idOf func(T) string

	writeMu sync.Mutex // serializes mutate+notify
	mu      sync.RWMutex
	items   []T
	obs     observers[[]T]
}

func NewCollection[T any](idOf func(T) string) *Collection[T] {
	return &Collection[T]{idOf: idOf, items: []T{}}
}

// Read returns a copy of the current snapshot.
func (c *Collection[T]) Read() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLocked()
}

// Len returns the number of entities.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the entity with the given identity.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if c.idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Subscribe registers fn and returns a function that removes it.
func (c *Collection[T]) Subscribe(fn func([]T)) func() {
	return c.obs.add(fn)
}

// ReplaceAll atomically swaps the whole collection.
func (c *Collection[T]) ReplaceAll(items []T) {
	next := make([]T, len(items))
	copy(next, items)
	c.Update(func([]T) ([]T, bool) { return next, true })
}

// ApplyPatch runs fn on the entity with the given identity. An unknown
// identity is not an error: nothing changes, no observer is called, and
// ApplyPatch returns false.
func (c *Collection[T]) ApplyPatch(id string, fn func(*T)) bool {
	return c.Update(func(cur []T) ([]T, bool) {
		for i := range cur {
			if c.idOf(cur[i]) != id {
				continue
			}
			next := make([]T, len(cur))
			copy(next, cur)
			fn(&next[i])
			return next, true
		}
		return cur, false
	})
}

// Remove drops the entity with the given identity.
func (c *Collection[T]) Remove(id string) bool {
	return c.Update(func(cur []T) ([]T, bool) {
		for i := range cur {
			if c.idOf(cur[i]) == id {
				next := make([]T, 0, len(cur)-1)
				next = append(next, cur[:i]...)
				next = append(next, cur[i+1:]...)
				return next, true
			}
		}
		return cur, false
	})
}

// Reset empties the collection.
func (c *Collection[T]) Reset() {
	c.Update(func([]T) ([]T, bool) { return []T{}, true })
}

// Update computes the next snapshot from the current one, publishes it and
// notifies observers. fn must not modify cur; returning false leaves the
// collection untouched and skips notification.
func (c *Collection[T]) Update(fn func(cur []T) ([]T, bool)) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	cur := c.items
	c.mu.RUnlock()

	next, changed := fn(cur)
	if !changed {
		return false
	}

	c.mu.Lock()
	c.items = next
	snap := c.copyLocked()
	c.mu.Unlock()

	c.obs.notify(snap)
	return true
}

func (c *Collection[T]) copyLocked() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}
