package store

import "sync"

// Value holds a single snapshot that is only ever replaced whole.
type Value[T any] struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	v       T
	set     bool
	obs     observers[T]
}

func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

// Read returns the snapshot and whether one has been stored since the last
// Reset.
func (s *Value[T]) Read() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v, s.set
}

func (s *Value[T]) Subscribe(fn func(T)) func() {
	return s.obs.add(fn)
}

// Replace stores v and notifies observers.
func (s *Value[T]) Replace(v T) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.v = v
	s.set = true
	s.mu.Unlock()

	s.obs.notify(v)
}

// Reset returns to the zero snapshot.
func (s *Value[T]) Reset() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var zero T
	s.mu.Lock()
	s.v = zero
	s.set = false
	s.mu.Unlock()

	s.obs.notify(zero)
}
