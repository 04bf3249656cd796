package store

import "sync"

// observers is an ordered set of callbacks. Unsubscribing is idempotent.
type observers[S any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(S)
	ids  []int
}

func (o *observers[S]) add(fn func(S)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func(S))
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	o.ids = append(o.ids, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.fns, id)
			for i, v := range o.ids {
				if v == id {
					o.ids = append(o.ids[:i], o.ids[i+1:]...)
					break
				}
			}
		})
	}
}

func (o *observers[S]) snapshot() []func(S) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]func(S), 0, len(o.ids))
	for _, id := range o.ids {
		out = append(out, o.fns[id])
	}
	return out
}

func (o *observers[S]) notify(s S) {
	for _, fn := range o.snapshot() {
		fn(s)
	}
}
