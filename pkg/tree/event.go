package tree

import (
	"slices"
	"sync"
)

// Emitter delivers events to subscribed listeners in subscription order.
// The listener list is copied on update so Fire never holds the lock while
// calling out.
type Emitter[E any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[E]
}

type listener[E any] struct {
	id uint64
	fn func(E)
}

// Subscribe registers fn and returns a function that unregisters it.
func (e *Emitter[E]) Subscribe(fn func(E)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	next := slices.Clone(e.listeners)
	e.listeners = append(next, listener[E]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter[E]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := slices.IndexFunc(e.listeners, func(l listener[E]) bool { return l.id == id })
	if i < 0 {
		return
	}
	next := slices.Clone(e.listeners)
	e.listeners = slices.Delete(next, i, i+1)
}

// Fire calls every listener registered at the time of the call.
func (e *Emitter[E]) Fire(event E) {
	e.mu.Lock()
	listeners := e.listeners
	e.mu.Unlock()

	for _, l := range listeners {
		l.fn(event)
	}
}

// Len returns the number of registered listeners.
func (e *Emitter[E]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}
