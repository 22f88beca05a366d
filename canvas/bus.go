package canvas

import (
	"moodboard-server/core"
	"sync"
)

const (
	PointerMove EventType = "pointer-move"
	PointerUp   EventType = "pointer-up"
)

type (
	EventType string

	PointerEvent struct {
		Type  EventType
		Point core.Point
	}

	Listener func(PointerEvent)

	// PointerBus carries surface-wide pointer-move and pointer-up events to whichever
	// interaction sessions are listening. Events are dispatched in arrival order.
	PointerBus struct {
		dispatch  sync.Mutex
		mu        sync.Mutex
		next      uint64
		listeners []subscription
	}

	subscription struct {
		id uint64
		fn Listener
	}
)

func NewPointerBus() *PointerBus {
	return &PointerBus{}
}

// Subscribe registers l and returns the function that removes it. The returned function
// may be called any number of times, including from inside l.
func (b *PointerBus) Subscribe(l Listener) func() {
	b.mu.Lock()
	b.next++
	id := b.next
	b.listeners = append(b.listeners, subscription{id: id, fn: l})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Publish delivers e to every listener subscribed when the call starts. Listeners must
// not call Publish.
func (b *PointerBus) Publish(e PointerEvent) {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	listeners := make([]subscription, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		if b.subscribed(l.id) {
			l.fn(e)
		}
	}
}

// Listeners returns the number of installed listeners.
func (b *PointerBus) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *PointerBus) subscribed(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.listeners {
		if l.id == id {
			return true
		}
	}
	return false
}

func (b *PointerBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.listeners {
		if l.id == id {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}
