// Package events carries library lifecycle events from the scan/ingest path
// to in-process subscribers.
package events

import "sync"

// ItemAdded is raised once when an item lands in the library. Virtual marks
// placeholder entries with no backing media file.
type ItemAdded struct {
	ItemID  string
	Virtual bool
}

// Handler receives ItemAdded events. Handlers run synchronously on the
// publisher's goroutine and must not block; anything slow belongs behind a
// queue, which is exactly what the notification pipeline does.
type Handler func(ItemAdded)

// Bus is a minimal in-process fan-out. Subscribers register a handler and
// get back an unsubscribe func, so teardown mirrors setup without the bus
// needing to know subscriber identities.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers h and returns a func that removes the registration.
// Calling the returned func more than once is harmless.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers e to every current subscriber. Publishers may call from
// any goroutine; delivery order across subscribers is unspecified.
func (b *Bus) Publish(e ItemAdded) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	// Invoke outside the lock so a handler may itself subscribe or
	// unsubscribe without deadlocking.
	for _, h := range handlers {
		h(e)
	}
}
