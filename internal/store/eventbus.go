package store

import (
	"context"
	"sync"
)

// EventHandler receives store events. Handlers run synchronously on the
// writer's goroutine after the change is committed; they may read the store
// but must not write to it.
type EventHandler func(Event)

type subscription struct {
	id      int
	handler EventHandler
}

// eventBus fans events out to subscribers in subscription order.
type eventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

func (b *eventBus) subscribe(handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, handler: handler})
	return func() { b.unsubscribe(id) }
}

func (b *eventBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.handlers {
		if s.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

func (b *eventBus) publish(event Event) {
	b.mu.RLock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, s := range handlers {
		s.handler(event)
	}
}

// channel delivers events on a buffered channel until ctx is done. Events
// that do not fit in the buffer are dropped.
func (b *eventBus) channel(ctx context.Context, bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	var mu sync.Mutex
	closed := false
	unsubscribe := b.subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch
}
