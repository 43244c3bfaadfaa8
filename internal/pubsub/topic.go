package pubsub

import (
	"sync"
)

// Topic is a same-process publish/subscribe channel. Subscribers are
// invoked synchronously on the publisher's goroutine; handlers must not
// block. Subscribe returns an unsubscribe func that detaches the
// handler; in-flight deliveries are not cancelled.
type Topic[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(T)
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[int]func(T))}
}

func (t *Topic[T]) Subscribe(fn func(T)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	t.subs[id] = fn

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	handlers := make([]func(T), 0, len(t.subs))
	for _, fn := range t.subs {
		handlers = append(handlers, fn)
	}
	t.mu.Unlock()

	// Deliver outside the lock so a handler can subscribe/unsubscribe.
	for _, fn := range handlers {
		fn(v)
	}
}
