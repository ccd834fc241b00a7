package relay

import (
	"sync"

	"github.com/custodia-labs/linkdeck/internal/core/domain"
	"github.com/custodia-labs/linkdeck/internal/core/ports/driven"
)

// Ensure Bus implements the interface.
var _ driven.MessageBus = (*Bus)(nil)

type subscription struct {
	predicate driven.MessagePredicate
	handler   driven.MessageHandler
}

// Bus fans relayed messages out to independent subscriptions.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]subscription)}
}

// Subscribe registers handler for messages matching predicate.
func (b *Bus) Subscribe(predicate driven.MessagePredicate, handler driven.MessageHandler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{predicate: predicate, handler: handler}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers msg to every matching subscription.
// Handlers run outside the lock so they may unsubscribe.
func (b *Bus) Publish(msg domain.WindowMessage) {
	b.mu.RLock()
	matched := make([]driven.MessageHandler, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.predicate == nil || sub.predicate(msg) {
			matched = append(matched, sub.handler)
		}
	}
	b.mu.RUnlock()

	for _, handler := range matched {
		handler(msg)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
