package store

import (
	"sync"
)

// TopicFavorites is published whenever the favourites list changes.
const TopicFavorites = "favorites"

// Event is a message delivered to subscribers.
type Event struct {
	Topic   string
	Payload any
}

// Bus is an in-process publish/subscribe hub. Delivery is non-blocking:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Event
	nextID int
	buffer int
}

// NewBus returns a bus whose subscriber channels buffer size events.
func NewBus(size int) *Bus {
	if size <= 0 {
		size = 16
	}
	return &Bus{subs: make(map[string]map[int]chan Event), buffer: size}
}

// Subscribe registers interest in topic. The returned cancel function
// unsubscribes and closes the channel.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	b.subs[topic][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[topic], id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers payload to the topic's subscribers and reports how many
// received it.
func (b *Bus) Publish(topic string, payload any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, ch := range b.subs[topic] {
		select {
		case ch <- Event{Topic: topic, Payload: payload}:
			delivered++
		default:
		}
	}
	return delivered
}
