package bus

import (
	"strings"
	"sync"
	"time"
)

// Bus fans domain events out to subscribers filtered by kind prefix. Both the
// server handlers and the client synchronizer publish on it so that observers
// (WebSocket hub, CLI watchers) never poll shared state.
//
// Publishing never blocks: a subscriber that cannot keep up loses events
// rather than stalling the mutation path that produced them.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	nextID int
}

type subscriber struct {
	id     int
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Publish delivers evt to every subscriber whose prefix matches evt.Kind.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !strings.HasPrefix(evt.Kind, sub.prefix) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			// Subscriber buffer full; the event is lost for that subscriber.
		}
	}
}

// Emit publishes a kind/payload pair stamped with the current time.
func (b *Bus) Emit(kind string, payload any) {
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// Subscribe registers interest in every kind starting with prefix ("" matches
// all). bufSize controls how many undelivered events are held before Publish
// starts dropping. The returned func removes the subscription; the channel is
// never closed, so ranging over it requires select with a done signal.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	sub := &subscriber{prefix: prefix, ch: make(chan Event, bufSize)}

	b.mu.Lock()
	sub.id = b.nextID
	b.nextID++
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == sub.id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}
