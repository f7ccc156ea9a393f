package events

import (
	"sync"
	"sync/atomic"
)

type subscription struct {
	ch   chan any
	once sync.Once
}

// Bus is an in-process pub/sub broker. Publish never blocks: a subscriber
// whose buffer is full misses the event, and the miss is counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[Event][]*subscription
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]*subscription)}
}

// Subscribe registers a listener for an event. The returned cancel function
// removes the listener and closes its channel; calling it twice is safe.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	sub := &subscription{ch: make(chan any, buffer)}

	b.mu.Lock()
	b.subs[e] = append(b.subs[e], sub)
	b.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			b.mu.Lock()
			list := b.subs[e]
			for i, s := range list {
				if s == sub {
					b.subs[e] = append(list[:i], list[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers the payload to every subscriber of e without blocking.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[e] {
		select {
		case sub.ch <- payload:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were discarded because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
