package bus

import "sync"

// Update signals that telemetry for a charge point changed. An empty
// ChargePointId means "everything changed" and matches every subscriber.
type Update struct {
	ChargePointId string
}

// Bus fans Update signals out to every subscriber. Publish never blocks:
// a subscriber whose buffer is full simply misses that signal and catches
// up on the next one. Safe for concurrent publishers and subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan Update
}

func New() *Bus { return &Bus{} }

// Subscribe returns a channel receiving all future updates.
func (b *Bus) Subscribe() chan Update {
	ch := make(chan Update, 1)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel obtained from Subscribe.
func (b *Bus) Unsubscribe(ch chan Update) {
	b.mu.Lock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers[i] = b.subscribers[len(b.subscribers)-1]
			b.subscribers = b.subscribers[:len(b.subscribers)-1]
			close(ch)
			break
		}
	}
	b.mu.Unlock()
}

// Publish delivers the update to every subscriber, best effort.
func (b *Bus) Publish(u Update) {
	b.mu.RLock()
	subs := make([]chan Update, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- u:
		default:
		}
	}
}
