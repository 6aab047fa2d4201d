// Package stream fans board update notifications out to live subscribers.
package stream

import "sync"

// Broker tracks subscribers per board. Notifications coalesce: a subscriber
// that has not consumed the previous signal is not signalled twice.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers interest in boardID.
func (b *Broker) Subscribe(boardID string) chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	set, ok := b.subs[boardID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		b.subs[boardID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(boardID string, ch chan struct{}) {
	b.mu.Lock()
	if set, ok := b.subs[boardID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(b.subs, boardID)
		}
	}
	b.mu.Unlock()
}

// Notify signals every subscriber of boardID and reports how many there were.
func (b *Broker) Notify(boardID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[boardID]
	for ch := range set {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return len(set)
}

// Subscribers returns the number of live subscriptions for boardID.
func (b *Broker) Subscribers(boardID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[boardID])
}
