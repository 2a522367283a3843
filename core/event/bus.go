package event

import (
	"sync"
	"time"
)

type (
	Handler func(Change)
	Filter  func(Change) bool
)

// Tables returns a Filter matching changes on any of `tables`.
func Tables(tables ...string) Filter {
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[t] = struct{}{}
	}
	return func(c Change) bool {
		_, ok := set[c.Table]
		return ok
	}
}

// Bus fans out published changes to its subscribers.
// A Bus is owned by whoever created it and stops delivering once closed.
// Handlers run synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	nextID uint64
	closed bool
	nowFn  func() time.Time
}

func NewBus() *Bus {
	return &Bus{nowFn: time.Now}
}

// Subscription is the handle returned by Bus.Subscribe.
type Subscription struct {
	id      uint64
	bus     *Bus
	filter  Filter
	handler Handler
}

// Subscribe registers `h` for the changes matched by `filter` (nil matches everything).
func (b *Bus) Subscribe(filter Filter, h Handler) *Subscription {
	sub := &Subscription{bus: b, filter: filter, handler: h}
	if b == nil {
		return sub
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return sub
	}
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	return sub
}

// Unsubscribe removes the subscription from its bus. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Active reports whether the subscription still receives changes.
func (s *Subscription) Active() bool {
	if s == nil || s.bus == nil {
		return false
	}
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	for _, sub := range s.bus.subs {
		if sub == s {
			return true
		}
	}
	return false
}

// Publish delivers `c` to every matching subscriber. It is a no-op on a nil or closed Bus.
func (b *Bus) Publish(c Change) {
	if b == nil {
		return
	}
	if c.At.IsZero() {
		c.At = b.nowFn().UTC()
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.filter == nil || sub.filter(c) {
			sub.handler(c)
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drops every subscription. Publishing on a closed Bus does nothing.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = nil
}
