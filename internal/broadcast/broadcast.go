// Package broadcast implements a single-writer, multi-reader latest-value
// channel: the change detector publishes each newly rendered document, and
// every connected client holds a subscription it blocks on until something
// newer than its last observation exists.
//
// Delivery is last-value-wins. Only the most recent value is retained, so a
// slow reader skips intermediate values instead of queueing them, and the
// writer never blocks on readers. Readers observe values in publication
// order — a subscription can never return an older value after a newer one.
package broadcast

import (
	"context"
	"sync"
)

// Broadcaster holds the current rendered output and wakes waiting
// subscriptions on every publish.
type Broadcaster struct {
	mu      sync.Mutex
	value   string
	version uint64
	changed chan struct{}
}

// Subscription tracks how much of the published history one client has
// observed. It is a lightweight handle into the broadcaster's shared state
// and holds no resources of its own.
type Subscription struct {
	b    *Broadcaster
	seen uint64
}

// New creates an empty broadcaster. No value is available until the first
// Publish.
func New() *Broadcaster {
	return &Broadcaster{
		changed: make(chan struct{}),
	}
}

// Publish replaces the current value and wakes all waiters. It never blocks
// on slow readers.
func (b *Broadcaster) Publish(value string) {
	b.mu.Lock()
	b.value = value
	b.version++
	close(b.changed)
	b.changed = make(chan struct{})
	b.mu.Unlock()
}

// Latest returns the current value and its version. Version 0 means nothing
// has been published yet.
func (b *Broadcaster) Latest() (string, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.version
}

// Subscribe returns a subscription positioned before any published value:
// if a value has already been published, the first Next returns it
// immediately, so clients connecting between edits still see the current
// document.
func (b *Broadcaster) Subscribe() *Subscription {
	return &Subscription{b: b}
}

// Next blocks until a value newer than the subscription's last observation
// exists, then returns it and advances the watermark. It returns the
// context error when ctx is done, which releases connection handlers on
// client disconnect and process shutdown.
func (s *Subscription) Next(ctx context.Context) (string, error) {
	for {
		s.b.mu.Lock()
		if s.b.version > s.seen {
			value, version := s.b.value, s.b.version
			s.b.mu.Unlock()
			s.seen = version
			return value, nil
		}
		changed := s.b.changed
		s.b.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
