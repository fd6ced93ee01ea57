package event

import (
	"context"
	"sync"
	"time"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/id"
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// Bus is the ordered, typed lifecycle event stream. Emitters push
// events; subscribers receive them on buffered channels in emission
// order.
//
// Emit is fire-and-forget. EmitAwait is flush-and-wait: it delivers
// the event and then blocks until an acknowledgment (an event of
// TypeJourneyEndReported) is observed on the bus, providing the
// back-pressure barrier synchronous reporters rely on.
type Bus struct {
	mu      sync.Mutex
	subs    []*Subscription
	waiters []chan struct{}
	closed  bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscription is one subscriber's ordered view of the stream.
type Subscription struct {
	bus    *Bus
	ch     chan Event
	closed bool
}

// Subscribe registers a subscriber with the default buffer size.
func (b *Bus) Subscribe() *Subscription {
	return b.SubscribeBuffer(DefaultBufferSize)
}

// SubscribeBuffer registers a subscriber with the given buffer size.
func (b *Bus) SubscribeBuffer(size int) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{bus: b, ch: make(chan Event, size)}
	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// Events returns the subscriber's ordered event channel. The channel
// is closed when the subscription or the bus closes.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close detaches the subscription from the bus and closes its channel.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	s.detachLocked()
}

func (s *Subscription) detachLocked() {
	if s.closed {
		return
	}
	s.closed = true
	for i, sub := range s.bus.subs {
		if sub == s {
			s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
			break
		}
	}
	close(s.ch)
}

// Emit stamps the event with an ID and timestamp (when unset) and
// delivers it to every subscriber, fire-and-forget. A subscriber whose
// buffer is full is detached rather than blocking the run: a stalled
// reporter must not wedge journey execution.
//
// Emitting TypeJourneyEndReported additionally releases every waiter
// blocked in EmitAwait.
func (b *Bus) Emit(evt Event) {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return
	}

	if evt.ID.IsNil() {
		evt.ID = id.NewEventID()
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}

	// Deliver in subscription order. Copy the slice head since a
	// full subscriber is detached mid-iteration.
	subs := append([]*Subscription(nil), b.subs...)
	for _, sub := range subs {
		select {
		case sub.ch <- evt:
		default:
			sub.detachLocked()
		}
	}

	var waiters []chan struct{}
	if evt.Type == TypeJourneyEndReported {
		waiters = b.waiters
		b.waiters = nil
	}
	b.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// EmitAwait delivers the event and blocks until the next
// TypeJourneyEndReported acknowledgment is observed on the bus, the
// context is done, or the bus closes.
func (b *Bus) EmitAwait(ctx context.Context, evt Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return synthetics.ErrBusClosed
	}
	ack := make(chan struct{})
	b.waiters = append(b.waiters, ack)
	b.mu.Unlock()

	b.Emit(evt)

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		b.removeWaiter(ack)
		return ctx.Err()
	}
}

func (b *Bus) removeWaiter(ack chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.waiters {
		if w == ack {
			b.waiters = append(b.waiters[:i], b.waiters[i+1:]...)
			return
		}
	}
}

// Close closes the bus: all subscriptions are closed, pending
// EmitAwait calls are released, and further emits are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true

	subs := b.subs
	b.subs = nil
	waiters := b.waiters
	b.waiters = nil
	for _, sub := range subs {
		sub.closed = true
		close(sub.ch)
	}
	b.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}
