package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulb-elastic/synthetics"
)

func TestBusOrdering(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()

	types := []Type{
		TypeStart,
		TypeJourneyRegister,
		TypeJourneyStart,
		TypeStepStart,
		TypeStepEnd,
		TypeJourneyEnd,
		TypeEnd,
	}
	for _, typ := range types {
		bus.Emit(Event{Type: typ})
	}

	for i, want := range types {
		got := <-sub.Events()
		if got.Type != want {
			t.Fatalf("event %d: got type %q, want %q", i, got.Type, want)
		}
		if got.ID.IsNil() {
			t.Fatalf("event %d: ID not stamped", i)
		}
		if got.Time.IsZero() {
			t.Fatalf("event %d: time not stamped", i)
		}
	}
}

func TestBusEmitAwait(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe()

	// Simulate a reporter: consume journey:end, then acknowledge.
	go func() {
		for evt := range sub.Events() {
			if evt.Type == TypeJourneyEnd {
				bus.Emit(Event{Type: TypeJourneyEndReported, Journey: evt.Journey})
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := bus.EmitAwait(ctx, Event{Type: TypeJourneyEnd, Journey: "checkout"}); err != nil {
		t.Fatalf("EmitAwait: %v", err)
	}
}

func TestBusEmitAwaitContextCanceled(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	// No subscriber acknowledges, so EmitAwait must give up with the
	// context error.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := bus.EmitAwait(ctx, Event{Type: TypeJourneyEnd})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("EmitAwait: got %v, want deadline exceeded", err)
	}
}

func TestBusSlowSubscriberDetached(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	slow := bus.SubscribeBuffer(1)
	fast := bus.SubscribeBuffer(8)

	bus.Emit(Event{Type: TypeStart})
	bus.Emit(Event{Type: TypeEnd}) // overflows slow, detaching it

	if _, ok := <-fast.Events(); !ok {
		t.Fatal("fast subscriber lost first event")
	}
	if evt, ok := <-fast.Events(); !ok || evt.Type != TypeEnd {
		t.Fatalf("fast subscriber: got %v %v, want end event", evt.Type, ok)
	}

	// Slow subscriber keeps its buffered event, then its channel is
	// closed.
	if evt := <-slow.Events(); evt.Type != TypeStart {
		t.Fatalf("slow subscriber: got %q, want %q", evt.Type, TypeStart)
	}
	if _, ok := <-slow.Events(); ok {
		t.Fatal("slow subscriber channel still open after detach")
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatal("subscription channel open after bus close")
	}

	err := bus.EmitAwait(context.Background(), Event{Type: TypeJourneyEnd})
	if !errors.Is(err, synthetics.ErrBusClosed) {
		t.Fatalf("EmitAwait after close: got %v, want ErrBusClosed", err)
	}

	// Emit after close is a no-op.
	bus.Emit(Event{Type: TypeStart})

	sub2 := bus.Subscribe()
	if _, ok := <-sub2.Events(); ok {
		t.Fatal("subscribe after close returned open channel")
	}
}

func TestErrorString(t *testing.T) {
	if got := ErrorString(nil); got != "" {
		t.Fatalf("ErrorString(nil) = %q", got)
	}
	if got := ErrorString(errors.New("boom")); got != "boom" {
		t.Fatalf("ErrorString = %q", got)
	}
}
