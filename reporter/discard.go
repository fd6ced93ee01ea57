package reporter

import "github.com/paulb-elastic/synthetics/event"

// Discard drains the stream without writing anything. It still emits
// the journey:end:reported acknowledgment so emitters that wait on the
// barrier are never wedged by the reporter choice.
type Discard struct {
	bus  *event.Bus
	sub  *event.Subscription
	done chan struct{}
}

func newDiscard(bus *event.Bus, _ Options) (Reporter, error) {
	r := &Discard{
		bus:  bus,
		sub:  bus.Subscribe(),
		done: make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

func (r *Discard) Kind() string { return "discard" }

func (r *Discard) loop() {
	defer close(r.done)
	for evt := range r.sub.Events() {
		if evt.Type == event.TypeJourneyEnd {
			r.bus.Emit(event.Event{
				Type:      event.TypeJourneyEndReported,
				Journey:   evt.Journey,
				JourneyID: evt.JourneyID,
			})
		}
	}
}

func (r *Discard) Close() error {
	r.sub.Close()
	<-r.done
	return nil
}

var _ Reporter = (*Discard)(nil)
