package reporter

import (
	"encoding/json"
	"log/slog"

	"github.com/paulb-elastic/synthetics/event"
)

// JSON writes one JSON document per event, newline-delimited. After it
// has written a journey:end event it emits journey:end:reported back
// onto the bus, which both appears in the stream and releases any
// emitter waiting on the acknowledgment barrier.
type JSON struct {
	bus    *event.Bus
	sub    *event.Subscription
	enc    *json.Encoder
	logger *slog.Logger
	done   chan struct{}
}

func newJSON(bus *event.Bus, opts Options) (Reporter, error) {
	r := &JSON{
		bus:    bus,
		sub:    bus.Subscribe(),
		enc:    json.NewEncoder(opts.Output),
		logger: opts.Logger,
		done:   make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

func (r *JSON) Kind() string { return "json" }

func (r *JSON) loop() {
	defer close(r.done)
	for evt := range r.sub.Events() {
		// The reporter sees its own acknowledgments; they are not
		// part of the written output.
		if evt.Type == event.TypeJourneyEndReported {
			continue
		}
		if err := r.enc.Encode(&evt); err != nil {
			r.logger.Error("reporter write failed",
				slog.String("event_type", string(evt.Type)),
				slog.String("error", err.Error()),
			)
		}
		if evt.Type == event.TypeJourneyEnd {
			r.bus.Emit(event.Event{
				Type:      event.TypeJourneyEndReported,
				Journey:   evt.Journey,
				JourneyID: evt.JourneyID,
			})
		}
	}
}

// Close detaches from the bus and waits for buffered events to be
// written.
func (r *JSON) Close() error {
	r.sub.Close()
	<-r.done
	return nil
}

var _ Reporter = (*JSON)(nil)
