package reporter_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/event"
	"github.com/paulb-elastic/synthetics/reporter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewUnknownKind(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	_, err := reporter.New("xml", bus, reporter.Options{Logger: testLogger()})
	if !errors.Is(err, synthetics.ErrUnknownReporter) {
		t.Fatalf("got %v, want ErrUnknownReporter", err)
	}
}

func TestKindsIncludeBuiltins(t *testing.T) {
	kinds := reporter.Kinds()
	want := map[string]bool{"json": false, "discard": false}
	for _, k := range kinds {
		if _, ok := want[k]; ok {
			want[k] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("builtin kind %q not registered", k)
		}
	}
}

func TestJSONWritesNDJSON(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	var buf bytes.Buffer
	r, err := reporter.New("json", bus, reporter.Options{Output: &buf, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	bus.Emit(event.Event{Type: event.TypeStart, NumJourneys: 2})
	bus.Emit(event.Event{Type: event.TypeJourneyStart, Journey: "checkout"})
	bus.Emit(event.Event{Type: event.TypeStepEnd, Journey: "checkout", Step: "add to cart", Status: "succeeded"})
	bus.Emit(event.Event{Type: event.TypeEnd})

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var types []event.Type
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var evt event.Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", sc.Text(), err)
		}
		types = append(types, evt.Type)
	}

	want := []event.Type{event.TypeStart, event.TypeJourneyStart, event.TypeStepEnd, event.TypeEnd}
	if len(types) != len(want) {
		t.Fatalf("got %d lines (%v), want %d", len(types), types, len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, types[i], want[i])
		}
	}
}

func TestJSONAcknowledgesJourneyEnd(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	var buf bytes.Buffer
	r, err := reporter.New("json", bus, reporter.Options{Output: &buf, Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// EmitAwait blocks until the reporter has written journey:end and
	// acknowledged it.
	if err := bus.EmitAwait(ctx, event.Event{Type: event.TypeJourneyEnd, Journey: "checkout"}); err != nil {
		t.Fatalf("EmitAwait: %v", err)
	}

	// The acknowledgment itself must not appear in the output.
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var evt event.Event
		if err := json.Unmarshal(sc.Bytes(), &evt); err != nil {
			t.Fatalf("invalid NDJSON line: %v", err)
		}
		if evt.Type == event.TypeJourneyEndReported {
			t.Fatal("journey:end:reported written to output")
		}
	}
}

func TestDiscardAcknowledgesJourneyEnd(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	r, err := reporter.New("discard", bus, reporter.Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := bus.EmitAwait(ctx, event.Event{Type: event.TypeJourneyEnd, Journey: "checkout"}); err != nil {
		t.Fatalf("EmitAwait: %v", err)
	}
}
