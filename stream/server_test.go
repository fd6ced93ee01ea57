package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/artifact"
	"github.com/paulb-elastic/synthetics/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestStreamForwardsEventsInOrder(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	srv := NewServer(bus, WithLogger(testLogger()))
	defer srv.Close()

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, _, err := ws.Dial(context.Background(), wsURL(ts))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return srv.ConnCount() == 1 }, "client never registered")

	want := []event.Type{event.TypeStart, event.TypeJourneyStart, event.TypeJourneyEnd}
	for _, typ := range want {
		bus.Emit(event.Event{Type: typ, Journey: "checkout"})
	}

	codec := artifact.GetCodec(artifact.CodecNameJSON)
	for i, typ := range want {
		data, readErr := wsutil.ReadServerText(conn)
		if readErr != nil {
			t.Fatalf("read event %d: %v", i, readErr)
		}
		evt, decErr := artifact.DecodeEvent(codec, data)
		if decErr != nil {
			t.Fatalf("decode event %d: %v", i, decErr)
		}
		if evt.Type != typ {
			t.Errorf("event %d: type = %q, want %q", i, evt.Type, typ)
		}
	}
}

func TestStreamMsgpackFormat(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	srv := NewServer(bus, WithLogger(testLogger()))
	defer srv.Close()

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, _, err := ws.Dial(context.Background(), wsURL(ts)+"?format=msgpack")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return srv.ConnCount() == 1 }, "client never registered")

	bus.Emit(event.Event{Type: event.TypeStepEnd, Step: "load home page"})

	data, err := wsutil.ReadServerBinary(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	evt, err := artifact.DecodeEvent(artifact.GetCodec(artifact.CodecNameMsgpack), data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Type != event.TypeStepEnd {
		t.Errorf("type = %q, want %q", evt.Type, event.TypeStepEnd)
	}
	if evt.Step != "load home page" {
		t.Errorf("step = %q, want %q", evt.Step, "load home page")
	}
}

func TestStreamClientDisconnect(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	srv := NewServer(bus, WithLogger(testLogger()))
	defer srv.Close()

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, _, err := ws.Dial(context.Background(), wsURL(ts))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return srv.ConnCount() == 1 }, "client never registered")

	conn.Close()
	waitFor(t, func() bool { return srv.ConnCount() == 0 }, "connection never removed")
}

func TestStreamClose(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()

	srv := NewServer(bus, WithLogger(testLogger()))

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn, _, _, err := ws.Dial(context.Background(), wsURL(ts))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return srv.ConnCount() == 1 }, "client never registered")

	if closeErr := srv.Close(); closeErr != nil {
		t.Fatalf("close: %v", closeErr)
	}
	if closeErr := srv.Close(); !errors.Is(closeErr, synthetics.ErrStreamClosed) {
		t.Errorf("second close error = %v, want ErrStreamClosed", closeErr)
	}

	// The client sees the connection drop.
	waitFor(t, func() bool {
		_, readErr := wsutil.ReadServerText(conn)
		return readErr != nil
	}, "client read still succeeding after close")

	// Further upgrade attempts are rejected.
	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}
