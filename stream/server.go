package stream

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/artifact"
	"github.com/paulb-elastic/synthetics/event"
	"github.com/paulb-elastic/synthetics/id"
)

// Compile-time interface check.
var _ http.Handler = (*Server)(nil)

// Server upgrades HTTP requests to WebSocket connections and forwards
// every event emitted on the bus to each connected client. Events are
// delivered per connection in emission order; a client that cannot keep
// up is disconnected rather than allowed to stall the bus.
//
// Clients pick their wire format with the "format" query parameter
// ("json" or "msgpack"). JSON events are sent as text frames, msgpack
// events as binary frames.
type Server struct {
	bus    *event.Bus
	logger *slog.Logger

	mu     sync.Mutex
	conns  map[string]*conn
	closed bool

	// Buffer size for per-connection bus subscriptions.
	bufferSize int

	totalForwarded atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for connection lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithBufferSize sets the per-connection event buffer. A connection
// whose buffer fills is detached from the bus and closed.
func WithBufferSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// conn is the per-client connection state.
type conn struct {
	id    string
	netc  net.Conn
	codec artifact.Codec
	sub   *event.Subscription

	closeOnce sync.Once
	done      chan struct{}
}

// NewServer creates a stream server fanning out events from bus.
func NewServer(bus *event.Bus, opts ...Option) *Server {
	s := &Server{
		bus:        bus,
		logger:     slog.Default(),
		conns:      make(map[string]*conn),
		bufferSize: event.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects or the server closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, synthetics.ErrStreamClosed.Error(), http.StatusServiceUnavailable)
		return
	}
	s.mu.Unlock()

	codec := artifact.GetCodec(r.URL.Query().Get("format"))

	netc, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &conn{
		id:    id.NewEventID().String(),
		netc:  netc,
		codec: codec,
		sub:   s.bus.SubscribeBuffer(s.bufferSize),
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.sub.Close()
		_ = netc.Close()
		return
	}
	s.conns[c.id] = c
	s.mu.Unlock()

	s.logger.Info("stream client connected",
		slog.String("conn_id", c.id),
		slog.String("codec", codec.Name()),
	)

	go s.readLoop(c)
	s.forwardEvents(c)
}

// forwardEvents drains the connection's bus subscription and writes
// each event to the WebSocket. It returns when the subscription closes
// or a write fails.
func (s *Server) forwardEvents(c *conn) {
	defer s.removeConn(c)

	for {
		select {
		case evt, ok := <-c.sub.Events():
			if !ok {
				return
			}
			if err := s.writeEvent(c, evt); err != nil {
				s.logger.Warn("stream write failed",
					slog.String("conn_id", c.id),
					slog.String("error", err.Error()),
				)
				return
			}
			s.totalForwarded.Add(1)
		case <-c.done:
			return
		}
	}
}

// writeEvent encodes and sends a single event. JSON rides on text
// frames, everything else on binary.
func (s *Server) writeEvent(c *conn, evt event.Event) error {
	data, err := c.codec.Encode(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if c.codec.Name() == artifact.CodecNameJSON {
		return wsutil.WriteServerText(c.netc, data)
	}
	return wsutil.WriteServerBinary(c.netc, data)
}

// readLoop consumes client frames so control frames are answered and a
// closed peer is detected promptly. Inbound data frames are discarded;
// the stream is one-way.
func (s *Server) readLoop(c *conn) {
	for {
		if _, _, err := wsutil.ReadClientData(c.netc); err != nil {
			c.shutdown()
			return
		}
	}
}

// removeConn tears down a connection and unregisters it.
func (s *Server) removeConn(c *conn) {
	c.shutdown()

	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()

	s.logger.Info("stream client disconnected", slog.String("conn_id", c.id))
}

func (c *conn) shutdown() {
	c.closeOnce.Do(func() {
		c.sub.Close()
		_ = c.netc.Close()
		close(c.done)
	})
}

// ConnCount reports the number of connected clients.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// TotalForwarded reports the number of events written across all
// connections since the server started.
func (s *Server) TotalForwarded() int64 {
	return s.totalForwarded.Load()
}

// Close disconnects all clients and rejects further upgrades. It is
// idempotent; the second and later calls return ErrStreamClosed.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return synthetics.ErrStreamClosed
	}
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
	return nil
}
