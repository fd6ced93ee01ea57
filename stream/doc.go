// Package stream exposes the engine's lifecycle event stream over
// WebSocket. Each connection gets its own bus subscription and receives
// events in emission order, encoded with the codec the client
// negotiated at upgrade time (JSON by default, msgpack on request).
package stream
