// Package artifact handles the byproducts of a run: encoded lifecycle
// events for transport, screenshots captured per step, and the
// temporary on-disk cache that holds them for the duration of a run.
package artifact

import "github.com/paulb-elastic/synthetics/event"

// Codec defines the serialization contract for run artifacts and
// lifecycle events sent over the wire.
type Codec interface {
	// Encode serializes a value to bytes.
	Encode(v any) ([]byte, error)

	// Decode deserializes bytes into the given value.
	Decode(data []byte, v any) error

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// CodecName constants for format negotiation.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	default:
		return &JSONCodec{}
	}
}

// DecodeEvent decodes one lifecycle event with the given codec.
func DecodeEvent(c Codec, data []byte) (*event.Event, error) {
	var e event.Event
	if err := c.Decode(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
