// Package codec transcodes NeuralDB QUERY/RESPONSE payloads, grounded on
// the teacher's core/rpc/codec package. The wire framing itself (opcode +
// length prefix) lives in the parent opcode package and is not a concern
// of Codec at all — Codec only handles what is inside a payload.
package codec

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Codec mirrors the teacher's core/rpc/codec.Codec interface exactly.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
	Name() string
}

var ErrUnsupportedCodec = errors.New("unsupported codec")

// JSONCodec is the default NeuralDB payload codec.
type JSONCodec struct{}

func (JSONCodec) Encode(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Decode(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                           { return "json" }

// GobCodec encodes with encoding/gob. It stands in for the teacher's
// MsgPackCodec: the pack carries no MessagePack library, so this keeps the
// same "compact binary alternative to JSON" role using a stdlib codec —
// documented as a deliberate substitution in DESIGN.md rather than a
// silent drop of that codec slot.
type GobCodec struct{}

func (GobCodec) Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (GobCodec) Name() string { return "gob" }

// WireCodec encodes a map[string]string as a sequence of protobuf-wire
// key/value pairs using protowire directly, with no .proto-generated
// message type — a hand-rolled envelope in place of the teacher's
// ProtobufCodec (which requires a proto.Message; NeuralDB has no schema to
// generate one from). Field 1 carries the key, field 2 the value, repeated
// once per map entry.
type WireCodec struct{}

func (WireCodec) Encode(v interface{}) ([]byte, error) {
	m, ok := v.(map[string]string)
	if !ok {
		return nil, fmt.Errorf("codec: WireCodec only encodes map[string]string, got %T", v)
	}
	var buf []byte
	for k, val := range m {
		buf = protowire.AppendTag(buf, 1, protowire.BytesType)
		buf = protowire.AppendString(buf, k)
		buf = protowire.AppendTag(buf, 2, protowire.BytesType)
		buf = protowire.AppendString(buf, val)
	}
	return buf, nil
}

func (WireCodec) Decode(data []byte, v interface{}) error {
	m, ok := v.(*map[string]string)
	if !ok {
		return fmt.Errorf("codec: WireCodec only decodes into *map[string]string, got %T", v)
	}
	if *m == nil {
		*m = make(map[string]string)
	}

	var pendingKey string
	haveKey := false
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if typ != protowire.BytesType {
			return fmt.Errorf("codec: unexpected wire type %d", typ)
		}
		val, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		switch num {
		case 1:
			pendingKey = string(val)
			haveKey = true
		case 2:
			if !haveKey {
				return errors.New("codec: value field before key field")
			}
			(*m)[pendingKey] = string(val)
			haveKey = false
		default:
			return fmt.Errorf("codec: unknown field number %d", num)
		}
	}
	return nil
}

func (WireCodec) Name() string { return "wire" }

// ByName resolves a Codec by its Name(), grounded on the teacher's
// GetCodec(CodecType) lookup but keyed by string. An empty name resolves
// to JSONCodec.
func ByName(name string) (Codec, error) {
	switch name {
	case "json", "":
		return JSONCodec{}, nil
	case "gob":
		return GobCodec{}, nil
	case "wire":
		return WireCodec{}, nil
	default:
		return nil, ErrUnsupportedCodec
	}
}
