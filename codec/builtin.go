package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// RawCodec passes []byte values through unchanged. Encoding a non-[]byte
// value is a CodecError at the call site.
type RawCodec struct{}

func (RawCodec) Name() string { return "raw" }

func (RawCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("raw codec: expected []byte, got %T", v)
	}
	return b, nil
}

func (RawCodec) Decode(b []byte) (any, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// UTF8Codec stores strings as their UTF-8 bytes.
type UTF8Codec struct{}

func (UTF8Codec) Name() string { return "utf8" }

func (UTF8Codec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("utf8 codec: expected string, got %T", v)
	}
	return []byte(s), nil
}

func (UTF8Codec) Decode(b []byte) (any, error) {
	return string(b), nil
}

// Int64Codec stores any signed integer as a fixed-width 8-byte
// little-endian value, decoding back to int64.
type Int64Codec struct{}

func (Int64Codec) Name() string { return "int64" }

func (Int64Codec) Encode(v any) ([]byte, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(n))
	return buf, nil
}

func (Int64Codec) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("int64 codec: expected 8 bytes, got %d", len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("int64 codec: expected a signed integer, got %T", v)
	}
}

// Uint64Codec stores any unsigned integer as a fixed-width 8-byte
// little-endian value, decoding back to uint64.
type Uint64Codec struct{}

func (Uint64Codec) Name() string { return "uint64" }

func (Uint64Codec) Encode(v any) ([]byte, error) {
	n, err := asUint64(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, n)
	return buf, nil
}

func (Uint64Codec) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("uint64 codec: expected 8 bytes, got %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func asUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("uint64 codec: expected an unsigned integer, got %T", v)
	}
}

// Float64Codec stores any float as an IEEE-754 8-byte little-endian value.
type Float64Codec struct{}

func (Float64Codec) Name() string { return "float64" }

func (Float64Codec) Encode(v any) ([]byte, error) {
	var f float64
	switch n := v.(type) {
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return nil, fmt.Errorf("float64 codec: expected a float, got %T", v)
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
	return buf, nil
}

func (Float64Codec) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, fmt.Errorf("float64 codec: expected 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// JSONCodec is FDD's pluggable default whole-object codec: any value
// that round-trips through encoding/json. Callers who need a different
// default codec (see spec §1's "out of scope" note on the default
// serialiser) register their own Codec and pass its Name as
// Options.DefaultCodec.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
