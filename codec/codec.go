// Package codec implements FDD's byte-codec registry: turning arbitrary
// Go values into byte strings and back, for the whole-value default case
// and for per-column overrides.
//
// The source system this was distilled from persists arbitrary language
// callables as the serialised codec representation. A systems language
// cannot round-trip that, so a codec here is referenced in the footer by
// a stable string name (see Register/Lookup) rather than by its
// encode/decode closures directly. A handful of codecs for common wire
// shapes (raw bytes, UTF-8 text, fixed-width integers, float64, JSON) are
// registered by this package's init; callers needing anything else
// register their own by name before opening a file that names it.
package codec

import (
	"fmt"
	"sync"
)

// Codec is a (encode, decode) pair persisted in a file's footer by Name.
type Codec interface {
	// Name is the stable identifier stored in the footer. Two codecs
	// are the "same" for pass-through copy purposes iff their Names
	// are equal (per spec: codec identity is deep-equality of the
	// persisted representation, and the persisted representation is
	// the name).
	Name() string
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{}
)

func init() {
	for _, c := range []Codec{
		RawCodec{},
		UTF8Codec{},
		Int64Codec{},
		Uint64Codec{},
		Float64Codec{},
		JSONCodec{},
	} {
		registry[c.Name()] = c
	}
}

// Register adds a codec to the process-wide table, keyed by its Name.
// The registry is append-only; Register and Lookup are both safe to
// call concurrently from multiple goroutines.
func Register(c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name()] = c
}

// Lookup returns the codec registered under name, if any.
func Lookup(name string) (Codec, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	return c, ok
}

// MustLookup is Lookup but panics on a miss; used internally once a
// name is already known-good (e.g. default codec chosen by NewWriter).
func MustLookup(name string) Codec {
	c, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("codec: %q is not registered", name))
	}
	return c
}
