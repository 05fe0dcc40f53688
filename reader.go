package fdd

import (
	"fmt"
	"os"

	"github.com/freezedrieddata/fdd/codec"
	"github.com/freezedrieddata/fdd/internal/recindex"
	"github.com/freezedrieddata/fdd/internal/streamio"
)

// Reader opens an already-closed FDD file for random-access reads.
// Grounded on sntable's Reader (footer decode on open, then lazy
// per-block reads via ReadAt), generalized from sntable's single sorted
// uint64 key space to FDD's arbitrary-key index plus named split views.
//
// A Reader records the PID that opened it and transparently reopens its
// file descriptor if a later Get observes a different PID (Items, Values
// and reads through an already-returned Row do not check), following
// original_source's os.register_at_fork fork-safety contract: a
// descriptor inherited across fork() shares the parent's file offset and
// must not be used directly by the child for anything beyond pread-style
// access, which is exactly what Stream.Get/GetRaw perform.
type Reader struct {
	path string
	file *os.File
	pid  int

	compression Compression
	defaultName string
	store       *recindex.Store
	stream      *streamio.Stream
	view        *recindex.View

	propCache map[string]any
}

// Open opens path as an unstructured or columnar FDD file and composes
// an active view over split (the empty string for every row, or
// "name1+name2" for the union of named splits — spec §6's path surface).
// path may itself carry a "^split-spec" suffix, equivalent to passing
// that spec via split; the two are combined if both are given.
func Open(path string, split string) (*Reader, error) {
	filePath, embedded := parsePath(path)
	split = joinSplitSpec(embedded, split)

	f, err := os.Open(filePath)
	if err != nil {
		return nil, newErr(IOError, "open", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newErr(IOError, "open", err)
	}

	payload, footerStart, err := decodeFooter(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	compCodec, err := payload.Compression.codec()
	if err != nil {
		f.Close()
		return nil, newErr(InvalidFile, "open", err)
	}

	store := recindex.New()
	store.LoadFooter(payload.Keys, payload.Locators, payload.Columns, payload.SplitOrder, payload.Splits, payload.PropertyOrder, payload.Properties)

	view, err := recindex.NewView(store, split)
	if err != nil {
		f.Close()
		return nil, newErr(NotFound, "open", err)
	}

	r := &Reader{
		path:        filePath,
		file:        f,
		pid:         os.Getpid(),
		compression: payload.Compression,
		defaultName: payload.DefaultCodec,
		store:       store,
		stream:      streamio.NewStream(nil, f, compCodec, footerStart),
		view:        view,
		propCache:   map[string]any{},
	}
	return r, nil
}

// checkFork reopens the file descriptor if this Reader crossed a fork()
// since it was opened: the child inherits the parent's fd, sharing its
// kernel file offset, so ReadAt calls from two processes against the
// same fd can race each other's implicit seeks on some platforms. A
// fresh, process-private fd avoids that without requiring callers to do
// anything.
func (r *Reader) checkFork() error {
	if os.Getpid() == r.pid {
		return nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		return newErr(IOError, "fork-reopen", err)
	}
	r.file = f
	r.pid = os.Getpid()
	r.stream.SetReaderAt(f)
	return nil
}

// Columns returns the file's column declaration (empty for unstructured
// files).
func (r *Reader) Columns() []Column {
	out := make([]Column, len(r.store.Columns))
	for i, c := range r.store.Columns {
		out[i] = Column{Name: c.Name, Codec: c.Codec}
	}
	return out
}

// Len returns the number of keys in the active view.
func (r *Reader) Len() int { return r.view.Len() }

// Keys returns the active view's keys, in the view's determinsitic
// order (spec §4.C: first-occurrence order across the split union).
func (r *Reader) Keys() []any { return r.view.Keys() }

// Contains reports whether key is part of the active view. A key
// present in the file but outside the active view reports false, the
// same as a genuinely absent key.
func (r *Reader) Contains(key any) bool { return r.view.Contains(key) }

func (r *Reader) codecsFor() ([]codec.Codec, error) {
	if len(r.store.Columns) == 0 {
		c, ok := codec.Lookup(r.defaultName)
		if !ok {
			return nil, newErr(CodecError, "get", fmt.Errorf("default codec %q is not registered", r.defaultName))
		}
		return []codec.Codec{c}, nil
	}
	codecs := make([]codec.Codec, len(r.store.Columns))
	for i, col := range r.store.Columns {
		name := col.Codec
		if name == "" {
			name = r.defaultName
		}
		c, ok := codec.Lookup(name)
		if !ok {
			return nil, newErr(CodecError, "get", fmt.Errorf("codec %q for column %q is not registered", name, col.Name))
		}
		codecs[i] = c
	}
	return codecs, nil
}

// rowFor builds a Row over an already-resolved locator, shared by Get
// and by Writer.CopyRowFrom's decode+re-encode fallback path.
func (r *Reader) rowFor(loc recindex.Locator) (*Row, error) {
	codecs, err := r.codecsFor()
	if err != nil {
		return nil, err
	}
	return newRow(loc, r.store.Columns, codecs, r.stream), nil
}

// Get returns a Row for key. It is a NotFound error if key is not part
// of the active view, even if it exists elsewhere in the underlying file.
func (r *Reader) Get(key any) (*Row, error) {
	if !r.view.Contains(key) {
		return nil, newErr(NotFound, "get", fmt.Errorf("key %v not found", key))
	}
	if err := r.checkFork(); err != nil {
		return nil, err
	}
	loc, ok := r.store.Get(key)
	if !ok {
		return nil, newErr(NotFound, "get", fmt.Errorf("key %v not found", key))
	}
	return r.rowFor(loc)
}

// Items returns every (key, Row) pair in the active view, in view order.
// Rows are materialised lazily by the caller; this call itself performs
// no decoding.
func (r *Reader) Items() ([]Item, error) {
	codecs, err := r.codecsFor()
	if err != nil {
		return nil, err
	}
	keys := r.view.Keys()
	out := make([]Item, 0, len(keys))
	for _, k := range keys {
		loc, ok := r.store.Get(k)
		if !ok {
			return nil, newErr(InvalidFile, "items", fmt.Errorf("view key %v missing from index", k))
		}
		out = append(out, Item{Key: k, Row: newRow(loc, r.store.Columns, codecs, r.stream)})
	}
	return out, nil
}

// Item pairs a key with its lazily-decoded Row, as returned by Items.
type Item struct {
	Key any
	Row *Row
}

// Values returns every Row in the active view, in view order, without
// their keys — the same lazy sequence as Items with the key column
// dropped (spec §4.C: "keys(), items(), values() return lazy sequences
// over the active view").
func (r *Reader) Values() ([]*Row, error) {
	codecs, err := r.codecsFor()
	if err != nil {
		return nil, err
	}
	keys := r.view.Keys()
	out := make([]*Row, 0, len(keys))
	for _, k := range keys {
		loc, ok := r.store.Get(k)
		if !ok {
			return nil, newErr(InvalidFile, "values", fmt.Errorf("view key %v missing from index", k))
		}
		out = append(out, newRow(loc, r.store.Columns, codecs, r.stream))
	}
	return out, nil
}

// SplitNames returns every split name declared in the file, regardless
// of the active view.
func (r *Reader) SplitNames() []string { return r.store.SplitNames() }

// LoadNewSplit extends the active view with another split's keys,
// deduplicated, appended in that split's own order — spec §6's
// incremental view composition (e.g. starting from "train" and adding
// "val" without reopening the file).
func (r *Reader) LoadNewSplit(name string) error {
	if err := r.view.LoadSplit(r.store, name); err != nil {
		return newErr(NotFound, "load-split", err)
	}
	return nil
}

// Property decodes a named file-level property through the file's
// default codec. The first access decodes and caches the value;
// subsequent accesses return the cached value without re-decoding.
func (r *Reader) Property(name string) (any, error) {
	if v, ok := r.propCache[name]; ok {
		return v, nil
	}
	raw, ok := r.store.Property(name)
	if !ok {
		return nil, newErr(NotFound, "property", fmt.Errorf("property %q not set", name))
	}
	c, ok := codec.Lookup(r.defaultName)
	if !ok {
		return nil, newErr(CodecError, "property", fmt.Errorf("default codec %q is not registered", r.defaultName))
	}
	v, err := c.Decode(raw)
	if err != nil {
		return nil, newErr(CodecError, "property", err)
	}
	r.propCache[name] = v
	return v, nil
}

// PropertyNames returns every property name set on the file.
func (r *Reader) PropertyNames() []string { return r.store.PropertyNames() }

// Close releases the Reader's file descriptor. The Reader must not be
// used afterward.
func (r *Reader) Close() error {
	if err := r.file.Close(); err != nil {
		return newErr(IOError, "close", err)
	}
	return nil
}
