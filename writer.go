package fdd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/freezedrieddata/fdd/codec"
	"github.com/freezedrieddata/fdd/internal/recindex"
	"github.com/freezedrieddata/fdd/internal/streamio"
)

// Mode selects how NewWriter opens path, mirroring original_source's
// overwrite/reopen booleans generalized into the three states spec §4.E
// enumerates.
type Mode int

const (
	// Fresh fails if the file already exists.
	Fresh Mode = iota
	// Overwrite truncates any existing file.
	Overwrite
	// Reopen loads the existing footer, reverts the file to
	// just-before-footer, and resumes appending.
	Reopen
)

// Options configures a Writer. A nil Options behaves like &Options{} —
// no columns (unstructured file), no compression, the built-in JSON
// codec as default — following sntable's WriterOptions/norm() shape.
type Options struct {
	Columns      []Column
	Compression  Compression
	DefaultCodec string // codec name; "" means "json"
	// Logger receives the one diagnostic original_source emits: a
	// warning when Close flushes more than 1000 still-pending rows.
	// Nil (the default) means no logging, matching sntable's silence.
	Logger *log.Logger
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}
	if oo.DefaultCodec == "" {
		oo.DefaultCodec = "json"
	}
	return &oo
}

// Writer streams values to disk as they arrive and emits a
// self-describing footer at Close. Grounded on sntable's Writer (block
// buffering + index + footer on Close), generalized from one
// flat-buffered block format to FDD's per-blob streaming with rows,
// splits, and properties.
type Writer struct {
	path        string
	file        *os.File
	compression Compression
	stream      *streamio.Stream
	store       *recindex.Store
	defaultName string
	pending     map[any]*PendingRow
	pendingKeys []any // tracks pending row creation order, for Close to commit deterministically
	closed      bool
	logger      *log.Logger
}

// NewWriter opens path in the given Mode and returns a Writer ready to
// accept Set/Row/SetProperty calls.
func NewWriter(path string, mode Mode, opts *Options) (*Writer, error) {
	// A "^split-spec" suffix is accepted for symmetry with the reader
	// constructor (spec §6) but carries no restriction here: a writer
	// always operates against the full index.
	filePath, _ := parsePath(path)

	switch mode {
	case Fresh, Overwrite:
		norm := opts.norm()
		if _, ok := codec.Lookup(norm.DefaultCodec); !ok {
			return nil, newErr(CodecError, "open", fmt.Errorf("default codec %q is not registered", norm.DefaultCodec))
		}
		if !norm.Compression.isValid() {
			return nil, newErr(InvalidFile, "open", fmt.Errorf("unrecognised compression %v", norm.Compression))
		}
		if norm.Compression == BZ2Compression {
			return nil, newErr(CodecError, "open", fmt.Errorf("bz2 compression has no writer implementation; choose a different Compression"))
		}
		return newWriterFresh(filePath, mode, norm)
	case Reopen:
		var raw Options
		if opts != nil {
			raw = *opts
		}
		if !raw.Compression.isValid() {
			return nil, newErr(InvalidFile, "open", fmt.Errorf("unrecognised compression %v", raw.Compression))
		}
		return newWriterReopen(filePath, &raw)
	default:
		return nil, newErr(BadState, "open", fmt.Errorf("unrecognised mode %d", mode))
	}
}

func newWriterFresh(path string, mode Mode, opts *Options) (*Writer, error) {
	flags := os.O_CREATE | os.O_RDWR
	if mode == Fresh {
		flags |= os.O_EXCL
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, newErr(IOError, "open", err)
	}

	compCodec, err := opts.Compression.codec()
	if err != nil {
		f.Close()
		return nil, newErr(InvalidFile, "open", err)
	}

	store := recindex.New()
	for _, c := range opts.Columns {
		store.Columns = append(store.Columns, recindex.ColumnDef{Name: c.Name, Codec: c.Codec})
	}

	w := &Writer{
		path:        path,
		file:        f,
		compression: opts.Compression,
		stream:      streamio.NewStream(f, f, compCodec, 0),
		store:       store,
		defaultName: opts.DefaultCodec,
		pending:     map[any]*PendingRow{},
		logger:      opts.Logger,
	}
	return w, nil
}

func newWriterReopen(path string, opts *Options) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
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

	if len(opts.Columns) > 0 && !sameColumns(opts.Columns, payload.Columns) {
		f.Close()
		return nil, newErr(SchemaMismatch, "open", fmt.Errorf("reopen column definition does not match existing file"))
	}
	if opts.Compression != NoCompression && opts.Compression != payload.Compression {
		f.Close()
		return nil, newErr(SchemaMismatch, "open", fmt.Errorf("reopen compression %v does not match existing %v", opts.Compression, payload.Compression))
	}
	if opts.DefaultCodec != "" && opts.DefaultCodec != payload.DefaultCodec {
		f.Close()
		return nil, newErr(SchemaMismatch, "open", fmt.Errorf("reopen default codec %q does not match existing %q", opts.DefaultCodec, payload.DefaultCodec))
	}
	if payload.Compression == BZ2Compression {
		f.Close()
		return nil, newErr(CodecError, "open", fmt.Errorf("bz2 compression has no writer implementation; %q cannot be reopened for append", path))
	}
	if _, ok := codec.Lookup(payload.DefaultCodec); !ok {
		f.Close()
		return nil, newErr(CodecError, "open", fmt.Errorf("default codec %q is not registered", payload.DefaultCodec))
	}

	if err := f.Truncate(footerStart); err != nil {
		f.Close()
		return nil, newErr(IOError, "open", err)
	}
	// Truncate leaves the file position where it was (0 after OpenFile);
	// move it to the new end so appended blobs land after the old ones.
	if _, err := f.Seek(footerStart, io.SeekStart); err != nil {
		f.Close()
		return nil, newErr(IOError, "open", err)
	}

	compCodec, err := payload.Compression.codec()
	if err != nil {
		f.Close()
		return nil, newErr(InvalidFile, "open", err)
	}

	store := recindex.New()
	store.LoadFooter(payload.Keys, payload.Locators, payload.Columns, payload.SplitOrder, payload.Splits, payload.PropertyOrder, payload.Properties)

	w := &Writer{
		path:        path,
		file:        f,
		compression: payload.Compression,
		stream:      streamio.NewStream(f, f, compCodec, footerStart),
		store:       store,
		defaultName: payload.DefaultCodec,
		pending:     map[any]*PendingRow{},
		logger:      opts.Logger,
	}
	return w, nil
}

func sameColumns(want []Column, have []recindex.ColumnDef) bool {
	if len(want) != len(have) {
		return false
	}
	for i, c := range want {
		if c.Name != have[i].Name || c.Codec != have[i].Codec {
			return false
		}
	}
	return true
}

// Columns returns the file's column declaration (empty for unstructured
// files).
func (w *Writer) Columns() []Column {
	out := make([]Column, len(w.store.Columns))
	for i, c := range w.store.Columns {
		out[i] = Column{Name: c.Name, Codec: c.Codec}
	}
	return out
}

func (w *Writer) columnCodec(i int) (codec.Codec, error) {
	name := w.store.Columns[i].Codec
	if name == "" {
		name = w.defaultName
	}
	c, ok := codec.Lookup(name)
	if !ok {
		return nil, newErr(CodecError, "set", fmt.Errorf("codec %q for column %q is not registered", name, w.store.Columns[i].Name))
	}
	return c, nil
}

func (w *Writer) defaultCodec() codec.Codec {
	return codec.MustLookup(w.defaultName)
}

func (w *Writer) encodeAndPut(c codec.Codec, value any) (recindex.OffsetLen, error) {
	if value == nil {
		return recindex.Absent, nil
	}
	raw, err := c.Encode(value)
	if err != nil {
		return recindex.OffsetLen{}, newErr(CodecError, "set", err)
	}
	offset, length, err := w.stream.Put(raw)
	if err != nil {
		return recindex.OffsetLen{}, newErr(IOError, "set", err)
	}
	return recindex.OffsetLen{Offset: offset, Length: length}, nil
}

// Set commits a whole row in one call: record is a map[string]any or
// []any when columns are declared, or any single value for an
// unstructured file. It fails if key is already present (committed or
// pending) or the writer is closed.
func (w *Writer) Set(key any, record any) error {
	if w.closed {
		return newErr(BadState, "set", fmt.Errorf("writer is closed"))
	}
	if w.store.Contains(key) {
		return newErr(DuplicateKey, "set", fmt.Errorf("key %v already present", key))
	}
	if _, ok := w.pending[key]; ok {
		return newErr(DuplicateKey, "set", fmt.Errorf("key %v has a pending row", key))
	}

	numCols := len(w.store.Columns)
	if numCols == 0 {
		ol, err := w.encodeAndPut(w.defaultCodec(), record)
		if err != nil {
			return err
		}
		w.store.Put(key, recindex.Locator{Columns: []recindex.OffsetLen{ol}})
		return nil
	}

	values := make([]any, numCols)
	switch v := record.(type) {
	case map[string]any:
		for name := range v {
			if w.columnIndex(name) < 0 {
				return newErr(BadState, "set", fmt.Errorf("record has no column %q", name))
			}
		}
		for i, col := range w.store.Columns {
			if val, ok := v[col.Name]; ok {
				values[i] = val
			}
		}
	case []any:
		if len(v) != numCols {
			return newErr(BadState, "set", fmt.Errorf("record has %d values, %d columns declared", len(v), numCols))
		}
		copy(values, v)
	default:
		return newErr(BadState, "set", fmt.Errorf("record must be a map[string]any or []any for a columnar file, got %T", record))
	}

	slots := make([]recindex.OffsetLen, numCols)
	for i, val := range values {
		c, err := w.columnCodec(i)
		if err != nil {
			return err
		}
		ol, err := w.encodeAndPut(c, val)
		if err != nil {
			return err
		}
		slots[i] = ol
	}
	w.store.Put(key, recindex.Locator{Columns: slots})
	return nil
}

func (w *Writer) columnIndex(name string) int {
	for i, c := range w.store.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns a handle for piecewise, column-by-column assignment to
// key. Calling Row twice for the same still-pending key returns the same
// handle; calling it for a key already committed is a DuplicateKey error.
func (w *Writer) Row(key any) (*PendingRow, error) {
	if w.closed {
		return nil, newErr(BadState, "row", fmt.Errorf("writer is closed"))
	}
	if len(w.store.Columns) == 0 {
		return nil, newErr(BadState, "row", fmt.Errorf("piecewise assignment requires a column declaration"))
	}
	if w.store.Contains(key) {
		return nil, newErr(DuplicateKey, "row", fmt.Errorf("key %v already present", key))
	}
	if pr, ok := w.pending[key]; ok {
		return pr, nil
	}
	pr := newPendingRow(w, key, len(w.store.Columns))
	w.pending[key] = pr
	w.pendingKeys = append(w.pendingKeys, key)
	return pr, nil
}

func (w *Writer) commitPending(p *PendingRow) error {
	cp := append([]recindex.OffsetLen(nil), p.slots...)
	if !w.store.Put(p.key, recindex.Locator{Columns: cp}) {
		return newErr(DuplicateKey, "row.finalize", fmt.Errorf("key %v already committed", p.key))
	}
	delete(w.pending, p.key)
	return nil
}

// Get returns the currently known state of key's row: the committed
// locator if it has one, or the pending row's partially filled slots if
// it is still PARTIAL. This is the writer's reader-style mapping surface
// (spec §4.D).
func (w *Writer) Get(key any) (*Row, error) {
	var loc recindex.Locator
	if l, ok := w.store.Get(key); ok {
		loc = l
	} else if p, ok := w.pending[key]; ok {
		loc = recindex.Locator{Columns: append([]recindex.OffsetLen(nil), p.slots...)}
	} else {
		return nil, newErr(NotFound, "get", fmt.Errorf("key %v not found", key))
	}

	var codecs []codec.Codec
	if len(w.store.Columns) == 0 {
		codecs = []codec.Codec{w.defaultCodec()}
	} else {
		codecs = make([]codec.Codec, len(w.store.Columns))
		for i := range w.store.Columns {
			c, err := w.columnCodec(i)
			if err == nil {
				codecs[i] = c
			}
		}
	}
	return newRow(loc, w.store.Columns, codecs, w.stream), nil
}

// SetProperty attaches a named, codec-encoded scalar to the file,
// overwriting any previous value.
func (w *Writer) SetProperty(name string, value any) error {
	if w.closed {
		return newErr(BadState, "set-property", fmt.Errorf("writer is closed"))
	}
	raw, err := w.defaultCodec().Encode(value)
	if err != nil {
		return newErr(CodecError, "set-property", err)
	}
	w.store.SetProperty(name, raw)
	return nil
}

// MakeSplit creates a new named, ordered split over keys already present.
func (w *Writer) MakeSplit(name string, keys []any) error {
	if err := w.store.MakeSplit(name, keys); err != nil {
		return newErr(NotFound, "make-split", err)
	}
	return nil
}

// AddToSplit extends an existing split with more keys.
func (w *Writer) AddToSplit(name string, keys []any) error {
	if err := w.store.AddToSplit(name, keys); err != nil {
		return newErr(NotFound, "add-to-split", err)
	}
	return nil
}

// ReplaceSplit overwrites a split's key list wholesale.
func (w *Writer) ReplaceSplit(name string, keys []any) error {
	if err := w.store.ReplaceSplit(name, keys); err != nil {
		return newErr(NotFound, "replace-split", err)
	}
	return nil
}

// CopyRowFrom copies one row from an already-open Reader into this
// Writer under destKey (or srcKey, if destKey is nil). For each declared
// column: if overrides doesn't supply it, the source has a locator for
// it, and the source and destination codecs are the same name under the
// same compression algorithm, the raw on-disk bytes are copied verbatim
// (spec's pass-through identity property); otherwise the source value is
// decoded and re-encoded through the destination's codec.
func (w *Writer) CopyRowFrom(src *Reader, srcKey any, destKey any, overrides map[string]any) error {
	if destKey == nil {
		destKey = srcKey
	}
	if len(w.store.Columns) == 0 {
		return newErr(BadState, "copy-row", fmt.Errorf("copy_row_from requires a columnar file"))
	}
	srcLoc, ok := src.store.Get(srcKey)
	if !ok {
		return newErr(NotFound, "copy-row", fmt.Errorf("source key %v not found", srcKey))
	}

	slots := make([]recindex.OffsetLen, len(w.store.Columns))
	sameCompression := src.compression == w.compression

	for i, col := range w.store.Columns {
		if val, overridden := overrides[col.Name]; overridden {
			c, err := w.columnCodec(i)
			if err != nil {
				return err
			}
			ol, err := w.encodeAndPut(c, val)
			if err != nil {
				return err
			}
			slots[i] = ol
			continue
		}

		if i >= len(src.store.Columns) || !srcLoc.Columns[i].Present() {
			slots[i] = recindex.Absent
			continue
		}

		srcName := src.store.Columns[i].Codec
		if srcName == "" {
			srcName = src.defaultName
		}
		destName := col.Codec
		if destName == "" {
			destName = w.defaultName
		}

		if sameCompression && srcName == destName {
			raw, err := src.stream.GetRaw(srcLoc.Columns[i].Offset, srcLoc.Columns[i].Length)
			if err != nil {
				return newErr(IOError, "copy-row", err)
			}
			offset, length, err := w.stream.PutRaw(raw)
			if err != nil {
				return newErr(IOError, "copy-row", err)
			}
			slots[i] = recindex.OffsetLen{Offset: offset, Length: length}
			continue
		}

		row, err := src.rowFor(srcLoc)
		if err != nil {
			return err
		}
		val, err := row.ByIndex(i)
		if err != nil {
			return err
		}
		c, err := w.columnCodec(i)
		if err != nil {
			return err
		}
		ol, err := w.encodeAndPut(c, val)
		if err != nil {
			return err
		}
		slots[i] = ol
	}

	if !w.store.Put(destKey, recindex.Locator{Columns: slots}) {
		return newErr(DuplicateKey, "copy-row", fmt.Errorf("key %v already present", destKey))
	}
	return nil
}

// Close flushes any still-pending rows, writes the footer and trailing
// FOOTER_LEN, and makes the Writer unusable for further operations.
func (w *Writer) Close() error {
	if w.closed {
		return newErr(BadState, "close", fmt.Errorf("writer is already closed"))
	}

	if len(w.pending) > 1000 && w.logger != nil {
		w.logger.Printf("fdd: closing with %d unfinalized rows; call Finalize() as rows complete to avoid holding them in memory", len(w.pending))
	}
	// Commit remaining pending rows in the order Row() was first called
	// for each key, not map iteration order, so a reopened file's index
	// still reflects insertion order (spec §3's "insertion order
	// preserved" invariant) even when 2+ rows are left unfinalized.
	for _, key := range w.pendingKeys {
		p, ok := w.pending[key]
		if !ok {
			continue // already finalized earlier (auto-finalize or explicit Finalize)
		}
		if err := p.Finalize(); err != nil {
			return err
		}
	}

	payload := &footerPayload{
		Compression:   w.compression,
		DefaultCodec:  w.defaultName,
		Columns:       w.store.Columns,
		Keys:          w.store.Keys(),
		Locators:      w.store.Locators(),
		SplitOrder:    w.store.SplitNames(),
		Splits:        splitsMap(w.store),
		PropertyOrder: w.store.PropertyNames(),
		Properties:    propertiesMap(w.store),
	}

	if _, err := encodeFooter(w.file, payload); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return newErr(IOError, "close", err)
	}
	w.closed = true
	return nil
}

func splitsMap(s *recindex.Store) map[string][]any {
	out := make(map[string][]any, len(s.SplitNames()))
	for _, name := range s.SplitNames() {
		keys, _ := s.SplitKeys(name)
		out[name] = keys
	}
	return out
}

func propertiesMap(s *recindex.Store) map[string][]byte {
	out := make(map[string][]byte, len(s.PropertyNames()))
	for _, name := range s.PropertyNames() {
		raw, _ := s.Property(name)
		out[name] = raw
	}
	return out
}
