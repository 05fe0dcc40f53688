package fdd

import (
	"fmt"

	"github.com/freezedrieddata/fdd/codec"
	"github.com/freezedrieddata/fdd/internal/recindex"
	"github.com/freezedrieddata/fdd/internal/streamio"
)

// Row is a reader-side materialisation of one record: an on-demand
// object supporting column access by name, by positional index, and
// mapping semantics, all backed by the same locator. Each accessor
// performs at most one disk read and one decode; nothing is cached here
// (spec §4.F — callers that want caching wrap externally).
//
// Grounded on original_source's FDDReadRow, generalized from its
// three duck-typed accessors (__getitem__, __getattr__, positional
// slicing) to Go's explicit ByName/ByIndex/Get.
type Row struct {
	loc     recindex.Locator
	columns []recindex.ColumnDef
	codecs  []codec.Codec // parallel to columns; nil entry means "not registered"
	stream  *streamio.Stream
}

func newRow(loc recindex.Locator, columns []recindex.ColumnDef, codecs []codec.Codec, stream *streamio.Stream) *Row {
	return &Row{loc: loc, columns: columns, codecs: codecs, stream: stream}
}

// Value returns the single decoded value of an unstructured record. It
// is a BadState error to call this on a columnar record.
func (r *Row) Value() (any, error) {
	if len(r.columns) != 0 {
		return nil, newErr(BadState, "row.Value", fmt.Errorf("record is columnar, use ByName/ByIndex"))
	}
	return r.decodeAt(0, defaultRowCodec(r.codecs))
}

// ByIndex returns the decoded value of the column at position i, or nil
// if that column was never set for this row.
func (r *Row) ByIndex(i int) (any, error) {
	if i < 0 || i >= len(r.columns) {
		return nil, newErr(NotFound, "row.ByIndex", fmt.Errorf("column index %d out of range", i))
	}
	c := r.codecs[i]
	if c == nil {
		return nil, newErr(CodecError, "row.ByIndex", fmt.Errorf("codec %q for column %q is not registered", r.columns[i].Codec, r.columns[i].Name))
	}
	return r.decodeAt(i, c)
}

// ByName returns the decoded value of the named column.
func (r *Row) ByName(name string) (any, error) {
	for i, col := range r.columns {
		if col.Name == name {
			return r.ByIndex(i)
		}
	}
	return nil, newErr(NotFound, "row.ByName", fmt.Errorf("column %q not declared", name))
}

// Get is an alias for ByName, offered for mapping-style call sites.
func (r *Row) Get(name string) (any, error) { return r.ByName(name) }

// Dict decodes every declared column and returns the row as a map,
// mirroring original_source's FDDReadRow.get_dict.
func (r *Row) Dict() (map[string]any, error) {
	out := make(map[string]any, len(r.columns))
	for i, col := range r.columns {
		v, err := r.ByIndex(i)
		if err != nil {
			return nil, err
		}
		out[col.Name] = v
	}
	return out, nil
}

func (r *Row) decodeAt(i int, c codec.Codec) (any, error) {
	ol := r.loc.Columns[i]
	if !ol.Present() {
		return nil, nil
	}
	raw, err := r.stream.Get(ol.Offset, ol.Length)
	if err != nil {
		return nil, newErr(IOError, "row.decode", err)
	}
	v, err := c.Decode(raw)
	if err != nil {
		return nil, newErr(CodecError, "row.decode", err)
	}
	return v, nil
}

func defaultRowCodec(codecs []codec.Codec) codec.Codec {
	if len(codecs) == 0 {
		return nil
	}
	return codecs[0]
}

// PendingRow is a partially-populated row under piecewise assignment
// (spec §4.D). It moves NEW → PARTIAL as columns are set, and commits
// (COMMITTED) either when Finalize is called explicitly, when the last
// still-unset declared column is filled (original_source's FDDSetter
// auto-finalises this way), or when the owning Writer closes.
type PendingRow struct {
	w         *Writer
	key       any
	slots     []recindex.OffsetLen
	filled    []bool
	numFilled int
	committed bool
}

func newPendingRow(w *Writer, key any, numColumns int) *PendingRow {
	slots := make([]recindex.OffsetLen, numColumns)
	for i := range slots {
		slots[i] = recindex.Absent
	}
	return &PendingRow{w: w, key: key, slots: slots, filled: make([]bool, numColumns)}
}

// Set assigns the named column's value, encoding and appending its blob
// immediately.
func (p *PendingRow) Set(column string, value any) error {
	idx := -1
	for i, c := range p.w.store.Columns {
		if c.Name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return newErr(NotFound, "row.Set", fmt.Errorf("column %q not declared", column))
	}
	return p.SetIndex(idx, value)
}

// SetIndex assigns the value of the column at position i.
func (p *PendingRow) SetIndex(i int, value any) error {
	if p.committed {
		return newErr(BadState, "row.Set", fmt.Errorf("row has already been finalized"))
	}
	if i < 0 || i >= len(p.slots) {
		return newErr(NotFound, "row.Set", fmt.Errorf("column index %d out of range", i))
	}
	c, err := p.w.columnCodec(i)
	if err != nil {
		return err
	}
	ol, err := p.w.encodeAndPut(c, value)
	if err != nil {
		return err
	}
	if !p.filled[i] {
		p.filled[i] = true
		p.numFilled++
	}
	p.slots[i] = ol

	if p.numFilled == len(p.slots) {
		return p.Finalize()
	}
	return nil
}

// Finalize commits the row: its current slots (absent sentinel for any
// column never set) are moved into the writer's index.
func (p *PendingRow) Finalize() error {
	if p.committed {
		return nil
	}
	if err := p.w.commitPending(p); err != nil {
		return err
	}
	p.committed = true
	return nil
}
