package fdd

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/freezedrieddata/fdd/internal/recindex"
)

// Common key types are pre-registered with encoding/gob so files keyed
// by string, any built-in integer type, float64, or bool work without
// any action from the caller. A custom key type (or a custom property or
// unstructured value type, when written through a codec whose Decode
// returns it) must be registered by the caller with gob.Register before
// the file containing it is opened for reading — the same "register by
// name before use" contract spec §9(b) describes for codecs.
func init() {
	for _, v := range []any{
		"", int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
		float32(0), float64(0), bool(false),
	} {
		gob.Register(v)
	}
}

// footerPayload is the structure gob-encoded into the on-disk footer
// (spec §6). Keys and split members are stored as []any so that
// heterogeneous key types (e.g. a string key and an int key in the same
// file, per scenario 1) round-trip through a single table.
type footerPayload struct {
	Compression  Compression
	DefaultCodec string
	Columns      []recindex.ColumnDef

	Keys     []any
	Locators []recindex.Locator

	SplitOrder []string
	Splits     map[string][]any

	PropertyOrder []string
	Properties    map[string][]byte
}

// encodeFooter gob-encodes payload and appends [footer][footerLen] to w,
// returning the total number of bytes written.
func encodeFooter(w io.Writer, payload *footerPayload) (int64, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return 0, newErr(CodecError, "close", fmt.Errorf("encoding footer: %w", err))
	}

	var written int64
	n, err := w.Write(magic[:])
	if err != nil {
		return 0, newErr(IOError, "close", err)
	}
	written += int64(n)

	n, err = w.Write(buf.Bytes())
	if err != nil {
		return 0, newErr(IOError, "close", err)
	}
	written += int64(n)

	lenBuf := make([]byte, footerLenSize)
	binary.LittleEndian.PutUint64(lenBuf, uint64(buf.Len()+len(magic)))
	n, err = w.Write(lenBuf)
	if err != nil {
		return 0, newErr(IOError, "close", err)
	}
	written += int64(n)

	return written, nil
}

// decodeFooter reads the trailing FOOTER_LEN, seeks back, and decodes
// the footer. fileSize is the total size of the file being opened.
func decodeFooter(r io.ReaderAt, fileSize int64) (*footerPayload, int64, error) {
	if fileSize < footerLenSize {
		return nil, 0, newErr(InvalidFile, "open", fmt.Errorf("file too small (%d bytes)", fileSize))
	}

	lenBuf := make([]byte, footerLenSize)
	if _, err := r.ReadAt(lenBuf, fileSize-footerLenSize); err != nil {
		return nil, 0, newErr(InvalidFile, "open", fmt.Errorf("reading footer length: %w", err))
	}
	footerLen := int64(binary.LittleEndian.Uint64(lenBuf))

	footerStart := fileSize - footerLenSize - footerLen
	if footerLen <= int64(len(magic)) || footerStart < 0 {
		return nil, 0, newErr(InvalidFile, "open", fmt.Errorf("corrupt footer length %d", footerLen))
	}

	footerBuf := make([]byte, footerLen)
	if _, err := r.ReadAt(footerBuf, footerStart); err != nil {
		return nil, 0, newErr(InvalidFile, "open", fmt.Errorf("reading footer: %w", err))
	}

	if !bytes.Equal(footerBuf[:len(magic)], magic[:]) {
		return nil, 0, newErr(InvalidFile, "open", fmt.Errorf("bad magic"))
	}

	var payload footerPayload
	if err := gob.NewDecoder(bytes.NewReader(footerBuf[len(magic):])).Decode(&payload); err != nil {
		return nil, 0, newErr(InvalidFile, "open", fmt.Errorf("decoding footer: %w", err))
	}

	if err := validateFooter(&payload, footerStart); err != nil {
		return nil, 0, err
	}

	return &payload, footerStart, nil
}

// validateFooter checks the internal-consistency invariants spec §6
// requires of a valid file: every locator strictly before the footer,
// every split member present in the index, and column-count agreement.
func validateFooter(p *footerPayload, footerStart int64) error {
	if !p.Compression.isValid() {
		return newErr(InvalidFile, "open", fmt.Errorf("unrecognised compression %d", p.Compression))
	}

	present := make(map[any]struct{}, len(p.Keys))
	for i, k := range p.Keys {
		present[k] = struct{}{}
		for _, col := range p.Locators[i].Columns {
			if col.Present() && (col.Offset < 0 || col.Offset+col.Length > footerStart) {
				return newErr(InvalidFile, "open", fmt.Errorf("locator for key %v points past the footer", k))
			}
		}
		if len(p.Columns) > 0 && len(p.Locators[i].Columns) != len(p.Columns) {
			return newErr(InvalidFile, "open", fmt.Errorf("row %v has %d columns, declaration has %d", k, len(p.Locators[i].Columns), len(p.Columns)))
		}
	}
	for name, members := range p.Splits {
		for _, k := range members {
			if _, ok := present[k]; !ok {
				return newErr(InvalidFile, "open", fmt.Errorf("split %q references absent key %v", name, k))
			}
		}
	}
	return nil
}
