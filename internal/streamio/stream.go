// Package streamio implements FDD's stream I/O layer (spec §4.B):
// length-prefixed-by-the-index blob writes, and seek+read of blobs by
// (offset, length), with optional whole-file compression applied
// per-blob.
//
// Grounded on sntable's Writer.writeRaw/flush (sequential writes with
// manually tracked offset accounting) and Reader.readBlock (ReadAt by
// absolute offset), generalized from sntable's fixed-size compressed
// blocks of many cells to FDD's one-compressed-blob-per-value model.
package streamio

import (
	"fmt"
	"io"
)

// Codec compresses and decompresses a whole blob.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Stream appends compressed blobs to a io.Writer (tracking the absolute
// write offset itself, since not every io.Writer supports Seek) and
// reads them back via an io.ReaderAt.
type Stream struct {
	w      io.Writer
	r      io.ReaderAt
	codec  Codec
	offset int64
}

// NewWriterStream wraps w for sequential blob appends, starting the
// offset counter at startOffset (the current end of the file, e.g. when
// reopening for append).
func NewWriterStream(w io.Writer, codec Codec, startOffset int64) *Stream {
	return &Stream{w: w, codec: codec, offset: startOffset}
}

// NewReaderStream wraps r for random-access blob reads.
func NewReaderStream(r io.ReaderAt, codec Codec) *Stream {
	return &Stream{r: r, codec: codec}
}

// NewStream wraps a handle that can both append (w) and randomly read
// (r) — the shape of an *os.File, which lets a Writer read back blobs it
// has already written without disturbing its own append position.
func NewStream(w io.Writer, r io.ReaderAt, codec Codec, startOffset int64) *Stream {
	return &Stream{w: w, r: r, codec: codec, offset: startOffset}
}

// SetReaderAt rebinds the stream's read handle, used by Reader's fork
// safety to swap in a freshly reopened file descriptor without losing
// write-side state (streams used only for reading never need this on
// the write side).
func (s *Stream) SetReaderAt(r io.ReaderAt) { s.r = r }

// Offset returns the current write position — the offset the next Put
// will be written at.
func (s *Stream) Offset() int64 { return s.offset }

// Put compresses data and appends it at the stream's current offset,
// returning the byte range it occupies on disk. Blobs are not
// self-delimiting: callers must record the returned (offset, length) in
// the index themselves.
func (s *Stream) Put(data []byte) (offset int64, length int64, err error) {
	if s.w == nil {
		return 0, 0, fmt.Errorf("streamio: stream is not open for writing")
	}
	encoded, err := s.codec.Compress(data)
	if err != nil {
		return 0, 0, err
	}
	n, err := s.w.Write(encoded)
	if err != nil {
		return 0, 0, err
	}
	offset = s.offset
	s.offset += int64(n)
	return offset, int64(n), nil
}

// Get seeks to offset and reads exactly length bytes, then decompresses
// them.
func (s *Stream) Get(offset, length int64) ([]byte, error) {
	if s.r == nil {
		return nil, fmt.Errorf("streamio: stream is not open for reading")
	}
	raw := make([]byte, length)
	if _, err := s.r.ReadAt(raw, offset); err != nil {
		return nil, err
	}
	return s.codec.Decompress(raw)
}

// PutRaw appends pre-encoded bytes without compressing them, used for
// pass-through copies (spec §4.E copy_row_from) where the source blob's
// compressed bytes are already in the destination's codec/compression.
func (s *Stream) PutRaw(data []byte) (offset int64, length int64, err error) {
	if s.w == nil {
		return 0, 0, fmt.Errorf("streamio: stream is not open for writing")
	}
	n, err := s.w.Write(data)
	if err != nil {
		return 0, 0, err
	}
	offset = s.offset
	s.offset += int64(n)
	return offset, int64(n), nil
}

// GetRaw reads length bytes at offset without decompressing them, used
// for pass-through copies.
func (s *Stream) GetRaw(offset, length int64) ([]byte, error) {
	if s.r == nil {
		return nil, fmt.Errorf("streamio: stream is not open for reading")
	}
	raw := make([]byte, length)
	if _, err := s.r.ReadAt(raw, offset); err != nil {
		return nil, err
	}
	return raw, nil
}
