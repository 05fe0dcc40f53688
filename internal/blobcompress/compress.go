// Package blobcompress supplies the per-blob compression codecs backing
// the stream I/O layer (spec §4.B). Unlike the value codec registry in
// package codec, this set is closed: the footer records exactly one of
// none/zlib/bz2/gzip, enumerated by fdd.Compression, and every file uses
// a single algorithm for every blob it contains.
//
// This mirrors arloliu/mebo's compress package (a Compressor/Decompressor
// pair combined into a Codec, with a no-op implementation for the
// uncompressed case), generalized from mebo's fixed zstd/s2/lz4 set to
// FDD's none/zlib/bz2/gzip enum.
package blobcompress

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Codec compresses and decompresses whole blobs. Implementations must be
// safe for reuse across many Compress/Decompress calls on one handle
// (per spec §5, a handle is single-owner, so no internal locking is
// required).
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// NoOp passes blobs through unchanged. Grounded on mebo's
// compress.NoOpCompressor.
type NoOp struct{}

func (NoOp) Compress(data []byte) ([]byte, error)   { return data, nil }
func (NoOp) Decompress(data []byte) ([]byte, error) { return data, nil }

// Zlib wraps klauspost/compress/zlib, a drop-in accelerated replacement
// for stdlib compress/zlib with the identical Writer/Reader shape.
type Zlib struct{}

func (Zlib) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Zlib) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Gzip wraps klauspost/compress/gzip, the gzip analogue of Zlib above.
type Gzip struct{}

func (Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// BZ2 can only decode: stdlib compress/bzip2 has no encoder, and none of
// this project's dependencies provide a pure-Go bzip2 writer either. It
// exists so a footer naming bz2 is not itself InvalidFile and so a
// foreign file compressed with bz2 elsewhere can still be read.
type BZ2 struct{}

func (BZ2) Compress(data []byte) ([]byte, error) {
	return nil, fmt.Errorf("bz2 compression has no writer implementation available; bz2 files can only be read")
}

func (BZ2) Decompress(data []byte) ([]byte, error) {
	r := bzip2.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}
