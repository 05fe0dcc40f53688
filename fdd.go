// Package fdd implements Freeze-Dried Data: a single-file, append-only,
// immutable-after-close container mapping user-supplied keys to records
// of opaque blobs or typed column tuples.
//
// A file is written with a Writer and later opened for random access
// with a Reader. Both hold exactly one open file descriptor and are not
// safe for concurrent use by more than one goroutine at a time.
package fdd

import (
	"fmt"

	"github.com/freezedrieddata/fdd/internal/blobcompress"
)

// magic identifies an FDD file and its format version. It is the
// fixed-width region every footer starts with (sntable's footer, by
// contrast, ends with its 8-byte magic sequence).
var magic = [8]byte{'F', 'R', 'Z', 'D', 'R', 'D', 0x01, 0x00}

// footerLenSize is the width, in bytes, of the trailing little-endian
// integer giving the footer's length (spec §6's FOOTER_LEN).
const footerLenSize = 8

// Compression names the single per-blob compression algorithm recorded
// once in a file's footer and applied uniformly to every blob it holds.
type Compression byte

const (
	NoCompression Compression = iota
	ZlibCompression
	BZ2Compression
	GzipCompression
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZlibCompression:
		return "zlib"
	case BZ2Compression:
		return "bz2"
	case GzipCompression:
		return "gzip"
	default:
		return fmt.Sprintf("Compression(%d)", byte(c))
	}
}

func (c Compression) isValid() bool {
	return c >= NoCompression && c <= GzipCompression
}

func (c Compression) codec() (blobcompress.Codec, error) {
	switch c {
	case NoCompression:
		return blobcompress.NoOp{}, nil
	case ZlibCompression:
		return blobcompress.Zlib{}, nil
	case BZ2Compression:
		return blobcompress.BZ2{}, nil
	case GzipCompression:
		return blobcompress.Gzip{}, nil
	default:
		return nil, fmt.Errorf("unrecognised compression %v", c)
	}
}

// Column declares one named, codec-bound slot in every record of a
// columnar file. Column order is fixed at creation and defines
// positional indexing; names must be unique within a file.
type Column struct {
	Name  string
	Codec string // name registered in package codec; "" means the writer's default codec
}
