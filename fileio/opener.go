// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileio

import (
	"bufio"
	"io"

	"github.com/grailbio/filemanager/compress"
	"github.com/grailbio/filemanager/errors"
)

const (
	// DefaultBuffering is the read buffer size used by the plain opener
	// when none is given.
	DefaultBuffering = 100
	minBuffering     = 16
)

// An Opener layers a codec over an open file handle.
type Opener struct {
	// Codec is the codec this opener decodes and encodes.
	Codec Codec
	// Buffered tells whether Reader honors its buffering argument.
	Buffered bool

	reader func(r io.Reader, buffering int) (io.ReadCloser, error)
	writer func(w io.Writer) (io.WriteCloser, error)
}

// Reader returns a reader of the decoded contents of r. Buffering is the
// read buffer size in bytes; it is ignored unless o.Buffered. Closing the
// returned reader does not close r.
func (o Opener) Reader(r io.Reader, buffering int) (io.ReadCloser, error) {
	return o.reader(r, buffering)
}

// Writer returns a writer that encodes into w. The returned writer must be
// closed to flush the codec; closing it does not close w.
func (o Opener) Writer(w io.Writer) (io.WriteCloser, error) {
	return o.writer(w)
}

var openers = map[Codec]Opener{
	NoCodec: {
		Codec:    NoCodec,
		Buffered: true,
		reader: func(r io.Reader, buffering int) (io.ReadCloser, error) {
			if buffering <= 0 {
				buffering = DefaultBuffering
			}
			if buffering < minBuffering {
				buffering = minBuffering
			}
			return bufferedReader{bufio.NewReaderSize(r, buffering)}, nil
		},
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return nopWriteCloser{w}, nil
		},
	},
	Gzip: {
		Codec: Gzip,
		reader: func(r io.Reader, _ int) (io.ReadCloser, error) {
			return compress.NewGzipReader(r)
		},
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return compress.NewGzipWriter(w), nil
		},
	},
	Zstd: {
		Codec: Zstd,
		reader: func(r io.Reader, _ int) (io.ReadCloser, error) {
			return compress.NewZstdReader(r)
		},
		writer: compress.NewZstdWriter,
	},
}

// ResolveOpener returns the opener for the given codec.
func ResolveOpener(c Codec) (Opener, error) {
	o, ok := openers[c]
	if !ok {
		return Opener{}, errors.E(errors.UnsupportedCompression, c.String())
	}
	return o, nil
}

// bufferedReader keeps the methods of *bufio.Reader visible to line
// readers.
type bufferedReader struct{ *bufio.Reader }

func (bufferedReader) Close() error { return nil }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
