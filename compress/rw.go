// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package compress provides the gzip and zstd readers and writers that
// back compressed files, and a reader that detects compression from the
// leading bytes of its input.
package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// errorReader is a ReadCloser implementation that always returns the given
// error.
type errorReader struct{ err error }

func (r *errorReader) Read(buf []byte) (int, error) { return 0, r.err }
func (r *errorReader) Close() error                 { return r.err }

func isGzipHeader(buf []byte) bool {
	if len(buf) < 10 {
		return false
	}
	if !(buf[0] == 0x1f && buf[1] == 0x8b) {
		return false
	}
	if !(buf[2] <= 3 || buf[2] == 8) {
		return false
	}
	if (buf[3] & 0xc0) != 0 {
		return false
	}
	if !(buf[9] <= 0xd || buf[9] == 0xff) {
		return false
	}
	return true
}

// https://tools.ietf.org/html/rfc8478#section-3.1.1
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func isZstdHeader(buf []byte) bool {
	return bytes.HasPrefix(buf, zstdMagic)
}

// NewReader creates an uncompressing reader by reading the first few bytes of
// the input and finding a magic header for either gzip or zstd. If the magic
// header is found, it returns an uncompressing ReadCloser and true. Else, it
// returns io.NopCloser(r) and false.
//
// CAUTION: this function will misbehave when the input is a binary string that
// happens to have the same magic header. Thus, you should use this function
// only when the input is expected to be text.
func NewReader(r io.Reader) (io.ReadCloser, bool) {
	buf := bytes.Buffer{}
	_, err := io.CopyN(&buf, r, 128)
	var m io.Reader
	switch err {
	case io.EOF:
		m = &buf
	case nil:
		m = io.MultiReader(&buf, r)
	default:
		m = io.MultiReader(&buf, &errorReader{err})
	}
	switch {
	case isGzipHeader(buf.Bytes()):
		z, err := NewGzipReader(m)
		if err != nil {
			return &errorReader{err}, false
		}
		return z, true
	case isZstdHeader(buf.Bytes()):
		z, err := NewZstdReader(m)
		if err != nil {
			return &errorReader{err}, false
		}
		return z, true
	}
	return io.NopCloser(m), false
}

// NewGzipReader returns a reader of the gzip stream r. Concatenated gzip
// members are read as one stream.
func NewGzipReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// NewGzipWriter returns a writer that gzips into w. The caller must close
// it to flush the stream trailer.
func NewGzipWriter(w io.Writer) io.WriteCloser {
	return gzip.NewWriter(w)
}

type zstdReader struct {
	*zstd.Decoder
}

func (r zstdReader) Close() error {
	r.Decoder.Close()
	return nil
}

// NewZstdReader returns a reader of the zstd stream r.
func NewZstdReader(r io.Reader) (io.ReadCloser, error) {
	// The decoder's background goroutines are not needed for a single
	// sequential stream.
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return zstdReader{zr}, nil
}

// NewZstdWriter returns a writer that compresses into w with the default
// level. The caller must close it to flush the final frame.
func NewZstdWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}
