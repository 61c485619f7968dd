// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileio

import (
	"io"
	"strings"

	"github.com/grailbio/filemanager/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Encoding returns the text encoding with the given name, as understood by
// the WHATWG encoding standard (for example "utf-8", "latin1",
// "utf-16le"). Encoding returns nil for the empty name and for UTF-8, which
// need no transcoding.
func Encoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errors.E(errors.Invalid, "text encoding "+name, err)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

// DecodeReader returns a reader that transcodes r from enc into UTF-8.
// A nil enc returns r unchanged.
func DecodeReader(r io.Reader, enc encoding.Encoding) io.Reader {
	if enc == nil {
		return r
	}
	return enc.NewDecoder().Reader(r)
}

// EncodeWriter returns a writer that transcodes UTF-8 into enc before
// writing to w. A nil enc returns w unchanged.
func EncodeWriter(w io.Writer, enc encoding.Encoding) io.Writer {
	if enc == nil {
		return w
	}
	return enc.NewEncoder().Writer(w)
}
