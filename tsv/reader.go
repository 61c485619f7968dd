// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package tsv

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/grailbio/filemanager/errors"
)

// DefaultOverflowKey is the record key that holds the extra fields of rows
// longer than the header.
const DefaultOverflowKey = "_extra"

// Options configures a Reader.
type Options struct {
	// Comma is the field delimiter. It defaults to ",". Use "\t" for TSV.
	Comma string `yaml:"comma"`
	// Comment, if set, marks lines to be skipped when it is their first
	// character.
	Comment string `yaml:"comment"`
	// OverflowKey is the key of the extra fields of long rows. It
	// defaults to DefaultOverflowKey.
	OverflowKey string `yaml:"overflow_key"`
	// LazyQuotes allows quotes to appear in unquoted fields, and
	// non-doubled quotes in quoted fields.
	LazyQuotes bool `yaml:"lazy_quotes"`
	// TrimLeadingSpace ignores leading white space in fields.
	TrimLeadingSpace bool `yaml:"trim_leading_space"`
}

func delimiter(name, s string) (rune, error) {
	r, n := utf8.DecodeRuneInString(s)
	if n != len(s) || r == utf8.RuneError {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("%s must be a single character, got %q", name, s))
	}
	return r, nil
}

// Reader reads delimited text into records of type map[string]interface{}
// whose values are strings, except for the overflow key. It wraps around the
// standard csv.Reader. Thread compatible.
type Reader struct {
	*csv.Reader

	overflowKey string
	header      []string
	rec         map[string]interface{}
	done        bool
	err         error
}

// NewReader creates a new reader of the given input.
func NewReader(in io.Reader, opts Options) (*Reader, error) {
	r := &Reader{
		Reader:      csv.NewReader(in),
		overflowKey: opts.OverflowKey,
	}
	if r.overflowKey == "" {
		r.overflowKey = DefaultOverflowKey
	}
	if opts.Comma != "" {
		c, err := delimiter("comma", opts.Comma)
		if err != nil {
			return nil, err
		}
		r.Comma = c
	}
	if opts.Comment != "" {
		c, err := delimiter("comment", opts.Comment)
		if err != nil {
			return nil, err
		}
		r.Reader.Comment = c
	}
	r.LazyQuotes = opts.LazyQuotes
	r.TrimLeadingSpace = opts.TrimLeadingSpace
	// Field counts are checked by the fill/overflow policy instead.
	r.FieldsPerRecord = -1
	return r, nil
}

// Header returns the column names, once the header row has been read.
func (r *Reader) Header() []string { return r.header }

func (r *Reader) read() ([]string, bool) {
	row, err := r.Reader.Read()
	if err == io.EOF {
		r.done = true
		return nil, false
	}
	if err != nil {
		var perr *csv.ParseError
		if stderrors.As(err, &perr) {
			err = errors.E(errors.MalformedRecord, fmt.Sprintf("line %d, column %d", perr.Line, perr.Column), perr.Err)
		}
		r.err = err
		return nil, false
	}
	return row, true
}

// Scan implements lineio.Scanner. The first call consumes the header row.
// An input without a header row yields no records.
func (r *Reader) Scan() bool {
	if r.done || r.err != nil {
		return false
	}
	if r.header == nil {
		header, ok := r.read()
		if !ok {
			return false
		}
		r.header = append([]string(nil), header...)
	}
	row, ok := r.read()
	if !ok {
		return false
	}
	rec := make(map[string]interface{}, len(r.header))
	for i, val := range row {
		if i >= len(r.header) {
			rec[r.overflowKey] = append([]string(nil), row[i:]...)
			break
		}
		rec[r.header[i]] = val
	}
	r.rec = rec
	return true
}

// Record implements lineio.Scanner.
func (r *Reader) Record() interface{} { return r.rec }

// Err implements lineio.Scanner.
func (r *Reader) Err() error { return r.err }
