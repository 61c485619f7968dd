// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package lineio implements record readers and writers for line-oriented
// files: plain lines, and JSON lines carrying one value per line. It also
// defines the Scanner and Writer interfaces that every record format of
// this module implements.
package lineio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/grailbio/filemanager/errors"
	"github.com/tidwall/gjson"
)

// Scanner is a finite, forward-only sequence of records. Scan advances to
// the next record and returns false at the end of the sequence or on
// error; Err distinguishes the two. A Scanner cannot be restarted.
//
//	for s.Scan() {
//		process(s.Record())
//	}
//	if err := s.Err(); err != nil {
//		...
//	}
type Scanner interface {
	Scan() bool
	Record() interface{}
	Err() error
}

// Writer persists records. Depending on the format, Write may store the
// record immediately or buffer it until the next Commit.
type Writer interface {
	Write(record interface{}) error
	Commit() error
}

type stringReader interface {
	ReadString(delim byte) (string, error)
}

// Reader reads lines. Each record is a string holding one line including
// its terminator; the last line of the input may lack one.
type Reader struct {
	rd   stringReader
	line string
	n    int
	done bool
	err  error
}

// NewReader returns a line reader of r. If r is already buffered (it has a
// ReadString method), it is used directly.
func NewReader(r io.Reader) *Reader {
	rd, ok := r.(stringReader)
	if !ok {
		rd = bufio.NewReader(r)
	}
	return &Reader{rd: rd}
}

// Scan implements Scanner.
func (r *Reader) Scan() bool {
	if r.done || r.err != nil {
		return false
	}
	line, err := r.rd.ReadString('\n')
	switch {
	case err == io.EOF:
		r.done = true
		if line == "" {
			return false
		}
	case err != nil:
		r.err = errors.E(err, fmt.Sprintf("line %d", r.n+1))
		return false
	}
	r.line = line
	r.n++
	return true
}

// Record implements Scanner. It returns the current line as a string.
func (r *Reader) Record() interface{} { return r.line }

// Line returns the current line.
func (r *Reader) Line() string { return r.line }

// LineNumber returns the 1-based number of the current line.
func (r *Reader) LineNumber() int { return r.n }

// Err implements Scanner.
func (r *Reader) Err() error { return r.err }

// JSONReader reads JSON lines. Each line must hold exactly one JSON value.
// Objects are decoded as map[string]interface{}, arrays as []interface{},
// integers that fit in 64 bits as int64, and other numbers as float64.
type JSONReader struct {
	lines *Reader
	rec   interface{}
	err   error
}

// NewJSONReader returns a JSON lines reader of r.
func NewJSONReader(r io.Reader) *JSONReader {
	return &JSONReader{lines: NewReader(r)}
}

// Scan implements Scanner. A line that is not valid JSON stops the scan
// with an error of kind errors.MalformedRecord.
func (r *JSONReader) Scan() bool {
	if r.err != nil || !r.lines.Scan() {
		return false
	}
	line := strings.TrimSpace(r.lines.Line())
	if !gjson.Valid(line) {
		r.err = errors.E(errors.MalformedRecord, fmt.Sprintf("line %d: invalid JSON", r.lines.LineNumber()))
		return false
	}
	r.rec = jsonValue(gjson.Parse(line))
	return true
}

// jsonValue converts a parsed JSON value, keeping integers exact.
func jsonValue(v gjson.Result) interface{} {
	switch v.Type {
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
				return i
			}
		}
		return v.Num
	case gjson.JSON:
		if v.IsArray() {
			a := []interface{}{}
			v.ForEach(func(_, elem gjson.Result) bool {
				a = append(a, jsonValue(elem))
				return true
			})
			return a
		}
		m := make(map[string]interface{})
		v.ForEach(func(key, val gjson.Result) bool {
			m[key.String()] = jsonValue(val)
			return true
		})
		return m
	}
	return v.Value()
}

// Record implements Scanner.
func (r *JSONReader) Record() interface{} { return r.rec }

// Err implements Scanner.
func (r *JSONReader) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.lines.Err()
}

type flusher interface {
	Flush() error
}

// TextWriter appends pre-encoded records verbatim. The caller is
// responsible for serialization and line termination.
type TextWriter struct {
	w io.Writer
}

// NewWriter returns a writer that appends to w.
func NewWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Write implements Writer. The record must be a string or a []byte.
func (w *TextWriter) Write(record interface{}) error {
	var err error
	switch v := record.(type) {
	case string:
		_, err = io.WriteString(w.w, v)
	case []byte:
		_, err = w.w.Write(v)
	default:
		return errors.E(errors.Invalid, fmt.Sprintf("write record of type %T: want string or []byte", record))
	}
	return err
}

// Commit implements Writer. Writes are not buffered, so Commit only
// flushes the underlying writer if it supports flushing.
func (w *TextWriter) Commit() error {
	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// JSONWriter writes JSON lines. Strings and byte slices are treated as
// pre-encoded and appended verbatim; any other value is encoded as one
// line of JSON.
type JSONWriter struct {
	TextWriter
}

// NewJSONWriter returns a JSON lines writer that appends to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{TextWriter{w: w}}
}

// Write implements Writer.
func (w *JSONWriter) Write(record interface{}) error {
	switch record.(type) {
	case string, []byte:
		return w.TextWriter.Write(record)
	}
	b, err := json.Marshal(record)
	if err != nil {
		return errors.E(errors.Invalid, "encode JSON record", err)
	}
	_, err = w.w.Write(append(b, '\n'))
	return err
}
