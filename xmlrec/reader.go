// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package xmlrec splits an XML document into records, one per element
// with a given name, and converts each into nested maps.
//
// The conversion follows the common attribute/text convention: an
// attribute becomes a key prefixed by "@", character data becomes the key
// "#text", and a child element becomes a key holding its converted value,
// or a []interface{} of values in document order when the child's name
// repeats. An element with neither attributes nor children converts to
// its text, and an empty element converts to nil. For example
//
//	<book id="7"><title>Go</title><tag>a</tag><tag>b</tag></book>
//
// converts to
//
//	{"book": {"@id": "7", "title": "Go", "tag": ["a", "b"]}}
package xmlrec

import (
	"bufio"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/grailbio/filemanager/errors"
)

const (
	attrPrefix = "@"
	textKey    = "#text"
)

// recorder keeps the bytes consumed by the decoder from offset base on.
type recorder struct {
	r    *bufio.Reader
	buf  []byte
	base int64
}

func (r *recorder) ReadByte() (byte, error) {
	b, err := r.r.ReadByte()
	if err == nil {
		r.buf = append(r.buf, b)
	}
	return b, err
}

func (r *recorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.buf = append(r.buf, p[:n]...)
	return n, err
}

func (r *recorder) slice(start, end int64) []byte {
	return r.buf[start-r.base : end-r.base]
}

// discard drops the bytes before offset off.
func (r *recorder) discard(off int64) {
	n := copy(r.buf, r.buf[off-r.base:])
	r.buf = r.buf[:n]
	r.base = off
}

// Reader streams the records of an XML document. Only the markup of the
// split elements that are still open is held in memory. The input must be
// UTF-8; an encoding named in the XML declaration is ignored (see
// fileio.Encoding to transcode other encodings).
type Reader struct {
	src      *recorder
	dec      *xml.Decoder
	splitTag string
	local    string
	starts   []int64
	rec      map[string]interface{}
	done     bool
	err      error
}

// NewReader returns a reader that yields one record per element of r named
// splitTag. A prefixed split tag ("ns:item") matches on its local part.
func NewReader(r io.Reader, splitTag string) (*Reader, error) {
	if splitTag == "" {
		return nil, errors.E(errors.Invalid, "xml reader requires a split tag")
	}
	src := &recorder{r: bufio.NewReader(r)}
	dec := xml.NewDecoder(src)
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	local := splitTag
	if i := strings.LastIndexByte(splitTag, ':'); i >= 0 {
		local = splitTag[i+1:]
	}
	return &Reader{src: src, dec: dec, splitTag: splitTag, local: local}, nil
}

// Scan implements lineio.Scanner. Nested split elements are yielded
// innermost first.
func (r *Reader) Scan() bool {
	if r.done || r.err != nil {
		return false
	}
	for {
		start := r.dec.InputOffset()
		tok, err := r.dec.Token()
		if err == io.EOF {
			r.done = true
			return false
		}
		if err != nil {
			var serr *xml.SyntaxError
			if stderrors.As(err, &serr) {
				err = errors.E(errors.MalformedRecord, fmt.Sprintf("line %d", serr.Line), err)
			}
			r.err = err
			return false
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			if tok.Name.Local == r.local {
				r.starts = append(r.starts, start)
			}
		case xml.EndElement:
			if tok.Name.Local != r.local || len(r.starts) == 0 {
				break
			}
			start = r.starts[len(r.starts)-1]
			r.starts = r.starts[:len(r.starts)-1]
			r.rec, err = decode(r.src.slice(start, r.dec.InputOffset()))
			if err != nil {
				r.err = errors.E(errors.MalformedRecord, fmt.Sprintf("element %s at offset %d", r.splitTag, start), err)
				return false
			}
			r.release()
			return true
		}
		r.release()
	}
}

func (r *Reader) release() {
	if len(r.starts) == 0 {
		r.src.discard(r.dec.InputOffset())
	}
}

// Record implements lineio.Scanner. The record is a
// map[string]interface{} with a single key, the split element's name.
func (r *Reader) Record() interface{} { return r.rec }

// Err implements lineio.Scanner.
func (r *Reader) Err() error { return r.err }

func decode(markup []byte) (map[string]interface{}, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(markup); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("no element in %q", markup)
	}
	return map[string]interface{}{root.FullTag(): Convert(root)}, nil
}

// Convert converts an element into nested maps as described in the
// package documentation.
func Convert(e *etree.Element) interface{} {
	var text strings.Builder
	for _, tok := range e.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			text.WriteString(cd.Data)
		}
	}
	s := strings.TrimSpace(text.String())
	children := e.ChildElements()
	if len(e.Attr) == 0 && len(children) == 0 {
		if s == "" {
			return nil
		}
		return s
	}
	m := make(map[string]interface{}, len(e.Attr)+len(children)+1)
	for _, a := range e.Attr {
		m[attrPrefix+a.FullKey()] = a.Value
	}
	n := make(map[string]int, len(children))
	for _, c := range children {
		key, val := c.FullTag(), Convert(c)
		switch n[key] {
		case 0:
			m[key] = val
		case 1:
			m[key] = []interface{}{m[key], val}
		default:
			m[key] = append(m[key].([]interface{}), val)
		}
		n[key]++
	}
	if s != "" {
		m[textKey] = s
	}
	return m
}
