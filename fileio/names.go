// Copyright 2017 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileio

import (
	"fmt"
	"strings"

	"github.com/grailbio/filemanager/errors"
)

// Format represents the record format of a file, derived from its name.
type Format int

const (
	// Other represents any format not listed below. Files of this format
	// are read and written as plain lines.
	Other Format = iota
	// XML markup, split into records by an element name.
	XML
	// Parquet columnar dataset.
	Parquet
	// CSV delimited text with a header row.
	CSV
	// JSON lines, one value per line.
	JSON
)

var formats = map[string]Format{
	"xml":  XML,
	"parq": Parquet,
	"csv":  CSV,
	"json": JSON,
}

var formatNames = map[Format]string{
	Other:   "other",
	XML:     "xml",
	Parquet: "parquet",
	CSV:     "csv",
	JSON:    "json",
}

// String returns the name of the format.
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Codec represents the compression layer of a file.
type Codec int

const (
	// NoCodec means the file is stored as-is.
	NoCodec Codec = iota
	// Gzip compression.
	Gzip
	// Zstd compression.
	// https://facebook.github.io/zstd/
	// https://tools.ietf.org/html/rfc8478
	Zstd
)

var codecs = map[string]Codec{
	"gz":  Gzip,
	"zst": Zstd,
}

// String returns the name of the codec.
func (c Codec) String() string {
	switch c {
	case NoCodec:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return fmt.Sprintf("Codec(%d)", int(c))
}

// Tokenize splits the last element of a slash-separated path on '.'.
func Tokenize(name string) []string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return strings.Split(name, ".")
}

// DetermineFormat determines the format of a file given its name. With
// three or more tokens the second-to-last one names the format, otherwise
// the last one does. Unknown names map to Other.
func DetermineFormat(name string) Format {
	toks := Tokenize(name)
	key := toks[len(toks)-1]
	if len(toks) > 2 {
		key = toks[len(toks)-2]
	}
	return formats[key]
}

// DetermineCodec determines the compression codec of a file given its
// name. Only names with three or more tokens carry a codec, in their last
// token. An unknown codec token fails with errors.UnsupportedCompression.
func DetermineCodec(name string) (Codec, error) {
	toks := Tokenize(name)
	if len(toks) <= 2 {
		return NoCodec, nil
	}
	c, err := LookupCodec(toks[len(toks)-1])
	if err != nil {
		return NoCodec, errors.E(err, name)
	}
	return c, nil
}

// LookupCodec returns the codec named by a suffix token such as "gz".
// The empty token names NoCodec.
func LookupCodec(token string) (Codec, error) {
	if token == "" {
		return NoCodec, nil
	}
	c, ok := codecs[strings.TrimPrefix(token, ".")]
	if !ok {
		return NoCodec, errors.E(errors.UnsupportedCompression, fmt.Sprintf("codec %q", token))
	}
	return c, nil
}

// Descriptor describes how a file's contents are encoded.
type Descriptor struct {
	Format Format
	Codec  Codec
}

// String returns "format" or "format+codec".
func (d Descriptor) String() string {
	if d.Codec == NoCodec {
		return d.Format.String()
	}
	return d.Format.String() + "+" + d.Codec.String()
}

// Describe returns the format and codec of the named file.
func Describe(name string) (Descriptor, error) {
	c, err := DetermineCodec(name)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Format: DetermineFormat(name), Codec: c}, nil
}

// Suffix returns the filename token of the given format, or "" for Other.
func Suffix(f Format) string {
	for k, v := range formats {
		if v == f {
			return k
		}
	}
	return ""
}

// CodecSuffix returns the filename token of the given codec, or "" for
// NoCodec.
func CodecSuffix(c Codec) string {
	for k, v := range codecs {
		if v == c {
			return k
		}
	}
	return ""
}
