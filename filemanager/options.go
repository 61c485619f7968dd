// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package filemanager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/fileio"
	"github.com/grailbio/filemanager/parquetio"
	"github.com/grailbio/filemanager/tsv"
	"gopkg.in/yaml.v3"
)

// Mode tells whether a file is opened for reading or writing.
type Mode int

const (
	// Read opens an existing file and scans its records.
	Read Mode = iota
	// Write creates a file (or dataset) and writes records to it.
	Write
)

// String returns "read" or "write".
func (m Mode) String() string {
	switch m {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses a mode name. Besides "read" and "write", the short
// forms "r" and "w" are accepted.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "r", "read":
		return Read, nil
	case "w", "write":
		return Write, nil
	}
	return Read, errors.E(errors.Invalid, fmt.Sprintf("unknown mode %q", s))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Mode) MarshalYAML() (interface{}, error) { return m.String(), nil }

// Options configures a File. The zero value reads a local file.
type Options struct {
	// Mode selects reading or writing.
	Mode Mode `yaml:"mode"`
	// Compression, if set, names the codec of the file ("gz", "zst"),
	// overriding the codec token of its name.
	Compression string `yaml:"compression"`
	// DetectCompression makes a reader whose file name carries no codec
	// detect gzip or zstd from the leading bytes of the file.
	DetectCompression bool `yaml:"detect_compression"`
	// Encoding names the text encoding of the file. The default is UTF-8.
	Encoding string `yaml:"encoding"`
	// Buffering is the read buffer size in bytes of uncompressed files.
	// It defaults to fileio.DefaultBuffering.
	Buffering int `yaml:"buffering"`
	// BufferCapacity is the number of records a Parquet writer buffers
	// before committing them. It defaults to parquetio.DefaultCapacity.
	BufferCapacity int `yaml:"buffer_capacity"`
	// RootPath is the Parquet dataset directory. Without a Filesystem it
	// is relative to the directory of the file, and defaults to the file
	// name; with a Filesystem it is used verbatim.
	RootPath string `yaml:"root_path"`
	// PartitionCols lists the columns that partition a Parquet dataset.
	PartitionCols []string `yaml:"partition_cols"`
	// ParquetCompression is the page compression of Parquet files; see
	// parquetio.Options.
	ParquetCompression string `yaml:"parquet_compression"`
	// SplitTag names the element that delimits the records of an XML
	// file. It is required for XML files.
	SplitTag string `yaml:"split_tag"`
	// CSV configures the reader of CSV files.
	CSV tsv.Options `yaml:"csv"`
	// Filesystem serves the file. By default the file system is chosen
	// by the scheme of the path, see file.ImplementationFor.
	Filesystem file.Implementation `yaml:"-"`
}

func (o Options) withDefaults() Options {
	if o.Buffering <= 0 {
		o.Buffering = fileio.DefaultBuffering
	}
	if o.BufferCapacity <= 0 {
		o.BufferCapacity = parquetio.DefaultCapacity
	}
	return o
}

// LoadOptions reads options from a YAML profile such as
//
//	mode: write
//	compression: gz
//	buffer_capacity: 5000
//	partition_cols: [year, region]
//	csv:
//	  comma: ";"
//
// Unknown keys are an error. The profile is read through the file system
// that serves path.
func LoadOptions(ctx context.Context, path string) (Options, error) {
	var opts Options
	impl, err := file.ImplementationFor(path)
	if err != nil {
		return opts, err
	}
	data, err := file.ReadFile(ctx, impl, path)
	if err != nil {
		return opts, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && err != io.EOF {
		return opts, errors.E(errors.Invalid, "load options", path, err)
	}
	return opts, nil
}
