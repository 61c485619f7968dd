// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package parquetio writes records into hive-partitioned Parquet datasets
// and reads such datasets back.
//
// A dataset is a directory tree under a root path. Each partition column
// adds one directory level named "column=value", and every commit of a
// Writer adds one file named by a random UUID to each partition it touches:
//
//	root/year=2024/region=eu/5f0c...e1.parquet
//
// Partition columns are not stored in the files; DatasetReader restores
// them from the path as strings.
package parquetio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/google/uuid"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/fileio"
	"github.com/grailbio/filemanager/log"
)

const (
	// DefaultCapacity is the number of records a Writer buffers before it
	// commits them.
	DefaultCapacity = 10000
	// DefaultPartition names the partition of records whose partition
	// column is null or missing.
	DefaultPartition = "__HIVE_DEFAULT_PARTITION__"
	// Suffix is the file name suffix of the files in a dataset.
	Suffix = ".parquet"
)

var codecs = map[string]compress.Compression{
	"":             compress.Codecs.Snappy,
	"snappy":       compress.Codecs.Snappy,
	"none":         compress.Codecs.Uncompressed,
	"uncompressed": compress.Codecs.Uncompressed,
	"gzip":         compress.Codecs.Gzip,
	"zstd":         compress.Codecs.Zstd,
}

// Options configures a Writer.
type Options struct {
	// Capacity is the number of records buffered before an automatic
	// commit. It defaults to DefaultCapacity.
	Capacity int
	// PartitionCols lists the columns that partition the dataset, outermost
	// first.
	PartitionCols []string
	// Compression names the page compression of the files: "snappy" (the
	// default), "gzip", "zstd" or "none".
	Compression string
}

// Writer buffers records and commits them as Parquet files. The schema of
// the files is inferred from the first committed batch and fixed after
// that; later records are coerced to it, widening integers into floating
// point columns. A Writer is not safe for concurrent use.
type Writer struct {
	ctx        context.Context
	impl       file.Implementation
	root       string
	opts       Options
	partitions map[string]bool
	props      *parquet.WriterProperties
	mem        memory.Allocator

	schema  *arrow.Schema
	buf     []map[string]interface{}
	commits int
	files   []string
}

// NewWriter returns a writer of the dataset rooted at root, creating files
// through impl. The context is used by every file operation of the writer.
func NewWriter(ctx context.Context, impl file.Implementation, root string, opts Options) (*Writer, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	codec, ok := codecs[strings.ToLower(opts.Compression)]
	if !ok {
		return nil, errors.E(errors.UnsupportedCompression, fmt.Sprintf("parquet compression %q", opts.Compression))
	}
	w := &Writer{
		ctx:        ctx,
		impl:       impl,
		root:       root,
		opts:       opts,
		partitions: make(map[string]bool),
		props:      parquet.NewWriterProperties(parquet.WithCompression(codec)),
		mem:        memory.NewGoAllocator(),
		buf:        make([]map[string]interface{}, 0, opts.Capacity),
	}
	for _, col := range opts.PartitionCols {
		w.partitions[col] = true
	}
	return w, nil
}

// Write implements lineio.Writer. The record must be a
// map[string]interface{}. Write commits the buffer once it holds
// Options.Capacity records.
func (w *Writer) Write(record interface{}) error {
	rec, ok := record.(map[string]interface{})
	if !ok {
		return errors.E(errors.Invalid, fmt.Sprintf("parquet record of type %T: want map[string]interface{}", record))
	}
	w.buf = append(w.buf, rec)
	if len(w.buf) >= w.opts.Capacity {
		return w.Commit()
	}
	return nil
}

// Buffered returns the number of records awaiting commit.
func (w *Writer) Buffered() int { return len(w.buf) }

// Commits returns the number of batches committed so far.
func (w *Writer) Commits() int { return w.commits }

// Files returns the paths of the files written so far.
func (w *Writer) Files() []string { return w.files }

// Schema returns the schema of the dataset files, or nil before the first
// commit.
func (w *Writer) Schema() *arrow.Schema { return w.schema }

type partition struct {
	dir  string
	recs []map[string]interface{}
	rec  arrow.Record
	done bool
}

// Commit implements lineio.Writer. It writes the buffered records, one file
// per partition, and empties the buffer. Committing an empty buffer does
// nothing. Every record is converted before any file is created, so a
// record that does not fit the schema fails the commit without writing
// anything. If writing a file fails, the records of the files already
// written leave the buffer and the rest stay for the next commit.
func (w *Writer) Commit() error {
	if len(w.buf) == 0 {
		return nil
	}
	schema := w.schema
	if schema == nil {
		var err error
		if schema, err = inferSchema(w.buf, w.partitions); err != nil {
			return err
		}
	}
	var (
		parts []*partition
		index = make(map[string]*partition)
	)
	for _, rec := range w.buf {
		dir := w.partitionDir(rec)
		p := index[dir]
		if p == nil {
			p = &partition{dir: dir}
			index[dir] = p
			parts = append(parts, p)
		}
		p.recs = append(p.recs, rec)
	}
	defer func() {
		for _, p := range parts {
			if p.rec != nil {
				p.rec.Release()
			}
		}
	}()
	for _, p := range parts {
		var err error
		if p.rec, err = w.record(schema, p.recs); err != nil {
			return errors.E(err, "commit", p.dir)
		}
	}
	w.schema = schema
	n := len(w.buf)
	for _, p := range parts {
		path := file.Join(p.dir, uuid.New().String()+Suffix)
		if err := w.writeFile(path, p.rec); err != nil {
			w.keep(parts)
			return errors.E(err, "commit", path)
		}
		p.done = true
		w.files = append(w.files, path)
	}
	w.commits++
	log.Debug.Printf("parquetio: committed %d records in %d files under %s", n, len(parts), w.root)
	w.buf = w.buf[:0]
	return nil
}

// keep leaves in the buffer the records of the partitions that were not
// written, in their original order.
func (w *Writer) keep(parts []*partition) {
	written := make(map[string]bool)
	for _, p := range parts {
		if p.done {
			written[p.dir] = true
		}
	}
	buf := w.buf[:0]
	for _, rec := range w.buf {
		if !written[w.partitionDir(rec)] {
			buf = append(buf, rec)
		}
	}
	for i := len(buf); i < len(w.buf); i++ {
		w.buf[i] = nil
	}
	w.buf = buf
}

func (w *Writer) partitionDir(rec map[string]interface{}) string {
	elems := make([]string, 0, len(w.opts.PartitionCols)+1)
	elems = append(elems, w.root)
	for _, col := range w.opts.PartitionCols {
		val := DefaultPartition
		if v := rec[col]; v != nil {
			val = url.PathEscape(fmt.Sprint(v))
		}
		elems = append(elems, col+"="+val)
	}
	return file.Join(elems...)
}

func (w *Writer) record(schema *arrow.Schema, recs []map[string]interface{}) (arrow.Record, error) {
	b := array.NewRecordBuilder(w.mem, schema)
	defer b.Release()
	for _, rec := range recs {
		for col := range rec {
			if !w.partitions[col] && schema.FieldIndices(col) == nil {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("column %s is not in the dataset schema %s", col, schema))
			}
		}
		for i, field := range schema.Fields() {
			if err := appendValue(b.Field(i), field, rec[field.Name]); err != nil {
				return nil, err
			}
		}
	}
	return b.NewRecord(), nil
}

// writeOnly hides the Close method of a file's writer: the file is
// closed by its owner, not by the Parquet writer.
type writeOnly struct{ io.Writer }

func (w *Writer) writeFile(path string, rec arrow.Record) (err error) {
	f, err := w.impl.Create(w.ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Discard(w.ctx)
			return
		}
		err = f.Close(w.ctx)
	}()
	fw, err := pqarrow.NewFileWriter(rec.Schema(), writeOnly{f.Writer(w.ctx)}, w.props,
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return err
	}
	defer fileio.CloseAndReport(fw, &err)
	return fw.Write(rec)
}
