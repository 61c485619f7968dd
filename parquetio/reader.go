// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package parquetio

import (
	"bytes"
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
)

const readBatchSize = 1024

// DatasetReader reads the records of a dataset, one file after another.
// Records are of type map[string]interface{}; partition columns hold the
// string found in the path, or nil for DefaultPartition.
type DatasetReader struct {
	ctx   context.Context
	impl  file.Implementation
	root  string
	paths []string
	mem   memory.Allocator

	parts map[string]interface{}
	tbl   arrow.Table
	tr    *array.TableReader
	batch arrow.Record
	row   int
	rec   map[string]interface{}
	err   error
}

// NewDatasetReader returns a reader of the dataset rooted at root. It
// lists the dataset files up front; a missing root yields no records.
func NewDatasetReader(ctx context.Context, impl file.Implementation, root string) (*DatasetReader, error) {
	r := &DatasetReader{ctx: ctx, impl: impl, root: root, mem: memory.NewGoAllocator()}
	lister := impl.List(ctx, root, true)
	for lister.Scan() {
		if !lister.IsDir() && strings.HasSuffix(lister.Path(), Suffix) {
			r.paths = append(r.paths, lister.Path())
		}
	}
	if err := lister.Err(); err != nil && !errors.Is(errors.NotExist, err) {
		return nil, errors.E(err, "list dataset", root)
	}
	sort.Strings(r.paths)
	return r, nil
}

// Files returns the paths of the files that have not been read yet.
func (r *DatasetReader) Files() []string { return r.paths }

// Scan implements lineio.Scanner.
func (r *DatasetReader) Scan() bool {
	for r.err == nil {
		if r.batch != nil && r.row < int(r.batch.NumRows()) {
			r.rec = r.rowAt(r.row)
			r.row++
			return true
		}
		if r.tr != nil && r.tr.Next() {
			r.batch, r.row = r.tr.Record(), 0
			continue
		}
		r.release()
		if len(r.paths) == 0 {
			return false
		}
		path := r.paths[0]
		r.paths = r.paths[1:]
		if err := r.open(path); err != nil {
			r.err = errors.E(err, "read", path)
		}
	}
	return false
}

// Record implements lineio.Scanner.
func (r *DatasetReader) Record() interface{} { return r.rec }

// Err implements lineio.Scanner.
func (r *DatasetReader) Err() error { return r.err }

// Close releases the file being read.
func (r *DatasetReader) Close() error {
	r.release()
	r.paths = nil
	return nil
}

func (r *DatasetReader) open(path string) error {
	data, err := file.ReadFile(r.ctx, r.impl, path)
	if err != nil {
		return err
	}
	tbl, err := pqarrow.ReadTable(r.ctx, bytes.NewReader(data), parquet.NewReaderProperties(r.mem),
		pqarrow.ArrowReadProperties{BatchSize: readBatchSize}, r.mem)
	if err != nil {
		return err
	}
	r.tbl = tbl
	r.tr = array.NewTableReader(tbl, readBatchSize)
	r.parts = partitionValues(strings.TrimPrefix(file.Dir(path), r.root))
	return nil
}

func (r *DatasetReader) release() {
	if r.tr != nil {
		r.tr.Release()
		r.tr = nil
	}
	if r.tbl != nil {
		r.tbl.Release()
		r.tbl = nil
	}
	r.batch = nil
}

func (r *DatasetReader) rowAt(i int) map[string]interface{} {
	rec := make(map[string]interface{}, int(r.batch.NumCols())+len(r.parts))
	for j, col := range r.batch.Columns() {
		rec[r.batch.ColumnName(j)] = value(col, i)
	}
	for k, v := range r.parts {
		rec[k] = v
	}
	return rec
}

// partitionValues parses the "column=value" elements of a relative
// directory path.
func partitionValues(dir string) map[string]interface{} {
	parts := make(map[string]interface{})
	for _, elem := range strings.Split(dir, "/") {
		i := strings.IndexByte(elem, '=')
		if i <= 0 {
			continue
		}
		col, val := elem[:i], elem[i+1:]
		if val == DefaultPartition {
			parts[col] = nil
			continue
		}
		if s, err := url.PathUnescape(val); err == nil {
			val = s
		}
		parts[col] = val
	}
	return parts
}
