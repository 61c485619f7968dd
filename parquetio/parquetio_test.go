// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package parquetio_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/parquetio"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

type rec = map[string]interface{}

func readAll(t *testing.T, impl file.Implementation, root string) []rec {
	t.Helper()
	r, err := parquetio.NewDatasetReader(context.Background(), impl, root)
	assert.NoError(t, err)
	defer r.Close()
	var recs []rec
	for r.Scan() {
		recs = append(recs, r.Record().(rec))
	}
	assert.NoError(t, r.Err())
	return recs
}

func TestCommitAtCapacity(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	impl := file.NewLocalImplementation()
	root := filepath.Join(dir, "dataset")

	w, err := parquetio.NewWriter(ctx, impl, root, parquetio.Options{Capacity: 10000})
	assert.NoError(t, err)
	for i := 0; i < 25000; i++ {
		assert.NoError(t, w.Write(rec{"id": i, "name": fmt.Sprintf("n%d", i), "score": float64(i) / 2}))
		switch i + 1 {
		case 9999:
			assert.EQ(t, w.Commits(), 0)
		case 10000, 20000:
			assert.EQ(t, w.Buffered(), 0)
		}
	}
	assert.EQ(t, w.Commits(), 2)
	assert.EQ(t, w.Buffered(), 5000)
	assert.NoError(t, w.Commit())
	assert.EQ(t, w.Commits(), 3)
	assert.EQ(t, w.Buffered(), 0)
	assert.EQ(t, len(w.Files()), 3)
	// A commit of an empty buffer writes nothing.
	assert.NoError(t, w.Commit())
	assert.EQ(t, w.Commits(), 3)

	recs := readAll(t, impl, root)
	assert.EQ(t, len(recs), 25000)
	ids := make([]int, len(recs))
	for i, r := range recs {
		ids[i] = int(r["id"].(int64))
		expect.EQ(t, r["name"], fmt.Sprintf("n%d", ids[i]))
		expect.EQ(t, r["score"], float64(ids[i])/2)
	}
	sort.Ints(ids)
	for i := range ids {
		if ids[i] != i {
			t.Fatalf("record %d missing", i)
		}
	}
}

func TestPartitions(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	impl := file.NewLocalImplementation()

	w, err := parquetio.NewWriter(ctx, impl, dir, parquetio.Options{PartitionCols: []string{"region", "year"}})
	assert.NoError(t, err)
	for _, r := range []rec{
		{"region": "eu", "year": 2024, "v": 1},
		{"region": "us", "year": 2024, "v": 2},
		{"region": "eu", "year": 2024, "v": 3},
		{"region": "eu", "year": 2025, "v": 4},
		{"region": nil, "year": 2025, "v": 5},
		{"region": "a/b c", "year": 2025, "v": 6},
	} {
		assert.NoError(t, w.Write(r))
	}
	assert.NoError(t, w.Commit())
	assert.EQ(t, w.Schema().NumFields(), 1)

	var dirs []string
	for _, path := range w.Files() {
		rel := strings.TrimPrefix(filepath.Dir(path), dir+"/")
		dirs = append(dirs, rel)
	}
	sort.Strings(dirs)
	expect.EQ(t, dirs, []string{
		"region=__HIVE_DEFAULT_PARTITION__/year=2025",
		"region=a%2Fb%20c/year=2025",
		"region=eu/year=2024",
		"region=eu/year=2025",
		"region=us/year=2024",
	})

	recs := readAll(t, impl, dir)
	sort.Slice(recs, func(i, j int) bool { return recs[i]["v"].(int64) < recs[j]["v"].(int64) })
	expect.EQ(t, recs, []rec{
		{"region": "eu", "year": "2024", "v": int64(1)},
		{"region": "us", "year": "2024", "v": int64(2)},
		{"region": "eu", "year": "2024", "v": int64(3)},
		{"region": "eu", "year": "2025", "v": int64(4)},
		{"region": nil, "year": "2025", "v": int64(5)},
		{"region": "a/b c", "year": "2025", "v": int64(6)},
	})
}

func TestTypes(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	impl := file.NewLocalImplementation()
	ts := time.Date(2024, 3, 1, 12, 30, 0, 123000, time.UTC)

	w, err := parquetio.NewWriter(ctx, impl, dir, parquetio.Options{Compression: "zstd"})
	assert.NoError(t, err)
	assert.NoError(t, w.Write(rec{"b": true, "s": "x", "raw": []byte{1, 2}, "ts": ts, "none": nil, "mixed": 1}))
	assert.NoError(t, w.Write(rec{"b": false, "mixed": 2.5}))
	assert.NoError(t, w.Commit())
	for _, f := range []arrow.Field{
		{Name: "b", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "mixed", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "none", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "raw", Type: arrow.BinaryTypes.Binary, Nullable: true},
		{Name: "s", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_us, Nullable: true},
	} {
		got, ok := w.Schema().FieldsByName(f.Name)
		assert.True(t, ok, f.Name)
		expect.True(t, got[0].Equal(f), "%s: got %v", f.Name, got[0])
	}
	assert.EQ(t, w.Schema().NumFields(), 6)

	recs := readAll(t, impl, dir)
	assert.EQ(t, len(recs), 2)
	if recs[0]["b"] == false {
		recs[0], recs[1] = recs[1], recs[0]
	}
	expect.EQ(t, recs[0], rec{"b": true, "s": "x", "raw": []byte{1, 2}, "ts": ts, "none": nil, "mixed": 1.0})
	expect.EQ(t, recs[1], rec{"b": false, "s": nil, "raw": nil, "ts": nil, "none": nil, "mixed": 2.5})
}

func TestFixedSchema(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	impl := file.NewLocalImplementation()

	w, err := parquetio.NewWriter(ctx, impl, dir, parquetio.Options{Capacity: 2})
	assert.NoError(t, err)
	assert.NoError(t, w.Write(rec{"n": 1, "f": 1.5}))
	assert.NoError(t, w.Write(rec{"n": 2, "f": 2.5}))
	assert.EQ(t, w.Commits(), 1)

	// Integers widen into a float column.
	assert.NoError(t, w.Write(rec{"n": 3, "f": 3}))
	assert.NoError(t, w.Write(rec{"n": 4}))
	assert.EQ(t, w.Commits(), 2)

	// A float does not fit an integer column.
	assert.NoError(t, w.Write(rec{"n": 5.5}))
	err = w.Write(rec{"n": 6})
	assert.True(t, errors.Is(errors.Invalid, err), "got %v", err)
	assert.EQ(t, w.Buffered(), 2)
	assert.EQ(t, w.Commits(), 2)

	w, err = parquetio.NewWriter(ctx, impl, dir+"/other", parquetio.Options{})
	assert.NoError(t, err)
	assert.NoError(t, w.Write(rec{"n": 1}))
	assert.NoError(t, w.Commit())
	assert.NoError(t, w.Write(rec{"n": 2, "extra": "x"}))
	err = w.Commit()
	assert.True(t, errors.Is(errors.Invalid, err), "got %v", err)
	expect.HasSubstr(t, err.Error(), "extra")
}

func TestInvalid(t *testing.T) {
	ctx := context.Background()
	impl := file.NewLocalImplementation()
	_, err := parquetio.NewWriter(ctx, impl, "/tmp/ds", parquetio.Options{Compression: "lzma"})
	expect.True(t, errors.Is(errors.UnsupportedCompression, err))

	w, err := parquetio.NewWriter(ctx, impl, "/tmp/ds", parquetio.Options{})
	assert.NoError(t, err)
	expect.True(t, errors.Is(errors.Invalid, w.Write("not a map")))
	assert.NoError(t, w.Write(rec{"x": []int{1}}))
	expect.True(t, errors.Is(errors.Invalid, w.Commit()))
	assert.NoError(t, w.Write(rec{"x": "a"}))
	expect.True(t, errors.Is(errors.Invalid, w.Commit()))
}

func TestMissingDataset(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	expect.EQ(t, len(readAll(t, file.NewLocalImplementation(), filepath.Join(dir, "nothing"))), 0)
}

func count(recs []rec, col string, val interface{}) int {
	n := 0
	for _, r := range recs {
		if r[col] == val {
			n++
		}
	}
	return n
}

func TestCommitValidatesBeforeWriting(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	impl := file.NewLocalImplementation()

	w, err := parquetio.NewWriter(ctx, impl, dir, parquetio.Options{Capacity: 2, PartitionCols: []string{"p"}})
	assert.NoError(t, err)
	assert.NoError(t, w.Write(rec{"p": "a", "x": 1}))
	assert.NoError(t, w.Write(rec{"p": "a", "x": 2}))
	assert.EQ(t, len(w.Files()), 1)

	assert.NoError(t, w.Write(rec{"p": "a", "x": 3}))
	err = w.Write(rec{"p": "b", "x": "bad"})
	assert.True(t, errors.Is(errors.Invalid, err), "got %v", err)
	err = w.Write(rec{"p": "a", "x": 4})
	assert.True(t, errors.Is(errors.Invalid, err), "got %v", err)
	err = w.Commit()
	assert.True(t, errors.Is(errors.Invalid, err), "got %v", err)
	assert.EQ(t, len(w.Files()), 1)
	assert.EQ(t, w.Buffered(), 3)
	assert.EQ(t, w.Commits(), 1)

	recs := readAll(t, impl, dir)
	expect.EQ(t, len(recs), 2)
	expect.EQ(t, count(recs, "x", int64(3)), 0)
}

// failingImpl fails every Create of a path that contains fail.
type failingImpl struct {
	file.Implementation
	fail string
}

func (f *failingImpl) Create(ctx context.Context, path string) (file.File, error) {
	if f.fail != "" && strings.Contains(path, f.fail) {
		return nil, errors.E(errors.NotAllowed, "create", path)
	}
	return f.Implementation.Create(ctx, path)
}

func TestCommitKeepsUnwrittenPartitions(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	impl := &failingImpl{Implementation: file.NewLocalImplementation(), fail: "p=b"}

	w, err := parquetio.NewWriter(ctx, impl, dir, parquetio.Options{PartitionCols: []string{"p"}})
	assert.NoError(t, err)
	for i, p := range []string{"a", "b", "c", "a"} {
		assert.NoError(t, w.Write(rec{"p": p, "x": i}))
	}
	err = w.Commit()
	assert.True(t, errors.Is(errors.NotAllowed, err), "got %v", err)
	assert.EQ(t, len(w.Files()), 1)
	assert.EQ(t, w.Buffered(), 2)
	assert.EQ(t, w.Commits(), 0)

	// Retrying writes only what is left.
	impl.fail = ""
	assert.NoError(t, w.Commit())
	assert.EQ(t, len(w.Files()), 3)
	assert.EQ(t, w.Buffered(), 0)
	assert.EQ(t, w.Commits(), 1)

	recs := readAll(t, impl, dir)
	assert.EQ(t, len(recs), 4)
	for i := 0; i < 4; i++ {
		expect.EQ(t, count(recs, "x", int64(i)), 1)
	}
}
