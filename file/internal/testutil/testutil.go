// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package testutil holds a conformance suite that every file.Implementation
// in this module runs against itself.
package testutil

import (
	"context"
	"io"
	"sort"
	"testing"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/testutil/assert"
)

func doRead(t *testing.T, r io.Reader, n int) string {
	data := make([]byte, n)
	got, err := io.ReadFull(r, data)
	assert.NoError(t, err)
	assert.EQ(t, n, got)
	return string(data)
}

func doReadAll(t *testing.T, r io.Reader) string {
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	return string(data)
}

func doSeek(t *testing.T, r io.Seeker, off int64, whence int) {
	n, err := r.Seek(off, whence)
	assert.NoError(t, err)
	if whence == io.SeekStart {
		assert.EQ(t, n, off)
	}
}

func doReadFile(ctx context.Context, t *testing.T, impl file.Implementation, path string) string {
	data, err := file.ReadFile(ctx, impl, path)
	assert.NoError(t, err, "read %v", path)
	return string(data)
}

func doWriteFile(ctx context.Context, t *testing.T, impl file.Implementation, path string, data string) {
	assert.NoError(t, file.WriteFile(ctx, impl, path, []byte(data)), "write %v", path)
}

func fileExists(ctx context.Context, impl file.Implementation, path string) bool {
	_, err := impl.Stat(ctx, path)
	if err != nil && !errors.Is(errors.NotExist, err) {
		panic(err)
	}
	return err == nil
}

// TestNotExist tests that the implementation behaves correctly
// for paths that do not exist.
func TestNotExist(ctx context.Context, t *testing.T, impl file.Implementation, path string) {
	_, err := impl.Open(ctx, path)
	assert.True(t, errors.Is(errors.NotExist, err), "open: %v", err)
	_, err = impl.Stat(ctx, path)
	assert.True(t, errors.Is(errors.NotExist, err), "stat: %v", err)
}

// TestReads tests various combination of reads and seeks.
func TestReads(ctx context.Context, t *testing.T, impl file.Implementation, path string) {
	expected := "A purple fox jumped over a blue cat"
	doWriteFile(ctx, t, impl, path, expected)

	f, err := impl.Open(ctx, path)
	assert.NoError(t, err)
	r := f.Reader(ctx)
	assert.EQ(t, expected, doReadAll(t, r))

	stat, err := f.Stat(ctx)
	assert.NoError(t, err)
	assert.EQ(t, int64(len(expected)), stat.Size())

	doSeek(t, r, 0, io.SeekStart)
	assert.EQ(t, expected[:3], doRead(t, r, 3))
	assert.EQ(t, expected[3:], doReadAll(t, r))

	doSeek(t, r, 8, io.SeekStart)
	doSeek(t, r, -6, io.SeekCurrent)
	assert.EQ(t, "purple", doRead(t, r, 6))

	doSeek(t, r, -3, io.SeekEnd)
	assert.EQ(t, "cat", doReadAll(t, r))

	doSeek(t, r, int64(len(expected)+1), io.SeekStart)
	assert.EQ(t, "", doReadAll(t, r))
	assert.NoError(t, f.Close(ctx))
}

// TestWrites tests that Create overwrites and Close publishes.
func TestWrites(ctx context.Context, t *testing.T, impl file.Implementation, dir string) {
	path := dir + "/tmp.txt"
	f, err := impl.Create(ctx, path)
	assert.NoError(t, err)
	assert.EQ(t, f.Name(), path)
	n, err := f.Writer(ctx).Write([]byte("writetest"))
	assert.NoError(t, err)
	assert.EQ(t, n, 9)
	assert.NoError(t, f.Close(ctx))
	assert.True(t, fileExists(ctx, impl, path), "write %v", path)
	assert.EQ(t, doReadFile(ctx, t, impl, path), "writetest")

	doWriteFile(ctx, t, impl, path, "anotherwrite")
	assert.EQ(t, doReadFile(ctx, t, impl, path), "anotherwrite")
}

// TestDiscard tests that a discarded file does not survive.
func TestDiscard(ctx context.Context, t *testing.T, impl file.Implementation, dir string) {
	path := dir + "/tmp.txt"
	f, err := impl.Create(ctx, path)
	assert.NoError(t, err)
	_, err = f.Writer(ctx).Write([]byte("writetest"))
	assert.NoError(t, err)
	f.Discard(ctx)
	assert.False(t, fileExists(ctx, impl, path), "path %s exists after discard", path)
}

// TestRemove tests file Remove() function.
func TestRemove(ctx context.Context, t *testing.T, impl file.Implementation, path string) {
	doWriteFile(ctx, t, impl, path, "removetest")
	assert.True(t, fileExists(ctx, impl, path))
	assert.NoError(t, impl.Remove(ctx, path))
	assert.False(t, fileExists(ctx, impl, path))
}

type dirEntry struct {
	path string
	size int64
}

func list(ctx context.Context, t *testing.T, impl file.Implementation, prefix string, recursive bool) (ents []dirEntry) {
	lister := impl.List(ctx, prefix, recursive)
	for lister.Scan() {
		de := dirEntry{lister.Path(), 0}
		if !lister.IsDir() {
			de.size = lister.Info().Size()
		}
		ents = append(ents, de)
	}
	assert.NoError(t, lister.Err())
	sort.Slice(ents, func(i, j int) bool { return ents[i].path < ents[j].path })
	return
}

// TestList tests recursive and one-level listings.
func TestList(ctx context.Context, t *testing.T, impl file.Implementation, dir string) {
	doWriteFile(ctx, t, impl, dir+"/f0.txt", "f0")
	doWriteFile(ctx, t, impl, dir+"/g0.txt", "g12")
	doWriteFile(ctx, t, impl, dir+"/d0.txt", "d0e1")
	doWriteFile(ctx, t, impl, dir+"/d0/f2.txt", "d0/f23")
	doWriteFile(ctx, t, impl, dir+"/d0/d1/f3.txt", "d0/f345")

	assert.EQ(t, []dirEntry{{dir + "/f0.txt", 2}}, list(ctx, t, impl, dir+"/f0.txt", true))
	assert.EQ(t, []dirEntry{
		{dir + "/d0.txt", 4},
		{dir + "/d0/d1/f3.txt", 7},
		{dir + "/d0/f2.txt", 6},
		{dir + "/f0.txt", 2},
		{dir + "/g0.txt", 3},
	}, list(ctx, t, impl, dir, true))
	assert.EQ(t, []dirEntry{
		{dir + "/d0/d1/f3.txt", 7},
		{dir + "/d0/f2.txt", 6},
	}, list(ctx, t, impl, dir+"/d0", true))
	assert.EQ(t, []dirEntry{
		{dir + "/d0", 0},
		{dir + "/d0.txt", 4},
		{dir + "/f0.txt", 2},
		{dir + "/g0.txt", 3},
	}, list(ctx, t, impl, dir, false))
	assert.EQ(t, []dirEntry{
		{dir + "/d0/d1", 0},
		{dir + "/d0/f2.txt", 6},
	}, list(ctx, t, impl, dir+"/d0/", false))

	assert.NoError(t, file.RemoveAll(ctx, impl, dir))
	assert.EQ(t, 0, len(list(ctx, t, impl, dir, true)))
}

// TestAll runs all the tests in this package.
func TestAll(ctx context.Context, t *testing.T, impl file.Implementation, dir string) {
	name := impl.String()
	t.Run(name+"_NotExist", func(t *testing.T) { TestNotExist(ctx, t, impl, dir+"/notexist.txt") })
	t.Run(name+"_Reads", func(t *testing.T) { TestReads(ctx, t, impl, dir+"/reads.txt") })
	t.Run(name+"_Writes", func(t *testing.T) { TestWrites(ctx, t, impl, dir+"/writes") })
	t.Run(name+"_Discard", func(t *testing.T) { TestDiscard(ctx, t, impl, dir+"/discard") })
	t.Run(name+"_Remove", func(t *testing.T) { TestRemove(ctx, t, impl, dir+"/remove.txt") })
	t.Run(name+"_List", func(t *testing.T) { TestList(ctx, t, impl, dir+"/match") })
}
