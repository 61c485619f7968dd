// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/log"
)

type localImplementation struct{}

type accessMode int

const (
	readonly  accessMode = iota // file opened by Open.
	writeonly                   // file opened by Create.
)

type localInfo struct {
	size    int64
	modTime time.Time
}

type localFile struct {
	f    *os.File
	mode accessMode
	path string
}

type localLister struct {
	prefix  string
	err     error
	path    string
	info    os.FileInfo
	todo    []string
	recurse bool
}

// NewLocalImplementation returns a file.Implementation for the local file
// system that uses Go's native "os" module.
func NewLocalImplementation() Implementation { return &localImplementation{} }

func (*localImplementation) String() string {
	return "local"
}

// Open implements file.Implementation.
func (*localImplementation) Open(_ context.Context, path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.E(fmt.Sprintf("open %s", path), err)
	}
	return &localFile{f: f, mode: readonly, path: path}, nil
}

// Create implements file.Implementation. Data written to the file is
// visible at path as soon as Write returns.
func (*localImplementation) Create(_ context.Context, path string) (File, error) {
	if path == "" {
		return nil, errors.E(errors.Invalid, "file.Create: empty pathname")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, errors.E(errors.PathResolution, fmt.Sprintf("mkdir %s", dir), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.E(fmt.Sprintf("create %s", path), err)
	}
	return &localFile{f: f, mode: writeonly, path: path}, nil
}

// List implements file.Implementation.
func (*localImplementation) List(_ context.Context, prefix string, recurse bool) Lister {
	return &localLister{prefix: prefix, todo: []string{prefix}, recurse: recurse}
}

// Stat implements file.Implementation.
func (*localImplementation) Stat(_ context.Context, path string) (Info, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.E(fmt.Sprintf("stat %s", path), err)
	}
	if info.IsDir() {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("stat %s: is a directory", path))
	}
	return &localInfo{size: info.Size(), modTime: info.ModTime()}, nil
}

// Remove implements file.Implementation.
func (*localImplementation) Remove(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return errors.E(fmt.Sprintf("remove %s", path), err)
	}
	return nil
}

// Name implements file.File.
func (f *localFile) Name() string {
	return f.path
}

// Stat implements file.File.
func (f *localFile) Stat(context.Context) (Info, error) {
	info, err := f.f.Stat()
	if err != nil {
		return nil, err
	}
	return &localInfo{size: info.Size(), modTime: info.ModTime()}, nil
}

// Reader implements file.File.
func (f *localFile) Reader(context.Context) io.ReadSeeker {
	if f.mode != readonly {
		return NewError(fmt.Errorf("reader %v: file is not opened in read mode", f.Name()))
	}
	return f.f
}

// Writer implements file.File.
func (f *localFile) Writer(context.Context) io.Writer {
	if f.mode != writeonly {
		return NewError(fmt.Errorf("writer %v: file is not opened in write mode", f.Name()))
	}
	return f.f
}

// Discard implements file.File.
func (f *localFile) Discard(context.Context) {
	if f.mode != writeonly {
		return
	}
	if err := f.f.Close(); err != nil {
		log.Printf("discard %s: close: %v", f.Name(), err)
	}
	if err := os.Remove(f.path); err != nil {
		log.Printf("discard %s: remove: %v", f.Name(), err)
	}
}

// Close implements file.File.
func (f *localFile) Close(context.Context) error {
	if f.mode == readonly {
		return f.f.Close()
	}
	err := f.f.Sync()
	if e := f.f.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

func (i *localInfo) Size() int64        { return i.size }
func (i *localInfo) ModTime() time.Time { return i.modTime }

// Scan implements Lister.Scan.
func (l *localLister) Scan() bool {
	for {
		if len(l.todo) == 0 || l.err != nil {
			return false
		}
		l.path, l.todo = l.todo[0], l.todo[1:]
		l.info, l.err = os.Stat(l.path)
		if os.IsNotExist(l.err) {
			l.err = nil
			continue
		}
		if l.err != nil {
			return false
		}
		if !l.info.IsDir() {
			return true
		}
		if l.recurse || l.path == l.prefix {
			var paths []string
			paths, l.err = readDirNames(l.path)
			if l.err != nil {
				return false
			}
			for i := range paths {
				paths[i] = filepath.Join(l.path, paths[i])
			}
			l.todo = append(paths, l.todo...)
		}
		if !l.recurse && l.path != l.prefix {
			return true
		}
	}
}

// Path implements Lister.Path.
func (l *localLister) Path() string {
	return l.path
}

// Info implements Lister.Info. It returns nil for directories.
func (l *localLister) Info() Info {
	if l.info.IsDir() {
		return nil
	}
	return &localInfo{size: l.info.Size(), modTime: l.info.ModTime()}
}

// IsDir implements Lister.IsDir.
func (l *localLister) IsDir() bool {
	return l.info.IsDir()
}

// Err implements Lister.Err.
func (l *localLister) Err() error {
	return l.err
}

// readDirNames returns the sorted names of the entries of dirname.
func readDirNames(dirname string) ([]string, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)
	return names, nil
}
