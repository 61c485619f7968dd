// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"
	"fmt"
	"sync"
)

// Implementation implements operations for a file-system type.
// Thread safe.
type Implementation interface {
	// String returns a diagnostic string.
	String() string

	// Open opens a file for reading. The pathname given to file.Open() is
	// passed here unchanged. Thus, it contains the URL prefix such as "s3://".
	//
	// Open returns an error of kind errors.NotExist if there is
	// no file at the provided path.
	Open(ctx context.Context, path string) (File, error)

	// Create opens a file for writing. If "path" already exists, the old
	// contents will be destroyed. If the directory part of the path does not
	// exist already, it will be created.
	Create(ctx context.Context, path string) (File, error)

	// List finds files and directories. If "path" points to a regular file,
	// the lister will return information about the file itself and finishes.
	//
	// If "path" is a directory, the lister will list file and directory
	// under the given path. When "recursive" is set to false, List finds
	// files "one level" below dir. With "recursive=true" List finds all
	// files under "dir" or its subdirectories, and directories are not
	// returned as separate entities.
	List(ctx context.Context, path string, recursive bool) Lister

	// Stat returns the file metadata.
	//
	// Stat returns an error of kind errors.NotExist if there is
	// no file at the provided path.
	Stat(ctx context.Context, path string) (Info, error)

	// Remove removes the file. The path passed to file.Remove() is passed
	// here unchanged.
	Remove(ctx context.Context, path string) error
}

// Lister lists files in a directory tree. Not thread safe.
type Lister interface {
	// Scan advances the lister to the next entry. It returns false either
	// when the scan stops because we have reached the end of the input or
	// else because there was error. After Scan returns, the Err method
	// returns any error that occurred during scanning.
	Scan() bool

	// Err returns the first error that occurred while scanning.
	Err() error

	// Path returns the last path that was scanned. The path always starts
	// with the directory path given to the List method.
	//
	// REQUIRES: Last call to Scan returned true.
	Path() string

	// IsDir returns true if Path() refers to a directory in a file system
	// or a common prefix ending in "/" in S3.
	//
	// REQUIRES: Last call to Scan returned true.
	IsDir() bool

	// Info returns metadata of the file that was scanned.
	//
	// REQUIRES: Last call to Scan returned true.
	Info() Info
}

var (
	mu        sync.RWMutex
	impls     = make(map[string]Implementation)
	localImpl = NewLocalImplementation()
)

// RegisterImplementation arranges so that ParsePath(scheme + "://anystring")
// is served by impl. Scheme is a string such as "s3".
//
// REQUIRES: This function has not been called with the same scheme before.
func RegisterImplementation(scheme string, impl Implementation) {
	if scheme == "" || impl == nil {
		panic("register: empty scheme or implementation")
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := impls[scheme]; ok {
		panic(fmt.Sprintf("register %s: file scheme already registered", scheme))
	}
	impls[scheme] = impl
}

// FindImplementation returns the Implementation registered for the given
// scheme, or the local implementation for the empty scheme. It returns nil
// if the scheme is not registered.
func FindImplementation(scheme string) Implementation {
	if scheme == "" {
		return localImpl
	}
	mu.RLock()
	defer mu.RUnlock()
	return impls[scheme]
}

// ImplementationFor returns the Implementation that serves path.
func ImplementationFor(path string) (Implementation, error) {
	scheme, _, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	impl := FindImplementation(scheme)
	if impl == nil {
		return nil, fmt.Errorf("parsepath %s: no implementation registered for scheme %s", path, scheme)
	}
	return impl, nil
}

// Open opens the given file readonly. It is a shortcut for calling
// ImplementationFor, then Implementation.Open.
func Open(ctx context.Context, path string) (File, error) {
	impl, err := ImplementationFor(path)
	if err != nil {
		return nil, err
	}
	return impl.Open(ctx, path)
}

// Create opens the given file writeonly. It is a shortcut for calling
// ImplementationFor, then Implementation.Create.
func Create(ctx context.Context, path string) (File, error) {
	impl, err := ImplementationFor(path)
	if err != nil {
		return nil, err
	}
	return impl.Create(ctx, path)
}

// Stat returns the given file's metadata.
func Stat(ctx context.Context, path string) (Info, error) {
	impl, err := ImplementationFor(path)
	if err != nil {
		return nil, err
	}
	return impl.Stat(ctx, path)
}

type errorLister struct{ err error }

func (e *errorLister) Scan() bool   { return false }
func (e *errorLister) Path() string { panic("errorLister.Path: " + e.err.Error()) }
func (e *errorLister) Info() Info   { panic("errorLister.Info: " + e.err.Error()) }
func (e *errorLister) IsDir() bool  { panic("errorLister.IsDir: " + e.err.Error()) }
func (e *errorLister) Err() error   { return e.err }

// List finds all files whose pathnames under "dir" or its subdirectories.
func List(ctx context.Context, prefix string, recursive bool) Lister {
	impl, err := ImplementationFor(prefix)
	if err != nil {
		return &errorLister{err: err}
	}
	return impl.List(ctx, prefix, recursive)
}

// Remove is a shortcut for calling ImplementationFor, then
// Implementation.Remove.
func Remove(ctx context.Context, path string) error {
	impl, err := ImplementationFor(path)
	if err != nil {
		return err
	}
	return impl.Remove(ctx, path)
}
