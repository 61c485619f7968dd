// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"
	"io"
	"time"
)

// File defines operations on a file opened by Implementation.Open or
// Implementation.Create. A File is owned by a single caller; it is not safe
// for concurrent use.
type File interface {
	// Name returns the path name given to Open or Create when this
	// object was created.
	Name() string

	// Stat returns file metadata.
	//
	// REQUIRES: Close has not been called
	Stat(ctx context.Context) (Info, error)

	// Reader returns an io.ReadSeeker over the file contents. If Reader is
	// called multiple times, the readers share the seek pointer.
	//
	// REQUIRES: the file was opened by Open; Close has not been called
	Reader(ctx context.Context) io.ReadSeeker

	// Writer returns an io.Writer that appends to the file.
	//
	// REQUIRES: the file was opened by Create; Close has not been called
	Writer(ctx context.Context) io.Writer

	// Discard abandons a file opened by Create, removing whatever was
	// written so far. Exactly one of Discard or Close should be called.
	Discard(ctx context.Context)

	// Close commits the contents of a written file, or releases a file
	// opened for reading. No other method shall be called after Close.
	Closer
}

// Closer cleans up a resource.
type Closer interface {
	// Close tries to clean up the resource.
	Close(context.Context) error
}

// Info represents file metadata.
type Info interface {
	// Size returns the length of the file in bytes.
	Size() int64
	// ModTime returns the modification time of the file.
	ModTime() time.Time
}

// NewError returns a reader/writer that fails every operation with err.
func NewError(err error) *Error { return &Error{err: err} }

// Error is an io.ReadSeeker, io.Writer and io.Closer that returns
// the same error on every call.
type Error struct{ err error }

func (e *Error) Read([]byte) (int, error)       { return -1, e.err }
func (e *Error) Seek(int64, int) (int64, error) { return -1, e.err }
func (e *Error) Write([]byte) (int, error)      { return -1, e.err }
func (e *Error) Close() error                   { return e.err }
