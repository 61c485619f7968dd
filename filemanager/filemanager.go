// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package filemanager opens files of heterogeneous formats behind one
// interface. The format of a file is chosen by its name:
//
//	name.family[.codec]
//
// where family is one of "json", "csv", "xml" or "parq", and codec is
// "gz" or "zst". Names of any other family are handled as plain lines.
// In read mode a File yields records through a lineio.Scanner; in write
// mode it accepts them through a lineio.Writer. Parquet files are
// datasets (see package parquetio) whose records are buffered and
// committed in batches.
//
// A File must be closed exactly once; Do does this on every exit path:
//
//	err := filemanager.Do(ctx, "/data", "events.json.gz", filemanager.Options{},
//		func(f *filemanager.File) error {
//			s := f.Scanner()
//			for s.Scan() {
//				process(s.Record())
//			}
//			return s.Err()
//		})
package filemanager

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/filemanager/compress"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/fileio"
	"github.com/grailbio/filemanager/lineio"
	"github.com/grailbio/filemanager/log"
	"github.com/grailbio/filemanager/parquetio"
	"github.com/grailbio/filemanager/tsv"
	"github.com/grailbio/filemanager/xmlrec"
)

// File is an open file together with the record adapter of its format. A
// File is not safe for concurrent use.
type File struct {
	path string
	root string
	desc fileio.Descriptor
	opts Options
	impl file.Implementation

	handle  file.File
	decoder io.Closer
	encoder io.Closer
	text    io.Closer

	scanner lineio.Scanner
	writer  lineio.Writer
	dataset *parquetio.DatasetReader

	closed   bool
	closeErr error
}

// Open opens the file dir/name. In write mode on the local file system
// the directory is first created, along with any missing parents; failure
// to do so is an error of kind errors.PathResolution. A codec token that
// names no known codec fails with errors.UnsupportedCompression.
//
// Parquet files are not opened as such: a dataset rooted at
// Options.RootPath is read or written instead.
func Open(ctx context.Context, dir, name string, opts Options) (_ *File, err error) {
	opts = opts.withDefaults()
	f := &File{path: file.Join(dir, name), opts: opts, impl: opts.Filesystem}
	if f.impl == nil {
		if f.impl, err = file.ImplementationFor(f.path); err != nil {
			return nil, err
		}
	}
	if f.desc, err = describe(name, opts); err != nil {
		return nil, err
	}
	if err := f.checkAdapter(); err != nil {
		return nil, err
	}
	if opts.Mode == Write && f.impl.String() == "local" {
		if dir := file.Dir(f.path); dir != "" {
			if err := os.MkdirAll(dir, 0777); err != nil {
				return nil, errors.E(errors.PathResolution, fmt.Sprintf("mkdir %s", dir), err)
			}
		}
	}
	log.Debug.Printf("filemanager: open %s (%s) for %s", f.path, f.desc, opts.Mode)
	if f.desc.Format == fileio.Parquet {
		f.root = opts.RootPath
		if opts.Filesystem == nil {
			if f.root == "" {
				f.root = name
			}
			f.root = file.Join(dir, f.root)
		}
		if err := f.openDataset(ctx); err != nil {
			return nil, err
		}
		return f, nil
	}
	defer func() {
		if err != nil {
			f.abort(ctx)
		}
	}()
	if opts.Mode == Write {
		err = f.create(ctx)
	} else {
		err = f.open(ctx)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Do opens the file dir/name, calls fn with it, and closes it, even if fn
// panics. Do returns the error of fn, or else the error of Close.
func Do(ctx context.Context, dir, name string, opts Options, fn func(*File) error) (err error) {
	f, err := Open(ctx, dir, name, opts)
	if err != nil {
		return err
	}
	defer errors.CleanUpCtx(ctx, f.Close, &err)
	return fn(f)
}

func describe(name string, opts Options) (fileio.Descriptor, error) {
	if opts.Compression == "" {
		return fileio.Describe(name)
	}
	codec, err := fileio.LookupCodec(opts.Compression)
	if err != nil {
		return fileio.Descriptor{}, err
	}
	return fileio.Descriptor{Format: fileio.DetermineFormat(name), Codec: codec}, nil
}

// checkAdapter fails for the format/mode combinations that have no
// adapter, before any file is touched.
func (f *File) checkAdapter() error {
	switch f.desc.Format {
	case fileio.CSV, fileio.XML:
		if f.opts.Mode == Write {
			return errors.E(errors.NotSupported, fmt.Sprintf("write %s: %s files are read-only", f.path, f.desc.Format))
		}
		if f.desc.Format == fileio.XML && f.opts.SplitTag == "" {
			return errors.E(errors.Invalid, fmt.Sprintf("read %s: xml files require a split tag", f.path))
		}
	}
	return nil
}

func (f *File) openDataset(ctx context.Context) (err error) {
	if f.opts.Mode == Write {
		f.writer, err = parquetio.NewWriter(ctx, f.impl, f.root, parquetio.Options{
			Capacity:      f.opts.BufferCapacity,
			PartitionCols: f.opts.PartitionCols,
			Compression:   f.opts.ParquetCompression,
		})
		return err
	}
	if f.dataset, err = parquetio.NewDatasetReader(ctx, f.impl, f.root); err != nil {
		return err
	}
	f.scanner = f.dataset
	return nil
}

func (f *File) open(ctx context.Context) error {
	enc, err := fileio.Encoding(f.opts.Encoding)
	if err != nil {
		return err
	}
	opener, err := fileio.ResolveOpener(f.desc.Codec)
	if err != nil {
		return err
	}
	if f.handle, err = f.impl.Open(ctx, f.path); err != nil {
		return err
	}
	rc, err := opener.Reader(f.handle.Reader(ctx), f.opts.Buffering)
	if err != nil {
		return errors.E(err, "open", f.path)
	}
	if f.opts.DetectCompression && f.desc.Codec == fileio.NoCodec {
		// Closing the plain opener's reader is a no-op.
		rc, _ = compress.NewReader(rc)
	}
	f.decoder = rc
	r := fileio.DecodeReader(rc, enc)
	switch f.desc.Format {
	case fileio.JSON:
		f.scanner = lineio.NewJSONReader(r)
	case fileio.CSV:
		f.scanner, err = tsv.NewReader(r, f.opts.CSV)
	case fileio.XML:
		f.scanner, err = xmlrec.NewReader(r, f.opts.SplitTag)
	default:
		f.scanner = lineio.NewReader(r)
	}
	return err
}

func (f *File) create(ctx context.Context) error {
	enc, err := fileio.Encoding(f.opts.Encoding)
	if err != nil {
		return err
	}
	opener, err := fileio.ResolveOpener(f.desc.Codec)
	if err != nil {
		return err
	}
	if f.handle, err = f.impl.Create(ctx, f.path); err != nil {
		return err
	}
	wc, err := opener.Writer(f.handle.Writer(ctx))
	if err != nil {
		return errors.E(err, "create", f.path)
	}
	f.encoder = wc
	w := fileio.EncodeWriter(wc, enc)
	if c, ok := w.(io.Closer); ok && enc != nil {
		f.text = c
	}
	if f.desc.Format == fileio.JSON {
		f.writer = lineio.NewJSONWriter(w)
	} else {
		f.writer = lineio.NewWriter(w)
	}
	return nil
}

// abort releases what a failed Open acquired.
func (f *File) abort(ctx context.Context) {
	if f.decoder != nil {
		_ = f.decoder.Close()
	}
	if f.handle == nil {
		return
	}
	if f.opts.Mode == Write {
		f.handle.Discard(ctx)
		return
	}
	if err := f.handle.Close(ctx); err != nil {
		log.Error.Printf("filemanager: close %s: %v", f.path, err)
	}
}

// Path returns the path of the file.
func (f *File) Path() string { return f.path }

// Root returns the root of the Parquet dataset, or "" for other formats.
func (f *File) Root() string { return f.root }

// Format returns the record format of the file.
func (f *File) Format() fileio.Format { return f.desc.Format }

// Descriptor returns the format and codec of the file.
func (f *File) Descriptor() fileio.Descriptor { return f.desc }

// Scanner returns the record scanner of a file opened for reading. For a
// file opened for writing it returns a scanner that fails with
// errors.NotSupported.
func (f *File) Scanner() lineio.Scanner {
	if f.scanner == nil {
		return errScanner{errors.E(errors.NotSupported, fmt.Sprintf("scan %s: opened for %s", f.path, f.opts.Mode))}
	}
	return f.scanner
}

// Writer returns the record writer of a file opened for writing. For a
// file opened for reading it returns a writer that fails with
// errors.NotSupported.
func (f *File) Writer() lineio.Writer {
	if f.writer == nil {
		return errWriter{errors.E(errors.NotSupported, fmt.Sprintf("write %s: opened for %s", f.path, f.opts.Mode))}
	}
	return f.writer
}

// Close commits the buffered records of a Parquet writer, then closes the
// codec and the underlying file. Close is idempotent: calls after the
// first return the first call's result.
func (f *File) Close(ctx context.Context) error {
	if f.closed {
		return f.closeErr
	}
	f.closed = true
	var err error
	if w, ok := f.writer.(*parquetio.Writer); ok && w.Buffered() > 0 {
		err = w.Commit()
	}
	if f.dataset != nil {
		errors.CleanUp(f.dataset.Close, &err)
	}
	if f.text != nil {
		errors.CleanUp(f.text.Close, &err)
	}
	if f.encoder != nil {
		errors.CleanUp(f.encoder.Close, &err)
	}
	if f.decoder != nil {
		errors.CleanUp(f.decoder.Close, &err)
	}
	if f.handle != nil {
		errors.CleanUpCtx(ctx, f.handle.Close, &err)
	}
	if err != nil {
		err = errors.E(err, "close", f.path)
		log.Error.Printf("filemanager: %v", err)
	} else {
		log.Debug.Printf("filemanager: closed %s", f.path)
	}
	f.closeErr = err
	return err
}

type errScanner struct{ err error }

func (errScanner) Scan() bool          { return false }
func (errScanner) Record() interface{} { return nil }
func (s errScanner) Err() error        { return s.err }

type errWriter struct{ err error }

func (w errWriter) Write(interface{}) error { return w.err }
func (w errWriter) Commit() error           { return w.err }
