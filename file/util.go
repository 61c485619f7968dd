// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// ReadFile reads the given file through impl and returns the contents.
func ReadFile(ctx context.Context, impl Implementation, path string) ([]byte, error) {
	in, err := impl.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(in.Reader(ctx))
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, err
	}
	return data, in.Close(ctx)
}

// WriteFile writes data to the given file through impl. If the file does not
// exist, WriteFile creates it; otherwise WriteFile truncates it before
// writing.
func WriteFile(ctx context.Context, impl Implementation, path string, data []byte) error {
	out, err := impl.Create(ctx, path)
	if err != nil {
		return err
	}
	n, err := out.Writer(ctx).Write(data)
	if n != len(data) && err == nil {
		err = fmt.Errorf("writefile %s: requested to write %d bytes, actually wrote %d bytes", path, len(data), n)
	}
	if err != nil {
		out.Discard(ctx)
		return err
	}
	return out.Close(ctx)
}

// RemoveAll removes every file under path through impl. It is unspecified
// whether empty directories are removed. It removes everything it can but
// returns the first error it encounters. If the path does not exist,
// RemoveAll returns nil.
func RemoveAll(ctx context.Context, impl Implementation, path string) error {
	g, ectx := errgroup.WithContext(ctx)
	l := impl.List(ectx, path, true)
	for l.Scan() {
		if !l.IsDir() {
			path := l.Path()
			g.Go(func() error { return impl.Remove(ectx, path) })
		}
	}
	err := g.Wait()
	if lerr := l.Err(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}
