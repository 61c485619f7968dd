// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package errors

import (
	"context"
	"fmt"
)

// CleanUp is defer-able syntactic sugar that calls cleanUp and reports its
// error, if any, to *dst. Pass the caller's named return error:
//
//	func countLines(path string) (_ int, err error) {
//		f, err := os.Open(path)
//		if err != nil { ... }
//		defer errors.CleanUp(f.Close, &err)
//		...
//	}
//
// If the caller already returns an error, the clean-up error is appended to
// its message rather than replacing it.
func CleanUp(cleanUp func() error, dst *error) {
	chain(cleanUp(), dst)
}

// CleanUpCtx is CleanUp for a cleanUp function that takes a context, such
// as file.File.Close.
func CleanUpCtx(ctx context.Context, cleanUp func(context.Context) error, dst *error) {
	chain(cleanUp(ctx), dst)
}

func chain(err error, dst *error) {
	switch {
	case err == nil:
	case *dst == nil:
		*dst = err
	default:
		*dst = E(*dst, fmt.Sprintf("second error in close: %v", err))
	}
}
