// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package fileio

import (
	"fmt"
	"io"

	"github.com/grailbio/filemanager/errors"
)

type named interface {
	// Name returns the path name.
	Name() string
}

// CloseAndReport returns a defer-able helper that calls f.Close and reports errors, if any,
// to *err. Pass your function's named return error. Example usage:
//
//	func commitBatch(w *pqarrow.FileWriter) (err error) {
//		defer fileio.CloseAndReport(w, &err)
//		...
//	}
//
// If your function returns with an error, any f.Close error will be chained appropriately.
func CloseAndReport(f io.Closer, err *error) {
	err2 := f.Close()
	if err2 == nil {
		return
	}
	if *err == nil {
		*err = err2
		return
	}
	message := "second error on Close"
	if n, ok := f.(named); ok {
		message += " " + n.Name()
	}
	*err = errors.E(*err, fmt.Sprintf("%s: %v", message, err2))
}
