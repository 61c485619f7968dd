// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package file provides basic file operations across multiple file-system
// types, so that callers can read and write local files and objects in S3
// through the same two interfaces.
//
// Implementation provides filesystem operations, such as Open, Create,
// Remove, and List (directory walking). File implements operations on a
// file; it is created by Implementation.{Open,Create}.
//
// Paths of the form "scheme://rest" are served by the implementation
// registered for scheme with RegisterImplementation; all other paths are
// served by the local implementation:
//
//	file.RegisterImplementation("s3", s3file.NewImplementation(client))
//	f, err := file.Create(ctx, "s3://bucket/dataset/part-0.parquet")
//	...
//	_, err = f.Writer(ctx).Write(data)
//	err = f.Close(ctx)
package file
