// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command fmcat prints the records of files of any supported format as
// JSON lines, and copies records into Parquet datasets.
//
//	fmcat cat [--split-tag T] [--encoding E] [--compression C] [--detect] PATTERN...
//	fmcat parquet [--root R] [--partition C]... [--capacity N] [--overwrite] OUTDIR FILE
//
// Paths may be local or s3://bucket/key URLs; cat expands glob patterns.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/grailbio/filemanager/cmd/fmcat/cmd"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/file/s3file"
	"github.com/grailbio/filemanager/log"
)

func main() {
	sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
	if err != nil {
		log.Fatalf("aws session: %v", err)
	}
	file.RegisterImplementation("s3", s3file.NewImplementation(s3.New(sess)))
	if err := cmd.Run(context.Background(), os.Stdout, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}
