// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3file

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/log"
	"github.com/grailbio/filemanager/retry"
)

type accessMode int

const (
	readonly  accessMode = iota // file is opened by Open.
	writeonly                   // file is opened by Create.
)

var errDiscarded = errors.E(errors.Canceled, "s3file: upload discarded")

// s3File implements file.File.
type s3File struct {
	name string
	mode accessMode

	// Read mode.
	info *s3Info
	r    *s3Reader

	// Write mode. The uploader goroutine reports its result on done.
	pw   *io.PipeWriter
	done chan error
}

// Name implements file.File.
func (f *s3File) Name() string { return f.name }

// Stat implements file.File.
func (f *s3File) Stat(context.Context) (file.Info, error) {
	if f.mode != readonly {
		return nil, errors.E(errors.NotSupported, "stat", f.name, "file is being written")
	}
	return f.info, nil
}

// Reader implements file.File.
func (f *s3File) Reader(ctx context.Context) io.ReadSeeker {
	if f.mode != readonly {
		return file.NewError(fmt.Errorf("reader %v: file is not opened in read mode", f.name))
	}
	f.r.ctx = ctx
	return f.r
}

// Writer implements file.File.
func (f *s3File) Writer(context.Context) io.Writer {
	if f.mode != writeonly {
		return file.NewError(fmt.Errorf("writer %v: file is not opened in write mode", f.name))
	}
	return f.pw
}

// Discard implements file.File.
func (f *s3File) Discard(context.Context) {
	if f.mode != writeonly {
		return
	}
	f.pw.CloseWithError(errDiscarded) // nolint: errcheck
	if err := <-f.done; err == nil {
		log.Error.Printf("discard %s: upload completed before discard", f.name)
	}
}

// Close implements file.File.
func (f *s3File) Close(context.Context) error {
	if f.mode == readonly {
		return f.r.closeBody()
	}
	if err := f.pw.Close(); err != nil {
		return err
	}
	if err := <-f.done; err != nil {
		return annotate(err, "s3file.close", f.name)
	}
	return nil
}

// s3Reader reads an object with ranged GET requests. A new request is issued
// after every seek that moves the offset.
type s3Reader struct {
	ctx    context.Context
	client s3iface.S3API
	policy retry.Policy
	name   string
	bucket string
	key    string
	size   int64
	off    int64
	body   io.ReadCloser
}

func (r *s3Reader) Read(p []byte) (int, error) {
	if r.off >= r.size {
		return 0, io.EOF
	}
	if r.body == nil {
		ctx := r.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		var out *s3.GetObjectOutput
		err := retry.Do(ctx, r.policy, retryable, func() (err error) {
			out, err = r.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
				Bucket: aws.String(r.bucket),
				Key:    aws.String(r.key),
				Range:  aws.String(fmt.Sprintf("bytes=%d-", r.off)),
			})
			return err
		})
		if err != nil {
			return 0, annotate(err, "s3file.read", r.name)
		}
		r.body = out.Body
	}
	n, err := r.body.Read(p)
	r.off += int64(n)
	if err == io.EOF && r.off < r.size {
		err = errors.E(errors.Other, "s3file.read", r.name, fmt.Sprintf("short object: got %d of %d bytes", r.off, r.size))
	}
	return n, err
}

func (r *s3Reader) Seek(offset int64, whence int) (int64, error) {
	var off int64
	switch whence {
	case io.SeekStart:
		off = offset
	case io.SeekCurrent:
		off = r.off + offset
	case io.SeekEnd:
		off = r.size + offset
	default:
		return 0, errors.E(errors.Invalid, fmt.Sprintf("seek %s: bad whence %d", r.name, whence))
	}
	if off < 0 {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("seek %s: negative offset %d", r.name, off))
	}
	if off != r.off {
		if err := r.closeBody(); err != nil {
			return 0, err
		}
		r.off = off
	}
	return off, nil
}

func (r *s3Reader) closeBody() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}
