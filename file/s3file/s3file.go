// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package s3file implements the file interface for S3. Register it to make
// "s3://bucket/key" paths usable wherever a file.Implementation is taken:
//
//	sess := session.Must(session.NewSession())
//	file.RegisterImplementation("s3", s3file.NewImplementation(s3.New(sess)))
package s3file

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/retry"
)

// Path separator used by s3file.
const pathSeparator = "/"

// DefaultRetryPolicy governs metadata and read requests that fail with
// throttling or server errors.
var DefaultRetryPolicy = retry.MaxTries(retry.Backoff(100*time.Millisecond, 5*time.Second, 2), 5)

type s3Impl struct {
	client s3iface.S3API
	policy retry.Policy
}

// NewImplementation creates a new file.Implementation for S3 that issues
// requests through client, retrying under DefaultRetryPolicy.
func NewImplementation(client s3iface.S3API) file.Implementation {
	return NewImplementationWithPolicy(client, DefaultRetryPolicy)
}

// NewImplementationWithPolicy is NewImplementation with an explicit
// retry policy.
func NewImplementationWithPolicy(client s3iface.S3API, policy retry.Policy) file.Implementation {
	return &s3Impl{client: client, policy: policy}
}

// ParseURL parses a path of form "s3://bucket/key" and returns
// (bucket, key). The key may be empty.
func ParseURL(url string) (bucket, key string, err error) {
	scheme, suffix, err := file.ParsePath(url)
	if err != nil {
		return "", "", err
	}
	if scheme != "s3" {
		return "", "", errors.E(errors.Invalid, fmt.Sprintf("parse %s: scheme is not s3", url))
	}
	parts := strings.SplitN(suffix, pathSeparator, 2)
	if parts[0] == "" {
		return "", "", errors.E(errors.Invalid, fmt.Sprintf("parse %s: empty bucket name", url))
	}
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], parts[1], nil
}

// String implements file.Implementation.
func (impl *s3Impl) String() string { return "s3" }

// Open implements file.Implementation. It issues a HEAD request so that a
// missing object is reported right away.
func (impl *s3Impl) Open(ctx context.Context, path string) (file.File, error) {
	bucket, key, err := ParseURL(path)
	if err != nil {
		return nil, err
	}
	info, err := impl.stat(ctx, path, bucket, key)
	if err != nil {
		return nil, err
	}
	f := &s3File{name: path, mode: readonly, info: info}
	f.r = &s3Reader{client: impl.client, policy: impl.policy, name: path, bucket: bucket, key: key, size: info.size}
	return f, nil
}

// Create implements file.Implementation. Data is streamed to S3 by an
// s3manager.Uploader; the object becomes visible when Close returns.
func (impl *s3Impl) Create(ctx context.Context, path string) (file.File, error) {
	bucket, key, err := ParseURL(path)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("create %s: empty key", path))
	}
	pr, pw := io.Pipe()
	f := &s3File{name: path, mode: writeonly, pw: pw, done: make(chan error, 1)}
	uploader := s3manager.NewUploaderWithClient(impl.client)
	go func() {
		_, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		pr.CloseWithError(err) // nolint: errcheck
		f.done <- err
	}()
	return f, nil
}

// Stat implements file.Implementation.
func (impl *s3Impl) Stat(ctx context.Context, path string) (file.Info, error) {
	bucket, key, err := ParseURL(path)
	if err != nil {
		return nil, err
	}
	return impl.stat(ctx, path, bucket, key)
}

func (impl *s3Impl) stat(ctx context.Context, path, bucket, key string) (*s3Info, error) {
	var out *s3.HeadObjectOutput
	err := retry.Do(ctx, impl.policy, retryable, func() (err error) {
		out, err = impl.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return nil, annotate(err, "s3file.stat", path)
	}
	return &s3Info{size: aws.Int64Value(out.ContentLength), modTime: aws.TimeValue(out.LastModified)}, nil
}

// Remove implements file.Implementation.
func (impl *s3Impl) Remove(ctx context.Context, path string) error {
	bucket, key, err := ParseURL(path)
	if err != nil {
		return err
	}
	err = retry.Do(ctx, impl.policy, retryable, func() error {
		_, err := impl.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		return err
	})
	if err != nil {
		return annotate(err, "s3file.remove", path)
	}
	return nil
}

// List implements file.Implementation.
func (impl *s3Impl) List(ctx context.Context, path string, recursive bool) file.Lister {
	return &s3Lister{ctx: ctx, client: impl.client, path: path, recursive: recursive}
}

type s3Info struct {
	size    int64
	modTime time.Time
}

func (i *s3Info) Size() int64        { return i.size }
func (i *s3Info) ModTime() time.Time { return i.modTime }
