// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package s3file

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/grailbio/filemanager/file"
)

type listEntry struct {
	path string
	dir  bool
	info *s3Info
}

// s3Lister implements file.Lister. The listing is fetched on the first call
// to Scan.
type s3Lister struct {
	ctx       context.Context
	client    s3iface.S3API
	path      string
	recursive bool

	fetched bool
	todo    []listEntry
	cur     listEntry
	err     error
}

func (l *s3Lister) fetch() {
	l.fetched = true
	bucket, key, err := ParseURL(l.path)
	if err != nil {
		l.err = err
		return
	}
	dirKey := strings.TrimSuffix(key, pathSeparator)
	if dirKey != "" {
		dirKey += pathSeparator
	}
	urlPrefix := "s3://" + bucket + pathSeparator
	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket), Prefix: aws.String(key)}
	if !l.recursive {
		input.Prefix = aws.String(dirKey)
		input.Delimiter = aws.String(pathSeparator)
		if key != dirKey {
			// The path may name a regular file.
			if info, err := (&s3Impl{client: l.client}).stat(l.ctx, l.path, bucket, key); err == nil {
				l.todo = append(l.todo, listEntry{path: l.path, info: info})
			}
		}
	}
	err = l.client.ListObjectsV2PagesWithContext(l.ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, p := range page.CommonPrefixes {
			l.todo = append(l.todo, listEntry{
				path: urlPrefix + strings.TrimSuffix(aws.StringValue(p.Prefix), pathSeparator),
				dir:  true,
			})
		}
		for _, obj := range page.Contents {
			k := aws.StringValue(obj.Key)
			if l.recursive && k != key && !strings.HasPrefix(k, dirKey) {
				// "dir" must not match "dir.txt".
				continue
			}
			l.todo = append(l.todo, listEntry{
				path: urlPrefix + k,
				info: &s3Info{size: aws.Int64Value(obj.Size), modTime: aws.TimeValue(obj.LastModified)},
			})
		}
		return true
	})
	if err != nil {
		l.err = annotate(err, "s3file.list", l.path)
	}
}

// Scan implements file.Lister.
func (l *s3Lister) Scan() bool {
	if !l.fetched {
		l.fetch()
	}
	if l.err != nil || len(l.todo) == 0 {
		return false
	}
	l.cur, l.todo = l.todo[0], l.todo[1:]
	return true
}

// Err implements file.Lister.
func (l *s3Lister) Err() error { return l.err }

// Path implements file.Lister.
func (l *s3Lister) Path() string { return l.cur.path }

// IsDir implements file.Lister.
func (l *s3Lister) IsDir() bool { return l.cur.dir }

// Info implements file.Lister. It returns nil for directories.
func (l *s3Lister) Info() file.Info {
	if l.cur.dir {
		return nil
	}
	return l.cur.info
}
