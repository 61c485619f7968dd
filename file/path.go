// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file

import (
	"fmt"
	"path/filepath"
	"strings"
)

// schemeLen computes the length of "foo" in "foo://bar/baz". It returns
// (0, nil) if the path is for a local file system.
func schemeLen(path string) (int, error) {
	for i := 0; i < len(path); i++ {
		ch := path[i]
		if ch == ':' {
			if !strings.HasPrefix(path[i:], "://") {
				return -1, fmt.Errorf("parsepath %s: a URL must start with 'scheme://'", path)
			}
			return i, nil
		}
		if !((ch >= '0' && ch <= '9') || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || ch == '.' || ch == '+' || ch == '=') {
			break
		}
	}
	return 0, nil
}

// ParsePath parses "path" into its scheme and the remainder. The path can be
// of form either "scheme://path" or just "path0/.../pathN"; the latter
// indicates a local file, for which the scheme is "".
//
// For example, ParsePath("s3://bucket/key") returns ("s3", "bucket/key", nil).
func ParsePath(path string) (scheme, suffix string, err error) {
	n, err := schemeLen(path)
	if err != nil {
		return "", "", err
	}
	if n == 0 {
		return "", path, nil
	}
	return path[:n], path[n+3:], nil
}

// Base returns the last element of the path. It is the same as filepath.Base
// for a local filesystem path. For URLs the separator is always '/'.
func Base(path string) string {
	scheme, suffix, err := ParsePath(path)
	if scheme == "" || err != nil {
		return filepath.Base(path)
	}
	suffix = strings.TrimRight(suffix, "/")
	if suffix == "" {
		return path
	}
	return suffix[strings.LastIndexByte(suffix, '/')+1:]
}

// Dir returns all but the last element of the path. It is the same as
// filepath.Dir for a local filesystem path. For URLs the separator is always
// '/' and the result keeps the "scheme://" prefix.
func Dir(path string) string {
	scheme, suffix, err := ParsePath(path)
	if scheme == "" || err != nil {
		return filepath.Dir(path)
	}
	i := strings.LastIndexByte(strings.TrimRight(suffix, "/"), '/')
	if i < 0 {
		return scheme + "://"
	}
	return scheme + "://" + strings.TrimRight(suffix[:i], "/")
}

// Join joins any number of path elements into a single path, adding a
// separator if necessary. It keeps a leading "scheme://" or "/" of the first
// element, drops empty elements and trims redundant separators at element
// boundaries. Unlike filepath.Join, elements are not otherwise cleaned.
func Join(elems ...string) string {
	if len(elems) == 0 {
		return ""
	}
	var prefix string
	first := elems[0]
	if n, err := schemeLen(first); err == nil && n > 0 {
		prefix, first = first[:n+3], first[n+3:]
	} else if strings.HasPrefix(first, "/") {
		prefix, first = "/", first[1:]
	}
	parts := make([]string, 0, len(elems))
	for i, e := range elems {
		if i == 0 {
			e = first
		}
		if e = strings.Trim(e, "/"); e != "" {
			parts = append(parts, e)
		}
	}
	return prefix + strings.Join(parts, "/")
}
