// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/gobwas/glob/syntax"
	"github.com/gobwas/glob/syntax/ast"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
)

// parseGlob returns the path elements of pattern that precede the first
// glob metacharacter, and whether pattern has one at all. For example,
// parseGlob("s3://b/dir/x*/*.json") returns ("s3://b/dir/", true).
func parseGlob(pattern string) (string, bool, error) {
	node, err := syntax.Parse(pattern)
	if err != nil {
		return "", false, err
	}
	if node.Kind != ast.KindPattern || len(node.Children) == 0 {
		return pattern, false, nil
	}
	if node.Children[0].Kind != ast.KindText {
		return "", true, nil
	}
	if len(node.Children) == 1 {
		return pattern, false, nil
	}
	prefix := node.Children[0].Value.(ast.Text).Text
	if i := strings.LastIndexByte(prefix, '/'); i >= 0 {
		return prefix[:i+1], true, nil
	}
	return "", true, nil
}

// expandGlob returns the files matching pattern, in listing order. A
// pattern without metacharacters is returned as is. A '*' does not
// cross a '/'; "**" does.
func expandGlob(ctx context.Context, pattern string) ([]string, error) {
	prefix, hasGlob, err := parseGlob(pattern)
	if err != nil {
		return nil, errors.E(errors.Invalid, "glob", pattern, err)
	}
	if !hasGlob {
		return []string{pattern}, nil
	}
	m, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, errors.E(errors.Invalid, "glob", pattern, err)
	}
	suffix := strings.TrimSuffix(pattern[len(prefix):], "/")
	recursive := strings.Contains(suffix, "/") || strings.Contains(suffix, "**")
	dir := prefix
	if dir == "" {
		dir = "."
	}
	var matches []string
	lister := file.List(ctx, dir, recursive)
	for lister.Scan() {
		path := lister.Path()
		if prefix == "" {
			path = strings.TrimPrefix(path, "./")
		}
		if !lister.IsDir() && m.Match(path) {
			matches = append(matches, path)
		}
	}
	if err := lister.Err(); err != nil {
		return nil, errors.E("glob", pattern, err)
	}
	if len(matches) == 0 {
		return nil, errors.E(errors.NotExist, "glob", pattern, fmt.Sprintf("no files match %s", pattern))
	}
	return matches, nil
}

// expandGlobs expands every pattern and concatenates the results.
func expandGlobs(ctx context.Context, patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := expandGlob(ctx, pattern)
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
