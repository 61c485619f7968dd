// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"io"

	json "github.com/goccy/go-json"
	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/filemanager"
	"github.com/spf13/cobra"
)

func newCatCommand(g *globalFlags) *cobra.Command {
	var (
		splitTag, encoding, compression string
		detect                          bool
	)
	c := &cobra.Command{
		Use:   "cat FILE...",
		Short: "Print the records of files as JSON lines",
		Long: `Cat prints the records of files to stdout, one JSON value per line.
It supports globs defined in https://github.com/gobwas/glob; a '*' does not
cross a '/' while "**" does.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			opts, err := g.loadOptions(ctx)
			if err != nil {
				return err
			}
			flags := c.Flags()
			if flags.Changed("split-tag") {
				opts.SplitTag = splitTag
			}
			if flags.Changed("encoding") {
				opts.Encoding = encoding
			}
			if flags.Changed("compression") {
				opts.Compression = compression
			}
			if flags.Changed("detect") {
				opts.DetectCompression = detect
			}
			opts.Mode = filemanager.Read
			return Cat(ctx, c.OutOrStdout(), opts, args)
		},
	}
	c.Flags().StringVar(&splitTag, "split-tag", "", "name of the element that delimits XML records")
	c.Flags().StringVar(&encoding, "encoding", "", "text encoding of the files")
	c.Flags().StringVar(&compression, "compression", "", "codec of the files, overriding their names")
	c.Flags().BoolVar(&detect, "detect", false, "detect gzip and zstd content in files without a codec suffix")
	return c
}

// Cat prints every record of the given files to out, one JSON value per
// line. Paths may be glob patterns in the syntax of
// github.com/gobwas/glob.
func Cat(ctx context.Context, out io.Writer, opts filemanager.Options, patterns []string) error {
	paths, err := expandGlobs(ctx, patterns)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, path := range paths {
		err := filemanager.Do(ctx, file.Dir(path), file.Base(path), opts, func(f *filemanager.File) error {
			s := f.Scanner()
			for s.Scan() {
				if err := enc.Encode(s.Record()); err != nil {
					return err
				}
			}
			return s.Err()
		})
		if err != nil {
			return errors.E(err, "cat", path)
		}
	}
	return nil
}
