// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	"github.com/grailbio/filemanager/fileio"
	"github.com/grailbio/filemanager/filemanager"
	"github.com/grailbio/filemanager/log"
	"github.com/grailbio/filemanager/parquetio"
	"github.com/spf13/cobra"
)

// datasetName is the name of the Parquet target inside the output
// directory; only its family token matters.
var datasetName = "dataset." + fileio.Suffix(fileio.Parquet)

// ParquetOptions configures the parquet subcommand.
type ParquetOptions struct {
	// In configures the reading of the input file.
	In filemanager.Options
	// Root is the dataset directory, relative to the output directory.
	Root string
	// Partitions lists the partition columns of the dataset.
	Partitions []string
	// Capacity is the number of records per commit.
	Capacity int
	// Overwrite removes an existing dataset first.
	Overwrite bool
}

func newParquetCommand(g *globalFlags) *cobra.Command {
	var opts ParquetOptions
	c := &cobra.Command{
		Use:   "parquet OUTDIR FILE",
		Short: "Copy the records of a file into a Parquet dataset",
		Long: `parquet reads the records of FILE, which must be flat objects such as
JSON objects or CSV rows, and writes them to a Parquet dataset rooted at
OUTDIR/ROOT, partitioned by the given columns. The extra fields of CSV rows
longer than their header are stored comma-separated in one string column.
Options from --config apply to the reading of FILE.`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			ctx := c.Context()
			var err error
			if opts.In, err = g.loadOptions(ctx); err != nil {
				return err
			}
			return Parquet(ctx, c.OutOrStdout(), args[0], args[1], opts)
		},
	}
	c.Flags().StringVar(&opts.Root, "root", "data", "dataset directory under OUTDIR")
	c.Flags().StringSliceVar(&opts.Partitions, "partition", nil, "partition column; may be repeated")
	c.Flags().IntVar(&opts.Capacity, "capacity", parquetio.DefaultCapacity, "records per commit")
	c.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "remove an existing dataset first")
	return c
}

// Parquet copies the records of the file in into a Parquet dataset under
// outdir and prints a summary to out.
func Parquet(ctx context.Context, out io.Writer, outdir, in string, opts ParquetOptions) error {
	wopts := filemanager.Options{
		Mode:           filemanager.Write,
		RootPath:       opts.Root,
		PartitionCols:  opts.Partitions,
		BufferCapacity: opts.Capacity,
	}
	if opts.Overwrite {
		root := file.Join(outdir, opts.Root)
		impl, err := file.ImplementationFor(root)
		if err != nil {
			return err
		}
		log.Printf("fmcat: removing %s", root)
		if err := file.RemoveAll(ctx, impl, root); err != nil && !errors.Is(errors.NotExist, err) {
			return err
		}
	}
	dst, err := filemanager.Open(ctx, outdir, datasetName, wopts)
	if err != nil {
		return err
	}
	w := dst.Writer()
	opts.In.Mode = filemanager.Read
	var n int
	err = filemanager.Do(ctx, file.Dir(in), file.Base(in), opts.In, func(src *filemanager.File) error {
		s := src.Scanner()
		for s.Scan() {
			if err := w.Write(flatten(s.Record())); err != nil {
				return errors.E(err, fmt.Sprintf("record %d", n+1))
			}
			n++
		}
		return s.Err()
	})
	errors.CleanUpCtx(ctx, dst.Close, &err)
	if err != nil {
		return errors.E(err, "parquet", in)
	}
	commits := w.(*parquetio.Writer).Commits()
	fmt.Fprintf(out, "wrote %d records in %d commits to %s\n", n, commits, dst.Root())
	return nil
}

// flatten joins the string list values of a record, such as the overflow
// fields of a CSV row, into single strings.
func flatten(record interface{}) interface{} {
	rec, ok := record.(map[string]interface{})
	if !ok {
		return record
	}
	for k, v := range rec {
		if list, ok := v.([]string); ok {
			rec[k] = strings.Join(list, ",")
		}
	}
	return rec
}
