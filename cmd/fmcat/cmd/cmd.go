// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package cmd implements the subcommands of fmcat.
package cmd

import (
	"context"
	"io"

	"github.com/grailbio/filemanager/filemanager"
	"github.com/grailbio/filemanager/log"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	config string
	level  string
}

// NewRootCommand returns the fmcat command. Subcommands print to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:   "fmcat",
		Short: "Read and convert record files of any format",
		Long: `fmcat reads files whose format is given by their name, name.family[.codec],
where family is json, csv, xml or parq, and codec is gz or zst. Files of
other families are read as plain lines.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			l, err := log.ParseLevel(g.level)
			if err != nil {
				return err
			}
			log.SetLevel(l)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.config, "config", "", "YAML profile of file options")
	root.PersistentFlags().StringVar(&g.level, "log", "info", "log level (off, error, info, debug)")
	root.SetOut(out)
	root.AddCommand(newCatCommand(&g), newParquetCommand(&g))
	return root
}

// Run runs fmcat with the given arguments.
func Run(ctx context.Context, out io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// loadOptions returns the options of the profile named by --config, or
// the zero options.
func (g *globalFlags) loadOptions(ctx context.Context) (filemanager.Options, error) {
	if g.config == "" {
		return filemanager.Options{}, nil
	}
	return filemanager.LoadOptions(ctx, g.config)
}
