// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/filemanager/cmd/fmcat/cmd"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCat(t *testing.T) {
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	csvPath := filepath.Join(tmp, "t.csv")
	xmlPath := filepath.Join(tmp, "t.xml")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2\n"), 0600))
	require.NoError(t, os.WriteFile(xmlPath, []byte(`<r><i k="v"/><i>x</i></r>`), 0600))

	var out bytes.Buffer
	require.NoError(t, cmd.Run(context.Background(), &out, []string{"cat", "--split-tag", "i", csvPath, xmlPath}))
	assert.Equal(t, `{"a":"1","b":"2"}
{"i":{"@k":"v"}}
{"i":"x"}
`, out.String())
}

func TestCatConfig(t *testing.T) {
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	profile := filepath.Join(tmp, "p.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("csv:\n  comma: \"|\"\n"), 0600))
	path := filepath.Join(tmp, "t.csv")
	require.NoError(t, os.WriteFile(path, []byte("a|b\n1|2|3\n"), 0600))

	var out bytes.Buffer
	require.NoError(t, cmd.Run(context.Background(), &out, []string{"--config", profile, "--log", "error", "cat", path}))
	assert.Equal(t, `{"_extra":["3"],"a":"1","b":"2"}`+"\n", out.String())

	err := cmd.Run(context.Background(), &out, []string{"cat", filepath.Join(tmp, "missing.json")})
	assert.Error(t, err)
	err = cmd.Run(context.Background(), &out, []string{"--log", "loud", "cat", path})
	assert.Error(t, err)
}

func TestParquet(t *testing.T) {
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	in := filepath.Join(tmp, "in.json")
	var lines []string
	for _, region := range []string{"eu", "us", "eu", "ap", "us"} {
		lines = append(lines, `{"region":"`+region+`","n":1}`)
	}
	require.NoError(t, os.WriteFile(in, []byte(strings.Join(lines, "\n")+"\n"), 0600))
	outdir := filepath.Join(tmp, "out")

	for i := 0; i < 2; i++ {
		var out bytes.Buffer
		require.NoError(t, cmd.Run(context.Background(), &out, []string{
			"parquet", "--partition", "region", "--capacity", "2", "--overwrite", outdir, in}))
		assert.Equal(t, "wrote 5 records in 3 commits to "+filepath.Join(outdir, "data")+"\n", out.String())
	}
	for _, region := range []string{"ap", "eu", "us"} {
		info, err := os.Stat(filepath.Join(outdir, "data", "region="+region))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	profile := filepath.Join(tmp, "p.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("root_path: data\n"), 0600))
	var out bytes.Buffer
	require.NoError(t, cmd.Run(context.Background(), &out, []string{"--config", profile, "cat", filepath.Join(outdir, "any.parq")}))
	assert.Equal(t, 5, strings.Count(out.String(), `"n":1`))
	assert.Equal(t, 2, strings.Count(out.String(), `"region":"eu"`))
}

func TestCatGlob(t *testing.T) {
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "sub"), 0700))
	for name, data := range map[string]string{
		"a.json":     `{"n":1}` + "\n",
		"b.json":     `{"n":2}` + "\n",
		"c.csv":      "n\n3\n",
		"sub/d.json": `{"n":4}` + "\n",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(tmp, name), []byte(data), 0600))
	}

	var out bytes.Buffer
	require.NoError(t, cmd.Run(context.Background(), &out, []string{"cat", filepath.Join(tmp, "*.json")}))
	assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", out.String())

	out.Reset()
	require.NoError(t, cmd.Run(context.Background(), &out, []string{"cat", filepath.Join(tmp, "**.json")}))
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))

	err := cmd.Run(context.Background(), &out, []string{"cat", filepath.Join(tmp, "*.xml")})
	assert.Error(t, err)
}

func TestParquetOverflowFields(t *testing.T) {
	tmp, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	in := filepath.Join(tmp, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("a,b\n1,2\n3,4,5,6\n"), 0600))
	outdir := filepath.Join(tmp, "out")

	var out bytes.Buffer
	require.NoError(t, cmd.Run(context.Background(), &out, []string{"parquet", outdir, in}))
	assert.Equal(t, "wrote 2 records in 1 commits to "+filepath.Join(outdir, "data")+"\n", out.String())

	profile := filepath.Join(tmp, "p.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("root_path: data\n"), 0600))
	out.Reset()
	require.NoError(t, cmd.Run(context.Background(), &out, []string{"--config", profile, "cat", filepath.Join(outdir, "any.parq")}))
	assert.Equal(t, `{"_extra":null,"a":"1","b":"2"}
{"_extra":"5,6","a":"3","b":"4"}
`, out.String())
}
