// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/file"
	filetestutil "github.com/grailbio/filemanager/file/internal/testutil"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
)

func TestAll(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	filetestutil.TestAll(context.Background(), t, file.NewLocalImplementation(), tempDir)
}

func TestEmptyPath(t *testing.T) {
	_, err := file.Create(context.Background(), "")
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestCreateMakesDirectories(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	path := filepath.Join(tempDir, "a", "b", "c.txt")
	assert.NoError(t, file.WriteFile(ctx, file.NewLocalImplementation(), path, []byte("hello")))
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.EQ(t, string(data), "hello")
}

func TestCreateUnderFile(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	blocker := filepath.Join(tempDir, "blocker")
	assert.NoError(t, os.WriteFile(blocker, nil, 0600))
	_, err := file.Create(ctx, filepath.Join(blocker, "x.txt"))
	assert.True(t, errors.Is(errors.PathResolution, err), "got %v", err)
}

func TestRegistration(t *testing.T) {
	impl := file.NewLocalImplementation()
	file.RegisterImplementation("regtest", impl)
	assert.True(t, file.FindImplementation("") != nil)
	assert.True(t, file.FindImplementation("regtest") == impl)
	assert.True(t, file.FindImplementation("regtest2") == nil)
	_, err := file.ImplementationFor("regtest2://x")
	assert.Regexp(t, err.Error(), "no implementation registered")
}
