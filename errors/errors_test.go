// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors_test

import (
	"context"
	goerrors "errors"
	"os"
	"testing"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestError(t *testing.T) {
	_, err := os.Open("/dev/notexist")
	e1 := errors.E(errors.NotExist, "opening file", err)
	expect.EQ(t, e1.Error(), "opening file: resource does not exist: open /dev/notexist: no such file or directory")
	e2 := errors.E(err)
	expect.EQ(t, e2.Error(), "resource does not exist: open /dev/notexist: no such file or directory")
	for _, e := range []error{e1, e2} {
		expect.True(t, errors.Is(errors.NotExist, e))
	}
}

func TestErrorChaining(t *testing.T) {
	err := errors.E(errors.MalformedRecord, "line 3", goerrors.New("bad json"))
	err = errors.E("read data.json", err)
	expect.EQ(t, err.Error(), "read data.json: malformed record:\n\tline 3: bad json")
	expect.True(t, errors.Is(errors.MalformedRecord, err))
	expect.False(t, errors.Is(errors.Invalid, err))
}

func TestKinds(t *testing.T) {
	for _, c := range []struct {
		err  error
		kind errors.Kind
	}{
		{errors.E(errors.UnsupportedCompression, "x.json.bz2"), errors.UnsupportedCompression},
		{errors.E(errors.PathResolution, "mkdir"), errors.PathResolution},
		{errors.E(context.Canceled), errors.Canceled},
		{errors.E(os.ErrExist), errors.Exists},
		{errors.E(os.ErrPermission), errors.NotAllowed},
		{errors.E("no idea"), errors.Other},
	} {
		expect.EQ(t, errors.Recover(c.err).Kind, c.kind)
	}
}

func TestStdInterop(t *testing.T) {
	err := errors.E(errors.NotExist, "open", os.ErrNotExist)
	assert.True(t, goerrors.Is(err, os.ErrNotExist))
	var e *errors.Error
	assert.True(t, goerrors.As(err, &e))
	expect.EQ(t, e.Kind, errors.NotExist)
}

func TestMatch(t *testing.T) {
	err := errors.E(errors.Invalid, "split tag", errors.E("empty"))
	expect.True(t, errors.Match(errors.E(errors.Invalid), err))
	expect.False(t, errors.Match(errors.E(errors.NotExist), err))
	expect.True(t, errors.Match(errors.E("split tag", errors.E("empty")), err))
}

type errCloser struct{ err error }

func (e errCloser) Close(context.Context) error { return e.err }

func TestCleanUp(t *testing.T) {
	ctx := context.Background()
	run := func(closeErr, retErr error) (err error) {
		defer errors.CleanUpCtx(ctx, errCloser{closeErr}.Close, &err)
		return retErr
	}
	assert.NoError(t, run(nil, nil))
	expect.EQ(t, run(goerrors.New("close"), nil).Error(), "close")
	expect.EQ(t, run(nil, goerrors.New("return")).Error(), "return")
	err := run(goerrors.New("close"), goerrors.New("return"))
	expect.HasSubstr(t, err.Error(), "return")
	expect.HasSubstr(t, err.Error(), "second error in close: close")
}
