// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/retry"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestBackoff(t *testing.T) {
	policy := retry.Backoff(time.Second, 10*time.Second, 2)
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for retries, wait := range want {
		keepgoing, dur := policy.Retry(retries)
		expect.True(t, keepgoing)
		expect.EQ(t, dur, wait)
	}
	// Large retry counts must not overflow.
	_, dur := policy.Retry(5000)
	expect.EQ(t, dur, 10*time.Second)
}

func TestMaxTries(t *testing.T) {
	policy := retry.MaxTries(nil, 3)
	for retries := 0; retries < 2; retries++ {
		keepgoing, dur := policy.Retry(retries)
		expect.True(t, keepgoing)
		expect.EQ(t, dur, time.Duration(0))
	}
	keepgoing, _ := policy.Retry(2)
	expect.False(t, keepgoing)
}

func TestWaitCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry.Wait(ctx, retry.Backoff(time.Hour, time.Hour, 1), 0)
	expect.EQ(t, err, context.Canceled)
}

func TestWaitDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := retry.Wait(ctx, retry.Backoff(time.Hour, time.Hour, 1), 0)
	expect.True(t, errors.Is(errors.Timeout, err))
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	transient := errors.New("transient")
	retryable := func(err error) bool { return err == transient }

	var calls int
	err := retry.Do(ctx, retry.MaxTries(nil, 5), retryable, func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	assert.NoError(t, err)
	expect.EQ(t, calls, 3)

	calls = 0
	err = retry.Do(ctx, retry.MaxTries(nil, 2), retryable, func() error {
		calls++
		return transient
	})
	expect.True(t, errors.Is(errors.TooManyTries, err))
	expect.EQ(t, calls, 2)

	calls = 0
	fatal := errors.E(errors.NotExist, "gone")
	err = retry.Do(ctx, retry.MaxTries(nil, 5), retryable, func() error {
		calls++
		return fatal
	})
	expect.True(t, errors.Is(errors.NotExist, err))
	expect.EQ(t, calls, 1)
}
