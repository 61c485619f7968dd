// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package retry runs remote storage requests under a retry policy.
// A Policy decides whether another attempt is made and how long to
// wait before it; Do drives an operation through the policy.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/grailbio/filemanager/errors"
	"github.com/grailbio/filemanager/log"
)

// A Policy tells whether attempt number retry (counting from zero
// for the first retry) should be made, and after how long.
type Policy interface {
	Retry(retry int) (bool, time.Duration)
}

// Wait queries policy at the given retry number and sleeps until the
// next attempt is due. It returns an error of kind TooManyTries when
// the policy gives up, Timeout when ctx's deadline would pass during
// the wait, and ctx.Err() when ctx is done first.
func Wait(ctx context.Context, policy Policy, retry int) error {
	keepgoing, wait := policy.Retry(retry)
	if !keepgoing {
		return errors.E(errors.TooManyTries, fmt.Sprintf("gave up after %d tries", retry+1))
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
		return errors.E(errors.Timeout, "ran out of time while waiting for retry")
	}
	if wait == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn until it succeeds, until it returns an error for which
// retryable is false, or until policy gives up. In the last case the
// returned error wraps fn's final error.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, fn func() error) error {
	for retries := 0; ; retries++ {
		err := fn()
		if err == nil || !retryable(err) {
			return err
		}
		if werr := Wait(ctx, policy, retries); werr != nil {
			if errors.Is(errors.TooManyTries, werr) {
				return errors.E(errors.TooManyTries, werr.Error(), err)
			}
			return err
		}
		log.Debug.Printf("retry %d after error: %v", retries+1, err)
	}
}

type backoff struct {
	factor       float64
	initial, max time.Duration
}

// Backoff returns a Policy that first waits for initial; each further
// retry multiplies the wait by factor, up to max.
func Backoff(initial, max time.Duration, factor float64) Policy {
	return &backoff{initial: initial, max: max, factor: factor}
}

func (b *backoff) Retry(retries int) (bool, time.Duration) {
	wait := float64(b.initial) * math.Pow(b.factor, float64(retries))
	if wait > float64(b.max) || math.IsInf(wait, 0) {
		return true, b.max
	}
	return true, time.Duration(wait)
}

type maxtries struct {
	policy Policy
	max    int
}

// MaxTries returns a policy that permits at most n attempts in total.
// Within that limit the wait is taken from policy; a nil policy
// retries immediately.
func MaxTries(policy Policy, n int) Policy {
	if n < 1 {
		panic("retry.MaxTries: n < 1")
	}
	return &maxtries{policy, n - 1}
}

func (m *maxtries) Retry(retries int) (bool, time.Duration) {
	if retries >= m.max {
		return false, 0
	}
	if m.policy != nil {
		return m.policy.Retry(retries)
	}
	return true, 0
}
