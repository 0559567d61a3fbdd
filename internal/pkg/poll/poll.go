// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package poll re-checks a remote condition at a fixed interval until it holds.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrDeadline is returned by Until when the condition did not hold within the timeout.
var ErrDeadline = errors.New("poll deadline exceeded")

var errPending = errors.New("condition pending")

// CheckFn reports whether the polled condition holds. A non-nil error stops polling.
type CheckFn func(ctx context.Context) (done bool, err error)

// Until calls check immediately and then every interval until it reports done, returns an
// error, ctx is cancelled, or timeout elapses. A zero timeout bounds polling by ctx only.
func Until(ctx context.Context, interval, timeout time.Duration, check CheckFn) error {
	backoff := retry.NewConstant(interval)
	if timeout > 0 {
		backoff = retry.WithMaxDuration(timeout, backoff)
	}

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if !done {
			return retry.RetryableError(errPending)
		}
		return nil
	})

	if errors.Is(err, errPending) {
		return ErrDeadline
	}
	return err
}
