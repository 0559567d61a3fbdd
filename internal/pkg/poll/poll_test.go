// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUntil_CompletesAfterPending(t *testing.T) {
	attempts := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		attempts++
		return attempts == 3, nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestUntil_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		attempts++
		return false, boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, attempts)
}

func TestUntil_Deadline(t *testing.T) {
	err := Until(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})

	require.ErrorIs(t, err, ErrDeadline)
}

func TestUntil_ZeroTimeoutHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := Until(ctx, 5*time.Millisecond, 0, func(ctx context.Context) (bool, error) {
		return false, nil
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUntil_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Until(ctx, time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
}
