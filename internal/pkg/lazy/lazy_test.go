// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Lazy_GetValue_RunsOnce(t *testing.T) {
	callCount := 0
	instance := NewLazy(func(ctx context.Context) (string, error) {
		callCount++
		return "client", nil
	})
	require.Equal(t, 0, callCount)

	for range 3 {
		actual, err := instance.GetValue(context.Background())
		require.NoError(t, err)
		require.Equal(t, "client", actual)
	}
	require.Equal(t, 1, callCount)
}

func Test_Lazy_GetValue_RetriesAfterError(t *testing.T) {
	callCount := 0
	instance := NewLazy(func(ctx context.Context) (string, error) {
		callCount++
		if callCount == 1 {
			return "", errors.New("credential unavailable")
		}
		return "client", nil
	})

	_, err := instance.GetValue(context.Background())
	require.Error(t, err)

	actual, err := instance.GetValue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "client", actual)
	require.Equal(t, 2, callCount)
}

func Test_Lazy_GetValue_Concurrent(t *testing.T) {
	var calls atomic.Int32
	instance := NewLazy(func(ctx context.Context) (*int, error) {
		calls.Add(1)
		v := 42
		return &v, nil
	})

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := instance.GetValue(context.Background())
			require.NoError(t, err)
			require.Equal(t, 42, *v)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
}

func Test_Lazy_Initialized(t *testing.T) {
	fail := true
	instance := NewLazy(func(ctx context.Context) (int, error) {
		if fail {
			return 0, errors.New("boom")
		}
		return 1, nil
	})
	require.False(t, instance.Initialized())

	_, err := instance.GetValue(context.Background())
	require.Error(t, err)
	require.False(t, instance.Initialized())

	fail = false
	_, err = instance.GetValue(context.Background())
	require.NoError(t, err)
	require.True(t, instance.Initialized())
}
