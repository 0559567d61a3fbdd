// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package lazy

import (
	"context"
	"sync"
)

type InitializerFn[T any] func(ctx context.Context) (T, error)

// Lazy builds a value on first use. A failed initialization is not cached: the next
// GetValue call runs the initializer again.
type Lazy[T any] struct {
	initialized bool
	initializer InitializerFn[T]
	value       T
	mutex       sync.Mutex
}

func NewLazy[T any](initializerFn InitializerFn[T]) *Lazy[T] {
	return &Lazy[T]{
		initializer: initializerFn,
	}
}

// GetValue returns the initialized value, running the initializer if needed.
// Concurrent callers block until the in-flight initialization completes.
func (l *Lazy[T]) GetValue(ctx context.Context) (T, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.initialized {
		return l.value, nil
	}

	value, err := l.initializer(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.value = value
	l.initialized = true
	return l.value, nil
}

// Initialized reports whether a value is available without running the initializer.
func (l *Lazy[T]) Initialized() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.initialized
}
