// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package evaluation

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ProgressFunc receives the elapsed time of a running evaluation.
type ProgressFunc func(ctx context.Context, elapsed time.Duration)

// startHeartbeat reports progress every interval until the returned stop function is called or
// ctx ends. stop waits for the reporting goroutine to exit and is safe to call more than once.
func startHeartbeat(ctx context.Context, clk clock.Clock, interval time.Duration, progress ProgressFunc) (stop func()) {
	if interval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := clk.Ticker(interval)
	started := clk.Now()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				elapsed := clk.Since(started)
				log.Printf("Evaluation in progress... (%ds)", int(elapsed.Seconds()))
				if progress != nil {
					progress(ctx, elapsed)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
