package utils

import (
	"context"
	"math/rand"
	"time"
)

// RandomDelay suspends the caller for a uniformly distributed random
// duration in [min, max]. Fixed pacing is trivially fingerprinted, so
// every network-sensitive action goes through this first. If max < min
// the delay clamps to min. Returns early with the context's error if
// the context is cancelled while waiting.
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	if min < 0 {
		min = 0
	}
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)+1))
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
