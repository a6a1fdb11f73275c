// Package poll provides bounded-time polling for asynchronous page state.
package poll

import (
	"context"
	"time"
)

// DefaultInterval is used when a caller passes a non-positive interval
const DefaultInterval = time.Second

// Condition reports whether the awaited state has been reached.
// An error counts as "not ready yet".
type Condition func(ctx context.Context) (bool, error)

// WaitUntil evaluates cond immediately and then once per interval until it
// reports true or timeout elapses. A timeout returns false; it is not an error.
// Cancelling ctx also returns false.
func WaitUntil(ctx context.Context, cond Condition, timeout, interval time.Duration) bool {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ok, err := cond(ctx); err == nil && ok {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// Gone waits until cond stops reporting true, e.g. a spinner disappearing
func Gone(ctx context.Context, present Condition, timeout, interval time.Duration) bool {
	return WaitUntil(ctx, func(ctx context.Context) (bool, error) {
		ok, err := present(ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}, timeout, interval)
}
