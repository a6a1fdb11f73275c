// Package scheduler runs one worker per account in fixed-size slices.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autotrack/domain"
)

// WorkerFunc is one unit of work bound to a single account
type WorkerFunc[R any] func(ctx context.Context, acct domain.Account) (R, error)

// Outcome is what a single worker produced
type Outcome[R any] struct {
	Account domain.Account
	// Slice is the 1-based slice the worker ran in
	Slice int
	Value R
	Err   error
}

type options struct {
	stagger     time.Duration
	logger      *slog.Logger
	beforeSlice func(slice int)
}

// Option configures RunStage
type Option func(*options)

// WithStagger delays the start of consecutive workers within a slice
func WithStagger(d time.Duration) Option {
	return func(o *options) { o.stagger = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// BeforeSlice registers a hook run before each slice starts
func BeforeSlice(fn func(slice int)) Option {
	return func(o *options) { o.beforeSlice = fn }
}

// Slices partitions accounts into contiguous groups of at most size accounts
func Slices(accounts []domain.Account, size int) [][]domain.Account {
	if size <= 0 {
		size = 1
	}
	var out [][]domain.Account
	for start := 0; start < len(accounts); start += size {
		end := min(start+size, len(accounts))
		out = append(out, accounts[start:end])
	}
	return out
}

// RunStage runs fn once per account, at most concurrency at a time. Each slice
// finishes completely before the next one starts. Failures and panics stay with
// their own account and never cancel siblings. Outcomes keep the order of accounts.
func RunStage[R any](ctx context.Context, accounts []domain.Account, concurrency int, fn WorkerFunc[R], opts ...Option) []Outcome[R] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With("component", "scheduler")

	outcomes := make([]Outcome[R], 0, len(accounts))
	for i, slice := range Slices(accounts, concurrency) {
		n := i + 1
		if o.beforeSlice != nil {
			o.beforeSlice(n)
		}
		log.Info("starting slice", "slice", n, "workers", len(slice))

		results := make([]Outcome[R], len(slice))
		var g errgroup.Group
		for j, acct := range slice {
			if j > 0 && o.stagger > 0 {
				sleep(ctx, o.stagger)
			}

			g.Go(func() error {
				results[j] = runWorker(ctx, acct, n, fn)
				if err := results[j].Err; err != nil {
					log.Error("worker failed", "slice", n, "platform", acct.Platform, "account", acct.Username, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()

		outcomes = append(outcomes, results...)
		log.Info("slice finished", "slice", n)
	}
	return outcomes
}

func runWorker[R any](ctx context.Context, acct domain.Account, slice int, fn WorkerFunc[R]) (out Outcome[R]) {
	out = Outcome[R]{Account: acct, Slice: slice}
	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("worker panicked: %v\n%s", r, debug.Stack())
		}
	}()

	out.Value, out.Err = fn(ctx, acct)
	return out
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
