// Package guardrails holds the time budget helpers of a collection run
package guardrails

import (
	"context"
	"errors"
	"time"
)

// Timeouts is the budget bundle of one run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run bounds the whole collection run, listing included
	Run time.Duration

	// Unit caps fingerprinting of a single repository
	Unit time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForUnit returns a sub context for one unit bounded by Unit and any remaining run budget,
// whichever ends first
func ForUnit(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Unit)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// Expired reports whether ctx ended because its deadline passed
func Expired(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
