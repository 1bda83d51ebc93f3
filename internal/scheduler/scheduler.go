// Package scheduler runs a job on a fixed interval until its context is cancelled.
//
// Cycles never overlap: the interval is measured from the end of one run to the start
// of the next. Cancellation is observed before a run and while waiting, never during
// one. The job receives a context that is detached from cancellation, so a shutdown
// signal lets the in-flight cycle finish instead of aborting it halfway.
package scheduler

import (
	"context"
	"time"
)

// Job is one unit of periodic work. A non-nil error stops the scheduler.
type Job func(ctx context.Context) error

// Run invokes job immediately and then once per interval until ctx is done.
// It returns nil on cancellation or the first error returned by job.
func Run(ctx context.Context, interval time.Duration, job Job) error {
	jobCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := job(jobCtx); err != nil {
			return err
		}

		if !Sleep(ctx, interval) {
			return nil
		}
	}
}

// Sleep waits for d or until ctx is done. It reports whether the full duration elapsed.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
