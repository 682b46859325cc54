package core

import (
	"context"
	"iter"
	"time"
)

// Poll observes a job until it reaches a terminal status. Each step yields one
// observation; the iterator sleeps on the resource clock between steps and
// stops after a terminal status, an error, or when the caller breaks.
// A non-positive interval falls back to the configured polling interval.
func (r *Resource) Poll(ctx context.Context, jobID string, interval time.Duration) iter.Seq2[TaskStatus, error] {
	if interval <= 0 {
		interval = r.config.Polling.Interval
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return func(yield func(TaskStatus, error) bool) {
		for {
			status, err := r.TaskStatus(ctx, jobID)
			if err != nil {
				yield("", err)
				return
			}
			if !yield(status, nil) || status.Terminal() {
				return
			}
			if err := r.clock.Sleep(ctx, interval); err != nil {
				yield("", r.mapError(err))
				return
			}
		}
	}
}

// WaitTerminal drains Poll and returns the final status.
func (r *Resource) WaitTerminal(ctx context.Context, jobID string, interval time.Duration) (TaskStatus, error) {
	var last TaskStatus
	for status, err := range r.Poll(ctx, jobID, interval) {
		if err != nil {
			return last, err
		}
		last = status
	}
	return last, nil
}
