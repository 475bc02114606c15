package providers

import "context"

// Task is one unit of fire-and-forget background work.
type Task func(ctx context.Context)

// TaskDispatcher submits background tasks for asynchronous execution.
// Submit returns an error when the task cannot be accepted (e.g. the
// dispatcher is shutting down or saturated); callers must surface that
// rather than silently dropping the work.
type TaskDispatcher interface {
	Submit(task Task) error
	Close()
}
