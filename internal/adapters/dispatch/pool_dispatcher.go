package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/vitalscan/breathmon/backend/internal/domain/providers"
)

// ErrDispatcherClosed is returned by Submit after Close.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// ErrQueueFull is returned by Submit when the task queue is saturated.
// The caller decides what to surface; tasks are never silently dropped.
var ErrQueueFull = errors.New("dispatch queue is full")

// PoolDispatcher runs submitted tasks on a fixed pool of workers. It is
// the in-process implementation of the orchestrator's "submit async
// work" capability; the orchestrator itself never manages goroutines.
type PoolDispatcher struct {
	tasks  chan providers.Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPoolDispatcher creates a dispatcher with the given worker count and
// queue size.
func NewPoolDispatcher(workers, queueSize int) *PoolDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &PoolDispatcher{
		tasks:  make(chan providers.Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	return d
}

func (d *PoolDispatcher) worker() {
	defer d.wg.Done()
	for task := range d.tasks {
		task(d.ctx)
	}
}

// Submit enqueues a task for background execution. It never blocks: a
// full queue is an error the caller must handle.
func (d *PoolDispatcher) Submit(task providers.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for in-flight work to finish.
func (d *PoolDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
}
