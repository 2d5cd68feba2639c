package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type task struct {
	name string
	fn   func(context.Context) error
}

// Executor runs detached tasks on a fixed pool of goroutines. Tasks are
// best-effort: errors and panics are logged and swallowed, never returned
// to the submitter. Submit is non-blocking; a full queue drops the task.
type Executor struct {
	queue       chan task
	wg          sync.WaitGroup
	taskTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewExecutor creates an executor with the given worker count and queue
// capacity and starts its workers. taskTimeout bounds each task's context.
func NewExecutor(workers, queueSize int, taskTimeout time.Duration) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	e := &Executor{
		queue:       make(chan task, queueSize),
		taskTimeout: taskTimeout,
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Submit queues a task for background execution. Returns false when the
// queue is full or the executor is closed; the caller is expected to treat
// a drop as acceptable (these tasks are best-effort by contract).
func (e *Executor) Submit(name string, fn func(context.Context) error) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return false
	}
	select {
	case e.queue <- task{name: name, fn: fn}:
		return true
	default:
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Executor) worker() {
	defer e.wg.Done()
	for t := range e.queue {
		e.run(t)
	}
}

func (e *Executor) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("task", t.name).Msg("detached task panicked")
		}
	}()

	ctx := context.Background()
	if e.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.taskTimeout)
		defer cancel()
	}

	if err := t.fn(ctx); err != nil {
		log.Error().Err(err).Str("task", t.name).Msg("detached task failed")
	}
}
