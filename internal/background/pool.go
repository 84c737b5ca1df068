// internal/background/pool.go
package background

import (
	"context"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Pool runs fire-and-forget tasks off the request path. Tasks are isolated:
// a panic is logged and the worker keeps going. Submit never blocks; when
// the queue is full the task is dropped, because enrichment work must never
// delay or fail the primary response.
type Pool struct {
	log    *zap.SugaredLogger
	tasks  chan func(context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(log *zap.SugaredLogger, workers, queue int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queue <= 0 {
		queue = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		log:    log,
		tasks:  make(chan func(context.Context), queue),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			p.run(task)
		}
	}
}

func (p *Pool) run(task func(context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Errorw("background task panic", "err", rec, "stack", string(debug.Stack()))
		}
	}()
	task(p.ctx)
}

// Submit queues a task. Returns false if the pool is shutting down or full.
func (p *Pool) Submit(task func(context.Context)) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	default:
		p.log.Warnw("background queue full, dropping task")
		return false
	}
}

// Shutdown stops the workers and waits for in-flight tasks, bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
