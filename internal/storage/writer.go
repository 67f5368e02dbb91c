package storage

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sandeepkv93/reminderd/internal/model"
)

var ErrPoolClosed = errors.New("storage: write pool closed")

// WriteFunc performs one store mutation and returns the task as written.
type WriteFunc func(ctx context.Context) (model.Task, error)

// WritePool runs store writes off the caller's goroutine with bounded
// concurrency. Each submission yields a Write that completes once the
// mutation has landed.
type WritePool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewWritePool(workers int) *WritePool {
	if workers <= 0 {
		workers = 1
	}
	return &WritePool{sem: semaphore.NewWeighted(int64(workers))}
}

// Write is the pending result of a submitted mutation.
type Write struct {
	done chan struct{}
	task model.Task
	err  error
}

func (w *Write) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the write lands or ctx ends. Giving up on the wait does
// not cancel the write itself.
func (w *Write) Wait(ctx context.Context) (model.Task, error) {
	select {
	case <-w.done:
		return w.task, w.err
	case <-ctx.Done():
		return model.Task{}, ctx.Err()
	}
}

func (p *WritePool) Submit(ctx context.Context, fn WriteFunc) *Write {
	w := &Write{done: make(chan struct{})}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		w.err = ErrPoolClosed
		close(w.done)
		return w
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer close(w.done)
		if err := p.sem.Acquire(ctx, 1); err != nil {
			w.err = err
			return
		}
		defer p.sem.Release(1)
		w.task, w.err = fn(ctx)
	}()
	return w
}

// Close rejects new writes and waits for in-flight ones to land.
func (p *WritePool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
