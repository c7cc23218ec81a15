// Package task schedules units of work and joins on their results.
//
// A [Runner] decides where submitted functions execute. A nil Runner means
// synchronous execution on the caller's goroutine. [Handle] is a
// single-assignment result with completion callbacks; joins built from
// callbacks ([WhenAll]) never park a worker, so a bounded [Pool] cannot
// deadlock on a parent waiting for children it scheduled itself.
//
// [Batch] adds fail-fast submission: after any task in the batch fails, the
// remaining submissions are skipped with a CANCELLED error.
package task

import (
	"runtime"
	"sync"
)

// Runner executes submitted functions.
type Runner interface {
	Submit(fn func())
}

// RunnerFunc adapts a function to [Runner].
type RunnerFunc func(fn func())

// Submit calls f.
func (f RunnerFunc) Submit(fn func()) { f(fn) }

// Sync runs every function on the submitting goroutine.
var Sync Runner = RunnerFunc(func(fn func()) { fn() })

// Goroutines runs every function on its own goroutine.
var Goroutines Runner = RunnerFunc(func(fn func()) { go fn() })

// Submit runs fn on r, or on the calling goroutine when r is nil.
func Submit(r Runner, fn func()) {
	if r == nil {
		fn()
		return
	}
	r.Submit(fn)
}

// Pool runs functions on a fixed number of workers. Its queue is unbounded,
// so Submit never blocks, including when called from a running task.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
	wg      sync.WaitGroup
}

// NewPool starts a pool with size workers. If size is zero or negative,
// GOMAXPROCS workers are used.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = max(runtime.GOMAXPROCS(0), 1)
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		fn := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		if fn != nil {
			fn()
		}
	}
}

// Submit enqueues fn. After Stop, fn runs on its own goroutine.
func (p *Pool) Submit(fn func()) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		go fn()
		return
	}
	p.queue = append(p.queue, fn)
	p.mu.Unlock()
	p.cond.Signal()
}

// Stop drains queued work and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.wg.Wait()
}

var _ Runner = (*Pool)(nil)
