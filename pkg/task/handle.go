package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/depfetch/pkg/errors"
)

// Handle is the eventual result of one unit of work.
type Handle struct {
	mu        sync.Mutex
	done      chan struct{}
	completed bool
	err       error
	callbacks []func(error)
}

// NewHandle returns an incomplete handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Completed returns a handle that is already complete with err.
func Completed(err error) *Handle {
	h := NewHandle()
	h.Complete(err)
	return h
}

// Complete records err and runs the registered callbacks. Only the first
// call has any effect; it reports whether it was the first.
func (h *Handle) Complete(err error) bool {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return false
	}
	h.completed = true
	h.err = err
	callbacks := h.callbacks
	h.callbacks = nil
	close(h.done)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
	return true
}

// OnComplete registers fn to run with the result. If the handle is already
// complete, fn runs immediately on the calling goroutine.
func (h *Handle) OnComplete(fn func(error)) {
	h.mu.Lock()
	if h.completed {
		err := h.err
		h.mu.Unlock()
		fn(err)
		return
	}
	h.callbacks = append(h.callbacks, fn)
	h.mu.Unlock()
}

// Done is closed once the handle completes.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the result, or nil while the handle is incomplete.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the handle completes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go submits fn to r and returns its handle. A panic in fn completes the
// handle with an internal error.
func Go(r Runner, fn func() error) *Handle {
	h := NewHandle()
	Submit(r, func() { h.Complete(run(fn)) })
	return h
}

func run(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = errors.New(errors.ErrCodeInternal, "task panicked: %v", v)
		}
	}()
	return fn()
}

// WhenAll returns a handle that completes once every handle in hs has
// completed. Its error is that of the lowest-indexed failed handle, skipping
// CANCELLED errors when any other failure exists.
func WhenAll(hs ...*Handle) *Handle {
	all := NewHandle()
	if len(hs) == 0 {
		all.Complete(nil)
		return all
	}

	errs := make([]error, len(hs))
	var pending atomic.Int64
	pending.Store(int64(len(hs)))
	for i, h := range hs {
		h.OnComplete(func(err error) {
			errs[i] = err
			if pending.Add(-1) == 0 {
				all.Complete(firstError(errs))
			}
		})
	}
	return all
}

func firstError(errs []error) error {
	var cancelled error
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrCodeCancelled):
			if cancelled == nil {
				cancelled = err
			}
		default:
			return err
		}
	}
	return cancelled
}

// WaitAll blocks until every handle completes and returns the first failure.
func WaitAll(ctx context.Context, hs []*Handle) error {
	return WhenAll(hs...).Wait(ctx)
}

// Then returns a handle that completes with fn's result after h succeeds,
// running fn on r. If h fails, the returned handle fails with the same error.
func Then(r Runner, h *Handle, fn func() error) *Handle {
	next := NewHandle()
	h.OnComplete(func(err error) {
		if err != nil {
			next.Complete(err)
			return
		}
		Submit(r, func() { next.Complete(run(fn)) })
	})
	return next
}

// Batch submits tasks that share a fail-fast cancellation flag.
type Batch struct {
	runner    Runner
	cancelled atomic.Bool
	mu        sync.Mutex
	handles   []*Handle
}

// NewBatch returns an empty batch running on r.
func NewBatch(r Runner) *Batch {
	return &Batch{runner: r}
}

// Go submits fn unless an earlier task already failed, in which case the
// returned handle fails with a CANCELLED error and fn never runs.
func (b *Batch) Go(name string, fn func() error) *Handle {
	var h *Handle
	if b.cancelled.Load() {
		h = Completed(errors.New(errors.ErrCodeCancelled, "%s skipped after an earlier failure", name))
	} else {
		h = Go(b.runner, func() error {
			if b.cancelled.Load() {
				return errors.New(errors.ErrCodeCancelled, "%s skipped after an earlier failure", name)
			}
			if err := fn(); err != nil {
				b.cancelled.Store(true)
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	b.Add(h)
	return h
}

// Add tracks an externally created handle as part of the batch.
func (b *Batch) Add(h *Handle) {
	b.mu.Lock()
	b.handles = append(b.handles, h)
	b.mu.Unlock()
}

// Cancelled reports whether a task in the batch has failed.
func (b *Batch) Cancelled() bool { return b.cancelled.Load() }

// Handles returns the handles submitted so far, in submission order.
func (b *Batch) Handles() []*Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Handle(nil), b.handles...)
}

// All joins every handle submitted so far.
func (b *Batch) All() *Handle {
	return WhenAll(b.Handles()...)
}
