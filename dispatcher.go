package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type uiLoopKey struct{}

// Dispatcher is the work queue of the UI thread. Work can be posted from any
// goroutine; it is run in FIFO order by the single goroutine executing Run
// (or Drain). All adapter tree and element manager access must happen from
// work run by the dispatcher.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func(context.Context)
	wake   chan struct{}
	closed bool

	log *slog.Logger
}

// NewDispatcher returns an idle dispatcher. A nil logger means slog.Default().
func NewDispatcher(log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{wake: make(chan struct{}, 1), log: log}
}

// Post queues fn for execution on the UI loop. It never blocks.
func (d *Dispatcher) Post(fn func(context.Context)) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

// CheckAccess reports whether ctx belongs to work running on the UI loop.
func CheckAccess(ctx context.Context) bool {
	v, _ := ctx.Value(uiLoopKey{}).(bool)
	return v
}

// Invoke runs fn on the UI loop and waits for its completion. When ctx
// already belongs to the UI loop, fn runs inline. A panic in fn is recovered
// and returned as an error.
func (d *Dispatcher) Invoke(ctx context.Context, fn func(context.Context) error) error {
	if CheckAccess(ctx) {
		return d.run(ctx, fn)
	}
	done := make(chan error, 1)
	err := d.Post(func(loop context.Context) {
		done <- d.run(loop, fn)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorContext(ctx, "unhandled panic in UI work item", "panic", r)
			err = fmt.Errorf("ui work item panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Run executes queued work until ctx is done or the dispatcher is closed and
// drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	loop := context.WithValue(ctx, uiLoopKey{}, true)
	for {
		d.Drain(loop)
		d.mu.Lock()
		closed := d.closed && len(d.queue) == 0
		d.mu.Unlock()
		if closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake:
		}
	}
}

// Drain synchronously runs all the work queued so far, including work posted
// while draining. Tests use it to drive the UI loop deterministically.
func (d *Dispatcher) Drain(ctx context.Context) int {
	if !CheckAccess(ctx) {
		ctx = context.WithValue(ctx, uiLoopKey{}, true)
	}
	n := 0
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return n
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		_ = d.run(ctx, func(ctx context.Context) error {
			fn(ctx)
			return nil
		})
		n++
	}
}

// Close rejects further work. Work already queued is still run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}
