package respool

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/respool/internal/resource"
)

var errNilHandle = errors.New("factory returned a nil handle")

// pendingCreation is the shared result of one in-flight factory call.
// Every field except done is guarded by Pool.mu; handle and err are final
// once done is closed.
type pendingCreation struct {
	done chan struct{}

	handle Handle
	err    error

	// waiters counts callers still waiting for the result. It becomes the
	// entry's refCount when the result lands.
	waiters   int
	completed bool
	// disposeOnLand is set by Dispose while the factory is running.
	disposeOnLand bool

	priority  int
	exempt    bool
	startedAt time.Time
}

func newPendingCreation(o createOptions, now time.Time) *pendingCreation {
	return &pendingCreation{
		done:      make(chan struct{}),
		waiters:   1,
		priority:  o.priority,
		exempt:    o.exempt,
		startedAt: now,
	}
}

// wait blocks until the creation lands or ctx is done. A caller that stops
// waiting before the result lands gives up its reference; once the result
// has landed it wins over cancellation.
func (p *Pool) wait(ctx context.Context, pc *pendingCreation) (Handle, error) {
	select {
	case <-pc.done:
		return pc.handle, pc.err
	case <-ctx.Done():
	}

	p.mu.Lock()
	if pc.completed {
		p.mu.Unlock()
		return pc.handle, pc.err
	}
	pc.waiters--
	p.mu.Unlock()

	return nil, ctx.Err()
}

// create runs factory in the throttler slot reserved by tk and lands the
// result. It runs on a pool-owned goroutine tracked by p.wg.
func (p *Pool) create(ctx context.Context, key string, factory Factory, pc *pendingCreation, tk *resource.Ticket) {
	defer p.wg.Done()

	var (
		h       Handle
		loadErr error
		ran     bool
		elapsed time.Duration
	)

	err := tk.Do(p.ctx, func() error {
		ran = true
		start := time.Now()
		h, loadErr = callFactory(ctx, key, factory)
		elapsed = time.Since(start)
		return loadErr
	})
	if !ran {
		// The slot or rate wait was aborted by Close.
		loadErr = ErrClosed
		if err != nil && !errors.Is(err, context.Canceled) {
			loadErr = errors.Join(ErrClosed, err)
		}
	}

	p.land(key, pc, h, loadErr, ran, elapsed)
}

// land publishes the result of a creation to its waiters.
func (p *Pool) land(key string, pc *pendingCreation, h Handle, err error, ran bool, elapsed time.Duration) {
	if ran && err != nil {
		err = &FactoryError{Key: key, cause: err}
	}

	var size int64

	p.mu.Lock()
	if p.pending[key] == pc {
		delete(p.pending, key)
	}
	pc.completed = true
	waiters := pc.waiters

	switch {
	case err != nil:
		pc.err = err
		if ran {
			p.factoryErrors.Add(1)
		}
	case pc.disposeOnLand || p.closed:
		p.graveyard = append(p.graveyard, grave{key: key, handle: h})
		pc.err = ErrDisposed
		if p.closed {
			pc.err = ErrClosed
		}
	default:
		size = max(h.SizeBytes(), 0)
		p.insertLocked(key, h, size, waiters, pc)
		pc.handle = h
	}
	p.mu.Unlock()

	if ran {
		p.metrics.RecordLoad(elapsed, err)
		p.logger.LogLoad(key, size, waiters, elapsed, err)
	}

	// Waiters resume only after the victims of this landing are disposed.
	p.sweep()
	close(pc.done)
}

// callFactory turns a factory panic or a nil handle into an error.
func callFactory(ctx context.Context, key string, factory Factory) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = &PanicError{Value: r}
		}
	}()

	h, err = factory(ctx, key)
	if err == nil && h == nil {
		err = errNilHandle
	}
	if err != nil {
		h = nil
	}
	return h, err
}
