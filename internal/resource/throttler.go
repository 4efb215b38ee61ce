package resource

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ThrottlerConfig holds load concurrency limits.
type ThrottlerConfig struct {
	// MaxConcurrent is the maximum number of loads running at once.
	// If 0, defaults to 1.
	MaxConcurrent int64

	// LoadsPerSecond paces how fast loads may start once they hold a slot.
	// If 0, unpaced.
	LoadsPerSecond float64
}

// Throttler bounds the number of concurrently running loads.
// Requests beyond the limit start in the order they were reserved.
type Throttler struct {
	cfg ThrottlerConfig
	sem *semaphore.Weighted

	mu   sync.Mutex
	line []*Ticket // reservation order; line[0] is the only sem waiter

	limiter *rate.Limiter // nil if unpaced

	inFlight  atomic.Int64
	queued    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// NewThrottler creates a new throttler.
func NewThrottler(cfg ThrottlerConfig) *Throttler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	t := &Throttler{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxConcurrent),
	}

	if cfg.LoadsPerSecond > 0 {
		burst := int(cfg.LoadsPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.LoadsPerSecond), burst)
	}

	return t
}

// Ticket is a place in the throttler's queue. Tickets are served in the
// order Reserve handed them out, regardless of when Do is called on them.
type Ticket struct {
	t    *Throttler
	turn chan struct{} // closed once the ticket heads the line
}

// Reserve takes the next place in the queue. The caller must hand the
// ticket to Do or Cancel, or the line stalls behind it.
func (t *Throttler) Reserve() *Ticket {
	if t == nil {
		return nil
	}

	tk := &Ticket{t: t, turn: make(chan struct{})}

	t.mu.Lock()
	t.line = append(t.line, tk)
	if len(t.line) == 1 {
		close(tk.turn)
	}
	t.queued.Add(1)
	t.mu.Unlock()

	return tk
}

// leave removes tk from the line and hands the turn to its successor.
// It reports whether tk was still queued.
func (t *Throttler) leave(tk *Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := slices.Index(t.line, tk)
	if i < 0 {
		return false
	}
	t.line = slices.Delete(t.line, i, i+1)
	if i == 0 && len(t.line) > 0 {
		close(t.line[0].turn)
	}
	t.queued.Add(-1)
	return true
}

// Cancel gives up the ticket's place without running anything.
func (tk *Ticket) Cancel() {
	if tk == nil {
		return
	}
	tk.t.leave(tk)
}

// Do waits until tk heads the line and a slot is free, then runs fn in it.
// The slot is released exactly once when fn returns or panics.
// ctx only bounds the wait for a slot; fn is not interrupted by it.
func (tk *Ticket) Do(ctx context.Context, fn func() error) error {
	if tk == nil {
		return fn()
	}
	t := tk.t

	select {
	case <-tk.turn:
	case <-ctx.Done():
		t.leave(tk)
		return ctx.Err()
	}

	err := t.sem.Acquire(ctx, 1)
	t.leave(tk)
	if err != nil {
		return err
	}

	return t.run(ctx, fn)
}

// Do reserves a ticket and runs fn with it. See Ticket.Do.
func (t *Throttler) Do(ctx context.Context, fn func() error) error {
	if t == nil {
		return fn()
	}
	return t.Reserve().Do(ctx, fn)
}

// run executes fn in an acquired slot.
func (t *Throttler) run(ctx context.Context, fn func() error) error {
	t.inFlight.Add(1)

	ok := false
	defer func() {
		t.inFlight.Add(-1)
		t.sem.Release(1)
		if ok {
			t.completed.Add(1)
		} else {
			t.failed.Add(1)
		}
	}()

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	err := fn()
	ok = err == nil
	return err
}

// InFlight returns the number of loads currently holding a slot.
func (t *Throttler) InFlight() int64 {
	if t == nil {
		return 0
	}
	return t.inFlight.Load()
}

// Queued returns the number of reserved loads still waiting for a slot.
func (t *Throttler) Queued() int64 {
	if t == nil {
		return 0
	}
	return t.queued.Load()
}

// Limit returns the configured concurrency limit.
func (t *Throttler) Limit() int64 {
	if t == nil {
		return 0
	}
	return t.cfg.MaxConcurrent
}

// Completed returns how many loads finished without error.
func (t *Throttler) Completed() int64 {
	if t == nil {
		return 0
	}
	return t.completed.Load()
}

// Failed returns how many loads returned an error or panicked.
func (t *Throttler) Failed() int64 {
	if t == nil {
		return 0
	}
	return t.failed.Load()
}
