package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/respool"
)

// Handle is a fake resource that records its disposal.
type Handle struct {
	Key  string
	Size int64
	// DisposeErr is returned by every Dispose call.
	DisposeErr error

	disposed atomic.Int64
}

// SizeBytes implements respool.Handle.
func (h *Handle) SizeBytes() int64 { return h.Size }

// Dispose implements respool.Handle.
func (h *Handle) Dispose() error {
	h.disposed.Add(1)
	return h.DisposeErr
}

// Disposed reports whether Dispose was called at least once.
func (h *Handle) Disposed() bool { return h.disposed.Load() > 0 }

// DisposeCount returns how often Dispose was called.
func (h *Handle) DisposeCount() int { return int(h.disposed.Load()) }

// Factory produces fake handles and records how it was called.
//
// A gated factory blocks every call until Step or Open lets it through,
// which makes in-flight creations observable from a test.
type Factory struct {
	size int64
	err  error
	gate chan struct{}

	mu      sync.Mutex
	started []string
	handles map[string]*Handle

	calls  atomic.Int64
	active atomic.Int64
	peak   atomic.Int64
}

// NewFactory returns a factory creating handles of size bytes.
func NewFactory(size int64) *Factory {
	return &Factory{
		size:    size,
		handles: make(map[string]*Handle),
	}
}

// Failing makes every call return err.
func (f *Factory) Failing(err error) *Factory {
	f.err = err
	return f
}

// Gated makes every call wait for Step or Open.
func (f *Factory) Gated() *Factory {
	f.gate = make(chan struct{})
	return f
}

// Step lets exactly one blocked call finish. It blocks until a call takes it.
// Must not be called after Open.
func (f *Factory) Step() {
	f.gate <- struct{}{}
}

// Open lets all current and future calls through.
func (f *Factory) Open() {
	close(f.gate)
}

// Create is the respool.Factory.
func (f *Factory) Create(ctx context.Context, key string) (respool.Handle, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.started = append(f.started, key)
	f.mu.Unlock()

	active := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if active <= peak || f.peak.CompareAndSwap(peak, active) {
			break
		}
	}

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.err != nil {
		return nil, f.err
	}

	h := &Handle{Key: key, Size: f.size}

	f.mu.Lock()
	f.handles[key] = h
	f.mu.Unlock()

	return h, nil
}

// Calls returns how often Create ran.
func (f *Factory) Calls() int { return int(f.calls.Load()) }

// Active returns the number of calls currently running.
func (f *Factory) Active() int { return int(f.active.Load()) }

// Peak returns the highest number of concurrently running calls.
func (f *Factory) Peak() int { return int(f.peak.Load()) }

// Started returns the keys in the order their calls started.
func (f *Factory) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// Handle returns the last handle created for key.
func (f *Factory) Handle(key string) *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[key]
}
