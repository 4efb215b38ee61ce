package respool

import (
	"context"
	"sync/atomic"
)

// Handle is an opaque, exclusively owned resource (e.g. a GPU texture).
// The pool calls Dispose exactly once when the entry is destroyed.
type Handle interface {
	// SizeBytes returns the resource footprint. It is read once at creation.
	SizeBytes() int64
	// Dispose frees the underlying resource.
	Dispose() error
}

// Factory creates the resource for key on a cache miss.
//
// The context carries the values of the caller that triggered the creation
// but is never cancelled by the pool: a creation always runs to completion.
type Factory func(ctx context.Context, key string) (Handle, error)

// Resource adapts an arbitrary backend object to Handle.
type Resource[T any] struct {
	value    T
	size     int64
	dispose  func(T) error
	disposed atomic.Bool
}

// NewResource wraps value. dispose may be nil.
func NewResource[T any](value T, sizeBytes int64, dispose func(T) error) *Resource[T] {
	return &Resource[T]{
		value:   value,
		size:    sizeBytes,
		dispose: dispose,
	}
}

// Value returns the wrapped backend object.
func (r *Resource[T]) Value() T { return r.value }

// SizeBytes implements Handle.
func (r *Resource[T]) SizeBytes() int64 { return r.size }

// Disposed reports whether Dispose has run.
func (r *Resource[T]) Disposed() bool { return r.disposed.Load() }

// Dispose implements Handle. Only the first call reaches the backend.
func (r *Resource[T]) Dispose() error {
	if !r.disposed.CompareAndSwap(false, true) {
		return nil
	}
	if r.dispose == nil {
		return nil
	}
	return r.dispose(r.value)
}
