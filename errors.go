package respool

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by GetOrCreate after Close.
	ErrClosed = errors.New("resource pool closed")

	// ErrNilFactory is returned when GetOrCreate is called without a factory.
	ErrNilFactory = errors.New("nil factory")

	// ErrDisposed is returned to callers waiting on a creation that was
	// disposed before it completed.
	ErrDisposed = errors.New("resource disposed while pending")

	// ErrFactory matches every *FactoryError via errors.Is.
	ErrFactory = errors.New("factory failed")

	// ErrInvalidKeyState reports a Release or Dispose that does not match
	// the pool state. It is logged and counted, never returned.
	ErrInvalidKeyState = errors.New("invalid key state")

	// ErrBudgetExceeded reports an eviction pass that could not reach its
	// target. It is logged and counted, never returned.
	ErrBudgetExceeded = errors.New("memory budget exceeded")

	// ErrInvalidConfig is wrapped by all configuration validation errors.
	ErrInvalidConfig = errors.New("invalid config")
)

// FactoryError is returned to every caller waiting on a failed creation.
//
// The original underlying error can be accessed via errors.Unwrap.
type FactoryError struct {
	Key   string
	cause error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("create %q: %v", e.Key, e.cause)
}

func (e *FactoryError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrFactory) match.
func (e *FactoryError) Is(target error) bool { return target == ErrFactory }

// PanicError wraps a value recovered from a panicking factory.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("factory panicked: %v", e.Value)
}
