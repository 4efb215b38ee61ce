package resource

import (
	"errors"
	"sync/atomic"
)

// ErrUnderflow is returned by Remove when more bytes are released than are tracked.
var ErrUnderflow = errors.New("memory accounting underflow")

// Accountant tracks aggregate bytes in use against a soft budget.
type Accountant struct {
	maxBytes  int64
	used      atomic.Int64
	anomalies atomic.Int64
}

// NewAccountant creates a new accountant with the given budget in bytes.
// A budget <= 0 disables pressure reporting (tracking only).
func NewAccountant(maxBytes int64) *Accountant {
	return &Accountant{maxBytes: maxBytes}
}

// Add records n additional bytes in use.
func (a *Accountant) Add(n int64) {
	if a == nil || n <= 0 {
		return
	}
	a.used.Add(n)
}

// Remove releases n bytes.
// The counter never goes negative: an oversized release clamps to zero
// and returns ErrUnderflow.
func (a *Accountant) Remove(n int64) error {
	if a == nil || n <= 0 {
		return nil
	}
	for {
		cur := a.used.Load()
		next := cur - n
		if next >= 0 {
			if a.used.CompareAndSwap(cur, next) {
				return nil
			}
			continue
		}
		if a.used.CompareAndSwap(cur, 0) {
			a.anomalies.Add(1)
			return ErrUnderflow
		}
	}
}

// Current returns the bytes currently in use.
func (a *Accountant) Current() int64 {
	if a == nil {
		return 0
	}
	return a.used.Load()
}

// Max returns the configured budget in bytes.
func (a *Accountant) Max() int64 {
	if a == nil {
		return 0
	}
	return a.maxBytes
}

// Utilization returns Current()/Max(), or 0 if no budget is configured.
func (a *Accountant) Utilization() float64 {
	if a == nil || a.maxBytes <= 0 {
		return 0
	}
	return float64(a.used.Load()) / float64(a.maxBytes)
}

// NeedsCleanup reports whether usage exceeds thresholdRatio of the budget.
func (a *Accountant) NeedsCleanup(thresholdRatio float64) bool {
	if a == nil || a.maxBytes <= 0 {
		return false
	}
	return a.used.Load() > a.Threshold(thresholdRatio)
}

// Threshold converts a ratio of the budget into bytes.
func (a *Accountant) Threshold(ratio float64) int64 {
	if a == nil {
		return 0
	}
	return int64(float64(a.maxBytes) * ratio)
}

// Anomalies returns how many underflows were clamped.
func (a *Accountant) Anomalies() int64 {
	if a == nil {
		return 0
	}
	return a.anomalies.Load()
}
