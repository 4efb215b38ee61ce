// Package resource implements the memory accountant and load throttler used by
// the resource pool.
//
//	┌──────────────────────────────────────────────────────┐
//	│                    resource                          │
//	├──────────────────────────┬───────────────────────────┤
//	│  Accountant              │  Throttler                │
//	│  (soft byte budget)      │  (concurrent loads, FIFO) │
//	├──────────────────────────┼───────────────────────────┤
//	│  Add / Remove            │  Do                       │
//	│  Utilization             │  InFlight / Queued        │
//	│  NeedsCleanup            │  optional rate pacing     │
//	└──────────────────────────┴───────────────────────────┘
//
// # Memory Accounting
//
// The Accountant is pure bookkeeping. It never rejects an Add: the budget is
// advisory and the pool decides when to evict. Remove clamps at zero and
// reports ErrUnderflow instead of going negative:
//
//	acct := resource.NewAccountant(256 << 20)
//	acct.Add(handle.SizeBytes())
//	if acct.NeedsCleanup(0.8) {
//	    // evict
//	}
//
// # Load Throttling
//
// The Throttler bounds how many factories run at once. Excess requests wait
// in FIFO order on a weighted semaphore. The in-flight slot is released
// exactly once per request, on success, error and panic:
//
//	t := resource.NewThrottler(resource.ThrottlerConfig{MaxConcurrent: 4})
//	err := t.Do(ctx, func() error {
//	    h, err = factory(ctx, key)
//	    return err
//	})
//
// # Nil Safety
//
// All methods handle a nil receiver gracefully. A nil Accountant tracks
// nothing and a nil Throttler runs fn directly.
package resource
