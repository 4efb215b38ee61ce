// Package objectpool recycles the lightweight render-graph wrappers that
// reference pooled resources.
//
// Wrappers are short-lived: a sprite is created when a unit comes into view
// and dropped when it leaves. Pool keeps a bounded stack of released nodes per
// kind so the next Acquire reuses one instead of allocating:
//
//	op := objectpool.New(objectpool.DefaultCaps())
//
//	n := op.Acquire(objectpool.KindSprite)
//	n.ResourceKey = "units/tank"
//	n.X, n.Y = 120, 64
//	// ...
//	op.Release(n) // reset and kept, or dropped if the sprite stack is full
//
// Unlike sync.Pool, retained nodes are never collected behind the caller's
// back and the per-kind caps bound how much is retained.
//
// A Node never owns the heavyweight resource it names. Acquire and release
// that through the resource pool separately.
package objectpool
