package assets

import "sync/atomic"

// Asset is a decoded asset held by the pool.
type Asset struct {
	name     string
	codec    string
	data     []byte
	disposed atomic.Bool
}

// Name returns the blob name the asset was loaded from.
func (a *Asset) Name() string { return a.name }

// Codec returns the name of the codec the asset was decoded with.
func (a *Asset) Codec() string { return a.codec }

// Bytes returns the decoded contents. The slice must not be modified.
func (a *Asset) Bytes() []byte { return a.data }

// SizeBytes implements respool.Handle.
func (a *Asset) SizeBytes() int64 { return int64(len(a.data)) }

// Dispose implements respool.Handle.
func (a *Asset) Dispose() error {
	a.disposed.Store(true)
	return nil
}

// Disposed reports whether the pool has let go of the asset.
func (a *Asset) Disposed() bool { return a.disposed.Load() }
