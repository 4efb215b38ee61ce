package assets

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/respool"
	"github.com/hupe1980/respool/blobstore"
	"github.com/hupe1980/respool/codec"
)

// Loader acquires assets through a pool, loading misses from a blob store.
type Loader struct {
	pool    *respool.Pool
	store   blobstore.BlobStore
	catalog *Catalog
}

// NewLoader creates a loader. catalog may be nil.
func NewLoader(pool *respool.Pool, store blobstore.BlobStore, catalog *Catalog) *Loader {
	return &Loader{
		pool:    pool,
		store:   store,
		catalog: catalog,
	}
}

// Factory returns the pool factory that fetches and decodes an asset.
func (l *Loader) Factory() respool.Factory {
	return func(ctx context.Context, name string) (respool.Handle, error) {
		c, err := l.codecFor(name)
		if err != nil {
			return nil, err
		}

		raw, err := l.store.Get(ctx, name)
		if err != nil {
			return nil, err
		}

		data, err := c.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
		}

		return &Asset{name: name, codec: c.Name(), data: data}, nil
	}
}

func (l *Loader) codecFor(name string) (codec.Codec, error) {
	h := l.catalog.Lookup(name)
	if h.Codec == "" {
		return codec.ByExtension(name), nil
	}
	c, ok := codec.ByName(h.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", h.Codec)
	}
	return c, nil
}

// Acquire returns the asset and takes a reference to it. Every successful
// Acquire must be paired with a Release.
func (l *Loader) Acquire(ctx context.Context, name string) (*Asset, error) {
	h := l.catalog.Lookup(name)

	opts := []respool.CreateOption{respool.Priority(h.Priority)}
	if h.Exempt {
		opts = append(opts, respool.Exempt())
	}

	handle, err := l.pool.GetOrCreate(ctx, name, l.Factory(), opts...)
	if err != nil {
		return nil, err
	}

	a, ok := handle.(*Asset)
	if !ok {
		// Another factory created the key; give the reference back.
		l.pool.Release(name)
		return nil, fmt.Errorf("assets: %q is held as %T", name, handle)
	}
	return a, nil
}

// Release drops a reference taken by Acquire.
func (l *Loader) Release(name string) {
	l.pool.Release(name)
}

// Preload loads names concurrently and leaves them cached but unreferenced.
// With no names, every cataloged asset is preloaded.
func (l *Loader) Preload(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = l.catalog.Names()
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			if _, err := l.Acquire(ctx, name); err != nil {
				return err
			}
			l.Release(name)
			return nil
		})
	}
	return g.Wait()
}
