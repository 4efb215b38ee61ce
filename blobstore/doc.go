// Package blobstore provides the sources asset bytes are loaded from.
//
// Blob stores are read by asset factories on a cache miss; they never hold
// cache state themselves. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory, for tests and embedded assets
//   - LocalStore: local filesystem directory
//   - minio.Store: MinIO and other S3-compatible storage
//   - s3.Store: Amazon S3
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Get(ctx, name) ([]byte, error)
//	    Put(ctx, name, data) error         // Atomic write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Missing blobs must satisfy errors.Is(err, ErrNotFound).
package blobstore
