// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "game-assets",
//	    s3.WithPrefix("v3/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	loader := assets.NewLoader(pool, store, catalog)
//
// # Features
//
//   - Parallel ranged downloads for large assets (feature/s3/manager)
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
