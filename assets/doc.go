// Package assets turns stored blobs into pooled resources.
//
// A Loader fetches an asset's bytes from a blobstore.BlobStore, decodes them
// with the codec named in the Catalog, and hands the result to a respool.Pool
// with the catalog's priority and exempt hints:
//
//	catalog, err := assets.LoadCatalog("assets.yaml")
//	loader := assets.NewLoader(pool, blobstore.NewLocalStore("./data"), catalog)
//
//	tank, err := loader.Acquire(ctx, "units/tank.png.zst")
//	defer loader.Release("units/tank.png.zst")
//	draw(tank.Bytes())
//
// Catalog format:
//
//	default:
//	  priority: 1
//	assets:
//	  ui/hud.png:
//	    exempt: true
//	  terrain/hills.png:
//	    priority: 5
//	    codec: zstd
package assets
