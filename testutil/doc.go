// Package testutil provides testing utilities for respool.
//
// This package is intended for use in tests, benchmarks and the soak
// command only.
//
// # Fake Resources
//
//	f := testutil.NewFactory(4 << 20) // every handle is 4 MiB
//	h, _ := pool.GetOrCreate(ctx, "tank", f.Create)
//	f.Calls()                        // factory invocations
//	f.Handle("tank").Disposed()      // set once the pool disposed it
//
// Gated factories block until the test lets them finish:
//
//	f := testutil.NewFactory(1).Gated()
//	go pool.GetOrCreate(ctx, "a", f.Create)
//	f.Step() // exactly one blocked call returns
//
// # Fake Time
//
//	clk := testutil.NewClock()
//	pool, _ := respool.New(cfg, respool.WithClock(clk.Now))
//	clk.Advance(10 * time.Minute)
//
// # Workloads
//
//	rng := testutil.NewRNG(4711)
//	keys := rng.ZipfKeys("sprite", 10_000, 500, 1.2)
package testutil
