package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/respool"
	"github.com/hupe1980/respool/objectpool"
	"github.com/hupe1980/respool/telemetry"
)

// soakOptions holds the workload knobs of a soak run.
type soakOptions struct {
	ConfigFile  string
	Duration    time.Duration
	Workers     int
	Keys        int
	Skew        float64
	MinSize     int64
	MaxSize     int64
	LoadLatency time.Duration
	FailRate    float64
	DisposeRate float64
	Seed        int64
	MetricsAddr string
	LogLevel    string
}

func defaultSoakOptions() soakOptions {
	return soakOptions{
		Duration:    10 * time.Second,
		Workers:     8,
		Keys:        2000,
		Skew:        1.1,
		MinSize:     16 << 10,
		MaxSize:     2 << 20,
		LoadLatency: 2 * time.Millisecond,
		FailRate:    0.01,
		DisposeRate: 0.001,
		Seed:        42,
		LogLevel:    "warn",
	}
}

// soakReport is printed as JSON when the run ends.
type soakReport struct {
	Duration   string         `json:"duration"`
	Operations int64          `json:"operations"`
	Failures   int64          `json:"failures"`
	OpsPerSec  float64        `json:"ops_per_sec"`
	Pool       respool.Stats  `json:"pool"`
	Objects    objectStats    `json:"objects"`
	Host       *hostMemory    `json:"host,omitempty"`
	Config     respool.Config `json:"config"`
}

type objectStats struct {
	Created        int64 `json:"created"`
	Reused         int64 `json:"reused"`
	Destroyed      int64 `json:"destroyed"`
	DoubleReleases int64 `json:"double_releases"`
}

type hostMemory struct {
	TotalBytes     uint64  `json:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

func newSoakCmd() *cobra.Command {
	o := defaultSoakOptions()

	cmd := &cobra.Command{
		Use:   "soak",
		Short: "Run a synthetic churn workload against a pool",
		Long: `Run concurrent workers that acquire Zipf-distributed keys, build scene-graph
nodes around them and release everything again, then print pool statistics as JSON.

Example:
  respool soak --duration 30s --workers 16 --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSoak(ctx, o, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.ConfigFile, "config", "c", "", "Path to YAML configuration file")
	f.DurationVar(&o.Duration, "duration", o.Duration, "How long to run the workload")
	f.IntVar(&o.Workers, "workers", o.Workers, "Concurrent workers")
	f.IntVar(&o.Keys, "keys", o.Keys, "Distinct resource keys")
	f.Float64Var(&o.Skew, "skew", o.Skew, "Zipf exponent of the key distribution")
	f.Int64Var(&o.MinSize, "min-size", o.MinSize, "Smallest resource size in bytes")
	f.Int64Var(&o.MaxSize, "max-size", o.MaxSize, "Largest resource size in bytes")
	f.DurationVar(&o.LoadLatency, "load-latency", o.LoadLatency, "Simulated factory latency")
	f.Float64Var(&o.FailRate, "fail-rate", o.FailRate, "Fraction of factory calls that fail")
	f.Float64Var(&o.DisposeRate, "dispose-rate", o.DisposeRate, "Fraction of operations that force-dispose their key")
	f.Int64Var(&o.Seed, "seed", o.Seed, "Random seed")
	f.StringVar(&o.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	f.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level (debug, info, warn, error)")

	return cmd
}

var errSyntheticLoad = errors.New("synthetic load failure")

// blob is the synthetic resource handed out by the soak factory.
type blob struct {
	size int64
	live *atomic.Int64
}

func (b *blob) SizeBytes() int64 { return b.size }

func (b *blob) Dispose() error {
	b.live.Add(-1)
	return nil
}

func runSoak(ctx context.Context, o soakOptions, out io.Writer) error {
	if o.Workers < 1 || o.Keys < 1 {
		return errors.New("workers and keys must be positive")
	}
	if o.Skew <= 0 {
		return errors.New("skew must be positive")
	}

	cfg, err := respool.LoadConfig(o.ConfigFile)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(o.LogLevel))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	objects := objectpool.New(cfg.ObjectPoolCaps)
	pool, err := respool.New(cfg,
		respool.WithLogger(respool.NewTextLogger(level)),
		respool.WithMetricsCollector(telemetry.NewObserver(reg)),
		respool.WithObjectPool(objects),
	)
	if err != nil {
		return err
	}
	defer func() { _ = pool.Close() }()

	reg.MustRegister(telemetry.NewExporter(pool, nil))

	if o.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              o.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
	}

	rng := newWorkload(o.Seed, o.Keys, o.Skew)
	var live atomic.Int64

	factory := func(ctx context.Context, key string) (respool.Handle, error) {
		if o.LoadLatency > 0 {
			time.Sleep(o.LoadLatency)
		}
		if rng.uniform() < o.FailRate {
			return nil, errSyntheticLoad
		}
		live.Add(1)
		return &blob{size: rng.size(o.MinSize, o.MaxSize), live: &live}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, o.Duration)
	defer cancel()

	var ops, failures atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(runCtx)
	for range o.Workers {
		g.Go(func() error {
			for gctx.Err() == nil {
				key := fmt.Sprintf("res-%d", rng.key())
				if err := soakStep(gctx, pool, objects, rng, key, factory, o.DisposeRate); err != nil {
					if gctx.Err() != nil {
						return nil
					}
					if !errors.Is(err, respool.ErrFactory) && !errors.Is(err, respool.ErrDisposed) {
						return err
					}
					failures.Add(1)
				}
				ops.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	pool.Maintain()

	objStats := objects.Stats()
	report := soakReport{
		Duration:   elapsed.Round(time.Millisecond).String(),
		Operations: ops.Load(),
		Failures:   failures.Load(),
		OpsPerSec:  float64(ops.Load()) / elapsed.Seconds(),
		Pool:       pool.Stats(),
		Objects: objectStats{
			Created:        objStats.Created,
			Reused:         objStats.Reused,
			Destroyed:      objStats.Destroyed,
			DoubleReleases: objStats.DoubleReleases,
		},
		Config: cfg,
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		report.Host = &hostMemory{
			TotalBytes:     vm.Total,
			AvailableBytes: vm.Available,
			UsedPercent:    vm.UsedPercent,
		}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// soakStep acquires key, wraps it in a small scene graph, and releases both.
func soakStep(ctx context.Context, pool *respool.Pool, objects *objectpool.Pool, rng *workload, key string, factory respool.Factory, disposeRate float64) error {
	priority := 1 + rng.intn(5)
	if _, err := pool.GetOrCreate(ctx, key, factory, respool.Priority(priority)); err != nil {
		return err
	}

	root := objects.Acquire(objectpool.KindContainer)
	sprite := objects.Acquire(objectpool.KindSprite)
	sprite.ResourceKey = key
	root.AddChild(sprite)

	if rng.intn(4) == 0 {
		anim := objects.Acquire(objectpool.KindAnimated)
		anim.ResourceKey = key
		anim.Frames = append(anim.Frames, key+"#0", key+"#1")
		anim.Playing = true
		root.AddChild(anim)
	}

	for _, child := range root.Children {
		objects.Release(child)
	}
	objects.Release(root)

	pool.Release(key)

	if rng.uniform() < disposeRate {
		pool.Dispose(key)
	}
	return nil
}
