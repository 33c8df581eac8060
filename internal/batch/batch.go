// Package batch compiles many zones concurrently.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/azone/internal/assets"
	"github.com/Faultbox/azone/internal/zonemap"
)

// DefaultProgressInterval is how often progress is logged during a run.
const DefaultProgressInterval = 2 * time.Second

// Options configures a batch run.
type Options struct {
	DataDir   string
	OutputDir string
	SwapXY    bool
	Workers   int
	Logger    *zap.Logger

	// ProgressInterval defaults to DefaultProgressInterval.
	ProgressInterval time.Duration

	// Loaders builds the loaders for one zone job. Defaults to
	// zonemap.DefaultLoaders over the job's asset manager.
	Loaders func(m *assets.Manager, log *zap.Logger) zonemap.Loaders
}

// Result is the outcome of compiling one zone.
type Result struct {
	Zone     string
	Output   string
	Stats    zonemap.Stats
	Duration time.Duration
	Err      error
}

// Run compiles every zone in zones using a pool of workers and returns one
// Result per zone, in input order. Zones not started before ctx is
// cancelled report ctx.Err().
func Run(ctx context.Context, zones []string, opts Options) []Result {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Loaders == nil {
		opts.Loaders = zonemap.DefaultLoaders
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}

	total := len(zones)
	results := make([]Result, total)
	var processed, failed atomic.Int64
	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(opts.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					opts.Logger.Info("progress",
						zap.Int64("done", p),
						zap.Int("total", total),
						zap.Int64("failed", failed.Load()),
						zap.Float64("zones_per_sec", rate))
				}
			}
		}
	}()

	jobs := make(chan int, opts.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					results[idx] = Result{Zone: zones[idx], Err: err}
				} else {
					results[idx] = processZone(zones[idx], opts)
				}
				if results[idx].Err != nil {
					failed.Add(1)
				}
				processed.Add(1)
			}
		}()
	}

	for i := range zones {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	opts.Logger.Info("batch finished",
		zap.Int("zones", total),
		zap.Int64("failed", failed.Load()),
		zap.Duration("elapsed", time.Since(start)))
	return results
}

func processZone(zone string, opts Options) Result {
	start := time.Now()
	zone = strings.ToLower(zone)
	res := Result{Zone: zone, Output: OutputPath(opts.OutputDir, zone)}
	log := opts.Logger.With(zap.String("zone", zone))

	mgr := assets.NewManager(opts.DataDir)
	defer mgr.Close()

	m := zonemap.New(zonemap.Options{
		SwapXY:  opts.SwapXY,
		Loaders: opts.Loaders(mgr, log),
		Logger:  opts.Logger,
	})

	if err := m.Build(zone); err != nil {
		log.Error("build failed", zap.Error(err))
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	res.Stats = m.Stats()

	if err := os.MkdirAll(filepath.Dir(res.Output), 0o755); err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	if err := m.Write(res.Output); err != nil {
		log.Error("write failed", zap.String("path", res.Output), zap.Error(err))
		res.Err = err
	}
	res.Duration = time.Since(start)
	return res
}

// OutputPath returns the map file path for zone under dir.
func OutputPath(dir, zone string) string {
	return filepath.Join(dir, strings.ToLower(zone)+".map")
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
