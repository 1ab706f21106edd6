// Command primerctl runs one or more independent prime-sieve jobs from the
// command line. Each job owns its own Sieve, TieredPQ, and PrioStore
// namespace — jobs share no mutable state, so running -jobs of them
// concurrently via errgroup never crosses the single-sieve concurrency
// non-goal; it just runs several independent sieves in the same process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edirooss/primer/internal/config"
	"github.com/edirooss/primer/internal/prioqueue"
	"github.com/edirooss/primer/internal/prioqueue/redisstore"
	"github.com/edirooss/primer/internal/sieve"
	"github.com/edirooss/primer/pkg/fmtt"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	count := flag.Int("count", 100, "number of primes to compute per job")
	jobs := flag.Int("jobs", 1, "number of independent sieve jobs to run concurrently")
	verbose := flag.Bool("verbose", false, "dump the full error chain on failure")
	flag.Parse()

	if *count < 0 {
		fmt.Fprintln(os.Stderr, "primerctl: -count must be non-negative")
		os.Exit(2)
	}
	if *jobs < 1 {
		fmt.Fprintln(os.Stderr, "primerctl: -jobs must be at least 1")
		os.Exit(2)
	}

	log := zap.Must(zap.NewProduction())
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()

	g, ctx := errgroup.WithContext(ctx)
	results := make([][]int64, *jobs)
	for job := 0; job < *jobs; job++ {
		job := job
		g.Go(func() error {
			primes, err := runJob(ctx, log.Named(fmt.Sprintf("job-%d", job)), cfg, *count)
			if err != nil {
				return fmt.Errorf("job %d: %w", job, err)
			}
			results[job] = primes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if *verbose {
			fmtt.PrintErrChain(err)
		}
		log.Error("primerctl: run failed", zap.Error(err))
		os.Exit(1)
	}

	for job, primes := range results {
		fmt.Printf("job %d: %d primes\n", job, len(primes))
		for i, p := range primes {
			fmt.Printf("  [%d] %d\n", i, p)
		}
	}
}

// runJob constructs a fresh Sieve over a fresh Redis-backed TieredPQ and
// runs it to completion for a single job.
func runJob(ctx context.Context, log *zap.Logger, cfg config.Config, count int) ([]int64, error) {
	store, err := redisstore.New(cfg.RedisAddr, cfg.RedisDB, log)
	if err != nil {
		return nil, fmt.Errorf("open prio store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("job: failed to tear down prio store namespace", zap.Error(err))
		}
	}()

	queue, err := prioqueue.New(ctx, store, prioqueue.WithThresholds(cfg.High, cfg.Low), prioqueue.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("construct tiered queue: %w", err)
	}

	primes := make([]int64, 0, count)
	s := sieve.New(queue)
	err = s.Crunch(ctx, func() bool { return len(primes) < count }, func(_ int, prime int64) {
		primes = append(primes, prime)
	})
	if err != nil {
		return nil, fmt.Errorf("crunch: %w", err)
	}
	return primes, nil
}
