// Command bench runs a synthetic memoisation workload and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/IvanBrykalov/memo/memo"
	pmet "github.com/IvanBrykalov/memo/metrics/prom"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// session is the per-worker receiver: each worker owns one instance, as
// memoised caches are not safe for concurrent use.
type session struct {
	id    int
	calls atomic.Uint64
}

func main() {
	// ---- Flags ----
	var (
		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		keyKind  = flag.String("key", "json", "key serialiser: json | msgpack | hashed | identity")
		work     = flag.Int("work", 64, "simulated cost of a computation (loop iterations)")
		clearPct = flag.Float64("clear", 0.01, "percentage of operations that clear the worker's cache")

		keys  = flag.Int("keys", 100_000, "keyspace size")
		zipfS = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed  = flag.Int64("seed", time.Now().UnixNano(), "random seed")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	var metrics memo.Metrics = memo.NoopMetrics{}
	if *metricsAddr != "" {
		metrics = pmet.New(nil, "memo", "bench", nil)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Printf("metrics: serving at %s", *metricsAddr)
			log.Println(http.ListenAndServe(*metricsAddr, nil))
		}()
	}

	// ---- Declare the memoised method ----
	cost := *work
	compute := func(s *session, k int) (int, error) {
		s.calls.Add(1)
		acc := k
		for i := 0; i < cost; i++ {
			acc = acc*31 + i
		}
		return acc, nil
	}
	sessions := memo.NewClass[session]("Session")
	opts := []memo.Option{memo.WithMetrics(metrics)}

	var call func(s *session, k int) (int, error)
	var cacheOf func(s *session) memo.Handle
	switch *keyKind {
	case "json":
		m := memo.Must(memo.DefineMethod(sessions, "Compute", compute, opts...))
		call, cacheOf = m.Call, func(s *session) memo.Handle { return m.Cache(s) }
	case "msgpack":
		m := memo.Must(memo.DefineMethodWith(sessions, "Compute", compute, memo.Msgpack[*session, int], opts...))
		call, cacheOf = m.Call, func(s *session) memo.Handle { return m.Cache(s) }
	case "hashed":
		m := memo.Must(memo.DefineMethodWith(sessions, "Compute", compute, memo.Hashed(memo.JSON[*session, int]), opts...))
		call, cacheOf = m.Call, func(s *session) memo.Handle { return m.Cache(s) }
	case "identity":
		m := memo.Must(memo.DefineIdentity(sessions, "Compute", compute, opts...))
		call, cacheOf = m.Call, func(s *session) memo.Handle { return m.Cache(s) }
	default:
		log.Fatalf("unknown key serialiser: %q (use json, msgpack, hashed or identity)", *keyKind)
	}

	// ---- Snapshot flags for goroutines ----
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	clearPer := int(*clearPct * 100)
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var total, computed, clears uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workersN; w++ {
		g.Go(func() error {
			s := &session{id: w}
			if err := sessions.Init(s); err != nil {
				return err
			}

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(w)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			var ops, cl uint64
			defer func() {
				atomic.AddUint64(&total, ops)
				atomic.AddUint64(&clears, cl)
				atomic.AddUint64(&computed, s.calls.Load())
			}()
			for {
				select {
				case <-ctx.Done():
					return nil
				default:
				}

				ops++
				if localR.Intn(10_000) < clearPer {
					cacheOf(s).Clear()
					cl++
					continue
				}
				if _, err := call(s, int(localZipf.Uint64())); err != nil {
					return fmt.Errorf("worker %d: %w", w, err)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	computedN := atomic.LoadUint64(&computed)
	calls := ops - atomic.LoadUint64(&clears)

	hitRate := 0.0
	if calls > 0 {
		hitRate = float64(calls-computedN) / float64(calls) * 100
	}

	fmt.Printf("key=%s workers=%d keys=%d work=%d dur=%v seed=%d\n",
		*keyKind, workersN, *keys, cost, elapsed, seedBase)
	fmt.Printf("ops=%s (%.0f ops/s)  calls=%d  computed=%d  hit-rate=%.2f%%\n",
		strconv.FormatUint(ops, 10), float64(ops)/elapsed.Seconds(), calls, computedN, hitRate)
}
