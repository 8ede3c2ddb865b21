package extsort

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/metrics"
	"sync/atomic"
	"testing"
	"time"
)

func readHeapObjectsBytes() uint64 {
	samples := []metrics.Sample{
		{Name: "/memory/classes/heap/objects:bytes"},
	}
	metrics.Read(samples)
	return samples[0].Value.Uint64()
}

// TestSortMemoryBudget verifies that a full sort respects the memory
// budget by sampling peak heap across both the run-production and merge
// phases. Uses runtime/metrics with a 10ms ticker to avoid the
// stop-the-world pause of runtime.ReadMemStats. Catches regressions if
// a future change adds allocations that break the budget.
func TestSortMemoryBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping memory budget test in short mode")
	}

	const (
		budget  = int64(8 << 20)
		workers = 2
		files   = 4
		perFile = 1_000_000 // 8 MB per file, 32 MB total: forces multi-chunk runs

		// Peak heap above baseline may exceed the budget by the GC
		// doubling of retired sort buffers plus stream buffers; 2.5×
		// matches the allowance the budget is measured against.
		maxHeap = budget * 5 / 2
	)

	inDir, outDir := t.TempDir(), t.TempDir()
	out := filepath.Join(outDir, "sorted.dat")

	rng := newTestRNG(t)
	records := make([]int64, perFile)
	for i := range files {
		for j := range records {
			records[j] = int64(rng.Uint64())
		}
		writeRecordsFile(t, filepath.Join(inDir, fmt.Sprintf("data_%d.dat", i)), records)
	}
	records = nil

	s := newTestSorter(t, inDir, out,
		WithMemoryLimit(budget), WithWorkers(workers))

	// Establish baseline heap after GC, with the test data released.
	runtime.GC()
	time.Sleep(10 * time.Millisecond)
	baselineHeap := readHeapObjectsBytes()

	// Start background heap sampler using runtime/metrics (no STW pause).
	var peakHeap atomic.Uint64
	peakHeap.Store(baselineHeap)
	done := make(chan struct{})
	go func() {
		samples := []metrics.Sample{
			{Name: "/memory/classes/heap/objects:bytes"},
		}
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				metrics.Read(samples)
				heap := samples[0].Value.Uint64()
				for {
					old := peakHeap.Load()
					if heap <= old || peakHeap.CompareAndSwap(old, heap) {
						break
					}
				}
			}
		}
	}()

	stats, err := s.Sort(context.Background())
	if err != nil {
		close(done)
		t.Fatalf("Sort: %v", err)
	}

	// Stop sampler and take a final sample.
	close(done)
	finalHeap := readHeapObjectsBytes()
	for {
		old := peakHeap.Load()
		if finalHeap <= old || peakHeap.CompareAndSwap(old, finalHeap) {
			break
		}
	}

	if stats.Records != files*perFile {
		t.Errorf("records: got %d, want %d", stats.Records, files*perFile)
	}

	peakAboveBaseline := int64(peakHeap.Load()) - int64(baselineHeap)
	if peakAboveBaseline > maxHeap {
		t.Errorf("peak heap above baseline %.1fMiB exceeds limit %.1fMiB (budget %.1fMiB × 2.5)",
			float64(peakAboveBaseline)/(1<<20), float64(maxHeap)/(1<<20), float64(budget)/(1<<20))
	}
	t.Logf("peak heap above baseline: %.1fMiB (limit %.1fMiB)",
		float64(peakAboveBaseline)/(1<<20), float64(maxHeap)/(1<<20))

	res, err := Verify(out)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Records != files*perFile {
		t.Errorf("verified records: got %d", res.Records)
	}
}
