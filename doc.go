// Package extsort implements a parallel external merge sort for flat
// files of signed 64-bit little-endian integers whose aggregate size
// exceeds available memory.
//
// The sort runs in two phases. First, every input file under a
// directory is partitioned into memory-bounded sorted runs: a worker
// reads records into a sort buffer sized so that all workers together
// stay within the configured memory limit, sorts each fill, writes it
// as a chunk, and merges the chunks into one run per input. Second, a
// scheduler combines the runs through cascading rounds of k-way merges
// dispatched on the same worker pool, deleting consumed runs after each
// round; the last merge writes directly to the output path, and a lone
// run is renamed to it.
//
// # Basic Usage
//
//	s, err := extsort.New("data/", "sorted.dat",
//	    extsort.WithMemoryLimit(256<<20))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats, err := s.Sort(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("sorted %d records in %d merge rounds\n",
//	    stats.Records, stats.MergeRounds)
//
// # Package Structure
//
//   - Public API: sorter.go (New, Sort), options.go (Option, With* functions)
//   - Run production: producer.go (per-file chunking and presort)
//   - Merging: merge.go (streaming k-way merge), schedule.go (cascading rounds)
//   - Record format and temp naming: record.go
//   - Output checking: verify.go (Verify)
//   - Worker pool: internal/workpool
//   - Platform: sysfile_*.go (preallocation, readahead hints, fd limits)
package extsort
