// Gensort generates directories of random int64 record files for
// exercising the external sorter.
//
// File sizes vary around the requested average (normal approximation of
// a Poisson spread) with a floor of 1000 records per file. Generation
// is deterministic for a given -seed: each file's stream is seeded from
// the global seed and the file name, so regenerating with the same
// arguments reproduces identical data file by file.
//
// Usage:
//
//	go run ./cmd/gensort -dir data/ -files 200 -total-mb 1024 -seed 42
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"math"
	randv2 "math/rand/v2"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"
)

const (
	recordSize = 8
	minRecords = 1000
)

func main() {
	dirFlag := flag.String("dir", "", "output directory (created if missing)")
	filesFlag := flag.Int("files", 16, "number of files to generate")
	totalMBFlag := flag.Int64("total-mb", 64, "approximate total data size in MiB")
	seedFlag := flag.Uint64("seed", 1, "global seed for deterministic generation")
	flag.Parse()

	if *dirFlag == "" || *filesFlag < 1 || *totalMBFlag < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := os.MkdirAll(*dirFlag, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	totalRecords := (*totalMBFlag << 20) / recordSize
	avgPerFile := totalRecords / int64(*filesFlag)

	var written int64
	for i := range *filesFlag {
		name := fmt.Sprintf("data_%d.dat", i)
		path := filepath.Join(*dirFlag, name)

		// Per-file seed from (global seed, file name) keeps each file's
		// stream independent of how many files are generated.
		fileSeed := xxh3.HashStringSeed(name, *seedFlag)
		rng := randv2.New(randv2.NewPCG(fileSeed, *seedFlag))

		// Spread file sizes like a Poisson sample around the average.
		n := int64(math.Round(float64(avgPerFile) + rng.NormFloat64()*math.Sqrt(float64(avgPerFile))))
		if n < minRecords {
			n = minRecords
		}

		if err := writeFile(path, n, rng); err != nil {
			fmt.Fprintf(os.Stderr, "generate %s: %v\n", path, err)
			os.Exit(1)
		}
		written += n

		if (i+1)%max(*filesFlag/10, 1) == 0 {
			fmt.Printf("generated %d / %d files\n", i+1, *filesFlag)
		}
	}

	fmt.Printf("done: %d records (%.1f MiB) across %d files\n",
		written, float64(written*recordSize)/(1<<20), *filesFlag)
}

func writeFile(path string, records int64, rng *randv2.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<20)

	var b [recordSize]byte
	for range records {
		binary.LittleEndian.PutUint64(b[:], rng.Uint64())
		if _, err := w.Write(b[:]); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
