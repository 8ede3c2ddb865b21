package extsort

import (
	"encoding/binary"
	"io/fs"
	"log/slog"
	randv2 "math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaolacci/murmur3"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x9E3779B97F4A7C15
	testSeed2 = 0xC2B2AE3D27D4EB4F
)

// newTestRNG derives a deterministic RNG from the test name so each
// test gets an independent, reproducible stream.
func newTestRNG(t testing.TB) *randv2.Rand {
	t.Helper()
	h1, h2 := murmur3.Sum128([]byte(t.Name()))
	return randv2.New(randv2.NewPCG(testSeed1^h1, testSeed2^h2))
}

func writeRecordsFile(t testing.TB, path string, records []int64) {
	t.Helper()
	buf := make([]byte, len(records)*recordSize)
	for i, v := range records {
		binary.LittleEndian.PutUint64(buf[i*recordSize:], uint64(v))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readRecordsFile(t testing.TB, path string) []int64 {
	t.Helper()
	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if len(buf)%recordSize != 0 {
		t.Fatalf("%s: %d bytes is not a multiple of %d", path, len(buf), recordSize)
	}
	records := make([]int64, len(buf)/recordSize)
	for i := range records {
		records[i] = int64(binary.LittleEndian.Uint64(buf[i*recordSize:]))
	}
	return records
}

// newTestSorter builds a Sorter with a quiet logger and the given
// options on top of single-worker defaults; tests override as needed.
func newTestSorter(t testing.TB, inputDir, output string, opts ...Option) *Sorter {
	t.Helper()
	base := []Option{
		WithWorkers(1),
		WithLogger(slog.New(slog.DiscardHandler)),
	}
	s, err := New(inputDir, output, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// requireNoTemps fails the test if any sort temp file remains under the
// given directories.
func requireNoTemps(t testing.TB, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if strings.Contains(name, runSuffix) || strings.Contains(name, interInfix) {
				t.Errorf("leftover temp file: %s", path)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("walk %s: %v", dir, err)
		}
	}
}

func isSorted(records []int64) bool {
	for i := 1; i < len(records); i++ {
		if records[i-1] > records[i] {
			return false
		}
	}
	return true
}
