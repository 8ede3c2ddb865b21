package extsort

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	exterrors "github.com/tamirms/extsort/errors"
)

func mergeForTest(t *testing.T, inputs []string, dst string) error {
	t.Helper()
	return mergeFiles(context.Background(), inputs, dst,
		defaultReadBufferSize, defaultWriteBufferSize)
}

func TestMergeNoInputs(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.dat")
	if err := mergeForTest(t, nil, dst); err != nil {
		t.Fatalf("merge: %v", err)
	}
	fi, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Size() != 0 {
		t.Errorf("expected empty output, got %d bytes", fi.Size())
	}
}

func TestMergeSingleInputCopies(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dat")
	dst := filepath.Join(dir, "out.dat")
	records := []int64{-5, 0, 3, 3, 9}
	writeRecordsFile(t, src, records)

	if err := mergeForTest(t, []string{src}, dst); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := readRecordsFile(t, dst); !slices.Equal(got, records) {
		t.Errorf("output: got %v, want %v", got, records)
	}
	// The source must survive a single-input merge.
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source removed by single-input merge: %v", err)
	}
}

func TestMergeManyInputs(t *testing.T) {
	dir := t.TempDir()
	rng := newTestRNG(t)

	const streams = 17
	var all []int64
	inputs := make([]string, streams)
	for i := range inputs {
		n := rng.IntN(200) // some streams may be empty
		records := make([]int64, n)
		for j := range records {
			records[j] = int64(rng.Uint64())
		}
		slices.Sort(records)
		all = append(all, records...)

		inputs[i] = filepath.Join(dir, "run"+string(rune('a'+i))+".dat")
		writeRecordsFile(t, inputs[i], records)
	}

	dst := filepath.Join(dir, "out.dat")
	if err := mergeForTest(t, inputs, dst); err != nil {
		t.Fatalf("merge: %v", err)
	}

	slices.Sort(all)
	if got := readRecordsFile(t, dst); !slices.Equal(got, all) {
		t.Errorf("merged output does not equal sorted concatenation (%d vs %d records)",
			len(got), len(all))
	}
}

func TestMergeDuplicateHeavy(t *testing.T) {
	dir := t.TempDir()
	inputs := make([]string, 4)
	for i := range inputs {
		inputs[i] = filepath.Join(dir, "dup"+string(rune('0'+i))+".dat")
		writeRecordsFile(t, inputs[i], []int64{42, 42, 42, 42, 42})
	}

	dst := filepath.Join(dir, "out.dat")
	if err := mergeForTest(t, inputs, dst); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got := readRecordsFile(t, dst)
	if len(got) != 20 {
		t.Fatalf("expected 20 records, got %d", len(got))
	}
	for _, v := range got {
		if v != 42 {
			t.Fatalf("expected all 42s, found %d", v)
		}
	}
}

func TestMergeOpenFailureCreatesNoOutput(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.dat")
	writeRecordsFile(t, good, []int64{1, 2, 3})
	missing := filepath.Join(dir, "missing.dat")
	dst := filepath.Join(dir, "out.dat")

	if err := mergeForTest(t, []string{good, missing}, dst); err == nil {
		t.Fatal("expected open failure")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("output must not be created when an input fails to open")
	}
}

func TestMergeTruncatedInput(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.dat")
	b := filepath.Join(dir, "b.dat")
	writeRecordsFile(t, a, []int64{1, 2})
	if err := os.WriteFile(b, []byte("123456789012345"), 0o644); err != nil { // 15 bytes
		t.Fatalf("write: %v", err)
	}

	dst := filepath.Join(dir, "out.dat")
	if err := mergeForTest(t, []string{a, b}, dst); !errors.Is(err, exterrors.ErrTruncatedFile) {
		t.Errorf("expected ErrTruncatedFile, got %v", err)
	}
}

func TestMergeCancelled(t *testing.T) {
	dir := t.TempDir()
	rng := newTestRNG(t)

	inputs := make([]string, 2)
	for i := range inputs {
		records := make([]int64, 2*contextCheckInterval)
		for j := range records {
			records[j] = int64(rng.Uint64())
		}
		slices.Sort(records)
		inputs[i] = filepath.Join(dir, "big"+string(rune('0'+i))+".dat")
		writeRecordsFile(t, inputs[i], records)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dst := filepath.Join(dir, "out.dat")
	err := mergeFiles(ctx, inputs, dst, defaultReadBufferSize, defaultWriteBufferSize)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
