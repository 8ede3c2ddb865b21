package extsort

import (
	"bufio"
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	exterrors "github.com/tamirms/extsort/errors"
)

// Compile time check to ensure mergeHeap satisfies the heap interface.
var _ heap.Interface = (*mergeHeap)(nil)

// mergeEntry pairs a record value with the index of the stream it was
// read from. The heap orders entries by value ascending; ties between
// streams break arbitrarily.
type mergeEntry struct {
	value  int64
	stream int
}

type mergeHeap []mergeEntry

func (h mergeHeap) Len() int            { return len(h) }
func (h mergeHeap) Less(i, j int) bool  { return h[i].value < h[j].value }
func (h mergeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)         { *h = append(*h, x.(mergeEntry)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// recordReader streams records out of one sorted file through a
// buffered reader. Unbuffered per-record reads would collapse merge
// throughput under high fan-in.
type recordReader struct {
	f    *os.File
	br   *bufio.Reader
	path string
}

func openRecordReader(path string, bufSize int) (*recordReader, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open merge input: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, 0, errors.Join(fmt.Errorf("stat merge input %s: %w", path, err), f.Close())
	}
	fadviseSequential(f, fi.Size())
	return &recordReader{
		f:    f,
		br:   bufio.NewReaderSize(f, bufSize),
		path: path,
	}, fi.Size(), nil
}

// next returns the next record, or ok=false at a clean end of file.
// A partial trailing record means the run was corrupted on disk.
func (r *recordReader) next() (v int64, ok bool, err error) {
	var b [recordSize]byte
	if _, err := io.ReadFull(r.br, b[:]); err != nil {
		if err == io.EOF {
			return 0, false, nil
		}
		if err == io.ErrUnexpectedEOF {
			return 0, false, fmt.Errorf("%w: %s", exterrors.ErrTruncatedFile, r.path)
		}
		return 0, false, fmt.Errorf("read %s: %w", r.path, err)
	}
	return decodeRecord(b[:]), true, nil
}

func (r *recordReader) close() error {
	return r.f.Close()
}

// mergeFiles merges the sorted input files into one sorted file at dst.
// The output's record count equals the sum of the inputs' counts.
//
// All inputs are opened before the output is created, so an open
// failure surfaces without leaving a partial dst behind. mergeFiles is
// correctness-only: it has no concurrency of its own and is dispatched
// in parallel by the merge scheduler.
func mergeFiles(ctx context.Context, inputs []string, dst string, readBufSize, writeBufSize int) error {
	if len(inputs) == 0 {
		return touchFile(dst)
	}

	readers := make([]*recordReader, 0, len(inputs))
	closeReaders := func() error {
		var errs []error
		for _, r := range readers {
			if err := r.close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	var totalSize int64
	for _, in := range inputs {
		r, size, err := openRecordReader(in, readBufSize)
		if err != nil {
			return errors.Join(err, closeReaders())
		}
		readers = append(readers, r)
		totalSize += size
	}

	// Single input: byte-for-byte copy. The caller decides whether the
	// source survives, so no rename shortcut here.
	if len(inputs) == 1 {
		err := copyRecords(readers[0], dst, totalSize, writeBufSize)
		return errors.Join(err, closeReaders())
	}

	out, err := os.Create(dst)
	if err != nil {
		return errors.Join(fmt.Errorf("create merge output: %w", err), closeReaders())
	}
	if err := preallocate(out, totalSize); err != nil {
		return errors.Join(fmt.Errorf("preallocate %s: %w", dst, err), out.Close(), closeReaders())
	}
	w := bufio.NewWriterSize(out, writeBufSize)

	// Prime the heap with the first record of each non-empty input.
	h := make(mergeHeap, 0, len(readers))
	for i, r := range readers {
		v, ok, err := r.next()
		if err != nil {
			return errors.Join(err, out.Close(), closeReaders())
		}
		if ok {
			h = append(h, mergeEntry{value: v, stream: i})
		}
	}
	heap.Init(&h)

	var scratch [recordSize]byte
	counter := 0
	for h.Len() > 0 {
		e := h[0]
		encodeRecord(scratch[:], e.value)
		if _, err := w.Write(scratch[:]); err != nil {
			return errors.Join(fmt.Errorf("write %s: %w", dst, err), out.Close(), closeReaders())
		}

		v, ok, err := readers[e.stream].next()
		if err != nil {
			return errors.Join(err, out.Close(), closeReaders())
		}
		if ok {
			h[0].value = v
			heap.Fix(&h, 0)
		} else {
			heap.Pop(&h)
		}

		counter++
		if counter >= contextCheckInterval {
			counter = 0
			if err := ctx.Err(); err != nil {
				return errors.Join(err, out.Close(), closeReaders())
			}
		}
	}

	if err := w.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush %s: %w", dst, err), out.Close(), closeReaders())
	}
	return errors.Join(out.Close(), closeReaders())
}

// copyRecords copies one already-sorted stream to dst.
func copyRecords(r *recordReader, dst string, size int64, writeBufSize int) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create merge output: %w", err)
	}
	if err := preallocate(out, size); err != nil {
		return errors.Join(fmt.Errorf("preallocate %s: %w", dst, err), out.Close())
	}
	w := bufio.NewWriterSize(out, writeBufSize)
	if _, err := io.Copy(w, r.br); err != nil {
		return errors.Join(fmt.Errorf("copy to %s: %w", dst, err), out.Close())
	}
	if err := w.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush %s: %w", dst, err), out.Close())
	}
	return out.Close()
}

// mergeFiles on the Sorter wires in the configured buffer sizes.
func (s *Sorter) mergeFiles(ctx context.Context, inputs []string, dst string) error {
	return mergeFiles(ctx, inputs, dst, s.cfg.readBufSize, s.cfg.writeBufSize)
}
