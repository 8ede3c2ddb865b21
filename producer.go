package extsort

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/edsrzf/mmap-go"
	exterrors "github.com/tamirms/extsort/errors"
)

// contextCheckInterval is how many records are processed between
// context cancellation checks in the producer and merger loops.
const contextCheckInterval = 10000

// runInfo describes one sorted run file handed to the merge scheduler:
// its path and the number of records it holds. Once produced, a run is
// immutable until the scheduler deletes or renames it.
type runInfo struct {
	path    string
	records int64
}

// sortFile transforms one input file into exactly one sorted run named
// <input>.sorted. The input is mapped read-only and scanned front to
// back; each fill of the sort buffer is sorted and written as a chunk
// file, and multi-chunk inputs are merged into the run before return.
//
// sortFile is re-entrant across distinct inputs: all mutable state is
// local to the call, so any number of workers may run it concurrently.
func (s *Sorter) sortFile(ctx context.Context, input string) (runInfo, error) {
	run := runInfo{path: runPath(input)}

	f, err := os.Open(input)
	if err != nil {
		return runInfo{}, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return runInfo{}, fmt.Errorf("stat %s: %w", input, err)
	}
	size := fi.Size()
	if size%recordSize != 0 {
		return runInfo{}, fmt.Errorf("%w: %s (%d bytes)", exterrors.ErrCorruptInput, input, size)
	}
	run.records = size / recordSize

	// Empty input: the run is an empty file.
	if size == 0 {
		s.trackTemp(run.path)
		if err := touchFile(run.path); err != nil {
			return runInfo{}, err
		}
		return run, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return runInfo{}, fmt.Errorf("mmap %s: %w", input, err)
	}
	defer data.Unmap()
	madviseSequential(data)

	buf := make([]int64, 0, s.bufferCap)
	var chunks []string
	cleanupChunks := func() {
		for _, c := range chunks {
			if os.Remove(c) == nil {
				s.untrackTemp(c)
			}
		}
	}

	counter := 0
	for off := int64(0); off < size; {
		buf = buf[:0]
		for len(buf) < s.bufferCap && off < size {
			buf = append(buf, decodeRecord(data[off:off+recordSize]))
			off += recordSize

			counter++
			if counter >= contextCheckInterval {
				counter = 0
				if err := ctx.Err(); err != nil {
					cleanupChunks()
					return runInfo{}, err
				}
			}
		}
		slices.Sort(buf)

		cp := chunkPath(input, len(chunks))
		s.trackTemp(cp)
		if err := writeRecords(cp, buf, s.cfg.writeBufSize); err != nil {
			cleanupChunks()
			return runInfo{}, err
		}
		chunks = append(chunks, cp)
	}

	// A single chunk already is the run; multiple chunks are merged into
	// one and then removed.
	s.trackTemp(run.path)
	if len(chunks) == 1 {
		if err := os.Rename(chunks[0], run.path); err != nil {
			return runInfo{}, fmt.Errorf("rename chunk: %w", err)
		}
		s.untrackTemp(chunks[0])
		return run, nil
	}

	if err := s.mergeFiles(ctx, chunks, run.path); err != nil {
		return runInfo{}, err
	}
	var errs []error
	for _, c := range chunks {
		if err := os.Remove(c); err != nil {
			errs = append(errs, fmt.Errorf("remove chunk: %w", err))
			continue
		}
		s.untrackTemp(c)
	}
	if len(errs) > 0 {
		return runInfo{}, errors.Join(errs...)
	}
	return run, nil
}

// writeRecords writes the sorted buffer verbatim to a fresh chunk file.
// The file is preallocated to its exact final size.
func writeRecords(path string, records []int64, bufSize int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chunk: %w", err)
	}
	if err := preallocate(f, int64(len(records))*recordSize); err != nil {
		return errors.Join(fmt.Errorf("preallocate chunk %s: %w", path, err), f.Close())
	}

	w := bufio.NewWriterSize(f, bufSize)
	var scratch [recordSize]byte
	for _, v := range records {
		encodeRecord(scratch[:], v)
		if _, err := w.Write(scratch[:]); err != nil {
			return errors.Join(fmt.Errorf("write chunk %s: %w", path, err), f.Close())
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Join(fmt.Errorf("flush chunk %s: %w", path, err), f.Close())
	}
	return f.Close()
}

// touchFile creates an empty file, truncating any previous content.
func touchFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return f.Close()
}
