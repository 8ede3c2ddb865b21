package extsort

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tamirms/extsort/internal/workpool"
)

// mergeRuns combines the runs from the first phase into the output file,
// respecting the fan-in cap. Small run sets merge directly to the output;
// larger sets go through cascading rounds of fan-in-sized merger jobs
// dispatched on the worker pool. Each round is barrier-joined before its
// consumed inputs are deleted, so a partial failure mid-round never
// loses data. Returns the number of merge rounds executed.
func (s *Sorter) mergeRuns(ctx context.Context, runs []runInfo) (int, error) {
	files := make([]string, len(runs))
	for i, r := range runs {
		files[i] = r.path
	}

	if len(files) == 0 {
		return 0, touchFile(s.output)
	}

	rounds := 0
	for len(files) > 1 {
		if len(files) <= s.fanIn {
			// Final round: one merger job writes directly to the output.
			if err := s.runMergeRound(ctx, [][]string{files}, []string{s.output}); err != nil {
				return rounds, err
			}
			return rounds + 1, s.removeConsumed(files)
		}

		// Partition into contiguous groups of up to fanIn files. Groups
		// of one are forwarded unchanged to the next round.
		var (
			groups   [][]string
			dsts     []string
			next     []string
			consumed []string
		)
		for off := 0; off < len(files); off += s.fanIn {
			end := min(off+s.fanIn, len(files))
			group := files[off:end]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}
			dst := intermediatePath(s.output, rounds, off)
			s.trackTemp(dst)
			groups = append(groups, group)
			dsts = append(dsts, dst)
			next = append(next, dst)
			consumed = append(consumed, group...)
		}

		s.cfg.logger.Debug("merge round", "round", rounds,
			"runs", len(files), "jobs", len(groups))
		if err := s.runMergeRound(ctx, groups, dsts); err != nil {
			return rounds, err
		}

		// Only after the whole round has finished do the consumed inputs
		// go away.
		if err := s.removeConsumed(consumed); err != nil {
			return rounds, err
		}
		files = next
		rounds++
	}

	return rounds, s.renameOrCopy(files[0], s.output)
}

// runMergeRound dispatches one merger job per group on the worker pool
// and barrier-joins them, returning the first error. Each job holds a
// weighted permit on the descriptor semaphore for the streams it opens,
// which serializes jobs when the process descriptor limit is tight.
func (s *Sorter) runMergeRound(ctx context.Context, groups [][]string, dsts []string) error {
	handles := make([]*workpool.Handle[struct{}], 0, len(groups))
	for i := range groups {
		group, dst := groups[i], dsts[i]
		h, err := workpool.Submit(s.pool, func() (struct{}, error) {
			weight := int64(len(group) + 1)
			if err := s.fdSem.Acquire(ctx, weight); err != nil {
				return struct{}{}, err
			}
			defer s.fdSem.Release(weight)
			return struct{}{}, s.mergeFiles(ctx, group, dst)
		})
		if err != nil {
			// Pool rejected the submission; join what was dispatched.
			for _, prev := range handles {
				_, _ = prev.Wait()
			}
			return err
		}
		handles = append(handles, h)
	}

	// Wait for all jobs in the round so no merger is orphaned, then
	// surface the first error.
	var firstErr error
	for _, h := range handles {
		if _, err := h.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// removeConsumed deletes run files consumed by a completed round.
func (s *Sorter) removeConsumed(files []string) error {
	var errs []error
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			errs = append(errs, fmt.Errorf("remove consumed run: %w", err))
			continue
		}
		s.untrackTemp(f)
	}
	return errors.Join(errs...)
}
