package extsort

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	exterrors "github.com/tamirms/extsort/errors"
	"github.com/tamirms/extsort/internal/workpool"
	"golang.org/x/sync/semaphore"
)

// fdReserve is the number of file descriptors kept back from the merge
// semaphore for stdio, the driver, and incidental opens.
const fdReserve = 64

// Stats summarizes one completed sort.
type Stats struct {
	Inputs      int   // input files enumerated
	Runs        int   // runs produced by the first phase
	Records     int64 // total records sorted
	MergeRounds int   // merge rounds executed, including the final merge
}

// Sorter sorts a directory of record files into a single ordered output
// file while keeping sort-buffer residency within a memory budget.
//
// Configuration is written once in New and only read afterwards, so
// producer and merger jobs share the Sorter without additional locking;
// the temp-path registry is the one mutable structure and carries its
// own mutex.
type Sorter struct {
	cfg       *config
	inputDir  string
	output    string
	bufferCap int
	fanIn     int

	pool  *workpool.Pool
	fdSem *semaphore.Weighted

	running bool

	tempMu sync.Mutex
	temps  map[string]struct{}
}

// New validates the configuration and returns a Sorter.
//
// The per-worker sort buffer capacity is memoryLimit/(workers×8)
// records, so aggregate buffer residency stays within the budget even
// when every worker is in its sort phase at once. A budget too small
// for the quotient degenerates to one record per buffer.
func New(inputDir, output string, opts ...Option) (*Sorter, error) {
	if inputDir == "" {
		return nil, exterrors.ErrEmptyInputDir
	}
	if output == "" {
		return nil, exterrors.ErrEmptyOutputPath
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.memoryLimit <= 0 {
		return nil, exterrors.ErrInvalidMemory
	}
	if cfg.workers < 0 {
		return nil, exterrors.ErrInvalidWorkers
	}
	if cfg.fanIn < 2 {
		return nil, exterrors.ErrInvalidFanIn
	}
	if cfg.readBufSize < recordSize {
		cfg.readBufSize = defaultReadBufferSize
	}
	if cfg.writeBufSize < recordSize {
		cfg.writeBufSize = defaultWriteBufferSize
	}

	workers := cfg.workers
	if workers == 0 {
		workers = runtime.NumCPU()
		if workers <= 0 {
			workers = fallbackWorkers
		}
	}
	cfg.workers = workers

	bufferCap := int(cfg.memoryLimit / int64(workers*recordSize))
	if bufferCap < 1 {
		bufferCap = 1
	}

	// Bound aggregate merger descriptors against the process limit. A
	// weighted semaphore serializes merger jobs when the limit is tight;
	// if even one maximum-width merge cannot fit, shrink the fan-in, and
	// fail upfront when fewer than two streams would fit.
	fdBudget, err := openFileLimit()
	if err != nil {
		return nil, fmt.Errorf("read file descriptor limit: %w", err)
	}
	fdBudget -= fdReserve
	fanIn := cfg.fanIn
	if int64(fanIn)+1 > fdBudget {
		fanIn = int(fdBudget) - 1
		cfg.logger.Warn("fan-in reduced to fit descriptor limit",
			"configured", cfg.fanIn, "effective", fanIn)
	}
	if fanIn < 2 {
		return nil, fmt.Errorf("%w: %d descriptors available", exterrors.ErrResourceLimit, fdBudget)
	}

	return &Sorter{
		cfg:       cfg,
		inputDir:  inputDir,
		output:    output,
		bufferCap: bufferCap,
		fanIn:     fanIn,
		fdSem:     semaphore.NewWeighted(fdBudget),
		temps:     make(map[string]struct{}),
	}, nil
}

// Sort runs the two-phase external sort: inputs are partitioned into
// sorted runs in parallel, then the runs are merged in cascading rounds.
// The last merge writes directly to the output path; a single run is
// renamed to it instead.
//
// A failure before the final merge leaves the output path untouched.
// The final merge writes straight into the output file, so a failure
// during that merge can leave a partial output behind. Temporary files
// from the failing invocation remain on disk unless WithFailureCleanup
// was set. Sort must not be called concurrently on the same Sorter.
func (s *Sorter) Sort(ctx context.Context) (Stats, error) {
	if s.running {
		return Stats{}, exterrors.ErrSortRunning
	}
	s.running = true
	defer func() { s.running = false }()
	clear(s.temps)

	s.pool = workpool.New(s.cfg.workers)
	defer s.pool.Close()

	inputs := listInputs(s.inputDir, s.cfg.logger)
	s.cfg.logger.Debug("enumerated inputs", "dir", s.inputDir, "files", len(inputs))

	runs, err := s.produceRuns(ctx, inputs)
	if err != nil {
		s.cleanupOnFailure()
		return Stats{}, err
	}

	stats := Stats{Inputs: len(inputs), Runs: len(runs)}
	for _, r := range runs {
		stats.Records += r.records
	}
	s.cfg.logger.Debug("runs produced", "runs", len(runs), "records", stats.Records)

	rounds, err := s.mergeRuns(ctx, runs)
	if err != nil {
		s.cleanupOnFailure()
		return Stats{}, err
	}
	stats.MergeRounds = rounds
	return stats, nil
}

// produceRuns dispatches one producer job per input on the worker pool
// and joins them all, returning the runs and the first error. Every
// handle is awaited even after a failure so no job is orphaned.
func (s *Sorter) produceRuns(ctx context.Context, inputs []string) ([]runInfo, error) {
	handles := make([]*workpool.Handle[runInfo], 0, len(inputs))
	for _, input := range inputs {
		h, err := workpool.Submit(s.pool, func() (runInfo, error) {
			return s.sortFile(ctx, input)
		})
		if err != nil {
			// Pool rejected the submission; join what was dispatched.
			for _, prev := range handles {
				_, _ = prev.Wait()
			}
			return nil, err
		}
		handles = append(handles, h)
	}

	var firstErr error
	runs := make([]runInfo, 0, len(handles))
	for _, h := range handles {
		run, err := h.Wait()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		runs = append(runs, run)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return runs, nil
}

// renameOrCopy moves src to dst, falling back to copy-and-remove when
// rename fails (e.g. across filesystems).
func (s *Sorter) renameOrCopy(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		s.untrackTemp(src)
		return nil
	}
	r, size, err := openRecordReader(src, s.cfg.readBufSize)
	if err != nil {
		return err
	}
	if err := copyRecords(r, dst, size, s.cfg.writeBufSize); err != nil {
		return errors.Join(fmt.Errorf("copy %s: %w", src, err), r.close())
	}
	if err := r.close(); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s: %w", src, err)
	}
	s.untrackTemp(src)
	return nil
}

func (s *Sorter) trackTemp(path string) {
	s.tempMu.Lock()
	s.temps[path] = struct{}{}
	s.tempMu.Unlock()
}

func (s *Sorter) untrackTemp(path string) {
	s.tempMu.Lock()
	delete(s.temps, path)
	s.tempMu.Unlock()
}

// cleanupOnFailure removes every live temp file if the sorter was
// configured for it. The default keeps them so a failed invocation can
// be inspected.
func (s *Sorter) cleanupOnFailure() {
	if !s.cfg.failureCleanup {
		return
	}
	s.tempMu.Lock()
	defer s.tempMu.Unlock()
	for path := range s.temps {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.cfg.logger.Warn("failed to remove temp file", "path", path, "error", err)
		}
		delete(s.temps, path)
	}
}
