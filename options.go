package extsort

import "log/slog"

const (
	// defaultMemoryLimit bounds aggregate sort-buffer residency.
	defaultMemoryLimit = 64 << 20

	// defaultFanIn is the maximum number of runs one merger combines.
	// It also gates the "merge directly to the output" shortcut: both
	// uses are the same parameter and must not diverge.
	defaultFanIn = 128

	// fallbackWorkers is used when the hardware parallelism cannot be
	// determined.
	fallbackWorkers = 32

	defaultReadBufferSize  = 256 << 10
	defaultWriteBufferSize = 512 << 10
)

// Option is a functional option for configuring a Sorter.
type Option func(*config)

type config struct {
	memoryLimit    int64
	workers        int
	fanIn          int
	readBufSize    int
	writeBufSize   int
	failureCleanup bool
	logger         *slog.Logger
}

func defaultConfig() *config {
	return &config{
		memoryLimit:  defaultMemoryLimit,
		workers:      0, // resolved to hardware parallelism in New
		fanIn:        defaultFanIn,
		readBufSize:  defaultReadBufferSize,
		writeBufSize: defaultWriteBufferSize,
		logger:       slog.New(slog.DiscardHandler),
	}
}

// WithMemoryLimit sets the memory budget in bytes for in-memory sort
// buffers across all workers. Default is 64 MiB.
func WithMemoryLimit(bytes int64) Option {
	return func(c *config) {
		c.memoryLimit = bytes
	}
}

// WithWorkers sets the number of worker threads. Default is the
// hardware parallelism.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithFanIn sets the maximum number of runs merged by one merger
// invocation. Default is 128.
func WithFanIn(f int) Option {
	return func(c *config) {
		c.fanIn = f
	}
}

// WithReadBufferSize sets the buffer size for each merger input stream.
func WithReadBufferSize(bytes int) Option {
	return func(c *config) {
		c.readBufSize = bytes
	}
}

// WithWriteBufferSize sets the buffer size for chunk, run, and output
// writers.
func WithWriteBufferSize(bytes int) Option {
	return func(c *config) {
		c.writeBufSize = bytes
	}
}

// WithFailureCleanup removes every temporary file produced by the
// failing invocation when a sort aborts. By default temp files are left
// on disk for diagnosis and a clean restart requires removing them.
func WithFailureCleanup() Option {
	return func(c *config) {
		c.failureCleanup = true
	}
}

// WithLogger sets the logger used for enumeration warnings and phase
// progress. The default logger discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
