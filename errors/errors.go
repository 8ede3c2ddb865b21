// Package errors defines all exported error sentinels for the extsort library.
//
// This is the single source of truth for error values. Both the top-level
// extsort package and the internal worker pool import from here, ensuring
// errors.Is checks work across package boundaries.
package errors

import "errors"

// Configuration errors
var (
	ErrEmptyInputDir   = errors.New("extsort: input directory path is empty")
	ErrEmptyOutputPath = errors.New("extsort: output file path is empty")
	ErrInvalidMemory   = errors.New("extsort: memory limit must be positive")
	ErrInvalidFanIn    = errors.New("extsort: merge fan-in must be at least 2")
	ErrInvalidWorkers  = errors.New("extsort: worker count must be positive")
)

// Sort errors
var (
	ErrCorruptInput  = errors.New("extsort: file size is not a multiple of the record size")
	ErrPoolStopped   = errors.New("extsort: submit on stopped worker pool")
	ErrResourceLimit = errors.New("extsort: file descriptor limit too small for merging")
	ErrSortRunning   = errors.New("extsort: sort already in progress")
)

// Verify errors
var (
	ErrNotAscending  = errors.New("extsort: records are not in ascending order")
	ErrTruncatedFile = errors.New("extsort: truncated record at end of file")
)
