//go:build !linux && !darwin

package extsort

import "os"

// preallocate sets the file size without reserving blocks on platforms
// lacking a native fallocate.
func preallocate(f *os.File, size int64) error {
	if size == 0 {
		return nil
	}
	return f.Truncate(size)
}

// fadviseSequential is a no-op without posix_fadvise.
func fadviseSequential(f *os.File, size int64) {}

// madviseSequential is a no-op without madvise.
func madviseSequential(b []byte) {}

// openFileLimit reports no limit on platforms where it cannot be read;
// the caller clamps against it only when available.
func openFileLimit() (int64, error) {
	return int64(1) << 30, nil
}
