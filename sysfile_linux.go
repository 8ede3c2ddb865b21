//go:build linux

package extsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves disk blocks for a file whose final size is known
// upfront (chunks, runs, intermediates, and the output are all sized by
// record count). Reserving prevents mid-write ENOSPC surprises on
// nearly full disks. Falls back to ftruncate on filesystems without
// fallocate support (e.g. NFS).
func preallocate(f *os.File, size int64) error {
	if size == 0 {
		return nil
	}
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err != nil {
		return unix.Ftruncate(int(f.Fd()), size)
	}
	return nil
}

// fadviseSequential hints that the file will be read front to back.
// Applied to merger input streams before priming the heap.
// Best-effort: errors are silently ignored.
func fadviseSequential(f *os.File, size int64) {
	_ = unix.Fadvise(int(f.Fd()), 0, size, unix.FADV_SEQUENTIAL)
}

// madviseSequential enables kernel readahead for a mapped input file
// that the run producer will scan front to back.
func madviseSequential(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Madvise(b, unix.MADV_SEQUENTIAL)
}

// openFileLimit returns the soft limit on open file descriptors.
func openFileLimit() (int64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	return int64(lim.Cur), nil
}
