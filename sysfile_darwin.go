//go:build darwin

package extsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// preallocate reserves disk blocks for a file whose final size is known
// upfront. On macOS this uses fcntl F_PREALLOCATE; the fallback is a
// plain truncate, which sets the size without reserving blocks.
func preallocate(f *os.File, size int64) error {
	if size == 0 {
		return nil
	}
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Offset:  0,
		Length:  size,
	}
	if err := unix.FcntlFstore(f.Fd(), unix.F_PREALLOCATE, &fst); err != nil {
		return unix.Ftruncate(int(f.Fd()), size)
	}
	return nil
}

// fadviseSequential is a no-op on macOS; posix_fadvise is unavailable.
func fadviseSequential(f *os.File, size int64) {}

// madviseSequential enables kernel readahead for a mapped input file.
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
