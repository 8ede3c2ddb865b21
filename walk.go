package extsort

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// listInputs recursively enumerates the regular files under dir.
// Symlinks are followed one level: a link to a regular file counts as an
// input, anything else is ignored. Enumeration errors are logged and
// skipped — the sort proceeds with whatever was successfully enumerated.
// The returned order is unspecified; the sort is order-independent.
func listInputs(dir string, logger *slog.Logger) []string {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping during enumeration", "path", path, "error", err)
			return nil
		}
		switch {
		case d.Type().IsRegular():
			files = append(files, path)
		case d.Type()&fs.ModeSymlink != 0:
			fi, err := os.Stat(path)
			if err != nil {
				logger.Warn("skipping unresolvable symlink", "path", path, "error", err)
				return nil
			}
			if fi.Mode().IsRegular() {
				files = append(files, path)
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("enumeration aborted", "dir", dir, "error", err)
	}
	return files
}
