package util

import (
	"os"
	"path/filepath"
)

// CleanupTempFiles removes files in dir matching pattern, typically the
// leftovers of an interrupted atomic save. It returns the removed paths.
func CleanupTempFiles(dir, pattern string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}

	var removed []string
	for _, m := range matches {
		if info, err := os.Stat(m); err != nil || info.IsDir() {
			continue
		}
		if err := os.Remove(m); err == nil {
			removed = append(removed, m)
		}
	}

	return removed
}

// FileSize returns the size of path, or 0 when it cannot be stat'ed.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	return info.Size()
}
