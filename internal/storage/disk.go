// Package storage reports the on-disk footprint of the index data source.
package storage

import (
	"os"
	"path/filepath"
	"strings"
)

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped (contribute 0); errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if info.IsDir() {
			n, err := dirSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		} else {
			total += info.Size()
		}
	}
	return total, nil
}

// DataSourceBytes returns the size of a SQLite database together with its WAL and
// shared-memory sidecar files. URI data sources are resolved to their file path.
func DataSourceBytes(dataSource string) (int64, error) {
	path := DataSourcePath(dataSource)
	if path == "" {
		return 0, nil
	}
	return DiskUsageBytes(path, path+"-wal", path+"-shm")
}

// DataSourcePath strips the "file:" scheme and query of a SQLite URI. In-memory
// databases have no path.
func DataSourcePath(dataSource string) string {
	p := strings.TrimPrefix(dataSource, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == ":memory:" {
		return ""
	}
	return p
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
