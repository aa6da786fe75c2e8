package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage is the on-disk footprint of each persistent component, in bytes.
type DiskUsage struct {
	Database int64 `json:"database"`
	Keyword  int64 `json:"keyword"`
	Vectors  int64 `json:"vectors"`
	Total    int64 `json:"total"`
}

// sqliteSidecars are the journal files SQLite keeps next to a database.
var sqliteSidecars = []string{"-wal", "-shm", "-journal"}

// MeasureDiskUsage sums the database file with its journals, the bleve index
// directory and the vector index directory. Empty or missing paths count as 0.
func MeasureDiskUsage(databasePath, keywordPath, vectorPath string) (DiskUsage, error) {
	var u DiskUsage
	var err error
	if databasePath != "" && databasePath != ":memory:" {
		paths := []string{databasePath}
		for _, s := range sqliteSidecars {
			paths = append(paths, databasePath+s)
		}
		if u.Database, err = pathsSize(paths...); err != nil {
			return DiskUsage{}, err
		}
	}
	if u.Keyword, err = pathsSize(keywordPath); err != nil {
		return DiskUsage{}, err
	}
	if u.Vectors, err = pathsSize(vectorPath); err != nil {
		return DiskUsage{}, err
	}
	u.Total = u.Database + u.Keyword + u.Vectors
	return u, nil
}

func pathsSize(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
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
		if err != nil && !os.IsNotExist(err) {
			return 0, err
		}
	}
	return total, nil
}
