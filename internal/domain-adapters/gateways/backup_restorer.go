package gateways

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BackupRestorer finds and reverses the ".bak" backups the atomic writer
// leaves behind, returning a processed tree to its pre-run state.
type BackupRestorer struct{}

// NewBackupRestorer creates a new backup restorer.
func NewBackupRestorer() *BackupRestorer {
	return &BackupRestorer{}
}

// List returns the original path of every file under root that has a backup
// next to it, in walk order. A root that is itself a file is checked
// directly and yields at most its own path.
func (r *BackupRestorer) List(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input path does not exist: %w", err)
	}

	if !info.IsDir() {
		path := strings.TrimSuffix(root, BackupSuffix)
		if _, err := os.Stat(path + BackupSuffix); err != nil {
			return nil, nil
		}
		return []string{path}, nil
	}

	var originals []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), BackupSuffix) {
			return nil
		}
		originals = append(originals, strings.TrimSuffix(path, BackupSuffix))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan for backups: %w", err)
	}
	return originals, nil
}

// Restore moves every backup under root back over its original and returns
// the restored paths. Each backup file is consumed by its move, so a second
// restore over the same tree is a no-op.
func (r *BackupRestorer) Restore(root string) ([]string, error) {
	originals, err := r.List(root)
	if err != nil {
		return nil, err
	}
	for i, path := range originals {
		if err := os.Rename(path+BackupSuffix, path); err != nil {
			return originals[:i], fmt.Errorf("failed to restore %s: %w", path, err)
		}
	}
	return originals, nil
}
