package gateways

import (
	"fmt"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a pre-existing destination before it is
// replaced.
const BackupSuffix = ".bak"

// atomicFileWriter lands bytes at their destination via a temp file and
// rename, so no partial file is ever visible at the final path. With backup
// enabled, a pre-existing destination is preserved first and restored if
// the rename fails.
type atomicFileWriter struct{}

// NewAtomicFileWriter creates the atomic file writer.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewAtomicFileWriter() *atomicFileWriter {
	return &atomicFileWriter{}
}

// Write implements gateways.FileWriter.
func (w *atomicFileWriter) Write(path string, data []byte, backup bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	backupPath := ""
	if backup {
		if _, err := os.Stat(path); err == nil {
			backupPath = path + BackupSuffix
			if err := copyFile(path, backupPath); err != nil {
				return fmt.Errorf("failed to back up existing file: %w", err)
			}
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		if backupPath != "" {
			// Best effort: put the original back at the final path.
			_ = copyFile(backupPath, path)
		}
		return fmt.Errorf("failed to move output into place: %w", err)
	}

	return nil
}

func copyFile(src, dst string) error {
	//nolint:gosec // G304: paths come from the batch configuration
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, info.Mode().Perm())
}
