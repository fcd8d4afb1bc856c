package gateways

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ifgateways "github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
)

// InputScanner locates container/executable files under a root directory.
// Backup files and previously produced "decrypted" directories are skipped,
// so re-running over an output tree never re-ingests its own products.
type InputScanner struct {
	prober *fileProber
}

// NewInputScanner creates a new input scanner.
func NewInputScanner() *InputScanner {
	return &InputScanner{prober: NewFileProber()}
}

// Scan returns every container or executable file under root, in walk
// order. A root that is itself a file yields that single path when it
// probes as a known kind.
func (s *InputScanner) Scan(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input path does not exist: %w", err)
	}

	if !info.IsDir() {
		kind, err := s.prober.DetectFileKind(root)
		if err != nil {
			return nil, err
		}
		if kind == ifgateways.KindOther {
			return nil, fmt.Errorf("input file %s is not a container or executable", root)
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.EqualFold(d.Name(), "decrypted") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), BackupSuffix) {
			return nil
		}
		kind, err := s.prober.DetectFileKind(path)
		if err != nil {
			return err
		}
		if kind != ifgateways.KindOther {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	return files, nil
}
