package gateways

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	ifgateways "github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
)

var execMagic = []byte{0x7F, 'E', 'L', 'F'}

// fileProber detects input file kinds by magic bytes so mixed trees of
// wrapped and already-unwrapped files can share one pipeline.
type fileProber struct{}

// NewFileProber creates a new file prober.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewFileProber() *fileProber {
	return &fileProber{}
}

// DetectKind classifies raw bytes.
func (p *fileProber) DetectKind(data []byte) ifgateways.FileKind {
	if len(data) < 4 {
		return ifgateways.KindOther
	}
	magic := binary.LittleEndian.Uint32(data)
	if magic == entities.ContainerMagic || magic == entities.ContainerMagicAlt {
		return ifgateways.KindContainer
	}
	if bytes.Equal(data[:4], execMagic) {
		return ifgateways.KindExecutable
	}
	return ifgateways.KindOther
}

// DetectFileKind classifies a file by reading its first bytes.
func (p *fileProber) DetectFileKind(path string) (ifgateways.FileKind, error) {
	//nolint:gosec // G304: path comes from the batch configuration
	f, err := os.Open(path)
	if err != nil {
		return ifgateways.KindOther, fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	var magic [4]byte
	n, err := f.Read(magic[:])
	if err != nil || n < 4 {
		return ifgateways.KindOther, nil
	}
	return p.DetectKind(magic[:]), nil
}
