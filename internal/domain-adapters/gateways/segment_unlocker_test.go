package gateways

import (
	"bytes"
	"testing"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
)

func TestPlaintextUnlocker(t *testing.T) {
	u := NewPlaintextUnlocker()
	stored := []byte{1, 2, 3, 4}

	plain, err := u.Unlock(0, entities.SegmentDescriptor{MemSize: 4}, stored)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if !bytes.Equal(plain, stored) {
		t.Error("Unlock() altered plaintext-equivalent bytes")
	}

	if _, err := u.Unlock(0, entities.SegmentDescriptor{MemSize: 8}, stored); err == nil {
		t.Error("Unlock() accepted a segment whose stored and plain sizes differ")
	}
}
