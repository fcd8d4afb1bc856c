package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ifgateways "github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
)

func TestVerifyChecksum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "libc.sprx")
	data := []byte("fakelib payload")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)
	good := hex.EncodeToString(sum[:])

	v := NewChecksumVerifier()
	if err := v.VerifyChecksum(context.Background(), path, good); err != nil {
		t.Errorf("VerifyChecksum() with matching sum: %v", err)
	}
	// Case must not matter.
	if err := v.VerifyChecksum(context.Background(), path, strings.ToUpper(good)); err != nil {
		t.Errorf("VerifyChecksum() with uppercase sum: %v", err)
	}
	if err := v.VerifyChecksum(context.Background(), path, hex.EncodeToString(make([]byte, 32))); err == nil {
		t.Error("VerifyChecksum() accepted a wrong sum")
	}
}

func TestVerifyFakelibChecksums(t *testing.T) {
	dir := t.TempDir()
	data := []byte("fakelib payload")
	if err := os.WriteFile(filepath.Join(dir, "libc.sprx"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(data)

	manifest := &ifgateways.FakelibManifest{
		Checksums: map[string]string{"libc.sprx": hex.EncodeToString(sum[:])},
	}
	v := NewChecksumVerifier()
	if err := v.VerifyFakelibChecksums(context.Background(), manifest, dir); err != nil {
		t.Errorf("VerifyFakelibChecksums() error = %v", err)
	}

	manifest.Checksums["libc.sprx"] = hex.EncodeToString(make([]byte, 32))
	if err := v.VerifyFakelibChecksums(context.Background(), manifest, dir); err == nil {
		t.Error("VerifyFakelibChecksums() accepted a wrong sum")
	}
}
