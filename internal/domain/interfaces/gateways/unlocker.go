// Package gateways defines contracts for external capabilities the pipeline
// consumes but does not implement: segment decryption, fakelib manifests,
// and destination file writes.
package gateways

import "github.com/Nazky/Auto-Backpork/internal/domain/entities"

// SegmentUnlocker is the injected decryption capability. Real key material
// never enters this module: the codec hands each encrypted segment to the
// unlocker and uses whatever plaintext comes back. The bundled
// implementation only accepts segments that are already plaintext.
type SegmentUnlocker interface {
	// Unlock returns the plaintext for one stored segment. The returned
	// slice must be exactly desc.MemSize bytes.
	Unlock(index int, desc entities.SegmentDescriptor, stored []byte) ([]byte, error)
}
