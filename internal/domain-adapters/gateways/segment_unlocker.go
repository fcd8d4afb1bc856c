// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"fmt"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
)

// plaintextUnlocker is the bundled SegmentUnlocker. No key material exists
// in this module, so it only accepts segments that are already
// plaintext-equivalent: stored bytes whose length matches the declared
// plain size pass through unchanged, anything else fails. Real decryption
// is an external capability the caller injects in its place.
type plaintextUnlocker struct{}

// NewPlaintextUnlocker creates the pass-through segment unlocker.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewPlaintextUnlocker() *plaintextUnlocker {
	return &plaintextUnlocker{}
}

// Unlock validates length consistency and returns the stored bytes as-is.
func (u *plaintextUnlocker) Unlock(index int, desc entities.SegmentDescriptor, stored []byte) ([]byte, error) {
	if uint64(len(stored)) != desc.MemSize {
		return nil, fmt.Errorf("segment %d holds %d bytes but declares %d plain bytes; genuinely encrypted segments need an external unlock capability",
			index, len(stored), desc.MemSize)
	}
	return stored, nil
}
