// Package services implements domain business logic and use cases.
package services

import (
	"sort"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
)

// SdkVersionTable maps SDK pair ids to their version value pairs. The table
// is built once and never mutated; it is safe for concurrent use.
type SdkVersionTable struct {
	pairs map[int]entities.SdkVersionPair
}

// NewSdkVersionTable builds the table of supported downgrade targets.
// Pair 4 is the default target and carries the reference values
// (0x04000031, 0x09040001); the remaining pairs step through the supported
// platform/firmware combinations.
func NewSdkVersionTable() *SdkVersionTable {
	raw := map[int][2]uint32{
		1:  {0x01000031, 0x08000001},
		2:  {0x02000031, 0x08500001},
		3:  {0x03000031, 0x09000001},
		4:  {0x04000031, 0x09040001},
		5:  {0x04500031, 0x09500001},
		6:  {0x05000031, 0x09600001},
		7:  {0x06000031, 0x10000001},
		8:  {0x07000031, 0x10500001},
		9:  {0x08000031, 0x11000001},
		10: {0x09000031, 0x11500001},
	}

	pairs := make(map[int]entities.SdkVersionPair, len(raw))
	for id, v := range raw {
		pairs[id] = entities.SdkVersionPair{
			ID:                id,
			PlatformVersion:   v[0],
			ExecutableVersion: v[1],
		}
	}
	return &SdkVersionTable{pairs: pairs}
}

// Resolve returns the version pair for an id. Unknown ids fail with
// UnsupportedSdkPairError.
func (t *SdkVersionTable) Resolve(id int) (entities.SdkVersionPair, error) {
	pair, ok := t.pairs[id]
	if !ok {
		return entities.SdkVersionPair{}, &entities.UnsupportedSdkPairError{Pair: id}
	}
	return pair, nil
}

// Pairs returns every supported pair sorted by id.
func (t *SdkVersionTable) Pairs() []entities.SdkVersionPair {
	out := make([]entities.SdkVersionPair, 0, len(t.pairs))
	for _, p := range t.pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
