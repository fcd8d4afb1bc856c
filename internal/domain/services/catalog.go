package services

import "github.com/Nazky/Auto-Backpork/internal/domain/entities"

// DefaultCatalog returns the built-in patch catalog. New SDK pairs or patch
// sets are added as data here or supplied from a YAML catalog file; the
// patchers never grow new code paths for them.
func DefaultCatalog() *entities.PatchCatalog {
	return &entities.PatchCatalog{
		Gates: []entities.PatchRule{
			{
				Name: "firmware-gate-branch",
				// cmp eax, <min fw>; jb <unsupported>  ->  jmp: always take
				// the supported branch.
				Pattern:     []byte{0x3D, 0x31, 0x00, 0x00, 0x04, 0x72, 0x06},
				Replacement: []byte{0x3D, 0x31, 0x00, 0x00, 0x04, 0xEB, 0x06},
				Required:    false,
			},
		},
		Revert: []entities.PatchRule{
			{
				Name: "strict-sdk-check",
				// cmp edi, <high sdk>; ja <reject>  ->  nop; jmp past the
				// stricter check emitted by newer toolchains. Assumes the
				// original, undowngraded byte layout.
				Pattern:     []byte{0x81, 0xFF, 0x31, 0x00, 0x00, 0x05, 0x0F, 0x87},
				Replacement: []byte{0x81, 0xFF, 0x31, 0x00, 0x00, 0x05, 0x90, 0xE9},
				Required:    false,
			},
		},
		LibcStrings: []entities.PatchRule{
			{
				Name:        "libc-version-symbol",
				Pattern:     []byte("4h6F1LLbTiw#A#B"),
				Replacement: []byte("IWIBBdTHit4#A#B"),
				Required:    false,
			},
		},
		HighSdkThreshold: 0x05000031,
	}
}
