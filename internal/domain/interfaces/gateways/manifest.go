package gateways

import (
	"context"
	"fmt"
)

// LibraryVersion is a fakelib's declared version.
type LibraryVersion struct {
	Major uint8
	Minor uint8
}

// String formats the version as "major.minor".
func (v LibraryVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// FakelibManifest maps library names to the versions the replacement
// fakelib images declare, plus optional integrity data. Read-only after
// load; safe for unsynchronized concurrent reads.
type FakelibManifest struct {
	Libraries map[string]LibraryVersion
	// Checksums holds optional hex SHA-256 sums per library file name.
	Checksums map[string]string
}

// Version looks up a library's declared version.
func (m *FakelibManifest) Version(name string) (LibraryVersion, bool) {
	v, ok := m.Libraries[name]
	return v, ok
}

// ManifestReader loads a fakelib manifest from an external source.
type ManifestReader interface {
	ReadManifest(ctx context.Context, path string) (*FakelibManifest, error)
}
