// Package yaml provides YAML-based parsing for fakelib manifests and patch
// catalogs.
package yaml

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
	"gopkg.in/yaml.v3"
)

// yamlManifest represents the raw YAML structure
type yamlManifest struct {
	Libraries map[string]yamlLibrary `yaml:"libraries"`
}

type yamlLibrary struct {
	Version string `yaml:"version"`
	SHA256  string `yaml:"sha256"`
}

// ManifestParser parses fakelib manifest files into the read-only manifest
// the libc patcher consumes.
type ManifestParser struct{}

// NewManifestParser creates a new manifest parser
func NewManifestParser() *ManifestParser {
	return &ManifestParser{}
}

// ReadManifest implements gateways.ManifestReader.
func (p *ManifestParser) ReadManifest(_ context.Context, filePath string) (*gateways.FakelibManifest, error) {
	//nolint:gosec // G304: filePath is the configured fakelib manifest path
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", filePath, err)
	}
	return p.Parse(data)
}

// Parse parses YAML bytes into a fakelib manifest.
func (p *ManifestParser) Parse(data []byte) (*gateways.FakelibManifest, error) {
	var ym yamlManifest
	if err := yaml.Unmarshal(data, &ym); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(ym.Libraries) == 0 {
		return nil, fmt.Errorf("manifest declares no libraries")
	}

	manifest := &gateways.FakelibManifest{
		Libraries: make(map[string]gateways.LibraryVersion, len(ym.Libraries)),
		Checksums: make(map[string]string),
	}
	for name, lib := range ym.Libraries {
		ver, err := parseVersion(lib.Version)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", name, err)
		}
		manifest.Libraries[name] = ver
		if lib.SHA256 != "" {
			manifest.Checksums[name] = lib.SHA256
		}
	}
	return manifest, nil
}

func parseVersion(s string) (gateways.LibraryVersion, error) {
	var v gateways.LibraryVersion
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return v, fmt.Errorf("version %q must be major.minor", s)
	}
	maj, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return v, fmt.Errorf("bad major version in %q: %w", s, err)
	}
	min, err := strconv.ParseUint(minor, 10, 8)
	if err != nil {
		return v, fmt.Errorf("bad minor version in %q: %w", s, err)
	}
	v.Major = uint8(maj)
	v.Minor = uint8(min)
	return v, nil
}
