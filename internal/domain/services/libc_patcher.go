package services

import (
	"fmt"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
)

// LibcPatcher rewrites library version requirements so version-gated C
// library imports resolve against the older ABI the fakelib images expose.
type LibcPatcher struct {
	catalog *entities.PatchCatalog
	parse   ParseImageFunc
	logger  interfaces.Logger
}

// NewLibcPatcher creates a libc patcher over an immutable catalog.
func NewLibcPatcher(catalog *entities.PatchCatalog, parse ParseImageFunc, logger interfaces.Logger) *LibcPatcher {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &LibcPatcher{catalog: catalog, parse: parse, logger: logger}
}

// PatchLibc clamps every dependency whose required version exceeds what the
// fakelib manifest declares. Dependencies with no manifest counterpart fail
// in strict mode and are recorded-and-skipped otherwise. The libc string
// rule set runs afterwards.
func (p *LibcPatcher) PatchLibc(img *entities.ExecutableImage, manifest *gateways.FakelibManifest, strict bool) (*entities.ExecutableImage, []entities.SkippedLibrary, error) {
	raw := img.Clone()
	var skipped []entities.SkippedLibrary

	for _, dep := range img.Libraries {
		declared, ok := manifest.Version(dep.Name)
		if !ok {
			if strict {
				return nil, nil, &entities.LibraryVersionMismatchError{Library: dep.Name}
			}
			skipped = append(skipped, entities.SkippedLibrary{
				Name:            dep.Name,
				RequiredVersion: fmt.Sprintf("%d.%d", dep.VersionMajor, dep.VersionMinor),
			})
			p.logger.Warn("library has no fakelib counterpart, leaving requirement untouched",
				interfaces.F("library", dep.Name))
			continue
		}

		if !exceeds(dep.VersionMajor, dep.VersionMinor, declared.Major, declared.Minor) {
			continue
		}

		entry := img.Dynamic[dep.EntryIndex]
		val := uint64(dep.ModuleID)<<48 |
			uint64(declared.Major)<<40 |
			uint64(declared.Minor)<<32 |
			entry.Val&0xFFFFFFFF
		entry.WriteValue(raw, val)
		p.logger.Debug("clamped library version requirement",
			interfaces.F("library", dep.Name),
			interfaces.F("from", fmt.Sprintf("%d.%d", dep.VersionMajor, dep.VersionMinor)),
			interfaces.F("to", declared.String()))
	}

	if _, err := ApplyRules(raw, p.catalog.LibcStrings); err != nil {
		return nil, nil, fmt.Errorf("libc string patch set: %w", err)
	}

	patched, err := p.parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("re-parsing libc-patched image: %w", err)
	}
	return patched, skipped, nil
}

func exceeds(aMaj, aMin, bMaj, bMin uint8) bool {
	if aMaj != bMaj {
		return aMaj > bMaj
	}
	return aMin > bMin
}
