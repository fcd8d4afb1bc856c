package services

import (
	"fmt"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces"
)

// ParseImageFunc re-derives a typed executable view after raw bytes were
// rewritten in place.
type ParseImageFunc func([]byte) (*entities.ExecutableImage, error)

// DowngradePatcher rewrites version-gated fields and compatibility-gate byte
// sequences so an image targets an older SDK pair. It never mutates its
// input or any shared state; concurrent calls on independent images are safe.
type DowngradePatcher struct {
	catalog *entities.PatchCatalog
	parse   ParseImageFunc
	logger  interfaces.Logger
}

// NewDowngradePatcher creates a downgrade patcher over an immutable catalog.
func NewDowngradePatcher(catalog *entities.PatchCatalog, parse ParseImageFunc, logger interfaces.Logger) *DowngradePatcher {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &DowngradePatcher{catalog: catalog, parse: parse, logger: logger}
}

// Downgrade returns a new image targeting the given SDK pair.
//
// Order matters: the revert set runs first because its patterns assume the
// original, undowngraded byte layout; the version fields and gate rules
// follow. Downgrading an already-downgraded image to the same target is a
// no-op byte-wise.
func (p *DowngradePatcher) Downgrade(img *entities.ExecutableImage, target entities.SdkVersionPair, autoRevert bool) (*entities.ExecutableImage, error) {
	raw := img.Clone()

	if autoRevert && img.SdkVersion() > p.catalog.HighSdkThreshold {
		outcome, err := ApplyRules(raw, p.catalog.Revert)
		if err != nil {
			return nil, fmt.Errorf("revert patch set: %w", err)
		}
		p.logger.Debug("revert patch set applied",
			interfaces.F("sdk", fmt.Sprintf("0x%08X", img.SdkVersion())),
			interfaces.F("applied", len(outcome.Applied)),
			interfaces.F("already", len(outcome.AlreadyPatched)))
	}

	if img.ProcParam != nil {
		img.ProcParam.WriteSdkVersion(raw, target.PlatformVersion)
	}
	for _, e := range img.Dynamic {
		if e.Tag == entities.DtMinSdkVersion {
			e.WriteValue(raw, uint64(target.ExecutableVersion))
		}
	}

	outcome, err := ApplyRules(raw, p.catalog.Gates)
	if err != nil {
		return nil, fmt.Errorf("gate patch set: %w", err)
	}
	p.logger.Debug("downgrade complete",
		interfaces.F("pair", target.ID),
		interfaces.F("applied", len(outcome.Applied)),
		interfaces.F("already", len(outcome.AlreadyPatched)),
		interfaces.F("missing", len(outcome.Missing)))

	patched, err := p.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("re-parsing downgraded image: %w", err)
	}
	return patched, nil
}
