package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/codec"
	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
	"github.com/Nazky/Auto-Backpork/internal/testutil"
)

func TestPatchLibcClampsExceedingVersions(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{
		SdkVersion: 0x04500031,
		Libraries: []testutil.LibSpec{
			{Name: "libc.sprx", ModuleID: 2, Major: 2, Minor: 3},
			{Name: "libSceNet.sprx", ModuleID: 3, Major: 1, Minor: 0},
		},
	})
	manifest := &gateways.FakelibManifest{
		Libraries: map[string]gateways.LibraryVersion{
			"libc.sprx":      {Major: 1, Minor: 1},
			"libSceNet.sprx": {Major: 1, Minor: 5},
		},
	}

	patched, skipped, err := NewLibcPatcher(DefaultCatalog(), codec.ParseExecutable, nil).PatchLibc(img, manifest, false)
	if err != nil {
		t.Fatalf("PatchLibc() error = %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}

	libc := patched.Libraries[0]
	if libc.VersionMajor != 1 || libc.VersionMinor != 1 {
		t.Errorf("libc requirement = %d.%d, want clamped to 1.1", libc.VersionMajor, libc.VersionMinor)
	}
	if libc.ModuleID != 2 {
		t.Errorf("libc module id = %d, want 2 preserved", libc.ModuleID)
	}
	if libc.Name != "libc.sprx" {
		t.Errorf("libc name = %q after clamp, want unchanged", libc.Name)
	}

	// Requirement below the manifest version stays untouched.
	net := patched.Libraries[1]
	if net.VersionMajor != 1 || net.VersionMinor != 0 {
		t.Errorf("libSceNet requirement = %d.%d, want 1.0 untouched", net.VersionMajor, net.VersionMinor)
	}
}

func TestPatchLibcMissingManifestEntry(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{
		SdkVersion: 0x04500031,
		Libraries:  []testutil.LibSpec{{Name: "libMystery.sprx", ModuleID: 7, Major: 3, Minor: 0}},
	})
	manifest := &gateways.FakelibManifest{
		Libraries: map[string]gateways.LibraryVersion{"libc.sprx": {Major: 1, Minor: 1}},
	}
	patcher := NewLibcPatcher(DefaultCatalog(), codec.ParseExecutable, nil)

	t.Run("strict mode fails", func(t *testing.T) {
		_, _, err := patcher.PatchLibc(img, manifest, true)
		var mismatch *entities.LibraryVersionMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("PatchLibc() error = %v, want LibraryVersionMismatchError", err)
		}
		if mismatch.Library != "libMystery.sprx" {
			t.Errorf("error names %q, want libMystery.sprx", mismatch.Library)
		}
	})

	t.Run("lenient mode records and skips", func(t *testing.T) {
		patched, skipped, err := patcher.PatchLibc(img, manifest, false)
		if err != nil {
			t.Fatalf("PatchLibc() error = %v", err)
		}
		if len(skipped) != 1 || skipped[0].Name != "libMystery.sprx" {
			t.Fatalf("skipped = %v, want [libMystery.sprx]", skipped)
		}
		if skipped[0].RequiredVersion != "3.0" {
			t.Errorf("recorded requirement = %q, want 3.0", skipped[0].RequiredVersion)
		}
		dep := patched.Libraries[0]
		if dep.VersionMajor != 3 || dep.VersionMinor != 0 {
			t.Errorf("requirement = %d.%d, want 3.0 untouched", dep.VersionMajor, dep.VersionMinor)
		}
	})
}

func TestPatchLibcRewritesVersionStrings(t *testing.T) {
	catalog := DefaultCatalog()
	rule := catalog.LibcStrings[0]

	code := make([]byte, testutil.CodeSize)
	copy(code, rule.Pattern)
	img := buildImage(t, testutil.ExecSpec{SdkVersion: 0x04500031, Code: code})
	manifest := &gateways.FakelibManifest{
		Libraries: map[string]gateways.LibraryVersion{"libc.sprx": {Major: 1, Minor: 1}},
	}

	patched, _, err := NewLibcPatcher(catalog, codec.ParseExecutable, nil).PatchLibc(img, manifest, false)
	if err != nil {
		t.Fatalf("PatchLibc() error = %v", err)
	}
	if !bytes.Contains(patched.Raw, rule.Replacement) {
		t.Error("libc version string not rewritten")
	}
	if bytes.Contains(patched.Raw, rule.Pattern) {
		t.Error("original libc version string still present")
	}
}

func TestPatchLibcDoesNotMutateInput(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{
		SdkVersion: 0x04500031,
		Libraries:  []testutil.LibSpec{{Name: "libc.sprx", ModuleID: 2, Major: 9, Minor: 9}},
	})
	before := img.Clone()
	manifest := &gateways.FakelibManifest{
		Libraries: map[string]gateways.LibraryVersion{"libc.sprx": {Major: 1, Minor: 1}},
	}

	if _, _, err := NewLibcPatcher(DefaultCatalog(), codec.ParseExecutable, nil).PatchLibc(img, manifest, false); err != nil {
		t.Fatalf("PatchLibc() error = %v", err)
	}
	if !bytes.Equal(img.Raw, before) {
		t.Error("PatchLibc() mutated its input image")
	}
}
