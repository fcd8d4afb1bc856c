package entities

import "fmt"

// PatchRule is one declarative pattern-match-and-replace rule. Pattern and
// Replacement must be the same length: patching never shifts offsets.
type PatchRule struct {
	Name        string
	Pattern     []byte
	Replacement []byte
	Required    bool
}

// Validate checks the structural constraints of a rule.
func (r PatchRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("patch rule must have a name")
	}
	if len(r.Pattern) == 0 {
		return fmt.Errorf("patch rule %s: empty pattern", r.Name)
	}
	if len(r.Pattern) != len(r.Replacement) {
		return fmt.Errorf("patch rule %s: pattern is %d bytes but replacement is %d",
			r.Name, len(r.Pattern), len(r.Replacement))
	}
	return nil
}

// PatchCatalog groups the rule sets and thresholds the patchers consume.
// Catalogs are immutable configuration data: built once at startup, either
// from the built-in defaults or from a YAML file, and never mutated.
type PatchCatalog struct {
	// Gates are the compatibility-gate rewrites applied on every downgrade.
	Gates []PatchRule
	// Revert removes the stricter check emitted by newer toolchains; applied
	// before the gate rules when the source image's SDK version exceeds
	// HighSdkThreshold.
	Revert []PatchRule
	// LibcStrings are the symbol/version string swaps applied by the libc
	// patcher alongside the manifest-driven version rewrites.
	LibcStrings []PatchRule
	// HighSdkThreshold is the declared-SDK high-water mark above which the
	// revert set applies.
	HighSdkThreshold uint32
}

// Validate checks every rule in the catalog.
func (c *PatchCatalog) Validate() error {
	for _, set := range [][]PatchRule{c.Gates, c.Revert, c.LibcStrings} {
		for _, r := range set {
			if err := r.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
