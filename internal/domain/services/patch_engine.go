package services

import (
	"bytes"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
)

// PatchOutcome records what a rule set did to an image.
type PatchOutcome struct {
	// Applied lists rules whose pattern was found and replaced.
	Applied []string
	// AlreadyPatched lists rules whose replacement was already present and
	// whose pattern was absent; applying again is a no-op, which keeps the
	// whole patch pass idempotent.
	AlreadyPatched []string
	// Missing lists optional rules that matched nothing.
	Missing []string
}

// ApplyRules runs an ordered rule set over data, rewriting matches in place.
// Every rule's pattern and replacement are the same length, so offsets never
// shift. A required rule that matches nothing (and is not already applied)
// fails with PatchTargetNotFoundError.
func ApplyRules(data []byte, rules []entities.PatchRule) (PatchOutcome, error) {
	var outcome PatchOutcome
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return outcome, err
		}

		if replaceAll(data, rule.Pattern, rule.Replacement) {
			outcome.Applied = append(outcome.Applied, rule.Name)
			continue
		}
		if bytes.Contains(data, rule.Replacement) {
			outcome.AlreadyPatched = append(outcome.AlreadyPatched, rule.Name)
			continue
		}
		if rule.Required {
			return outcome, &entities.PatchTargetNotFoundError{Rule: rule.Name}
		}
		outcome.Missing = append(outcome.Missing, rule.Name)
	}
	return outcome, nil
}

// replaceAll rewrites every occurrence of pattern with replacement (equal
// lengths) and reports whether anything matched.
func replaceAll(data, pattern, replacement []byte) bool {
	found := false
	for start := 0; ; {
		idx := bytes.Index(data[start:], pattern)
		if idx < 0 {
			return found
		}
		pos := start + idx
		copy(data[pos:], replacement)
		found = true
		start = pos + len(pattern)
	}
}
