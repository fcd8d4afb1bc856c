package entities

import "fmt"

// MalformedContainerError reports a structural violation in a container:
// magic/version mismatch or a broken size invariant. Fatal per file.
type MalformedContainerError struct {
	Reason string
}

func (e *MalformedContainerError) Error() string {
	return "malformed container: " + e.Reason
}

// DecryptionError reports that the external segment-unlock capability failed
// for a segment. Fatal per file.
type DecryptionError struct {
	Segment int
	Err     error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decryption failed for segment %d: %v", e.Segment, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// UnsupportedSdkPairError reports an SDK pair id outside the known table.
// Fatal for the whole batch: it indicates caller misconfiguration.
type UnsupportedSdkPairError struct {
	Pair int
}

func (e *UnsupportedSdkPairError) Error() string {
	return fmt.Sprintf("unsupported SDK pair %d", e.Pair)
}

// PatchTargetNotFoundError reports that a required patch rule matched
// nothing in the image. Fatal per file.
type PatchTargetNotFoundError struct {
	Rule string
}

func (e *PatchTargetNotFoundError) Error() string {
	return fmt.Sprintf("required patch target not found: %s", e.Rule)
}

// LibraryVersionMismatchError reports a dependency with no fakelib manifest
// counterpart while strict mode is requested. Recoverable otherwise.
type LibraryVersionMismatchError struct {
	Library string
}

func (e *LibraryVersionMismatchError) Error() string {
	return fmt.Sprintf("no fakelib manifest entry for library %s", e.Library)
}

// SignatureBuildError reports identity fields that fail range validation.
// Fatal per file.
type SignatureBuildError struct {
	Reason string
}

func (e *SignatureBuildError) Error() string {
	return "cannot build signing identity: " + e.Reason
}
