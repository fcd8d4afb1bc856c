package entities

import "fmt"

// ProgramType is the small enum stamped into a container's identity region.
type ProgramType uint64

// Known program types. The loader only distinguishes these values; anything
// else is rejected before a container is built.
const (
	ProgramTypeFake         ProgramType = 0x1
	ProgramTypeNpdrmExec    ProgramType = 0x4
	ProgramTypeNpdrmDynlib  ProgramType = 0x5
	ProgramTypeSystemExec   ProgramType = 0x8
	ProgramTypeSystemDynlib ProgramType = 0x9
)

// DefaultPaid is the fake authorization id stamped when the caller does not
// supply one.
const DefaultPaid uint64 = 0x3100000000000002

// ParseProgramType maps a ptype name to its enum value.
func ParseProgramType(name string) (ProgramType, error) {
	switch name {
	case "fake":
		return ProgramTypeFake, nil
	case "npdrm-exec", "npdrm_exec":
		return ProgramTypeNpdrmExec, nil
	case "npdrm-dynlib", "npdrm_dynlib":
		return ProgramTypeNpdrmDynlib, nil
	case "system-exec", "system_exec":
		return ProgramTypeSystemExec, nil
	case "system-dynlib", "system_dynlib":
		return ProgramTypeSystemDynlib, nil
	default:
		return 0, fmt.Errorf("unknown program type %q", name)
	}
}

// Valid reports whether the value is one of the known program types.
func (t ProgramType) Valid() bool {
	switch t {
	case ProgramTypeFake, ProgramTypeNpdrmExec, ProgramTypeNpdrmDynlib,
		ProgramTypeSystemExec, ProgramTypeSystemDynlib:
		return true
	}
	return false
}

// FakeIdentity is the forged identity region embedded into a produced
// container. It is data, not a proof: the digest is always zero and nothing
// here is validated against any authority.
type FakeIdentity struct {
	Paid        uint64
	PType       ProgramType
	AppVersion  uint64
	FwVersion   uint64
	PlatformSdk uint32
	ExecSdk     uint32
	Digest      [32]byte // always zero; placeholder for the real signature digest
}
