package entities

import "encoding/binary"

// Executable image format constants (ELF64-shaped, little-endian).
const (
	ExecHeaderSize    = 64
	ProgramHeaderSize = 56
	DynamicEntrySize  = 16

	MachineX86_64 uint16 = 0x3E

	TypeDynExec uint16 = 0xFE10
	TypeDynLib  uint16 = 0xFE18
)

// Program segment types.
const (
	PtLoad        uint32 = 0x1
	PtDynamic     uint32 = 0x2
	PtProcParam   uint32 = 0x61000001
	PtModuleParam uint32 = 0x61000002
)

// Dynamic section tags.
const (
	DtNull   int64 = 0
	DtNeeded int64 = 1
	DtStrtab int64 = 5
	DtStrsz  int64 = 10

	// DtNeededModule values pack a module id (bits 63-48), version major
	// (47-40), minor (39-32) and a string-table offset (31-0).
	DtNeededModule   int64 = 0x6100000F
	DtMinSdkVersion  int64 = 0x61000041
	DtModuleInfo     int64 = 0x6100000D
	DtModuleAttr     int64 = 0x61000011
	DtFingerprint    int64 = 0x61000007
	DtOriginalName   int64 = 0x61000009
	DtExportLib      int64 = 0x61000013
	DtImportLib      int64 = 0x61000015
)

// ProcParamMagic tags the process-param block ("ORBI").
const ProcParamMagic uint32 = 0x4942524F

// ProcParamSize is the serialized size of ProcessParam.
const ProcParamSize = 24

// ExecHeader is the parsed executable file header.
type ExecHeader struct {
	Type    uint16
	Machine uint16
	Entry   uint64
	PhOff   uint64
	PhNum   uint16
}

// ProgramSegment is one program header entry plus its location in the file.
type ProgramSegment struct {
	Type   uint32
	Flags  uint32
	Offset uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64

	// HeaderOffset is the byte offset of this program header inside the image.
	HeaderOffset uint64
}

// DynamicEntry is one 16-byte tag/value pair of the dynamic section.
type DynamicEntry struct {
	Tag int64
	Val uint64

	// Offset is the byte offset of this entry inside the image.
	Offset uint64
}

// LibraryDependency is a decoded needed-module entry: the library name from
// the string table plus the required minimum version.
type LibraryDependency struct {
	Name         string
	ModuleID     uint16
	VersionMajor uint8
	VersionMinor uint8

	// EntryIndex locates the backing entry in ExecutableImage.Dynamic.
	EntryIndex int
}

// WriteValue rewrites this entry's value word inside an image's raw bytes.
// The entry's offset must come from a parse of those same bytes.
func (e DynamicEntry) WriteValue(raw []byte, value uint64) {
	binary.LittleEndian.PutUint64(raw[e.Offset+8:], value)
}

// ProcessParam is the process-param block carrying the executable's declared
// SDK version.
type ProcessParam struct {
	Size         uint64
	Magic        uint32
	ParamVersion uint32
	SdkVersion   uint32
	Reserved     uint32

	// Offset is the byte offset of the block inside the image.
	Offset uint64
}

// WriteSdkVersion rewrites the declared SDK version field inside an image's
// raw bytes.
func (pp *ProcessParam) WriteSdkVersion(raw []byte, version uint32) {
	binary.LittleEndian.PutUint32(raw[pp.Offset+16:], version)
}

// ExecutableImage is a typed view over an unwrapped executable. Raw is the
// canonical byte form; the parsed fields carry file offsets so patchers can
// rewrite bytes in place and re-parse.
type ExecutableImage struct {
	Raw []byte

	Header    ExecHeader
	Segments  []ProgramSegment
	Dynamic   []DynamicEntry
	Libraries []LibraryDependency
	ProcParam *ProcessParam
}

// SdkVersion returns the executable's declared SDK version, or zero when the
// image carries no process-param block.
func (img *ExecutableImage) SdkVersion() uint32 {
	if img.ProcParam == nil {
		return 0
	}
	return img.ProcParam.SdkVersion
}

// Clone returns a deep copy whose Raw bytes are independent of the receiver.
// Parsed views are not copied; callers re-parse after mutating Raw.
func (img *ExecutableImage) Clone() []byte {
	raw := make([]byte, len(img.Raw))
	copy(raw, img.Raw)
	return raw
}
