// Package testutil builds synthetic executable images and containers for
// tests. The layouts are minimal but structurally valid: fixed offsets, one
// code and one data load segment, and a dynamic section small enough to
// reason about byte-for-byte in assertions.
package testutil

import (
	"encoding/binary"
	"fmt"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
)

// Fixed layout of images produced by BuildExecutable.
const (
	ExecSize = 0x240

	CodeOffset = 0x200
	CodeVaddr  = 0x1000
	CodeSize   = 0x40

	DataOffset = 0x120
	DataVaddr  = 0x2000
	DataSize   = 0xE0

	ProcParamOffset = 0x120
	StrtabOffset    = 0x140
	StrtabVaddr     = 0x2020
	StrtabSize      = 0x40
	DynamicOffset   = 0x180
	DynamicVaddr    = 0x2060
)

// LibSpec describes one needed-module entry.
type LibSpec struct {
	Name     string
	ModuleID uint16
	Major    uint8
	Minor    uint8
}

// ExecSpec configures BuildExecutable. The zero value yields an image with a
// process-param block declaring SDK version zero, no dependencies and an
// all-zero code segment.
type ExecSpec struct {
	SdkVersion    uint32
	OmitProcParam bool

	// MinSdkVersion emits a min-SDK dynamic entry when nonzero.
	MinSdkVersion uint32

	Libraries []LibSpec

	// Code is placed at the start of the code segment, up to CodeSize bytes.
	Code []byte
}

// BuildExecutable assembles a structurally valid executable image.
func BuildExecutable(spec ExecSpec) []byte {
	if len(spec.Code) > CodeSize {
		panic(fmt.Sprintf("code is %d bytes, segment holds %d", len(spec.Code), CodeSize))
	}

	raw := make([]byte, ExecSize)
	le := binary.LittleEndian

	copy(raw, []byte{0x7F, 'E', 'L', 'F'})
	raw[4] = 2 // 64-bit
	raw[5] = 1 // little-endian
	raw[6] = 1
	le.PutUint16(raw[0x10:], entities.TypeDynExec)
	le.PutUint16(raw[0x12:], entities.MachineX86_64)
	le.PutUint64(raw[0x18:], CodeVaddr)
	le.PutUint64(raw[0x20:], entities.ExecHeaderSize)
	le.PutUint16(raw[0x36:], entities.ProgramHeaderSize)
	le.PutUint16(raw[0x38:], 4)

	// String table: a leading NUL, then each library name.
	strtab := []byte{0}
	nameOffsets := make([]uint64, len(spec.Libraries))
	for i, lib := range spec.Libraries {
		nameOffsets[i] = uint64(len(strtab))
		strtab = append(strtab, lib.Name...)
		strtab = append(strtab, 0)
	}
	if len(strtab) > StrtabSize {
		panic(fmt.Sprintf("string table is %d bytes, region holds %d", len(strtab), StrtabSize))
	}
	copy(raw[StrtabOffset:], strtab)

	// Dynamic section.
	type dynEntry struct {
		tag int64
		val uint64
	}
	dyn := []dynEntry{
		{entities.DtStrtab, StrtabVaddr},
		{entities.DtStrsz, StrtabSize},
	}
	for i, lib := range spec.Libraries {
		val := uint64(lib.ModuleID)<<48 |
			uint64(lib.Major)<<40 |
			uint64(lib.Minor)<<32 |
			nameOffsets[i]
		dyn = append(dyn, dynEntry{entities.DtNeededModule, val})
	}
	if spec.MinSdkVersion != 0 {
		dyn = append(dyn, dynEntry{entities.DtMinSdkVersion, uint64(spec.MinSdkVersion)})
	}
	dyn = append(dyn, dynEntry{entities.DtNull, 0})
	dynSize := uint64(len(dyn) * entities.DynamicEntrySize)
	if DynamicOffset+dynSize > DataOffset+DataSize {
		panic("dynamic section overflows the data segment")
	}
	for i, e := range dyn {
		off := DynamicOffset + i*entities.DynamicEntrySize
		le.PutUint64(raw[off:], uint64(e.tag))
		le.PutUint64(raw[off+8:], e.val)
	}

	// Program headers: code, data, dynamic, proc-param.
	writePhdr(raw, 0, entities.PtLoad, 0x5, CodeOffset, CodeVaddr, CodeSize)
	writePhdr(raw, 1, entities.PtLoad, 0x6, DataOffset, DataVaddr, DataSize)
	writePhdr(raw, 2, entities.PtDynamic, 0x6, DynamicOffset, DynamicVaddr, dynSize)
	if spec.OmitProcParam {
		writePhdr(raw, 3, 0, 0, 0, 0, 0)
	} else {
		writePhdr(raw, 3, entities.PtProcParam, 0x4, ProcParamOffset, DataVaddr, entities.ProcParamSize)
		le.PutUint64(raw[ProcParamOffset:], entities.ProcParamSize)
		le.PutUint32(raw[ProcParamOffset+8:], entities.ProcParamMagic)
		le.PutUint32(raw[ProcParamOffset+12:], 1)
		le.PutUint32(raw[ProcParamOffset+16:], spec.SdkVersion)
	}

	copy(raw[CodeOffset:], spec.Code)
	return raw
}

func writePhdr(raw []byte, index int, ptype, flags uint32, offset, vaddr, size uint64) {
	le := binary.LittleEndian
	off := entities.ExecHeaderSize + index*entities.ProgramHeaderSize
	le.PutUint32(raw[off:], ptype)
	le.PutUint32(raw[off+4:], flags)
	le.PutUint64(raw[off+8:], offset)
	le.PutUint64(raw[off+16:], vaddr)
	le.PutUint64(raw[off+24:], vaddr)
	le.PutUint64(raw[off+32:], size)
	le.PutUint64(raw[off+40:], size)
	le.PutUint64(raw[off+48:], 0x10)
}

// SegSpec describes one stored segment of a built container.
type SegSpec struct {
	Kind      entities.SegmentKind
	Encrypted bool
	Data      []byte

	// MemSize overrides the plaintext size; zero means len(Data).
	MemSize uint64
}

// BuildContainer assembles a container around the given segments. Encrypted
// segment data should already be in stored (XORed) form; see XorBytes.
func BuildContainer(identity *entities.FakeIdentity, segs ...SegSpec) []byte {
	if identity == nil {
		identity = &entities.FakeIdentity{
			Paid:  entities.DefaultPaid,
			PType: entities.ProgramTypeFake,
		}
	}

	metaSize := entities.IdentitySize + len(segs)*entities.SegmentDescriptorSize
	dataStart := entities.ContainerHeaderSize + metaSize
	total := dataStart
	for _, s := range segs {
		total += len(s.Data)
	}

	raw := make([]byte, total)
	le := binary.LittleEndian

	le.PutUint32(raw[0:], entities.ContainerMagic)
	raw[4] = entities.ContainerVersion
	raw[6] = 1
	le.PutUint32(raw[8:], 1)
	le.PutUint16(raw[12:], entities.ContainerHeaderSize)
	le.PutUint16(raw[14:], uint16(metaSize))
	le.PutUint64(raw[16:], uint64(total))
	le.PutUint16(raw[24:], uint16(len(segs)))

	le.PutUint64(raw[entities.ContainerHeaderSize:], identity.Paid)
	le.PutUint64(raw[entities.ContainerHeaderSize+8:], uint64(identity.PType))
	le.PutUint64(raw[entities.ContainerHeaderSize+16:], identity.AppVersion)
	le.PutUint64(raw[entities.ContainerHeaderSize+24:], identity.FwVersion)
	le.PutUint32(raw[entities.ContainerHeaderSize+32:], identity.PlatformSdk)
	le.PutUint32(raw[entities.ContainerHeaderSize+36:], identity.ExecSdk)
	copy(raw[entities.ContainerHeaderSize+40:], identity.Digest[:])

	offset := uint64(dataStart)
	for i, s := range segs {
		memSize := s.MemSize
		if memSize == 0 {
			memSize = uint64(len(s.Data))
		}
		descOff := entities.ContainerHeaderSize + entities.IdentitySize + i*entities.SegmentDescriptorSize
		le.PutUint64(raw[descOff:], entities.SegmentFlags(s.Kind, false, s.Encrypted))
		le.PutUint64(raw[descOff+8:], offset)
		le.PutUint64(raw[descOff+16:], uint64(len(s.Data)))
		le.PutUint64(raw[descOff+24:], memSize)
		copy(raw[offset:], s.Data)
		offset += uint64(len(s.Data))
	}

	return raw
}

// XorKey is the byte every stored segment is XORed with under XorUnlocker.
const XorKey byte = 0xA5

// XorBytes returns a copy of b with every byte XORed against XorKey. The
// transform is its own inverse.
func XorBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[i] = v ^ XorKey
	}
	return out
}

// XorUnlocker is a stand-in unlock capability for tests.
type XorUnlocker struct{}

// Unlock reverses XorBytes.
func (XorUnlocker) Unlock(_ int, _ entities.SegmentDescriptor, stored []byte) ([]byte, error) {
	return XorBytes(stored), nil
}
