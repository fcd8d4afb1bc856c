package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
)

var execMagic = []byte{0x7F, 'E', 'L', 'F'}

// ParseExecutable builds a typed view over an executable image. The parsed
// views carry file offsets so callers can rewrite Raw in place and call
// ParseExecutable again to re-derive the views.
func ParseExecutable(raw []byte) (*entities.ExecutableImage, error) {
	if len(raw) < entities.ExecHeaderSize {
		return nil, fmt.Errorf("image is %d bytes, below the %d-byte header", len(raw), entities.ExecHeaderSize)
	}
	if !bytes.Equal(raw[:4], execMagic) {
		return nil, fmt.Errorf("bad executable magic % X", raw[:4])
	}
	if raw[4] != 2 {
		return nil, fmt.Errorf("unsupported class %d, want 64-bit", raw[4])
	}
	if raw[5] != 1 {
		return nil, fmt.Errorf("unsupported byte order tag %d, want little-endian", raw[5])
	}

	le := binary.LittleEndian
	img := &entities.ExecutableImage{
		Raw: raw,
		Header: entities.ExecHeader{
			Type:    le.Uint16(raw[0x10:]),
			Machine: le.Uint16(raw[0x12:]),
			Entry:   le.Uint64(raw[0x18:]),
			PhOff:   le.Uint64(raw[0x20:]),
			PhNum:   le.Uint16(raw[0x38:]),
		},
	}

	if img.Header.PhNum > 0 {
		if entSize := le.Uint16(raw[0x36:]); entSize != entities.ProgramHeaderSize {
			return nil, fmt.Errorf("program header entry size %d, want %d", entSize, entities.ProgramHeaderSize)
		}
	}
	phEnd := img.Header.PhOff + uint64(img.Header.PhNum)*entities.ProgramHeaderSize
	if phEnd > uint64(len(raw)) || phEnd < img.Header.PhOff {
		return nil, fmt.Errorf("program header table extends past image end")
	}

	if err := parseSegments(img); err != nil {
		return nil, err
	}
	if err := parseProcParam(img); err != nil {
		return nil, err
	}
	if err := parseDynamic(img); err != nil {
		return nil, err
	}
	return img, nil
}

func parseSegments(img *entities.ExecutableImage) error {
	le := binary.LittleEndian
	raw := img.Raw
	img.Segments = make([]entities.ProgramSegment, img.Header.PhNum)
	for i := range img.Segments {
		off := img.Header.PhOff + uint64(i)*entities.ProgramHeaderSize
		img.Segments[i] = entities.ProgramSegment{
			Type:         le.Uint32(raw[off:]),
			Flags:        le.Uint32(raw[off+4:]),
			Offset:       le.Uint64(raw[off+8:]),
			Vaddr:        le.Uint64(raw[off+16:]),
			Paddr:        le.Uint64(raw[off+24:]),
			Filesz:       le.Uint64(raw[off+32:]),
			Memsz:        le.Uint64(raw[off+40:]),
			Align:        le.Uint64(raw[off+48:]),
			HeaderOffset: off,
		}
		s := img.Segments[i]
		if s.Offset+s.Filesz > uint64(len(raw)) || s.Offset+s.Filesz < s.Offset {
			return fmt.Errorf("segment %d file range [%d,%d) outside image", i, s.Offset, s.Offset+s.Filesz)
		}
	}

	// Load segments must not overlap in the file.
	for i := range img.Segments {
		if img.Segments[i].Type != entities.PtLoad {
			continue
		}
		for j := i + 1; j < len(img.Segments); j++ {
			if img.Segments[j].Type != entities.PtLoad {
				continue
			}
			a, b := img.Segments[i], img.Segments[j]
			if a.Filesz == 0 || b.Filesz == 0 {
				continue
			}
			if a.Offset < b.Offset+b.Filesz && b.Offset < a.Offset+a.Filesz {
				return fmt.Errorf("load segments %d and %d overlap", i, j)
			}
		}
	}
	return nil
}

func parseProcParam(img *entities.ExecutableImage) error {
	le := binary.LittleEndian
	for _, s := range img.Segments {
		if s.Type != entities.PtProcParam && s.Type != entities.PtModuleParam {
			continue
		}
		if s.Filesz < entities.ProcParamSize {
			return fmt.Errorf("param segment is %d bytes, want at least %d", s.Filesz, entities.ProcParamSize)
		}
		raw := img.Raw
		pp := &entities.ProcessParam{
			Size:         le.Uint64(raw[s.Offset:]),
			Magic:        le.Uint32(raw[s.Offset+8:]),
			ParamVersion: le.Uint32(raw[s.Offset+12:]),
			SdkVersion:   le.Uint32(raw[s.Offset+16:]),
			Reserved:     le.Uint32(raw[s.Offset+20:]),
			Offset:       s.Offset,
		}
		if pp.Magic != entities.ProcParamMagic {
			return fmt.Errorf("param block magic 0x%08X, want 0x%08X", pp.Magic, entities.ProcParamMagic)
		}
		img.ProcParam = pp
		return nil
	}
	return nil // param block is optional; images without one have no declared SDK version
}

func parseDynamic(img *entities.ExecutableImage) error {
	le := binary.LittleEndian
	var dyn *entities.ProgramSegment
	for i := range img.Segments {
		if img.Segments[i].Type == entities.PtDynamic {
			dyn = &img.Segments[i]
			break
		}
	}
	if dyn == nil {
		return nil
	}
	if dyn.Filesz%entities.DynamicEntrySize != 0 {
		return fmt.Errorf("dynamic segment size %d is not a multiple of %d", dyn.Filesz, entities.DynamicEntrySize)
	}

	count := int(dyn.Filesz / entities.DynamicEntrySize)
	if count == 0 {
		return fmt.Errorf("dynamic segment declares no entries")
	}
	raw := img.Raw
	img.Dynamic = make([]entities.DynamicEntry, count)
	for i := 0; i < count; i++ {
		off := dyn.Offset + uint64(i)*entities.DynamicEntrySize
		img.Dynamic[i] = entities.DynamicEntry{
			Tag:    int64(le.Uint64(raw[off:])),
			Val:    le.Uint64(raw[off+8:]),
			Offset: off,
		}
	}
	if img.Dynamic[count-1].Tag != entities.DtNull {
		return fmt.Errorf("dynamic section does not terminate with a null entry")
	}

	return decodeLibraries(img)
}

func decodeLibraries(img *entities.ExecutableImage) error {
	var strtabVaddr, strtabSize uint64
	for _, e := range img.Dynamic {
		switch e.Tag {
		case entities.DtStrtab:
			strtabVaddr = e.Val
		case entities.DtStrsz:
			strtabSize = e.Val
		}
	}

	for i, e := range img.Dynamic {
		if e.Tag != entities.DtNeededModule {
			continue
		}
		dep := entities.LibraryDependency{
			ModuleID:     uint16(e.Val >> 48),
			VersionMajor: uint8(e.Val >> 40),
			VersionMinor: uint8(e.Val >> 32),
			EntryIndex:   i,
		}
		nameOff := e.Val & 0xFFFFFFFF
		if strtabVaddr != 0 {
			name, err := readString(img, strtabVaddr, strtabSize, nameOff)
			if err != nil {
				return fmt.Errorf("needed-module entry %d: %w", i, err)
			}
			dep.Name = name
		}
		img.Libraries = append(img.Libraries, dep)
	}
	return nil
}

func readString(img *entities.ExecutableImage, strtabVaddr, strtabSize, nameOff uint64) (string, error) {
	fileOff, ok := vaddrToOffset(img, strtabVaddr)
	if !ok {
		return "", fmt.Errorf("string table vaddr 0x%X not covered by any load segment", strtabVaddr)
	}
	if nameOff >= strtabSize {
		return "", fmt.Errorf("name offset %d outside string table of %d bytes", nameOff, strtabSize)
	}
	// fileOff is inside Raw, so the subtraction cannot wrap. Comparing the
	// declared size against the remaining bytes keeps a huge size from
	// overflowing fileOff+strtabSize.
	if strtabSize > uint64(len(img.Raw))-fileOff {
		return "", fmt.Errorf("string table extends past image end")
	}
	data := img.Raw[fileOff+nameOff : fileOff+strtabSize]
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return string(data[:i]), nil
	}
	return "", fmt.Errorf("unterminated string at table offset %d", nameOff)
}

func vaddrToOffset(img *entities.ExecutableImage, vaddr uint64) (uint64, bool) {
	for _, s := range img.Segments {
		if s.Type != entities.PtLoad {
			continue
		}
		if vaddr >= s.Vaddr && vaddr < s.Vaddr+s.Filesz {
			return s.Offset + (vaddr - s.Vaddr), true
		}
	}
	return 0, false
}
