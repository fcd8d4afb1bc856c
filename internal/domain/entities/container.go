// Package entities defines core domain models and data structures.
package entities

// Container format constants. All multi-byte fields are little-endian.
const (
	// ContainerMagic is the magic written to every produced container.
	ContainerMagic uint32 = 0x1D3D154F
	// ContainerMagicAlt is the second magic accepted on parse; it tags
	// containers produced by newer platform toolchains.
	ContainerMagicAlt uint32 = 0xEEF51454

	ContainerVersion uint8 = 0x01

	ContainerHeaderSize   = 32
	IdentitySize          = 72
	SegmentDescriptorSize = 32
)

// Segment flag bits and kind values.
const (
	SegmentCompressed uint64 = 1 << 0
	SegmentEncrypted  uint64 = 1 << 1

	segmentKindShift = 4
	segmentKindMask  = 0xF
)

// SegmentKind classifies a container segment.
type SegmentKind uint8

const (
	SegmentKindCode     SegmentKind = 1
	SegmentKindData     SegmentKind = 2
	SegmentKindMetadata SegmentKind = 3
)

// ContainerHeader is the fixed 32-byte header at the start of a container.
type ContainerHeader struct {
	Magic        uint32
	Version      uint8
	Mode         uint8
	Endian       uint8
	Attributes   uint8
	KeyType      uint32
	HeaderSize   uint16
	MetaSize     uint16
	FileSize     uint64
	SegmentCount uint16
	Flags        uint16
	Reserved     uint32
}

// SegmentDescriptor describes one payload segment inside a container.
type SegmentDescriptor struct {
	Flags    uint64
	Offset   uint64
	FileSize uint64 // stored size in the container
	MemSize  uint64 // size after decompression/decryption
}

// Kind extracts the segment kind from the flags word.
func (d SegmentDescriptor) Kind() SegmentKind {
	return SegmentKind((d.Flags >> segmentKindShift) & segmentKindMask)
}

// IsCompressed reports whether the stored bytes are compressed.
func (d SegmentDescriptor) IsCompressed() bool {
	return d.Flags&SegmentCompressed != 0
}

// IsEncrypted reports whether the stored bytes are encrypted.
func (d SegmentDescriptor) IsEncrypted() bool {
	return d.Flags&SegmentEncrypted != 0
}

// SegmentFlags builds a flags word from a kind and the compressed/encrypted bits.
func SegmentFlags(kind SegmentKind, compressed, encrypted bool) uint64 {
	flags := uint64(kind) << segmentKindShift
	if compressed {
		flags |= SegmentCompressed
	}
	if encrypted {
		flags |= SegmentEncrypted
	}
	return flags
}

// Container is the parsed view of a container file: header, identity
// region, segment table, and the raw segment payloads keyed by table index.
type Container struct {
	Header   ContainerHeader
	Identity FakeIdentity
	Segments []SegmentDescriptor
}
