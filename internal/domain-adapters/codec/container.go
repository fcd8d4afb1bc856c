// Package codec parses and serializes the signed-container format and the
// executable-image format it wraps. Parsing is offset-exact: a container or
// image that violates any size invariant is rejected rather than repaired.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/domain/interfaces/gateways"
)

// Codec unwraps containers into executable images and wraps images back
// into containers. The zero value is not usable; construct with NewCodec.
type Codec struct {
	unlocker gateways.SegmentUnlocker
}

// NewCodec creates a codec. The unlocker is the injected decryption
// capability used for encrypted segments; it may be nil, in which case any
// encrypted segment fails with a DecryptionError.
func NewCodec(unlocker gateways.SegmentUnlocker) *Codec {
	return &Codec{unlocker: unlocker}
}

// Unwrap validates a container and extracts the embedded executable image
// and identity region. Structural violations yield MalformedContainerError;
// unlock failures yield DecryptionError.
func (c *Codec) Unwrap(data []byte) (*entities.ExecutableImage, *entities.FakeIdentity, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, nil, err
	}

	identity := decodeIdentity(data[hdr.HeaderSize:])

	segs, err := parseSegmentTable(data, hdr)
	if err != nil {
		return nil, nil, err
	}

	payload, err := c.extractPayload(data, segs)
	if err != nil {
		return nil, nil, err
	}

	img, err := ParseExecutable(payload)
	if err != nil {
		return nil, nil, &entities.MalformedContainerError{
			Reason: fmt.Sprintf("payload is not a valid executable image: %v", err),
		}
	}

	return img, identity, nil
}

// Wrap lays out a new container around an executable image: fixed header,
// identity region, a single code segment descriptor, and the image bytes.
// Output is byte-for-byte deterministic for identical inputs.
func (c *Codec) Wrap(img *entities.ExecutableImage, identity *entities.FakeIdentity) ([]byte, error) {
	if len(img.Raw) == 0 {
		return nil, fmt.Errorf("cannot wrap empty image")
	}

	metaSize := entities.IdentitySize + entities.SegmentDescriptorSize
	payloadOffset := entities.ContainerHeaderSize + metaSize
	fileSize := uint64(payloadOffset) + uint64(len(img.Raw))

	hdr := entities.ContainerHeader{
		Magic:        entities.ContainerMagic,
		Version:      entities.ContainerVersion,
		Endian:       1,
		KeyType:      1, // fake key type tag; nothing is actually keyed
		HeaderSize:   entities.ContainerHeaderSize,
		MetaSize:     uint16(metaSize),
		FileSize:     fileSize,
		SegmentCount: 1,
	}

	seg := entities.SegmentDescriptor{
		Flags:    entities.SegmentFlags(entities.SegmentKindCode, false, false),
		Offset:   uint64(payloadOffset),
		FileSize: uint64(len(img.Raw)),
		MemSize:  uint64(len(img.Raw)),
	}

	var buf bytes.Buffer
	buf.Grow(int(fileSize))
	writeHeader(&buf, hdr)
	writeIdentity(&buf, identity)
	writeSegmentDescriptor(&buf, seg)
	buf.Write(img.Raw)

	return buf.Bytes(), nil
}

func parseHeader(data []byte) (entities.ContainerHeader, error) {
	var hdr entities.ContainerHeader
	if len(data) < entities.ContainerHeaderSize+entities.IdentitySize {
		return hdr, &entities.MalformedContainerError{Reason: "truncated header"}
	}

	le := binary.LittleEndian
	hdr.Magic = le.Uint32(data[0:])
	hdr.Version = data[4]
	hdr.Mode = data[5]
	hdr.Endian = data[6]
	hdr.Attributes = data[7]
	hdr.KeyType = le.Uint32(data[8:])
	hdr.HeaderSize = le.Uint16(data[12:])
	hdr.MetaSize = le.Uint16(data[14:])
	hdr.FileSize = le.Uint64(data[16:])
	hdr.SegmentCount = le.Uint16(data[24:])
	hdr.Flags = le.Uint16(data[26:])
	hdr.Reserved = le.Uint32(data[28:])

	if hdr.Magic != entities.ContainerMagic && hdr.Magic != entities.ContainerMagicAlt {
		return hdr, &entities.MalformedContainerError{
			Reason: fmt.Sprintf("bad magic 0x%08X", hdr.Magic),
		}
	}
	if hdr.Version != entities.ContainerVersion {
		return hdr, &entities.MalformedContainerError{
			Reason: fmt.Sprintf("unsupported format version %d", hdr.Version),
		}
	}
	if hdr.FileSize != uint64(len(data)) {
		return hdr, &entities.MalformedContainerError{
			Reason: fmt.Sprintf("declared file size %d does not match actual %d", hdr.FileSize, len(data)),
		}
	}
	if hdr.SegmentCount == 0 {
		return hdr, &entities.MalformedContainerError{Reason: "segment count is zero"}
	}
	if hdr.HeaderSize < entities.ContainerHeaderSize {
		return hdr, &entities.MalformedContainerError{
			Reason: fmt.Sprintf("header size %d below minimum", hdr.HeaderSize),
		}
	}
	minMeta := entities.IdentitySize + int(hdr.SegmentCount)*entities.SegmentDescriptorSize
	if int(hdr.MetaSize) < minMeta {
		return hdr, &entities.MalformedContainerError{
			Reason: fmt.Sprintf("metadata size %d too small for %d segments", hdr.MetaSize, hdr.SegmentCount),
		}
	}
	if uint64(hdr.HeaderSize)+uint64(hdr.MetaSize) > hdr.FileSize {
		return hdr, &entities.MalformedContainerError{Reason: "header and metadata exceed declared file size"}
	}

	return hdr, nil
}

func parseSegmentTable(data []byte, hdr entities.ContainerHeader) ([]entities.SegmentDescriptor, error) {
	le := binary.LittleEndian
	tableStart := int(hdr.HeaderSize) + entities.IdentitySize
	dataStart := uint64(hdr.HeaderSize) + uint64(hdr.MetaSize)

	segs := make([]entities.SegmentDescriptor, hdr.SegmentCount)
	var storedTotal uint64
	for i := range segs {
		off := tableStart + i*entities.SegmentDescriptorSize
		segs[i] = entities.SegmentDescriptor{
			Flags:    le.Uint64(data[off:]),
			Offset:   le.Uint64(data[off+8:]),
			FileSize: le.Uint64(data[off+16:]),
			MemSize:  le.Uint64(data[off+24:]),
		}
		s := segs[i]
		if s.Offset < dataStart || s.Offset+s.FileSize > hdr.FileSize || s.Offset+s.FileSize < s.Offset {
			return nil, &entities.MalformedContainerError{
				Reason: fmt.Sprintf("segment %d range [%d,%d) outside container bounds", i, s.Offset, s.Offset+s.FileSize),
			}
		}
		storedTotal += s.FileSize
	}

	if uint64(hdr.HeaderSize)+uint64(hdr.MetaSize)+storedTotal > hdr.FileSize {
		return nil, &entities.MalformedContainerError{Reason: "segment sizes exceed declared file size"}
	}

	// Segments must not overlap each other.
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			a, b := segs[i], segs[j]
			if a.FileSize == 0 || b.FileSize == 0 {
				continue
			}
			if a.Offset < b.Offset+b.FileSize && b.Offset < a.Offset+a.FileSize {
				return nil, &entities.MalformedContainerError{
					Reason: fmt.Sprintf("segments %d and %d overlap", i, j),
				}
			}
		}
	}

	return segs, nil
}

// extractPayload concatenates the plaintext of every code/data segment in
// table order. Metadata segments are not part of the payload.
func (c *Codec) extractPayload(data []byte, segs []entities.SegmentDescriptor) ([]byte, error) {
	var payload []byte
	for i, s := range segs {
		if k := s.Kind(); k != entities.SegmentKindCode && k != entities.SegmentKindData {
			continue
		}
		stored := data[s.Offset : s.Offset+s.FileSize]

		switch {
		case s.IsEncrypted():
			if c.unlocker == nil {
				return nil, &entities.DecryptionError{
					Segment: i,
					Err:     fmt.Errorf("no segment unlock capability configured"),
				}
			}
			plain, err := c.unlocker.Unlock(i, s, stored)
			if err != nil {
				return nil, &entities.DecryptionError{Segment: i, Err: err}
			}
			if uint64(len(plain)) != s.MemSize {
				return nil, &entities.DecryptionError{
					Segment: i,
					Err:     fmt.Errorf("unlocked %d bytes, expected %d", len(plain), s.MemSize),
				}
			}
			payload = append(payload, plain...)
		case s.IsCompressed():
			// Plain compressed segments only appear in containers this
			// pipeline never produces; the unlock capability owns inflation.
			return nil, &entities.MalformedContainerError{
				Reason: fmt.Sprintf("segment %d: compressed plaintext segments are not supported", i),
			}
		default:
			if s.FileSize != s.MemSize {
				return nil, &entities.MalformedContainerError{
					Reason: fmt.Sprintf("segment %d: stored size %d inconsistent with plain size %d", i, s.FileSize, s.MemSize),
				}
			}
			payload = append(payload, stored...)
		}
	}
	if len(payload) == 0 {
		return nil, &entities.MalformedContainerError{Reason: "container carries no payload segments"}
	}
	return payload, nil
}

func decodeIdentity(data []byte) *entities.FakeIdentity {
	le := binary.LittleEndian
	id := &entities.FakeIdentity{
		Paid:        le.Uint64(data[0:]),
		PType:       entities.ProgramType(le.Uint64(data[8:])),
		AppVersion:  le.Uint64(data[16:]),
		FwVersion:   le.Uint64(data[24:]),
		PlatformSdk: le.Uint32(data[32:]),
		ExecSdk:     le.Uint32(data[36:]),
	}
	copy(id.Digest[:], data[40:72])
	return id
}

func writeHeader(buf *bytes.Buffer, hdr entities.ContainerHeader) {
	var b [entities.ContainerHeaderSize]byte
	le := binary.LittleEndian
	le.PutUint32(b[0:], hdr.Magic)
	b[4] = hdr.Version
	b[5] = hdr.Mode
	b[6] = hdr.Endian
	b[7] = hdr.Attributes
	le.PutUint32(b[8:], hdr.KeyType)
	le.PutUint16(b[12:], hdr.HeaderSize)
	le.PutUint16(b[14:], hdr.MetaSize)
	le.PutUint64(b[16:], hdr.FileSize)
	le.PutUint16(b[24:], hdr.SegmentCount)
	le.PutUint16(b[26:], hdr.Flags)
	le.PutUint32(b[28:], hdr.Reserved)
	buf.Write(b[:])
}

func writeIdentity(buf *bytes.Buffer, id *entities.FakeIdentity) {
	var b [entities.IdentitySize]byte
	le := binary.LittleEndian
	le.PutUint64(b[0:], id.Paid)
	le.PutUint64(b[8:], uint64(id.PType))
	le.PutUint64(b[16:], id.AppVersion)
	le.PutUint64(b[24:], id.FwVersion)
	le.PutUint32(b[32:], id.PlatformSdk)
	le.PutUint32(b[36:], id.ExecSdk)
	copy(b[40:72], id.Digest[:])
	buf.Write(b[:])
}

func writeSegmentDescriptor(buf *bytes.Buffer, s entities.SegmentDescriptor) {
	var b [entities.SegmentDescriptorSize]byte
	le := binary.LittleEndian
	le.PutUint64(b[0:], s.Flags)
	le.PutUint64(b[8:], s.Offset)
	le.PutUint64(b[16:], s.FileSize)
	le.PutUint64(b[24:], s.MemSize)
	buf.Write(b[:])
}
