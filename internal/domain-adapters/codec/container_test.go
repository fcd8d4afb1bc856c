package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/testutil"
)

func TestUnwrapPlainContainer(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{SdkVersion: 0x04000031})
	identity := &entities.FakeIdentity{
		Paid:        entities.DefaultPaid,
		PType:       entities.ProgramTypeFake,
		PlatformSdk: 0x04000031,
		ExecSdk:     0x09040001,
	}
	container := testutil.BuildContainer(identity,
		testutil.SegSpec{Kind: entities.SegmentKindCode, Data: payload})

	img, gotID, err := NewCodec(nil).Unwrap(container)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !bytes.Equal(img.Raw, payload) {
		t.Error("unwrapped payload differs from the original executable")
	}
	if gotID.Paid != identity.Paid {
		t.Errorf("Paid = 0x%016X, want 0x%016X", gotID.Paid, identity.Paid)
	}
	if gotID.PType != identity.PType {
		t.Errorf("PType = 0x%X, want 0x%X", gotID.PType, identity.PType)
	}
	if gotID.PlatformSdk != identity.PlatformSdk || gotID.ExecSdk != identity.ExecSdk {
		t.Errorf("identity SDK fields = (0x%08X, 0x%08X), want (0x%08X, 0x%08X)",
			gotID.PlatformSdk, gotID.ExecSdk, identity.PlatformSdk, identity.ExecSdk)
	}
}

func TestUnwrapMultiSegment(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{SdkVersion: 0x04000031})
	split := len(payload) / 2
	container := testutil.BuildContainer(nil,
		testutil.SegSpec{Kind: entities.SegmentKindCode, Data: payload[:split]},
		testutil.SegSpec{Kind: entities.SegmentKindData, Data: payload[split:]},
		testutil.SegSpec{Kind: entities.SegmentKindMetadata, Data: []byte("not part of the payload")})

	img, _, err := NewCodec(nil).Unwrap(container)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !bytes.Equal(img.Raw, payload) {
		t.Error("payload reassembled from code and data segments differs from original")
	}
}

func TestUnwrapEncryptedSegment(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{SdkVersion: 0x04000031})
	container := testutil.BuildContainer(nil,
		testutil.SegSpec{Kind: entities.SegmentKindCode, Encrypted: true, Data: testutil.XorBytes(payload)})

	img, _, err := NewCodec(testutil.XorUnlocker{}).Unwrap(container)
	if err != nil {
		t.Fatalf("Unwrap() error = %v", err)
	}
	if !bytes.Equal(img.Raw, payload) {
		t.Error("unlocked payload differs from the original executable")
	}
}

func TestUnwrapEncryptedWithoutUnlocker(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{})
	container := testutil.BuildContainer(nil,
		testutil.SegSpec{Kind: entities.SegmentKindCode, Encrypted: true, Data: testutil.XorBytes(payload)})

	_, _, err := NewCodec(nil).Unwrap(container)
	var decErr *entities.DecryptionError
	if !errors.As(err, &decErr) {
		t.Fatalf("Unwrap() error = %v, want DecryptionError", err)
	}
}

type failingUnlocker struct{}

func (failingUnlocker) Unlock(int, entities.SegmentDescriptor, []byte) ([]byte, error) {
	return nil, fmt.Errorf("key material rejected")
}

func TestUnwrapUnlockerFailure(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{})
	container := testutil.BuildContainer(nil,
		testutil.SegSpec{Kind: entities.SegmentKindCode, Encrypted: true, Data: testutil.XorBytes(payload)})

	_, _, err := NewCodec(failingUnlocker{}).Unwrap(container)
	var decErr *entities.DecryptionError
	if !errors.As(err, &decErr) {
		t.Fatalf("Unwrap() error = %v, want DecryptionError", err)
	}
	if decErr.Segment != 0 {
		t.Errorf("failed segment = %d, want 0", decErr.Segment)
	}
	if !strings.Contains(err.Error(), "key material rejected") {
		t.Errorf("error %q does not carry the unlocker failure", err)
	}
}

func TestUnwrapRejectsMalformed(t *testing.T) {
	valid := func() []byte {
		payload := testutil.BuildExecutable(testutil.ExecSpec{SdkVersion: 0x04000031})
		return testutil.BuildContainer(nil,
			testutil.SegSpec{Kind: entities.SegmentKindCode, Data: payload})
	}
	le := binary.LittleEndian

	tests := []struct {
		name    string
		mutate  func(raw []byte) []byte
		wantMsg string
	}{
		{
			name: "bad magic",
			mutate: func(raw []byte) []byte {
				le.PutUint32(raw[0:], 0x12345678)
				return raw
			},
			wantMsg: "bad magic",
		},
		{
			name: "unsupported version",
			mutate: func(raw []byte) []byte {
				raw[4] = 9
				return raw
			},
			wantMsg: "version",
		},
		{
			name: "declared size beyond actual",
			mutate: func(raw []byte) []byte {
				le.PutUint64(raw[16:], uint64(len(raw))+100)
				return raw
			},
			wantMsg: "file size",
		},
		{
			name: "truncated file",
			mutate: func(raw []byte) []byte {
				return raw[:len(raw)-1]
			},
			wantMsg: "file size",
		},
		{
			name: "zero segments",
			mutate: func(raw []byte) []byte {
				le.PutUint16(raw[24:], 0)
				return raw
			},
			wantMsg: "segment count",
		},
		{
			name: "metadata too small for segment table",
			mutate: func(raw []byte) []byte {
				le.PutUint16(raw[24:], 4)
				return raw
			},
			wantMsg: "metadata size",
		},
		{
			name: "segment outside bounds",
			mutate: func(raw []byte) []byte {
				descOff := entities.ContainerHeaderSize + entities.IdentitySize
				le.PutUint64(raw[descOff+8:], uint64(len(raw)))
				return raw
			},
			wantMsg: "outside container bounds",
		},
		{
			name: "stored and plain size disagree",
			mutate: func(raw []byte) []byte {
				descOff := entities.ContainerHeaderSize + entities.IdentitySize
				le.PutUint64(raw[descOff+24:], 7)
				return raw
			},
			wantMsg: "inconsistent",
		},
		{
			name: "payload not an executable",
			mutate: func(raw []byte) []byte {
				dataStart := entities.ContainerHeaderSize + entities.IdentitySize + entities.SegmentDescriptorSize
				raw[dataStart] = 0x00
				return raw
			},
			wantMsg: "not a valid executable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.mutate(valid())
			_, _, err := NewCodec(nil).Unwrap(raw)
			var malformed *entities.MalformedContainerError
			if !errors.As(err, &malformed) {
				t.Fatalf("Unwrap() error = %v, want MalformedContainerError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestUnwrapRejectsOverlappingSegments(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{SdkVersion: 0x04000031})
	split := len(payload) / 2
	raw := testutil.BuildContainer(nil,
		testutil.SegSpec{Kind: entities.SegmentKindCode, Data: payload[:split]},
		testutil.SegSpec{Kind: entities.SegmentKindData, Data: payload[split:]})

	// Point the second descriptor into the first segment's range.
	descOff := entities.ContainerHeaderSize + entities.IdentitySize + entities.SegmentDescriptorSize
	first := binary.LittleEndian.Uint64(raw[entities.ContainerHeaderSize+entities.IdentitySize+8:])
	binary.LittleEndian.PutUint64(raw[descOff+8:], first+1)

	_, _, err := NewCodec(nil).Unwrap(raw)
	var malformed *entities.MalformedContainerError
	if !errors.As(err, &malformed) {
		t.Fatalf("Unwrap() error = %v, want MalformedContainerError", err)
	}
	if !strings.Contains(err.Error(), "overlap") {
		t.Errorf("error = %q, want it to mention overlap", err)
	}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{
		SdkVersion:    0x04000031,
		MinSdkVersion: 0x09040001,
		Libraries:     []testutil.LibSpec{{Name: "libc.sprx", ModuleID: 2, Major: 1, Minor: 1}},
	})
	img, err := ParseExecutable(payload)
	if err != nil {
		t.Fatalf("ParseExecutable() error = %v", err)
	}
	identity := &entities.FakeIdentity{
		Paid:        entities.DefaultPaid,
		PType:       entities.ProgramTypeFake,
		PlatformSdk: 0x04000031,
		ExecSdk:     0x09040001,
	}

	codec := NewCodec(nil)
	wrapped, err := codec.Wrap(img, identity)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}

	got, gotID, err := codec.Unwrap(wrapped)
	if err != nil {
		t.Fatalf("Unwrap() of wrapped container error = %v", err)
	}
	if !bytes.Equal(got.Raw, payload) {
		t.Error("round trip altered the executable bytes")
	}
	if gotID.Paid != identity.Paid || gotID.PType != identity.PType {
		t.Errorf("round trip identity = %+v, want %+v", gotID, identity)
	}
	if gotID.Digest != [32]byte{} {
		t.Error("wrapped identity carries a nonzero digest")
	}
}

func TestWrapIsDeterministic(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{SdkVersion: 0x04000031})
	img, err := ParseExecutable(payload)
	if err != nil {
		t.Fatalf("ParseExecutable() error = %v", err)
	}
	identity := &entities.FakeIdentity{Paid: entities.DefaultPaid, PType: entities.ProgramTypeFake}

	codec := NewCodec(nil)
	a, err := codec.Wrap(img, identity)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	b, err := codec.Wrap(img, identity)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two wraps of the same image differ")
	}
}

func TestUnwrapAcceptsAltMagic(t *testing.T) {
	payload := testutil.BuildExecutable(testutil.ExecSpec{SdkVersion: 0x04000031})
	raw := testutil.BuildContainer(nil,
		testutil.SegSpec{Kind: entities.SegmentKindCode, Data: payload})
	binary.LittleEndian.PutUint32(raw[0:], entities.ContainerMagicAlt)

	if _, _, err := NewCodec(nil).Unwrap(raw); err != nil {
		t.Fatalf("Unwrap() rejected the alternate magic: %v", err)
	}
}
