package services

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Nazky/Auto-Backpork/internal/domain-adapters/codec"
	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
	"github.com/Nazky/Auto-Backpork/internal/testutil"
)

func TestSignStampsForgedIdentity(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{SdkVersion: 0x04000031})
	wrapper := codec.NewCodec(nil)
	signer := NewFakeSigner(NewSdkVersionTable(), wrapper)

	out, err := signer.Sign(img, 4, entities.DefaultPaid, entities.ProgramTypeFake)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	got, identity, err := wrapper.Unwrap(out)
	if err != nil {
		t.Fatalf("produced container does not unwrap: %v", err)
	}
	if !bytes.Equal(got.Raw, img.Raw) {
		t.Error("signing altered the executable bytes")
	}
	if identity.Paid != entities.DefaultPaid {
		t.Errorf("Paid = 0x%016X, want 0x%016X", identity.Paid, entities.DefaultPaid)
	}
	if identity.PType != entities.ProgramTypeFake {
		t.Errorf("PType = 0x%X, want 0x%X", identity.PType, entities.ProgramTypeFake)
	}
	if identity.PlatformSdk != 0x04000031 || identity.ExecSdk != 0x09040001 {
		t.Errorf("identity SDK fields = (0x%08X, 0x%08X), want pair 4 values",
			identity.PlatformSdk, identity.ExecSdk)
	}
	if identity.Digest != [32]byte{} {
		t.Error("forged identity carries a nonzero digest")
	}
}

func TestSignRoundTripsIdentityForPair7(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{SdkVersion: 0x04000031})
	wrapper := codec.NewCodec(nil)
	signer := NewFakeSigner(NewSdkVersionTable(), wrapper)

	out, err := signer.Sign(img, 7, 0x3100000000000002, entities.ProgramTypeFake)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	_, identity, err := wrapper.Unwrap(out)
	if err != nil {
		t.Fatalf("produced container does not unwrap: %v", err)
	}
	if identity.Paid != 0x3100000000000002 {
		t.Errorf("Paid = 0x%016X, want 0x3100000000000002", identity.Paid)
	}
	if identity.PType != entities.ProgramTypeFake {
		t.Errorf("PType = 0x%X, want 0x1", identity.PType)
	}
	if identity.PlatformSdk != 0x06000031 || identity.ExecSdk != 0x10000001 {
		t.Errorf("identity SDK fields = (0x%08X, 0x%08X), want pair 7 values",
			identity.PlatformSdk, identity.ExecSdk)
	}
}

func TestSignIsDeterministic(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{SdkVersion: 0x04000031})
	signer := NewFakeSigner(NewSdkVersionTable(), codec.NewCodec(nil))

	a, err := signer.Sign(img, 4, entities.DefaultPaid, entities.ProgramTypeFake)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	b, err := signer.Sign(img, 4, entities.DefaultPaid, entities.ProgramTypeFake)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two signs of the same image differ")
	}
}

func TestSignRejectsUnknownPair(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{SdkVersion: 0x04000031})
	signer := NewFakeSigner(NewSdkVersionTable(), codec.NewCodec(nil))

	_, err := signer.Sign(img, 42, entities.DefaultPaid, entities.ProgramTypeFake)
	var unsupported *entities.UnsupportedSdkPairError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Sign() error = %v, want UnsupportedSdkPairError", err)
	}
}

func TestSignRejectsUnknownProgramType(t *testing.T) {
	img := buildImage(t, testutil.ExecSpec{SdkVersion: 0x04000031})
	signer := NewFakeSigner(NewSdkVersionTable(), codec.NewCodec(nil))

	_, err := signer.Sign(img, 4, entities.DefaultPaid, entities.ProgramType(0x7))
	var buildErr *entities.SignatureBuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Sign() error = %v, want SignatureBuildError", err)
	}
}
