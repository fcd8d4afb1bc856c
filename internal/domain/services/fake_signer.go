package services

import (
	"fmt"

	"github.com/Nazky/Auto-Backpork/internal/domain/entities"
)

// ContainerWrapper serializes an image and identity into container bytes.
type ContainerWrapper interface {
	Wrap(img *entities.ExecutableImage, identity *entities.FakeIdentity) ([]byte, error)
}

// FakeSigner builds a forged identity block and re-wraps a patched image
// into an output container. No real proof is computed: the result is only
// accepted by a loader with signature verification disabled.
type FakeSigner struct {
	table   *SdkVersionTable
	wrapper ContainerWrapper
}

// NewFakeSigner creates a fake signer.
func NewFakeSigner(table *SdkVersionTable, wrapper ContainerWrapper) *FakeSigner {
	return &FakeSigner{table: table, wrapper: wrapper}
}

// Sign wraps the image in a container carrying the forged identity. It
// fails only on identity range validation (unknown ptype, unknown SDK
// pair); the image's content never makes signing fail. Output is
// deterministic for identical inputs.
func (s *FakeSigner) Sign(img *entities.ExecutableImage, pairID int, paid uint64, ptype entities.ProgramType) ([]byte, error) {
	pair, err := s.table.Resolve(pairID)
	if err != nil {
		return nil, err
	}
	if !ptype.Valid() {
		return nil, &entities.SignatureBuildError{
			Reason: fmt.Sprintf("program type 0x%X outside the known set", uint64(ptype)),
		}
	}

	identity := &entities.FakeIdentity{
		Paid:        paid,
		PType:       ptype,
		PlatformSdk: pair.PlatformVersion,
		ExecSdk:     pair.ExecutableVersion,
	}
	return s.wrapper.Wrap(img, identity)
}
