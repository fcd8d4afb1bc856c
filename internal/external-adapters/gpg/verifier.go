// Package gpg provides GPG signature verification for fakelib manifests.
package gpg

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Verifier checks detached GPG signatures over fakelib manifests using
// ProtonMail's go-crypto, a maintained fork of golang.org/x/crypto/openpgp.
// Keys are imported from local files; this module never fetches key
// material over the network.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a new GPG verifier with an empty keyring.
func NewVerifier() *Verifier {
	return &Verifier{keyring: make(openpgp.EntityList, 0)}
}

// ImportKeyFromFile imports a GPG public key from a file, armored or binary.
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for GPG key import
	f, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// Try reading as binary
		if _, seekErr := f.Seek(0, 0); seekErr != nil {
			return fmt.Errorf("failed to reset file: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(entities) == 0 {
		return fmt.Errorf("no keys found in file")
	}

	v.keyring = append(v.keyring, entities...)
	return nil
}

// VerifyDetached verifies a detached signature file over a signed file.
// Armored signatures are tried first, binary second.
func (v *Verifier) VerifyDetached(signedPath, sigPath string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no GPG keys imported, call ImportKeyFromFile first")
	}

	//nolint:gosec // G304: signedPath is the configured manifest path
	signed, err := os.Open(signedPath)
	if err != nil {
		return fmt.Errorf("failed to open signed file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer signed.Close()

	//nolint:gosec // G304: sigPath is the configured signature path
	sig, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer sig.Close()

	config := &packet.Config{}
	if _, err := openpgp.CheckArmoredDetachedSignature(v.keyring, signed, sig, config); err == nil {
		return nil
	}

	// Rewind and retry as a binary signature.
	if _, err := signed.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset signed file: %w", err)
	}
	if _, err := sig.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to reset signature file: %w", err)
	}
	if _, err := openpgp.CheckDetachedSignature(v.keyring, signed, sig, config); err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}
