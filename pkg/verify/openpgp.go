// Package verify implements the OpenPGP signature backend injected into
// the metadata fetcher (spec §4.1): it is an external collaborator the
// fetch pipeline depends on only through the Verifier interface, so the
// backend can be swapped without touching fetch logic.
package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/debstrap/debstrap/internal/bserror"
)

// Verifier checks a signed document against a trusted keyring.
type Verifier interface {
	// VerifyClearsigned checks an inline-signed document (InRelease) and
	// returns the cleartext payload on success.
	VerifyClearsigned(signed []byte, keyringPath string) ([]byte, error)
	// VerifyDetached checks a detached signature (Release + Release.gpg)
	// over the given payload.
	VerifyDetached(payload, signature []byte, keyringPath string) error
}

// OpenPGPVerifier is the production Verifier backed by
// github.com/ProtonMail/go-crypto/openpgp, the maintained fork of the
// deprecated golang.org/x/crypto/openpgp.
type OpenPGPVerifier struct{}

var _ Verifier = OpenPGPVerifier{}

func (OpenPGPVerifier) VerifyClearsigned(signed []byte, keyringPath string) ([]byte, error) {
	block, _ := clearsign.Decode(signed)
	if block == nil {
		return nil, bserror.Wrapf(bserror.Verification, "", "not a clearsigned document")
	}

	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return nil, err
	}

	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body, nil); err != nil {
		return nil, bserror.New(bserror.Verification, keyringPath, fmt.Errorf("clearsign signature check failed: %w", err))
	}
	return block.Plaintext, nil
}

func (OpenPGPVerifier) VerifyDetached(payload, signature []byte, keyringPath string) error {
	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return err
	}
	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(payload), bytes.NewReader(signature), nil); err != nil {
		return bserror.New(bserror.Verification, keyringPath, fmt.Errorf("detached signature check failed: %w", err))
	}
	return nil
}

func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, bserror.New(bserror.Config, path, fmt.Errorf("opening maintainer keyring: %w", err))
	}
	defer f.Close()

	keyring, err := openpgp.ReadKeyRing(f)
	if err != nil {
		// keyrings are sometimes distributed armored rather than binary
		if _, serr := f.Seek(0, io.SeekStart); serr == nil {
			if armored, aerr := openpgp.ReadArmoredKeyRing(f); aerr == nil {
				return armored, nil
			}
		}
		return nil, bserror.New(bserror.Config, path, fmt.Errorf("reading maintainer keyring: %w", err))
	}
	return keyring, nil
}
