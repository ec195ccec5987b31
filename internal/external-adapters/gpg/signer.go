// Package gpg provides detached OpenPGP signing and verification of local files.
package gpg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

var (
	// ErrSignatureMismatch is returned when a detached signature does not verify against the keyring
	ErrSignatureMismatch = errors.New("signature verification failed")
	// ErrNoSigningKey is returned when signing without an unlocked private key in the keyring
	ErrNoSigningKey = errors.New("no usable private key in keyring")
)

const armoredSignatureHeader = "-----BEGIN PGP SIGNATURE---"

// Signer implements OpenPGP detached signatures using ProtonMail's go-crypto.
// The keyring may hold public keys for verification and an unencrypted private key for signing.
type Signer struct {
	keyring openpgp.EntityList
}

// NewSigner creates a signer with an empty keyring
func NewSigner() *Signer {
	return &Signer{
		keyring: make(openpgp.EntityList, 0),
	}
}

// ImportKeyFromFile imports public or private keys from an armored or binary keyring file
func (s *Signer) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath comes from the user's configuration
	f, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// Try reading as binary
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
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

	s.keyring = append(s.keyring, entities...)
	return nil
}

// SignFile writes an armored detached signature of filePath to sigPath
func (s *Signer) SignFile(filePath, sigPath string) error {
	signer := s.signingEntity()
	if signer == nil {
		return ErrNoSigningKey
	}

	//nolint:gosec // G304: filePath is the baseline location chosen by the user
	data, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer data.Close()

	//nolint:gosec // G304: sigPath sits next to the baseline file
	out, err := os.OpenFile(sigPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create signature file: %w", err)
	}

	if err := openpgp.ArmoredDetachSign(out, signer, data, nil); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to sign %s: %w", filePath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write signature file: %w", err)
	}
	return nil
}

// VerifySignatureFromFile verifies a detached signature from a local file
func (s *Signer) VerifySignatureFromFile(filePath, sigPath string) error {
	if len(s.keyring) == 0 {
		return fmt.Errorf("no GPG keys imported, call ImportKeyFromFile first")
	}

	//nolint:gosec // G304: sigPath sits next to the baseline file
	sigFile, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("failed to open signature file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer sigFile.Close()

	//nolint:gosec // G304: filePath is the baseline location chosen by the user
	dataFile, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer dataFile.Close()

	// Peek at signature file to determine if it's armored
	peekBuf := make([]byte, len(armoredSignatureHeader))
	n, _ := io.ReadFull(sigFile, peekBuf)
	isArmored := n == len(peekBuf) && string(peekBuf) == armoredSignatureHeader

	if _, seekErr := sigFile.Seek(0, io.SeekStart); seekErr != nil {
		return fmt.Errorf("failed to reset signature file: %w", seekErr)
	}

	var verifyErr error
	if isArmored {
		_, verifyErr = openpgp.CheckArmoredDetachedSignature(s.keyring, dataFile, sigFile, nil)
	} else {
		_, verifyErr = openpgp.CheckDetachedSignature(s.keyring, dataFile, sigFile, nil)
	}

	if verifyErr != nil {
		return fmt.Errorf("%w: %w", ErrSignatureMismatch, verifyErr)
	}
	return nil
}

// GetKeyringSize returns the number of keys in the keyring
func (s *Signer) GetKeyringSize() int {
	return len(s.keyring)
}

// ClearKeyring clears all imported keys
func (s *Signer) ClearKeyring() {
	s.keyring = make(openpgp.EntityList, 0)
}

func (s *Signer) signingEntity() *openpgp.Entity {
	for _, entity := range s.keyring {
		if entity.PrivateKey != nil && !entity.PrivateKey.Encrypted {
			return entity
		}
	}
	return nil
}
