package gateways

import (
	"fmt"

	"github.com/ochairo/trustscan/internal/external-adapters/gpg"
)

// gpgSnapshotSigner wraps the external GPG adapter to implement the SnapshotSigner interface
type gpgSnapshotSigner struct {
	signer *gpg.Signer
}

// NewGPGSnapshotSigner creates a snapshot signer with the keys from keyPath loaded.
// A private key enables SignFile; public keys are enough for VerifyFile.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGSnapshotSigner(keyPath string) (*gpgSnapshotSigner, error) {
	signer := gpg.NewSigner()
	if err := signer.ImportKeyFromFile(keyPath); err != nil {
		return nil, fmt.Errorf("failed to import GPG key from file: %w", err)
	}
	return &gpgSnapshotSigner{signer: signer}, nil
}

// SignFile writes an armored detached signature of filePath to sigPath
func (g *gpgSnapshotSigner) SignFile(filePath, sigPath string) error {
	if err := g.signer.SignFile(filePath, sigPath); err != nil {
		return fmt.Errorf("GPG signing failed: %w", err)
	}
	return nil
}

// VerifyFile verifies a detached signature from a local file
func (g *gpgSnapshotSigner) VerifyFile(filePath, sigPath string) error {
	if err := g.signer.VerifySignatureFromFile(filePath, sigPath); err != nil {
		return fmt.Errorf("GPG signature verification failed: %w", err)
	}
	return nil
}

// GetKeyringSize returns the number of keys loaded
func (g *gpgSnapshotSigner) GetKeyringSize() int {
	return g.signer.GetKeyringSize()
}
