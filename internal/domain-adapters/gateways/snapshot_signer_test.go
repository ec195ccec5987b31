package gateways

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/ochairo/trustscan/internal/external-adapters/gpg"
)

func writeTestKey(t *testing.T, dir string) string {
	t.Helper()
	entity, err := openpgp.NewEntity("baseline", "", "baseline@example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "key.asc")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := armor.Encode(f, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGPGSnapshotSigner_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	signer, err := NewGPGSnapshotSigner(writeTestKey(t, dir))
	if err != nil {
		t.Fatalf("NewGPGSnapshotSigner() error = %v", err)
	}
	if signer.GetKeyringSize() != 1 {
		t.Errorf("GetKeyringSize() = %d, want 1", signer.GetKeyringSize())
	}

	file := filepath.Join(dir, "baseline.json")
	if err := os.WriteFile(file, []byte(`{"findings":{}}`), 0600); err != nil {
		t.Fatal(err)
	}

	if err := signer.SignFile(file, file+".asc"); err != nil {
		t.Fatalf("SignFile() error = %v", err)
	}
	if err := signer.VerifyFile(file, file+".asc"); err != nil {
		t.Errorf("VerifyFile() error = %v", err)
	}

	if err := os.WriteFile(file, []byte(`{"findings":null}`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := signer.VerifyFile(file, file+".asc"); !errors.Is(err, gpg.ErrSignatureMismatch) {
		t.Errorf("VerifyFile() error = %v, want ErrSignatureMismatch", err)
	}
}

func TestNewGPGSnapshotSigner_MissingKey(t *testing.T) {
	if _, err := NewGPGSnapshotSigner(filepath.Join(t.TempDir(), "missing.asc")); err == nil {
		t.Error("NewGPGSnapshotSigner() should fail for a missing key file")
	}
}
