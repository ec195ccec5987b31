package gateways

// SnapshotSigner creates and checks detached signatures for persisted snapshots
type SnapshotSigner interface {
	// SignFile writes an armored detached signature of filePath to sigPath
	SignFile(filePath, sigPath string) error
	// VerifyFile checks sigPath against filePath using the loaded keyring
	VerifyFile(filePath, sigPath string) error
}
