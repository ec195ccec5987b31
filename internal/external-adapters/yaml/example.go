package yaml

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExampleConfig is the commented template written by "config init"
const ExampleConfig = `# trustscan configuration

# Minimum severity to report: HIGH, MED, LOW or INFO
min_risk: MED

# Hide findings signed by these team ids
exclude_vendors: []

# Treat these team ids as known vendors
trusted_vendors: []
#  - ABCDE12345

# Exact finding ids to suppress
ignore_findings: []
#  - app:com.example.widget:gatekeeper_rejected

# Regular expressions matched against finding ids
ignore_patterns: []
#  - "^app:com\\.example\\..*:quarantined$"

# Where "baseline save" writes the snapshot
baseline_file: ~/.trustscan/baseline.json

# Context-aware trust
trust_homebrew_cask: false
trust_app_store: true
trust_old_apps: false
old_app_days: 30

# Optional SQLite database tracking finding history
history_db: ""

# Optional OpenPGP keys: sign baselines on save, verify them on load
signing_key: ""
verify_keyring: ""
`

// WriteExample writes ExampleConfig to path. An existing file is never overwritten.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(ExampleConfig), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
