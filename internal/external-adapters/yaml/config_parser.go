// Package yaml provides YAML-based configuration parsing and repository implementations.
package yaml

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// yamlConfig represents the raw YAML structure.
// Pointers distinguish "unset" from an explicit zero value.
type yamlConfig struct {
	MinRisk        string   `yaml:"min_risk"`
	ExcludeVendors []string `yaml:"exclude_vendors"`
	TrustedVendors []string `yaml:"trusted_vendors"`
	IgnoreFindings []string `yaml:"ignore_findings"`
	IgnorePatterns []string `yaml:"ignore_patterns"`
	BaselineFile   string   `yaml:"baseline_file"`

	TrustHomebrewCask *bool `yaml:"trust_homebrew_cask"`
	TrustAppStore     *bool `yaml:"trust_app_store"`
	TrustOldApps      *bool `yaml:"trust_old_apps"`
	OldAppDays        *int  `yaml:"old_app_days"`

	HistoryDB     string `yaml:"history_db"`
	SigningKey    string `yaml:"signing_key"`
	VerifyKeyring string `yaml:"verify_keyring"`
}

// ConfigParser parses YAML config files
type ConfigParser struct {
	homeDir string
}

// NewConfigParser creates a new YAML parser. homeDir is used to expand "~" in paths.
func NewConfigParser(homeDir string) *ConfigParser {
	return &ConfigParser{homeDir: homeDir}
}

// ParseFile parses a YAML config file into a validated Config entity
func (p *ConfigParser) ParseFile(filePath string) (*entities.Config, error) {
	//nolint:gosec // G304: filePath is the config path chosen by the user
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	cfg, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return cfg, nil
}

// Parse parses YAML bytes into a validated Config entity. Unset fields keep their defaults.
func (p *ConfigParser) Parse(data []byte) (*entities.Config, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg, err := p.convert(raw)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (p *ConfigParser) convert(raw yamlConfig) (*entities.Config, error) {
	cfg := entities.DefaultConfig()

	if raw.MinRisk != "" {
		sev, err := entities.ParseSeverity(raw.MinRisk)
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		cfg.MinRisk = sev
	}

	cfg.ExcludeVendors = raw.ExcludeVendors
	cfg.TrustedVendors = raw.TrustedVendors
	cfg.IgnoreFindings = raw.IgnoreFindings
	cfg.IgnorePatterns = raw.IgnorePatterns

	if raw.BaselineFile != "" {
		cfg.BaselineFile = raw.BaselineFile
	}
	cfg.BaselineFile = ExpandHome(cfg.BaselineFile, p.homeDir)

	if raw.TrustHomebrewCask != nil {
		cfg.TrustHomebrewCask = *raw.TrustHomebrewCask
	}
	if raw.TrustAppStore != nil {
		cfg.TrustAppStore = *raw.TrustAppStore
	}
	if raw.TrustOldApps != nil {
		cfg.TrustOldApps = *raw.TrustOldApps
	}
	if raw.OldAppDays != nil {
		cfg.OldAppDays = *raw.OldAppDays
	}

	cfg.HistoryDB = ExpandHome(raw.HistoryDB, p.homeDir)
	cfg.SigningKey = ExpandHome(raw.SigningKey, p.homeDir)
	cfg.VerifyKeyring = ExpandHome(raw.VerifyKeyring, p.homeDir)

	return cfg, nil
}

// ExpandHome replaces a leading "~" with homeDir
func ExpandHome(path, homeDir string) string {
	if homeDir == "" {
		return path
	}
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return homeDir + path[1:]
	}
	return path
}
