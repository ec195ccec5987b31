package entities

import (
	"fmt"
	"regexp"
)

// Config is the read-only scan configuration snapshot
type Config struct {
	MinRisk        Severity
	ExcludeVendors []string
	TrustedVendors []string
	IgnoreFindings []string
	IgnorePatterns []string
	BaselineFile   string

	TrustHomebrewCask bool
	TrustAppStore     bool
	TrustOldApps      bool
	OldAppDays        int

	HistoryDB     string
	SigningKey    string
	VerifyKeyring string

	compiled []*regexp.Regexp
}

// DefaultBaselineFile is used when no baseline path is configured
const DefaultBaselineFile = "~/.trustscan/baseline.json"

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		MinRisk:       SeverityMed,
		BaselineFile:  DefaultBaselineFile,
		TrustAppStore: true,
		OldAppDays:    30,
	}
}

// Validate compiles the suppression patterns and checks numeric fields.
// It must be called before the config is shared with a scan.
func (c *Config) Validate() error {
	if c.MinRisk < SeverityHigh || c.MinRisk > SeverityInfo {
		return fmt.Errorf("%w: min_risk %d", ErrInvalidSeverity, int(c.MinRisk))
	}
	if c.OldAppDays < 0 {
		return fmt.Errorf("old_app_days must not be negative, got %d", c.OldAppDays)
	}

	compiled := make([]*regexp.Regexp, 0, len(c.IgnorePatterns))
	for _, pattern := range c.IgnorePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	c.compiled = compiled
	return nil
}

// Patterns returns the suppression patterns compiled by the last Validate
func (c *Config) Patterns() []*regexp.Regexp {
	return c.compiled
}

// IsTrustedVendor reports whether a team id was added by the caller
func (c *Config) IsTrustedVendor(teamID string) bool {
	if teamID == "" {
		return false
	}
	for _, v := range c.TrustedVendors {
		if v == teamID {
			return true
		}
	}
	return false
}
