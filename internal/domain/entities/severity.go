package entities

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSeverity is returned when a severity name cannot be parsed
var ErrInvalidSeverity = errors.New("invalid severity")

// Severity is the urgency of a finding. Lower rank is more severe.
type Severity int

// Severity levels, most severe first
const (
	SeverityHigh Severity = iota
	SeverityMed
	SeverityLow
	SeverityInfo
)

var severityNames = [...]string{"HIGH", "MED", "LOW", "INFO"}

// AllSeverities lists every severity in rank order
func AllSeverities() []Severity {
	return []Severity{SeverityHigh, SeverityMed, SeverityLow, SeverityInfo}
}

// ParseSeverity converts a case-insensitive name (HIGH, MED, LOW, INFO) into a Severity
func ParseSeverity(name string) (Severity, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	// MEDIUM is accepted for convenience
	if upper == "MEDIUM" {
		upper = "MED"
	}
	for i, n := range severityNames {
		if n == upper {
			return Severity(i), nil
		}
	}
	return SeverityInfo, fmt.Errorf("%w %q: must be one of INFO, LOW, MED, HIGH", ErrInvalidSeverity, name)
}

// Rank returns the sort rank (HIGH=0 ... INFO=3)
func (s Severity) Rank() int {
	return int(s)
}

// String returns the canonical name
func (s Severity) String() string {
	if s < SeverityHigh || s > SeverityInfo {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// MoreSevereThan reports whether s ranks strictly above other
func (s Severity) MoreSevereThan(other Severity) bool {
	return s < other
}

// AtLeast reports whether s is as severe as threshold or more
func (s Severity) AtLeast(threshold Severity) bool {
	return s <= threshold
}

// MarshalText encodes the severity as its name
func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityHigh || s > SeverityInfo {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSeverity, int(s))
	}
	return []byte(severityNames[s]), nil
}

// UnmarshalText decodes a severity name
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
