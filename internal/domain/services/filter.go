package services

import (
	"regexp"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

// FilterFindings applies configured suppression: exact ids first, then the
// union of ignore patterns. Input order is preserved.
func FilterFindings(findings []entities.Finding, cfg *entities.Config) []entities.Finding {
	if cfg == nil || (len(cfg.IgnoreFindings) == 0 && len(cfg.IgnorePatterns) == 0) {
		return findings
	}

	ignored := make(map[string]struct{}, len(cfg.IgnoreFindings))
	for _, id := range cfg.IgnoreFindings {
		ignored[id] = struct{}{}
	}
	patterns := cfg.Patterns()

	filtered := make([]entities.Finding, 0, len(findings))
	for _, f := range findings {
		if _, skip := ignored[f.ID]; skip {
			continue
		}
		if matchesAny(f.ID, patterns) {
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered
}

func matchesAny(id string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}

// FilterByMinSeverity keeps findings at least as severe as threshold.
// This is a presentation filter and runs after sorting.
func FilterByMinSeverity(findings []entities.Finding, threshold entities.Severity) []entities.Finding {
	filtered := make([]entities.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.AtLeast(threshold) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// FilterExcludedVendors drops findings whose signing team id is excluded.
// This is a presentation filter and runs after sorting.
func FilterExcludedVendors(findings []entities.Finding, excluded []string) []entities.Finding {
	if len(excluded) == 0 {
		return findings
	}
	set := make(map[string]struct{}, len(excluded))
	for _, v := range excluded {
		set[v] = struct{}{}
	}
	filtered := make([]entities.Finding, 0, len(findings))
	for _, f := range findings {
		if _, ok := set[f.Evidence["codesign_team_id"]]; ok {
			continue
		}
		if _, ok := set[f.Evidence["spctl_team_id"]]; ok {
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered
}
