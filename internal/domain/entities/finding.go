package entities

import (
	"sort"
	"strings"
)

// Category groups findings by the kind of artifact they describe
type Category string

// Artifact categories
const (
	CategoryApp              Category = "app"
	CategoryPersistence      Category = "persistence"
	CategoryKext             Category = "kext"
	CategoryBrowserExtension Category = "browser_extension"
)

// AllCategories lists categories in scan order
func AllCategories() []Category {
	return []Category{CategoryApp, CategoryPersistence, CategoryKext, CategoryBrowserExtension}
}

// Finding is one reported issue or observation about one artifact.
// Findings are treated as values; code that needs to change one builds a new one.
type Finding struct {
	ID             string
	Category       Category
	Severity       Severity
	Title          string
	Details        string
	Recommendation string
	Path           string // empty when the artifact has no path
	Evidence       map[string]string
}

// FindingID builds the stable "{category}:{subject}:{rule}" identifier
func FindingID(category Category, subject, rule string) string {
	return strings.Join([]string{string(category), subject, rule}, ":")
}

// WithSeverity returns a copy of f carrying a different severity
func (f Finding) WithSeverity(s Severity) Finding {
	f.Evidence = copyEvidence(f.Evidence)
	f.Severity = s
	return f
}

// TeamID returns the publisher team id recorded in the evidence, if any
func (f Finding) TeamID() string {
	if id := f.Evidence["codesign_team_id"]; id != "" {
		return id
	}
	if id := f.Evidence["spctl_team_id"]; id != "" {
		return id
	}
	return f.Evidence["team_id"]
}

// SortFindings orders findings by severity rank, then title, then id.
// The id tiebreak keeps the order total when two findings share a title.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity != b.Severity {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

// CountBySeverity tallies findings per severity
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, len(severityNames))
	for _, s := range AllSeverities() {
		counts[s] = 0
	}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

func copyEvidence(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
