package services

import (
	"reflect"
	"testing"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

func TestFilterFindings_UnionSemantics(t *testing.T) {
	findings := []entities.Finding{
		{ID: "app:com.example.a:codesign_fail"},
		{ID: "app:com.example.b:quarantined"},
		{ID: "persistence:user:com.example.c:quarantined_only"},
		{ID: "kext:com.vendor.driver:unsigned"},
	}

	tests := []struct {
		name     string
		ids      []string
		patterns []string
		want     []string
	}{
		{
			name: "no suppression",
			want: []string{
				"app:com.example.a:codesign_fail",
				"app:com.example.b:quarantined",
				"persistence:user:com.example.c:quarantined_only",
				"kext:com.vendor.driver:unsigned",
			},
		},
		{
			name: "exact ids only",
			ids:  []string{"app:com.example.a:codesign_fail", "app:not:present"},
			want: []string{
				"app:com.example.b:quarantined",
				"persistence:user:com.example.c:quarantined_only",
				"kext:com.vendor.driver:unsigned",
			},
		},
		{
			name:     "patterns only",
			patterns: []string{`:quarantined(_only)?$`},
			want: []string{
				"app:com.example.a:codesign_fail",
				"kext:com.vendor.driver:unsigned",
			},
		},
		{
			name:     "one matching pattern is enough",
			patterns: []string{`^nothing$`, `^kext:`},
			want: []string{
				"app:com.example.a:codesign_fail",
				"app:com.example.b:quarantined",
				"persistence:user:com.example.c:quarantined_only",
			},
		},
		{
			name:     "ids and patterns together",
			ids:      []string{"app:com.example.a:codesign_fail"},
			patterns: []string{`^persistence:`},
			want: []string{
				"app:com.example.b:quarantined",
				"kext:com.vendor.driver:unsigned",
			},
		},
		{
			name:     "exact id is not a pattern",
			ids:      []string{"app:com.example.a"},
			patterns: nil,
			want: []string{
				"app:com.example.a:codesign_fail",
				"app:com.example.b:quarantined",
				"persistence:user:com.example.c:quarantined_only",
				"kext:com.vendor.driver:unsigned",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := entities.DefaultConfig()
			cfg.IgnoreFindings = tt.ids
			cfg.IgnorePatterns = tt.patterns
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}

			got := findingIDs(FilterFindings(findings, cfg))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterFindings_NilConfig(t *testing.T) {
	findings := []entities.Finding{{ID: "a"}}
	if got := FilterFindings(findings, nil); len(got) != 1 {
		t.Errorf("nil config should keep everything, got %d", len(got))
	}
}

func TestFilterByMinSeverity(t *testing.T) {
	findings := []entities.Finding{
		{ID: "h", Severity: entities.SeverityHigh},
		{ID: "m", Severity: entities.SeverityMed},
		{ID: "l", Severity: entities.SeverityLow},
		{ID: "i", Severity: entities.SeverityInfo},
	}

	tests := []struct {
		threshold entities.Severity
		want      []string
	}{
		{entities.SeverityHigh, []string{"h"}},
		{entities.SeverityMed, []string{"h", "m"}},
		{entities.SeverityLow, []string{"h", "m", "l"}},
		{entities.SeverityInfo, []string{"h", "m", "l", "i"}},
	}

	for _, tt := range tests {
		t.Run(tt.threshold.String(), func(t *testing.T) {
			got := findingIDs(FilterByMinSeverity(findings, tt.threshold))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterExcludedVendors(t *testing.T) {
	findings := []entities.Finding{
		{ID: "signed", Evidence: map[string]string{"codesign_team_id": "UBF8T346G9"}},
		{ID: "gatekeeper", Evidence: map[string]string{"spctl_team_id": "UBF8T346G9"}},
		{ID: "other", Evidence: map[string]string{"codesign_team_id": "EQHXZ8M8AV"}},
		{ID: "none"},
	}

	got := findingIDs(FilterExcludedVendors(findings, []string{"UBF8T346G9"}))
	want := []string{"other", "none"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if got := FilterExcludedVendors(findings, nil); len(got) != len(findings) {
		t.Errorf("empty exclude list should keep everything, got %d", len(got))
	}
}
