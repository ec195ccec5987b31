package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ochairo/trustscan/internal/domain/entities"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	toolName     = "trustscan"
)

// SarifLog is the top-level SARIF 2.1.0 document
type SarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun holds one tool invocation
type SarifRun struct {
	Tool    SarifTool     `json:"tool"`
	Results []SarifResult `json:"results"`
}

// SarifTool describes the producing tool
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver carries the tool identity and its rules
type SarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []SarifRule `json:"rules"`
}

// SarifRule is the metadata for one finding id
type SarifRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	ShortDescription SarifMessage `json:"shortDescription"`
	FullDescription  SarifMessage `json:"fullDescription"`
	Help             SarifMessage `json:"help"`
}

// SarifResult is one finding
type SarifResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"`
	Message    SarifMessage    `json:"message"`
	Locations  []SarifLocation `json:"locations,omitempty"`
	Properties SarifProperties `json:"properties"`
}

// SarifProperties carries trustscan-specific result data
type SarifProperties struct {
	Category string            `json:"category"`
	Risk     string            `json:"risk"`
	Evidence map[string]string `json:"evidence"`
}

// SarifMessage is a plain text message
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation points a result at a file
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation wraps the artifact location
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
}

// SarifArtifactLocation is the artifact URI
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// BuildSARIF converts a report. Rules are emitted once per distinct finding id,
// in first-occurrence order, and take their text from that first finding.
func BuildSARIF(report *entities.ScanReport, version string) *SarifLog {
	rules := make([]SarifRule, 0, len(report.Findings))
	results := make([]SarifResult, 0, len(report.Findings))
	seen := make(map[string]struct{}, len(report.Findings))

	for _, f := range report.Findings {
		if _, ok := seen[f.ID]; !ok {
			seen[f.ID] = struct{}{}
			rules = append(rules, SarifRule{
				ID:               f.ID,
				Name:             RuleName(f.ID),
				ShortDescription: SarifMessage{Text: f.Title},
				FullDescription:  SarifMessage{Text: f.Details},
				Help:             SarifMessage{Text: f.Recommendation},
			})
		}

		evidence := f.Evidence
		if evidence == nil {
			evidence = map[string]string{}
		}
		result := SarifResult{
			RuleID:  f.ID,
			Level:   SeverityLevel(f.Severity),
			Message: SarifMessage{Text: f.Title + ": " + f.Details},
			Properties: SarifProperties{
				Category: string(f.Category),
				Risk:     f.Severity.String(),
				Evidence: evidence,
			},
		}
		if f.Path != "" {
			result.Locations = []SarifLocation{{
				PhysicalLocation: SarifPhysicalLocation{
					ArtifactLocation: SarifArtifactLocation{URI: f.Path},
				},
			}}
		}
		results = append(results, result)
	}

	return &SarifLog{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []SarifRun{{
			Tool: SarifTool{
				Driver: SarifDriver{
					Name:    toolName,
					Version: version,
					Rules:   rules,
				},
			},
			Results: results,
		}},
	}
}

// WriteSARIF writes the SARIF document as indented JSON
func WriteSARIF(w io.Writer, report *entities.ScanReport, version string) error {
	data, err := json.MarshalIndent(BuildSARIF(report, version), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sarif: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write sarif: %w", err)
	}
	return nil
}

// SeverityLevel maps a severity to a SARIF level
func SeverityLevel(s entities.Severity) string {
	switch s {
	case entities.SeverityHigh:
		return "error"
	case entities.SeverityMed:
		return "warning"
	default:
		return "note"
	}
}

// RuleName turns "app:unsigned:elevated" into "app-unsigned-elevated"
func RuleName(id string) string {
	return strings.NewReplacer(":", "-", "_", "-").Replace(id)
}
